package storage

import (
	"fmt"
	"mime"
	"path"
	"strings"
)

// AssetPurpose captures high-level intent for storage layout decisions.
type AssetPurpose string

// PurposeFlowerMedia covers flower images and videos.
const PurposeFlowerMedia AssetPurpose = "flower-media"

// PathParams provide the identifiers used to compose storage object keys.
type PathParams struct {
	Prefix      string
	AssetID     string
	FileName    string
	ContentType string
}

// BuildObjectPath resolves the storage object path for the given purpose. The returned
// path doubles as the asset's public id.
func BuildObjectPath(purpose AssetPurpose, params PathParams) (string, error) {
	assetID, err := validateSegment("assetID", params.AssetID)
	if err != nil {
		return "", err
	}
	prefix := strings.Trim(strings.TrimSpace(params.Prefix), "/")
	if strings.Contains(prefix, "..") {
		return "", fmt.Errorf("storage: prefix contains invalid traversal sequence")
	}

	var dir string
	switch purpose {
	case PurposeFlowerMedia:
		dir = "media"
	default:
		return "", fmt.Errorf("storage: unsupported asset purpose %q", purpose)
	}

	name := assetID + extensionFor(params.FileName, params.ContentType)
	if prefix == "" {
		return path.Join(dir, name), nil
	}
	return path.Join(prefix, dir, name), nil
}

func extensionFor(fileName, contentType string) string {
	if ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName))); ext != "" && !strings.ContainsAny(ext, `/\`) {
		return ext
	}
	if contentType == "" {
		return ""
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	}
	return exts[0]
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
