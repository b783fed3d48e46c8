package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/flowershop/admin-api/internal/domain"
)

// ErrInvalidDataURL is returned when an upload payload is not a base64 data URL.
var ErrInvalidDataURL = errors.New("storage: invalid data url")

var allowedMediaPrefixes = []string{"image/", "video/"}

// DecodeDataURL turns "data:<type>;base64,<payload>" into a RawAsset.
func DecodeDataURL(raw string) (domain.RawAsset, error) {
	raw = strings.TrimSpace(raw)
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return domain.RawAsset{}, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURL)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return domain.RawAsset{}, fmt.Errorf("%w: missing payload", ErrInvalidDataURL)
	}
	contentType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return domain.RawAsset{}, fmt.Errorf("%w: only base64 payloads are accepted", ErrInvalidDataURL)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !mediaTypeAllowed(contentType) {
		return domain.RawAsset{}, fmt.Errorf("%w: content type %q not allowed", ErrInvalidDataURL, contentType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return domain.RawAsset{}, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) == 0 {
		return domain.RawAsset{}, fmt.Errorf("%w: empty payload", ErrInvalidDataURL)
	}
	return domain.RawAsset{ContentType: contentType, Data: data}, nil
}

func mediaTypeAllowed(contentType string) bool {
	for _, prefix := range allowedMediaPrefixes {
		if strings.HasPrefix(contentType, prefix) && len(contentType) > len(prefix) {
			return true
		}
	}
	return false
}
