package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/platform/config"
)

const defaultCacheControl = "public, max-age=86400"

var (
	errInvalidBucket   = errors.New("storage: bucket name is required")
	errInvalidPublicID = errors.New("storage: public id is required")
	errEmptyAsset      = errors.New("storage: asset payload is empty")
)

// objectBackend is the slice of Cloud Storage the asset store needs.
type objectBackend interface {
	Write(ctx context.Context, bucket, object, contentType string, data []byte) error
	Delete(ctx context.Context, bucket, object string) error
}

// AssetStore uploads flower media to a bucket and deletes it by public id.
type AssetStore struct {
	backend    objectBackend
	bucket     string
	publicBase string
	prefix     string
	newID      func() string
}

// AssetStoreOption customises AssetStore construction.
type AssetStoreOption func(*AssetStore)

// WithIDGenerator overrides the object id generator (defaults to ULIDs).
func WithIDGenerator(gen func() string) AssetStoreOption {
	return func(s *AssetStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func withBackend(backend objectBackend) AssetStoreOption {
	return func(s *AssetStore) {
		s.backend = backend
	}
}

// NewAssetStore builds an AssetStore writing to cfg.AssetsBucket through client.
func NewAssetStore(client *gcs.Client, cfg config.StorageConfig, opts ...AssetStoreOption) (*AssetStore, error) {
	bucket := strings.TrimSpace(cfg.AssetsBucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	store := &AssetStore{
		bucket:     bucket,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		prefix:     cfg.ObjectPrefix,
		newID:      func() string { return strings.ToLower(ulid.Make().String()) },
	}
	if client != nil {
		store.backend = gcsBackend{client: client}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.backend == nil {
		return nil, errors.New("storage: client is required")
	}
	return store, nil
}

// Upload writes raw under a fresh object name and returns its public url and id.
func (s *AssetStore) Upload(ctx context.Context, raw domain.RawAsset) (domain.Asset, error) {
	if len(raw.Data) == 0 {
		return domain.Asset{}, errEmptyAsset
	}
	object, err := BuildObjectPath(PurposeFlowerMedia, PathParams{
		Prefix:      s.prefix,
		AssetID:     s.newID(),
		FileName:    raw.FileName,
		ContentType: raw.ContentType,
	})
	if err != nil {
		return domain.Asset{}, err
	}
	if err := s.backend.Write(ctx, s.bucket, object, raw.ContentType, raw.Data); err != nil {
		return domain.Asset{}, fmt.Errorf("storage: upload %s: %w", object, err)
	}
	return domain.Asset{URL: s.publicURL(object), PublicID: object}, nil
}

// DeleteByPublicID removes the object behind publicID. Missing objects are not an error.
func (s *AssetStore) DeleteByPublicID(ctx context.Context, publicID string) error {
	object := strings.TrimSpace(publicID)
	if object == "" {
		return errInvalidPublicID
	}
	if strings.Contains(object, "..") {
		return fmt.Errorf("storage: public id %q contains invalid traversal sequence", publicID)
	}
	if err := s.backend.Delete(ctx, s.bucket, object); err != nil {
		return fmt.Errorf("storage: delete %s: %w", object, err)
	}
	return nil
}

func (s *AssetStore) publicURL(object string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBase, s.bucket, object)
}

type gcsBackend struct {
	client *gcs.Client
}

func (b gcsBackend) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	w := b.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = defaultCacheControl
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b gcsBackend) Delete(ctx context.Context, bucket, object string) error {
	err := b.client.Bucket(bucket).Object(object).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}
