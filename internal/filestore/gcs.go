package filestore

import (
	"context"
	"io"

	"github.com/yungbote/docinsight-backend/internal/platform/gcp"
)

// GCSStore keeps files in a bucket; public paths are bucket URLs.
type GCSStore struct {
	bucket gcp.BucketService
}

func NewGCSStore(bucket gcp.BucketService) *GCSStore {
	return &GCSStore{bucket: bucket}
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := s.bucket.UploadFile(ctx, k, r); err != nil {
		return "", err
	}
	return s.bucket.GetPublicURL(k), nil
}

func (s *GCSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	return s.bucket.DownloadFile(ctx, k)
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.bucket.ListKeys(ctx, prefix)
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	return s.bucket.DeleteFile(ctx, k)
}

func (s *GCSStore) PublicPath(key string) string {
	k, err := cleanKey(key)
	if err != nil {
		return ""
	}
	return s.bucket.GetPublicURL(k)
}

func (s *GCSStore) Close() error { return s.bucket.Close() }
