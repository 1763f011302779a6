package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/filestore"
	"github.com/yungbote/docinsight-backend/internal/platform/envutil"
	"github.com/yungbote/docinsight-backend/internal/platform/gcp"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

var newBucketService = gcp.NewBucketService

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode     StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingBucket   StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorMissingLocalDir StorageProviderBootstrapErrorCode = "missing_local_dir"
	StorageProviderBootstrapErrorConnectFailed   StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code  StorageProviderBootstrapErrorCode
	Mode  string
	Cause error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf("object storage bootstrap failed (code=%s mode=%q): %v", e.Code, e.Mode, e.Cause)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveFileStore picks where uploaded documents live. Local mode also
// reports the directory the router should serve.
func resolveFileStore(ctx context.Context, log *logger.Logger, cfg config.StorageConfig) (filestore.Store, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch mode {
	case "", "local":
		if strings.TrimSpace(cfg.LocalDir) == "" {
			return nil, "", bootstrapError(log, StorageProviderBootstrapErrorMissingLocalDir, mode, errors.New("storage.local_dir is empty"))
		}
		store, err := filestore.NewLocalStore(cfg.LocalDir, cfg.PublicPrefix)
		if err != nil {
			return nil, "", bootstrapError(log, StorageProviderBootstrapErrorConnectFailed, mode, err)
		}
		log.Info("Selecting object storage provider", "mode", "local", "dir", store.Root(), "prefix", store.Prefix())
		return store, store.Root(), nil
	case "gcs":
		if strings.TrimSpace(cfg.Bucket) == "" {
			return nil, "", bootstrapError(log, StorageProviderBootstrapErrorMissingBucket, mode, errors.New("GCS_BUCKET_NAME is empty"))
		}
		log.Info("Selecting object storage provider", "mode", "gcs", "bucket", cfg.Bucket)
		bucket, err := newBucketService(ctx, log, gcp.BucketConfig{
			Name:          cfg.Bucket,
			PublicBaseURL: cfg.PublicBaseURL,
			EmulatorHost:  envutil.String("STORAGE_EMULATOR_HOST", ""),
		})
		if err != nil {
			return nil, "", bootstrapError(log, StorageProviderBootstrapErrorConnectFailed, mode, err)
		}
		return filestore.NewGCSStore(bucket), "", nil
	default:
		return nil, "", bootstrapError(log, StorageProviderBootstrapErrorInvalidMode, mode, fmt.Errorf("unsupported object storage mode %q", cfg.Mode))
	}
}

func bootstrapError(log *logger.Logger, code StorageProviderBootstrapErrorCode, mode string, cause error) error {
	err := &StorageProviderBootstrapError{Code: code, Mode: mode, Cause: cause}
	log.Error("Object storage provider bootstrap failed", "mode", mode, "error_code", code, "error", cause)
	return err
}
