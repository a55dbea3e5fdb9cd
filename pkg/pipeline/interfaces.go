package pipeline

import (
	"context"

	"github.com/gel-ops/exifstrip/pkg/storage"
)

// BlobStore abstracts the object store the pipeline moves files between.
type BlobStore interface {
	Download(ctx context.Context, bucket, key, localPath string) (*storage.DownloadResult, error)
	Upload(ctx context.Context, bucket, key, localPath, kmsKeyARN string) error
	Delete(ctx context.Context, bucket, key string) error
	BucketExists(ctx context.Context, bucket string) error
}

// ParameterSource abstracts the parameter store backing the config cache.
type ParameterSource interface {
	GetParameters(ctx context.Context, names []string) (map[string]string, error)
}

// FileProcessor handles one file event under a given batch configuration.
type FileProcessor interface {
	Process(ctx context.Context, cfg *Config, ev FileEvent) (Outcome, error)
}
