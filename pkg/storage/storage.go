package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chuanghiduoc/progress-mailer/config"
)

// ErrNotExist is returned by Get when no object is stored at the path.
var ErrNotExist = errors.New("object does not exist")

// Storage archives finished run reports under slash-separated keys.
type Storage interface {
	Put(ctx context.Context, path string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

func NewStorage(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "local":
		return NewLocalStorage(cfg.LocalPath)
	case "s3", "minio":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
