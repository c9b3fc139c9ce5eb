package storage

import (
	"context"
	"errors"
	"io"

	"dataguard/internal/types"
)

type (
	// Provider is the backend agnostic contract both the backup and the
	// archive flows write through.
	Provider interface {
		Upload(ctx context.Context, name string, content io.Reader, size int64) (string, error)
		Download(ctx context.Context, name string) (*types.File, error)
		Delete(ctx context.Context, name string) error
		List(ctx context.Context, prefix string) ([]string, error)
		Exists(ctx context.Context, name string) (bool, error)
		Metadata(ctx context.Context, name string) (*types.ObjectInfo, error)
		Ping(ctx context.Context) error
	}
)

var (
	ErrNotFound = errors.New("object not found")

	// ErrProviderNotImplemented is returned for declared but unimplemented
	// backends (gcs, azure). Failing loudly here keeps callers from treating
	// a skipped upload as a success.
	ErrProviderNotImplemented = errors.New("storage provider not implemented")
)
