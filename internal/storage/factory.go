package storage

import (
	errors2 "github.com/pkg/errors"

	"dataguard/internal/types"
)

// Factory maps a StorageConfiguration onto a concrete Provider.
type Factory interface {
	Create(cfg types.StorageConfiguration) (Provider, error)
}

type factory struct{}

func NewFactory() Factory {
	return &factory{}
}

func (f factory) Create(cfg types.StorageConfiguration) (Provider, error) {
	switch cfg.Kind {
	case types.StorageKindLocal:
		if cfg.Local == nil || cfg.Local.Path == "" {
			return nil, errors2.New("local storage configuration requires a path")
		}
		return NewLocalProvider(*cfg.Local), nil
	case types.StorageKindS3:
		if cfg.S3 == nil || cfg.S3.Bucket == "" {
			return nil, errors2.New("s3 storage configuration requires a bucket")
		}
		return NewObjectProvider(*cfg.S3)
	case types.StorageKindGCS, types.StorageKindAzure:
		return nil, errors2.Wrapf(ErrProviderNotImplemented, "%s", cfg.Kind)
	default:
		return nil, errors2.Errorf("unsupported storage kind: %s", cfg.Kind)
	}
}
