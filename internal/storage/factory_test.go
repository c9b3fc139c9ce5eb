package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dataguard/internal/types"
)

func TestFactoryCreate(t *testing.T) {
	f := NewFactory()

	tests := []struct {
		name    string
		cfg     types.StorageConfiguration
		wantErr error
	}{
		{
			name: "local",
			cfg: types.StorageConfiguration{
				Kind:  types.StorageKindLocal,
				Local: &types.LocalStorageConfig{Path: t.TempDir()},
			},
		},
		{
			name:    "gcs declared but unimplemented",
			cfg:     types.StorageConfiguration{Kind: types.StorageKindGCS, GCS: &types.GCSStorageConfig{Bucket: "b"}},
			wantErr: ErrProviderNotImplemented,
		},
		{
			name:    "azure declared but unimplemented",
			cfg:     types.StorageConfiguration{Kind: types.StorageKindAzure, Azure: &types.AzureStorageConfig{Container: "c"}},
			wantErr: ErrProviderNotImplemented,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := f.Create(test.cfg)
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				assert.Nil(t, p)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}

func TestFactoryRejectsIncompleteConfig(t *testing.T) {
	f := NewFactory()

	_, err := f.Create(types.StorageConfiguration{Kind: types.StorageKindLocal})
	assert.Error(t, err)

	_, err = f.Create(types.StorageConfiguration{Kind: types.StorageKindS3})
	assert.Error(t, err)

	_, err = f.Create(types.StorageConfiguration{Kind: "tape"})
	assert.Error(t, err)
}
