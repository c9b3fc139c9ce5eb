package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

type (
	StorageKind string

	// StorageConfiguration is a tagged union over the supported backends.
	// Only the member matching Kind is consulted.
	StorageConfiguration struct {
		Kind  StorageKind         `json:"kind"`
		Local *LocalStorageConfig `json:"local,omitempty"`
		S3    *S3StorageConfig    `json:"s3,omitempty"`
		GCS   *GCSStorageConfig   `json:"gcs,omitempty"`
		Azure *AzureStorageConfig `json:"azure,omitempty"`
	}

	LocalStorageConfig struct {
		Path string `json:"path"`
	}

	S3StorageConfig struct {
		Endpoint    string `json:"endpoint"`
		Bucket      string `json:"bucket"`
		Region      string `json:"region"`
		AccessKeyID string `json:"access_key_id"`
		SecretKey   string `json:"secret_key"`
		Prefix      string `json:"prefix,omitempty"`
		UseSSL      bool   `json:"use_ssl"`
	}

	GCSStorageConfig struct {
		Bucket    string `json:"bucket"`
		ProjectID string `json:"project_id"`
		Prefix    string `json:"prefix,omitempty"`
	}

	AzureStorageConfig struct {
		Container   string `json:"container"`
		AccountName string `json:"account_name"`
		AccountKey  string `json:"account_key"`
		Prefix      string `json:"prefix,omitempty"`
	}
)

const (
	StorageKindLocal StorageKind = "local"
	StorageKindS3    StorageKind = "s3"
	StorageKindGCS   StorageKind = "gcs"
	StorageKindAzure StorageKind = "azure"
)

func (k StorageKind) String() string {
	return string(k)
}

func (s StorageConfiguration) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StorageConfiguration) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan StorageConfiguration: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}
