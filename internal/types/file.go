package types

import (
	"io"
	"time"
)

type File struct {
	Content io.ReadCloser
	Stat    FileStat
}

type FileStat struct {
	Size int64
	Name string
}

// ObjectInfo is the metadata a storage provider reports for a stored object.
type ObjectInfo struct {
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag,omitempty"`
}
