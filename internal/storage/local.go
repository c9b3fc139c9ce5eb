package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dataguard/internal/types"
)

type localProvider struct {
	baseDir string
}

func NewLocalProvider(cfg types.LocalStorageConfig) Provider {
	return &localProvider{baseDir: cfg.Path}
}

func (l localProvider) Upload(ctx context.Context, name string, content io.Reader, size int64) (string, error) {
	location := filepath.Join(l.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(location), 0700); err != nil {
		return "", err
	}

	fi, err := os.Create(location)
	if err != nil {
		return "", err
	}
	defer fi.Close()

	if _, err := io.Copy(fi, content); err != nil {
		return "", err
	}
	return location, nil
}

func (l localProvider) Download(ctx context.Context, name string) (*types.File, error) {
	location := filepath.Join(l.baseDir, name)
	fi, err := os.Open(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	stat, err := fi.Stat()
	if err != nil {
		fi.Close()
		return nil, err
	}

	return &types.File{
		Content: fi,
		Stat:    types.FileStat{Size: stat.Size(), Name: name},
	}, nil
}

// Delete is idempotent: removing a missing name is not an error.
func (l localProvider) Delete(ctx context.Context, name string) error {
	err := os.Remove(filepath.Join(l.baseDir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l localProvider) List(ctx context.Context, prefix string) ([]string, error) {
	names := make([]string, 0)
	err := filepath.WalkDir(l.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(l.baseDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

func (l localProvider) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(l.baseDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l localProvider) Metadata(ctx context.Context, name string) (*types.ObjectInfo, error) {
	stat, err := os.Stat(filepath.Join(l.baseDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &types.ObjectInfo{
		Size:         stat.Size(),
		LastModified: stat.ModTime(),
	}, nil
}

func (l localProvider) Ping(ctx context.Context) error {
	return os.MkdirAll(l.baseDir, 0700)
}
