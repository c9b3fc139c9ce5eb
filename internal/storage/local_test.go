package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataguard/internal/types"
)

func newLocal(t *testing.T) Provider {
	t.Helper()
	return NewLocalProvider(types.LocalStorageConfig{Path: t.TempDir()})
}

func TestLocalProviderRoundtrip(t *testing.T) {
	ctx := context.Background()
	p := newLocal(t)
	content := []byte("backup artifact payload")

	location, err := p.Upload(ctx, "backup_test.sql.gz", bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.NotEmpty(t, location)

	exists, err := p.Exists(ctx, "backup_test.sql.gz")
	require.NoError(t, err)
	assert.True(t, exists)

	f, err := p.Download(ctx, "backup_test.sql.gz")
	require.NoError(t, err)
	defer f.Content.Close()

	got, err := io.ReadAll(f.Content)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, int64(len(content)), f.Stat.Size)

	info, err := p.Metadata(ctx, "backup_test.sql.gz")
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.False(t, info.LastModified.IsZero())

	require.NoError(t, p.Delete(ctx, "backup_test.sql.gz"))
	exists, err = p.Exists(ctx, "backup_test.sql.gz")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalProviderDownloadMissing(t *testing.T) {
	p := newLocal(t)
	_, err := p.Download(context.Background(), "nope.gz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.Metadata(context.Background(), "nope.gz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalProviderDeleteIdempotent(t *testing.T) {
	p := newLocal(t)
	assert.NoError(t, p.Delete(context.Background(), "never-existed"))
}

func TestLocalProviderListPrefix(t *testing.T) {
	ctx := context.Background()
	p := newLocal(t)

	for _, name := range []string{"archive_logs_a.json", "archive_logs_b.json", "backup_x.sql.gz"} {
		_, err := p.Upload(ctx, name, bytes.NewReader([]byte("x")), 1)
		require.NoError(t, err)
	}

	names, err := p.List(ctx, "archive_")
	require.NoError(t, err)
	assert.Equal(t, []string{"archive_logs_a.json", "archive_logs_b.json"}, names)

	all, err := p.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
