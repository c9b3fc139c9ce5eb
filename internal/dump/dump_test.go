package dump

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataguard/internal/database"
	"dataguard/internal/types"
	"dataguard/logger"
)

func init() {
	_ = logger.InitLogger("development")
}

func openStore(t *testing.T) database.TableStore {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE scans (id integer primary key, name text, created_at datetime)").Error)
	require.NoError(t, db.Exec("CREATE TABLE scans_copy (id integer primary key, name text, created_at datetime)").Error)
	return database.NewTableStore(db)
}

func seedScans(t *testing.T, store database.TableStore, n int) {
	t.Helper()
	rows := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, map[string]interface{}{
			"name":       "scan",
			"created_at": time.Now().UTC(),
		})
	}
	inserted, err := store.Insert(context.Background(), "scans", rows)
	require.NoError(t, err)
	require.Equal(t, int64(n), inserted)
}

func TestDumpAndReplayRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	seedScans(t, store, 5)

	d := NewDumper(store, nil)
	result, err := d.Dump(ctx, []string{"scans"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.RecordCount)
	assert.Empty(t, result.TableErrors)

	require.NoError(t, store.Truncate(ctx, "scans"))
	count, err := store.Count(ctx, "scans", "")
	require.NoError(t, err)
	require.Zero(t, count)

	restored, err := d.Replay(ctx, bytes.NewReader(result.Data), types.RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), restored)

	count, err = store.Count(ctx, "scans", "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestDumpRecordsMissingTableInline(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	seedScans(t, store, 2)

	d := NewDumper(store, nil)
	result, err := d.Dump(ctx, []string{"scans", "no_such_table"})
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.RecordCount)
	assert.Contains(t, result.TableErrors, "no_such_table")
}

func TestReplayTableSubset(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	seedScans(t, store, 3)

	d := NewDumper(store, nil)
	result, err := d.Dump(ctx, []string{"scans"})
	require.NoError(t, err)

	restored, err := d.Replay(ctx, bytes.NewReader(result.Data), types.RestoreOptions{
		Tables: []string{"other_table"},
	})
	require.NoError(t, err)
	assert.Zero(t, restored)
}

func TestReplayOverwrite(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	seedScans(t, store, 4)

	d := NewDumper(store, nil)
	result, err := d.Dump(ctx, []string{"scans"})
	require.NoError(t, err)

	restored, err := d.Replay(ctx, bytes.NewReader(result.Data), types.RestoreOptions{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, int64(4), restored)

	count, err := store.Count(ctx, "scans", "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestReplayPointInTime(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	_, err := store.Insert(ctx, "scans", []map[string]interface{}{
		{"name": "old", "created_at": time.Now().UTC().Add(-48 * time.Hour)},
		{"name": "new", "created_at": time.Now().UTC()},
	})
	require.NoError(t, err)

	d := NewDumper(store, nil)
	result, err := d.Dump(ctx, []string{"scans"})
	require.NoError(t, err)
	require.NoError(t, store.Truncate(ctx, "scans"))

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	restored, err := d.Replay(ctx, bytes.NewReader(result.Data), types.RestoreOptions{
		PointInTime: &cutoff,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), restored)

	rows, err := store.Select(ctx, "scans", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "old", rows[0]["name"])
}

func TestReplayTargetTableOverride(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	seedScans(t, store, 3)

	d := NewDumper(store, nil)
	result, err := d.Dump(ctx, []string{"scans"})
	require.NoError(t, err)

	restored, err := d.Replay(ctx, bytes.NewReader(result.Data), types.RestoreOptions{
		TargetTable: "scans_copy",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), restored)

	// rows land in the override table, the source stays untouched
	count, err := store.Count(ctx, "scans_copy", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = store.Count(ctx, "scans", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestDumperRefusesUntrackedTable(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	seedScans(t, store, 1)

	d := NewDumper(store, []string{"audit_logs"})
	result, err := d.Dump(ctx, []string{"scans"})
	require.NoError(t, err)
	assert.Contains(t, result.TableErrors, "scans")
	assert.Zero(t, result.RecordCount)
}
