package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dataguard/internal/database"
	"dataguard/internal/dump"
	"dataguard/internal/misc"
	"dataguard/internal/storage"
	"dataguard/internal/types"
)

type backupFixture struct {
	db          *gorm.DB
	store       database.TableStore
	configs     database.BackupConfigurationRepository
	jobs        database.BackupJobRepository
	restores    database.RestoreJobRepository
	storagePath string
}

func newBackupFixture(t *testing.T) *backupFixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE scans (id integer primary key, target text, created_at datetime)").Error)

	f := &backupFixture{
		db:          db,
		store:       database.NewTableStore(db),
		configs:     database.NewBackupConfigurationRepository(db),
		jobs:        database.NewBackupJobRepository(db),
		restores:    database.NewRestoreJobRepository(db),
		storagePath: t.TempDir(),
	}

	rows := make([]map[string]interface{}, 0, 3)
	for _, target := range []string{"alpha", "beta", "gamma"} {
		rows = append(rows, map[string]interface{}{
			"target":     target,
			"created_at": time.Now().UTC(),
		})
	}
	_, err = f.store.Insert(context.Background(), "scans", rows)
	require.NoError(t, err)
	return f
}

func (f *backupFixture) saveConfig(t *testing.T, encrypted bool) *types.BackupConfiguration {
	t.Helper()
	cfg := &types.BackupConfiguration{
		ID:      uuid.New(),
		Name:    "nightly",
		Enabled: true,
		Schedule: types.Schedule{
			Frequency: "daily",
			TimeOfDay: "03:00",
		},
		Retention: types.RetentionPolicy{Daily: 7},
		Storage: types.StorageConfiguration{
			Kind:  types.StorageKindLocal,
			Local: &types.LocalStorageConfig{Path: f.storagePath},
		},
		Encryption:     types.EncryptionConfig{Enabled: encrypted, Algorithm: "aes-256-gcm"},
		Tables:         types.StringList{"scans"},
		OrganizationID: uuid.New(),
		CreatedAt:      time.Now(),
	}
	require.NoError(t, f.configs.Save(context.Background(), cfg))
	return cfg
}

func (f *backupFixture) service(t *testing.T, encrypted bool) BackupService {
	t.Helper()
	var encryptor misc.Encryptor
	if encrypted {
		var err error
		encryptor, err = misc.NewEncryptor("test environment key")
		require.NoError(t, err)
	}
	return NewBackupService(f.configs, f.jobs, f.restores,
		storage.NewFactory(), dump.NewDumper(f.store, nil), encryptor, nil, "test")
}

func waitForBackup(t *testing.T, svc BackupService, id uuid.UUID) *types.BackupJob {
	t.Helper()
	var job *types.BackupJob
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.GetBackupJob(context.Background(), id)
		return err == nil && job.Status.Terminal()
	}, 10*time.Second, 25*time.Millisecond)
	return job
}

func waitForRestore(t *testing.T, svc BackupService, id uuid.UUID) *types.RestoreJob {
	t.Helper()
	var job *types.RestoreJob
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.GetRestoreJob(context.Background(), id)
		return err == nil && job.Status.Terminal()
	}, 10*time.Second, 25*time.Millisecond)
	return job
}

func TestCreateBackupPipeline(t *testing.T) {
	f := newBackupFixture(t)
	cfg := f.saveConfig(t, false)
	svc := f.service(t, false)

	jobID, err := svc.CreateBackup(context.Background(), cfg.ID)
	require.NoError(t, err)

	job := waitForBackup(t, svc, jobID)
	assert.Equal(t, types.JobStatusCompleted, job.Status)
	assert.NotNil(t, job.EndTime)
	assert.Equal(t, int64(3), job.RecordCount)
	assert.NotZero(t, job.Size)
	assert.NotEmpty(t, job.Location)
	assert.Equal(t, "gzip", job.Metadata.Compression)
	assert.Equal(t, []string{"scans"}, job.Metadata.Tables)
	assert.False(t, job.Metadata.Encrypted)

	// the stored checksum covers exactly the bytes retrievable from storage
	file, err := svc.Download(context.Background(), jobID)
	require.NoError(t, err)
	defer file.Content.Close()
	content, err := io.ReadAll(file.Content)
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), job.Metadata.Checksum)
	assert.Equal(t, int64(len(content)), job.Size)
}

func TestCreateBackupRejectsDisabledConfiguration(t *testing.T) {
	f := newBackupFixture(t)
	cfg := f.saveConfig(t, false)
	cfg.Enabled = false
	require.NoError(t, f.configs.Save(context.Background(), cfg))

	svc := f.service(t, false)
	_, err := svc.CreateBackup(context.Background(), cfg.ID)
	assert.ErrorIs(t, err, ErrConfigurationDisabled)
}

func TestCreateBackupUnknownConfiguration(t *testing.T) {
	f := newBackupFixture(t)
	svc := f.service(t, false)

	_, err := svc.CreateBackup(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestBackupFailsWhenEncryptionKeyMissing(t *testing.T) {
	f := newBackupFixture(t)
	cfg := f.saveConfig(t, true)
	svc := f.service(t, false) // no encryptor wired

	jobID, err := svc.CreateBackup(context.Background(), cfg.ID)
	require.NoError(t, err)

	job := waitForBackup(t, svc, jobID)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "no key configured")
}

func TestEncryptedBackupAndRestoreRoundtrip(t *testing.T) {
	f := newBackupFixture(t)
	cfg := f.saveConfig(t, true)
	svc := f.service(t, true)

	jobID, err := svc.CreateBackup(context.Background(), cfg.ID)
	require.NoError(t, err)
	job := waitForBackup(t, svc, jobID)
	require.Equal(t, types.JobStatusCompleted, job.Status)
	assert.True(t, job.Metadata.Encrypted)

	// wipe the live table, then replay the artifact
	require.NoError(t, f.store.Truncate(context.Background(), "scans"))

	restoreID, err := svc.CreateRestore(context.Background(), jobID, types.RestoreOptions{Overwrite: true})
	require.NoError(t, err)
	restore := waitForRestore(t, svc, restoreID)
	assert.Equal(t, types.JobStatusCompleted, restore.Status)
	assert.Equal(t, int64(3), restore.RestoredRecords)

	count, err := f.store.Count(context.Background(), "scans", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestRestoreRequiresCompletedBackup(t *testing.T) {
	f := newBackupFixture(t)
	svc := f.service(t, false)

	pending := &types.BackupJob{
		ID:              uuid.New(),
		ConfigurationID: uuid.New(),
		Status:          types.JobStatusPending,
		StartTime:       time.Now(),
	}
	require.NoError(t, f.jobs.Save(context.Background(), pending))

	_, err := svc.CreateRestore(context.Background(), pending.ID, types.RestoreOptions{})
	assert.ErrorIs(t, err, ErrBackupNotRestorable)
}

func TestRegistryPurge(t *testing.T) {
	registry := newJobRegistry()
	job := &types.BackupJob{ID: uuid.New(), Status: types.JobStatusCompleted}
	registry.putBackup(job)

	// fresh entries survive
	assert.Zero(t, registry.purge(time.Hour))
	_, ok := registry.getBackup(job.ID)
	assert.True(t, ok)

	// aged entries are reaped
	registry.mu.Lock()
	registry.backups[job.ID].touched = time.Now().Add(-25 * time.Hour)
	registry.mu.Unlock()
	assert.Equal(t, 1, registry.purge(24*time.Hour))
	_, ok = registry.getBackup(job.ID)
	assert.False(t, ok)
}
