package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	errors2 "github.com/pkg/errors"
	"go.uber.org/zap"

	"dataguard/internal/database"
	"dataguard/internal/dump"
	"dataguard/internal/misc"
	"dataguard/internal/storage"
	"dataguard/internal/types"
	"dataguard/logger"
)

type (
	BackupService interface {
		// CreateBackup allocates a pending job, returns its id immediately
		// and continues execution asynchronously.
		CreateBackup(ctx context.Context, configurationID uuid.UUID) (uuid.UUID, error)
		CreateRestore(ctx context.Context, backupID uuid.UUID, opts types.RestoreOptions) (uuid.UUID, error)
		GetBackupJob(ctx context.Context, id uuid.UUID) (*types.BackupJob, error)
		GetRestoreJob(ctx context.Context, id uuid.UUID) (*types.RestoreJob, error)
		ListBackups(ctx context.Context, configurationID uuid.UUID) ([]*types.BackupJob, error)
		Download(ctx context.Context, backupID uuid.UUID) (*types.File, error)
		PurgeRegistry(maxAge time.Duration) int
	}

	backupService struct {
		configRepository  database.BackupConfigurationRepository
		jobRepository     database.BackupJobRepository
		restoreRepository database.RestoreJobRepository
		storageFactory    storage.Factory
		dumper            dump.Dumper
		encryptor         misc.Encryptor
		retention         RetentionService
		registry          *jobRegistry
		environment       string
	}
)

var (
	ErrConfigurationDisabled = errors.New("backup configuration is disabled")
	ErrBackupNotRestorable   = errors.New("backup is not in a restorable state")
)

func NewBackupService(configs database.BackupConfigurationRepository,
	jobs database.BackupJobRepository, restores database.RestoreJobRepository,
	factory storage.Factory, dumper dump.Dumper, encryptor misc.Encryptor,
	retention RetentionService, environment string) BackupService {
	return &backupService{
		configRepository:  configs,
		jobRepository:     jobs,
		restoreRepository: restores,
		storageFactory:    factory,
		dumper:            dumper,
		encryptor:         encryptor,
		retention:         retention,
		registry:          newJobRegistry(),
		environment:       environment,
	}
}

func (b *backupService) CreateBackup(ctx context.Context, configurationID uuid.UUID) (uuid.UUID, error) {
	cfg, err := b.configRepository.FindByID(ctx, configurationID)
	if err != nil {
		return uuid.Nil, errors2.Wrap(err, "backup configuration not found")
	}
	if !cfg.Enabled {
		return uuid.Nil, ErrConfigurationDisabled
	}

	job := &types.BackupJob{
		ID:              uuid.New(),
		ConfigurationID: cfg.ID,
		Status:          types.JobStatusPending,
		StartTime:       time.Now(),
		CreatedAt:       time.Now(),
	}
	b.registry.putBackup(job)
	if err := b.jobRepository.Save(ctx, job); err != nil {
		return uuid.Nil, errors2.Wrap(err, "failed to persist backup job")
	}

	go b.execute(context.WithoutCancel(ctx), job, cfg)
	return job.ID, nil
}

// execute drives the pipeline: dump, compress, encrypt, checksum, upload.
// Any stage error marks the job failed; nothing is rethrown into the
// scheduler. Partial uploads are not rolled back.
func (b *backupService) execute(ctx context.Context, job *types.BackupJob, cfg *types.BackupConfiguration) {
	if err := b.transition(ctx, job, types.JobStatusRunning); err != nil {
		b.fail(ctx, job, err)
		return
	}
	logger.Info("backup started",
		zap.String("job", job.ID.String()),
		zap.String("configuration", cfg.Name))

	result, err := b.dumper.Dump(ctx, cfg.Tables)
	if err != nil {
		b.fail(ctx, job, errors2.Wrap(err, "dump failed"))
		return
	}
	for table, msg := range result.TableErrors {
		logger.Warn("table skipped during dump",
			zap.String("job", job.ID.String()),
			zap.String("table", table),
			zap.String("reason", msg))
	}

	payload, err := gzipBytes(result.Data)
	if err != nil {
		b.fail(ctx, job, errors2.Wrap(err, "compression failed"))
		return
	}

	encrypted := false
	if cfg.Encryption.Enabled {
		if b.encryptor == nil {
			b.fail(ctx, job, errors.New("encryption requested but no key configured"))
			return
		}
		payload, err = b.encryptor.Encrypt(payload)
		if err != nil {
			b.fail(ctx, job, errors2.Wrap(err, "encryption failed"))
			return
		}
		encrypted = true
	}

	// checksum always covers the final byte stream as uploaded
	sum := sha256.Sum256(payload)

	provider, err := b.storageFactory.Create(cfg.Storage)
	if err != nil {
		b.fail(ctx, job, errors2.Wrap(err, "storage provider unavailable"))
		return
	}

	name := fmt.Sprintf("backup_%s_%s.sql.gz", cfg.OrganizationID, time.Now().UTC().Format(time.RFC3339))
	location, err := provider.Upload(ctx, name, bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		b.fail(ctx, job, errors2.Wrap(err, "upload failed"))
		return
	}

	job.Size = int64(len(payload))
	job.RecordCount = result.RecordCount
	job.Location = location
	job.Metadata = types.BackupMetadata{
		Version:     types.MetadataVersion,
		Tables:      cfg.Tables,
		Compression: "gzip",
		Checksum:    hex.EncodeToString(sum[:]),
		Environment: b.environment,
		Encrypted:   encrypted,
	}
	if err := b.transition(ctx, job, types.JobStatusCompleted); err != nil {
		b.fail(ctx, job, err)
		return
	}

	logger.Info("backup completed",
		zap.String("job", job.ID.String()),
		zap.String("location", location),
		zap.Int64("size", job.Size),
		zap.Int64("records", job.RecordCount))

	// best effort: a retention failure never reverts a completed backup
	if b.retention != nil {
		if _, err := b.retention.Apply(ctx, &cfg.OrganizationID); err != nil {
			logger.Warn("post-backup retention run failed",
				zap.String("job", job.ID.String()),
				zap.Error(err))
		}
	}
}

func (b *backupService) CreateRestore(ctx context.Context, backupID uuid.UUID, opts types.RestoreOptions) (uuid.UUID, error) {
	backup, err := b.jobRepository.FindByID(ctx, backupID)
	if err != nil {
		return uuid.Nil, errors2.Wrap(err, "backup not found")
	}
	if backup.Status != types.JobStatusCompleted || backup.Location == "" {
		return uuid.Nil, ErrBackupNotRestorable
	}

	job := &types.RestoreJob{
		ID:        uuid.New(),
		BackupID:  backup.ID,
		Status:    types.JobStatusPending,
		StartTime: time.Now(),
		Options:   opts,
		CreatedAt: time.Now(),
	}
	b.registry.putRestore(job)
	if err := b.restoreRepository.Save(ctx, job); err != nil {
		return uuid.Nil, errors2.Wrap(err, "failed to persist restore job")
	}

	go b.executeRestore(context.WithoutCancel(ctx), job, backup)
	return job.ID, nil
}

// executeRestore mirrors the backup pipeline: download, decrypt,
// decompress, replay.
func (b *backupService) executeRestore(ctx context.Context, job *types.RestoreJob, backup *types.BackupJob) {
	if err := b.transitionRestore(ctx, job, types.JobStatusRunning); err != nil {
		b.failRestore(ctx, job, err)
		return
	}
	logger.Info("restore started",
		zap.String("job", job.ID.String()),
		zap.String("backup", backup.ID.String()))

	payload, err := b.fetchArtifact(ctx, backup)
	if err != nil {
		b.failRestore(ctx, job, err)
		return
	}

	if backup.Metadata.Encrypted {
		if b.encryptor == nil {
			b.failRestore(ctx, job, errors.New("backup is encrypted but no key configured"))
			return
		}
		payload, err = b.encryptor.Decrypt(payload)
		if err != nil {
			b.failRestore(ctx, job, errors2.Wrap(err, "decryption failed"))
			return
		}
	}

	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		b.failRestore(ctx, job, errors2.Wrap(err, "decompression failed"))
		return
	}

	restored, err := b.dumper.Replay(ctx, gz, job.Options)
	if err != nil {
		b.failRestore(ctx, job, errors2.Wrap(err, "replay failed"))
		return
	}

	job.RestoredRecords = restored
	if err := b.transitionRestore(ctx, job, types.JobStatusCompleted); err != nil {
		b.failRestore(ctx, job, err)
		return
	}
	logger.Info("restore completed",
		zap.String("job", job.ID.String()),
		zap.Int64("records", restored))
}

func (b *backupService) fetchArtifact(ctx context.Context, backup *types.BackupJob) ([]byte, error) {
	cfg, err := b.configRepository.FindByID(ctx, backup.ConfigurationID)
	if err != nil {
		return nil, errors2.Wrap(err, "backup configuration not found")
	}

	provider, err := b.storageFactory.Create(cfg.Storage)
	if err != nil {
		return nil, errors2.Wrap(err, "storage provider unavailable")
	}

	f, err := provider.Download(ctx, path.Base(backup.Location))
	if err != nil {
		return nil, errors2.Wrap(err, "download failed")
	}
	defer f.Content.Close()

	return io.ReadAll(f.Content)
}

func (b *backupService) GetBackupJob(ctx context.Context, id uuid.UUID) (*types.BackupJob, error) {
	if job, ok := b.registry.getBackup(id); ok {
		return job, nil
	}
	return b.jobRepository.FindByID(ctx, id)
}

func (b *backupService) GetRestoreJob(ctx context.Context, id uuid.UUID) (*types.RestoreJob, error) {
	if job, ok := b.registry.getRestore(id); ok {
		return job, nil
	}
	return b.restoreRepository.FindByID(ctx, id)
}

func (b *backupService) ListBackups(ctx context.Context, configurationID uuid.UUID) ([]*types.BackupJob, error) {
	return b.jobRepository.FindByConfigurationID(ctx, configurationID)
}

func (b *backupService) Download(ctx context.Context, backupID uuid.UUID) (*types.File, error) {
	backup, err := b.jobRepository.FindByID(ctx, backupID)
	if err != nil {
		return nil, errors2.Wrap(err, "backup not found")
	}
	if backup.Location == "" {
		return nil, storage.ErrNotFound
	}

	cfg, err := b.configRepository.FindByID(ctx, backup.ConfigurationID)
	if err != nil {
		return nil, errors2.Wrap(err, "backup configuration not found")
	}

	provider, err := b.storageFactory.Create(cfg.Storage)
	if err != nil {
		return nil, err
	}
	return provider.Download(ctx, path.Base(backup.Location))
}

func (b *backupService) PurgeRegistry(maxAge time.Duration) int {
	return b.registry.purge(maxAge)
}

func (b *backupService) transition(ctx context.Context, job *types.BackupJob, next types.JobStatus) error {
	if !job.Status.CanTransition(next) {
		return errors2.Errorf("illegal transition %s -> %s", job.Status, next)
	}
	job.Status = next
	if next.Terminal() {
		now := time.Now()
		job.EndTime = &now
	}
	b.registry.putBackup(job)
	return b.jobRepository.Save(ctx, job)
}

func (b *backupService) fail(ctx context.Context, job *types.BackupJob, cause error) {
	logger.Error("backup failed",
		zap.String("job", job.ID.String()),
		zap.Error(cause))

	job.Error = cause.Error()
	if job.Status.CanTransition(types.JobStatusFailed) {
		job.Status = types.JobStatusFailed
	}
	now := time.Now()
	job.EndTime = &now
	b.registry.putBackup(job)
	if err := b.jobRepository.Save(ctx, job); err != nil {
		logger.Error("failed to persist failed job", zap.Error(err))
	}
}

func (b *backupService) transitionRestore(ctx context.Context, job *types.RestoreJob, next types.JobStatus) error {
	if !job.Status.CanTransition(next) {
		return errors2.Errorf("illegal transition %s -> %s", job.Status, next)
	}
	job.Status = next
	if next.Terminal() {
		now := time.Now()
		job.EndTime = &now
	}
	b.registry.putRestore(job)
	return b.restoreRepository.Save(ctx, job)
}

func (b *backupService) failRestore(ctx context.Context, job *types.RestoreJob, cause error) {
	logger.Error("restore failed",
		zap.String("job", job.ID.String()),
		zap.Error(cause))

	job.Error = cause.Error()
	if job.Status.CanTransition(types.JobStatusFailed) {
		job.Status = types.JobStatusFailed
	}
	now := time.Now()
	job.EndTime = &now
	b.registry.putRestore(job)
	if err := b.restoreRepository.Save(ctx, job); err != nil {
		logger.Error("failed to persist failed restore", zap.Error(err))
	}
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
