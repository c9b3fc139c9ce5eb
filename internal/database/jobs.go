package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dataguard/internal/types"
)

type (
	backupJobRepository struct {
		db *gorm.DB
	}

	restoreJobRepository struct {
		db *gorm.DB
	}
)

func NewBackupJobRepository(db *gorm.DB) BackupJobRepository {
	return &backupJobRepository{db: db}
}

func (b backupJobRepository) Save(ctx context.Context, job *types.BackupJob) error {
	return b.db.WithContext(ctx).Save(job).Error
}

func (b backupJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.BackupJob, error) {
	job := &types.BackupJob{}
	err := b.db.WithContext(ctx).Where("id = ?", id).First(job).Error
	return job, err
}

func (b backupJobRepository) FindByConfigurationID(ctx context.Context, configurationID uuid.UUID) ([]*types.BackupJob, error) {
	result := make([]*types.BackupJob, 0)
	err := b.db.WithContext(ctx).
		Where("configuration_id = ?", configurationID).
		Order("start_time desc").
		Find(&result).Error
	return result, err
}

func (b backupJobRepository) FindByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*types.BackupJob, error) {
	result := make([]*types.BackupJob, 0)
	err := b.db.WithContext(ctx).
		Joins("JOIN backup_configurations ON backup_configurations.id = backup_jobs.configuration_id").
		Where("backup_configurations.organization_id = ?", organizationID).
		Order("backup_jobs.start_time desc").
		Find(&result).Error
	return result, err
}

func (b backupJobRepository) FindAll(ctx context.Context) ([]*types.BackupJob, error) {
	result := make([]*types.BackupJob, 0)
	err := b.db.WithContext(ctx).Order("start_time desc").Find(&result).Error
	return result, err
}

func (b backupJobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return b.db.WithContext(ctx).Where("id = ?", id).Delete(&types.BackupJob{}).Error
}

func NewRestoreJobRepository(db *gorm.DB) RestoreJobRepository {
	return &restoreJobRepository{db: db}
}

func (r restoreJobRepository) Save(ctx context.Context, job *types.RestoreJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

func (r restoreJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.RestoreJob, error) {
	job := &types.RestoreJob{}
	err := r.db.WithContext(ctx).Where("id = ?", id).First(job).Error
	return job, err
}
