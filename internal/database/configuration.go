package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dataguard/internal/types"
)

type (
	backupConfigurationRepository struct {
		db *gorm.DB
	}

	retentionRuleRepository struct {
		db *gorm.DB
	}

	archiveConfigurationRepository struct {
		db *gorm.DB
	}
)

func NewBackupConfigurationRepository(db *gorm.DB) BackupConfigurationRepository {
	return &backupConfigurationRepository{db: db}
}

func (b backupConfigurationRepository) Save(ctx context.Context, cfg *types.BackupConfiguration) error {
	return b.db.WithContext(ctx).Save(cfg).Error
}

func (b backupConfigurationRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.BackupConfiguration, error) {
	cfg := &types.BackupConfiguration{}
	err := b.db.WithContext(ctx).Where("id = ?", id).First(cfg).Error
	return cfg, err
}

func (b backupConfigurationRepository) FindAll(ctx context.Context) ([]*types.BackupConfiguration, error) {
	result := make([]*types.BackupConfiguration, 0)
	err := b.db.WithContext(ctx).Find(&result).Error
	return result, err
}

func (b backupConfigurationRepository) FindEnabled(ctx context.Context) ([]*types.BackupConfiguration, error) {
	result := make([]*types.BackupConfiguration, 0)
	err := b.db.WithContext(ctx).Where("enabled = ?", true).Find(&result).Error
	return result, err
}

func NewRetentionRuleRepository(db *gorm.DB) RetentionRuleRepository {
	return &retentionRuleRepository{db: db}
}

func (r retentionRuleRepository) Save(ctx context.Context, rule *types.DataRetentionRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r retentionRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.DataRetentionRule, error) {
	rule := &types.DataRetentionRule{}
	err := r.db.WithContext(ctx).Where("id = ?", id).First(rule).Error
	return rule, err
}

func (r retentionRuleRepository) FindEnabled(ctx context.Context, organizationID *uuid.UUID) ([]*types.DataRetentionRule, error) {
	result := make([]*types.DataRetentionRule, 0)
	q := r.db.WithContext(ctx).Where("enabled = ?", true)
	if organizationID != nil {
		q = q.Where("organization_id = ?", *organizationID)
	}
	err := q.Find(&result).Error
	return result, err
}

func (r retentionRuleRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&types.DataRetentionRule{}).Count(&n).Error
	return n, err
}

func (r retentionRuleRepository) CountEnabled(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&types.DataRetentionRule{}).Where("enabled = ?", true).Count(&n).Error
	return n, err
}

func NewArchiveConfigurationRepository(db *gorm.DB) ArchiveConfigurationRepository {
	return &archiveConfigurationRepository{db: db}
}

func (a archiveConfigurationRepository) Save(ctx context.Context, cfg *types.ArchiveConfiguration) error {
	return a.db.WithContext(ctx).Save(cfg).Error
}

func (a archiveConfigurationRepository) FindByOrganization(ctx context.Context, organizationID uuid.UUID) (*types.ArchiveConfiguration, error) {
	cfg := &types.ArchiveConfiguration{}
	err := a.db.WithContext(ctx).Where("organization_id = ?", organizationID).First(cfg).Error
	return cfg, err
}
