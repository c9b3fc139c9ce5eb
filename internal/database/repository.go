package database

import (
	"context"

	"github.com/google/uuid"

	"dataguard/internal/types"
)

type BackupConfigurationRepository interface {
	Save(ctx context.Context, cfg *types.BackupConfiguration) error
	FindByID(ctx context.Context, id uuid.UUID) (*types.BackupConfiguration, error)
	FindAll(ctx context.Context) ([]*types.BackupConfiguration, error)
	FindEnabled(ctx context.Context) ([]*types.BackupConfiguration, error)
}

type BackupJobRepository interface {
	Save(ctx context.Context, job *types.BackupJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*types.BackupJob, error)
	FindByConfigurationID(ctx context.Context, configurationID uuid.UUID) ([]*types.BackupJob, error)
	FindByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*types.BackupJob, error)
	FindAll(ctx context.Context) ([]*types.BackupJob, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type RestoreJobRepository interface {
	Save(ctx context.Context, job *types.RestoreJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*types.RestoreJob, error)
}

type RetentionRuleRepository interface {
	Save(ctx context.Context, rule *types.DataRetentionRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*types.DataRetentionRule, error)
	FindEnabled(ctx context.Context, organizationID *uuid.UUID) ([]*types.DataRetentionRule, error)
	Count(ctx context.Context) (int64, error)
	CountEnabled(ctx context.Context) (int64, error)
}

type ArchiveConfigurationRepository interface {
	Save(ctx context.Context, cfg *types.ArchiveConfiguration) error
	FindByOrganization(ctx context.Context, organizationID uuid.UUID) (*types.ArchiveConfiguration, error)
}

// TableStore gives the dump and retention layers parameterized row access to
// the tracked tables. Table identifiers come from operator-owned records;
// every predicate is bound through placeholders.
type TableStore interface {
	Select(ctx context.Context, table, query string, args ...interface{}) ([]map[string]interface{}, error)
	Count(ctx context.Context, table, query string, args ...interface{}) (int64, error)
	Delete(ctx context.Context, table, query string, args ...interface{}) (int64, error)
	Insert(ctx context.Context, table string, rows []map[string]interface{}) (int64, error)
	Truncate(ctx context.Context, table string) error
	HasTable(table string) bool
}
