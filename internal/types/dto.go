package types

import (
	"time"

	"github.com/google/uuid"
)

type (
	CheckStatus  string
	HealthStatus string

	CreateBackupParams struct {
		ConfigurationID uuid.UUID `json:"configuration_id" validate:"required"`
	}

	CreateRestoreParams struct {
		BackupID uuid.UUID      `json:"backup_id" validate:"required"`
		Options  RestoreOptions `json:"options"`
	}

	ApplyRetentionParams struct {
		OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	}

	// DataManagementStats is the read model the dashboard collaborator
	// consumes. The core only produces it.
	DataManagementStats struct {
		Backups     BackupStats      `json:"backups"`
		Retention   RetentionStats   `json:"retention"`
		Storage     StorageUsage     `json:"storage"`
		Performance PerformanceStats `json:"performance"`
		GeneratedAt time.Time        `json:"generated_at"`
	}

	BackupStats struct {
		Total       int64      `json:"total"`
		Completed   int64      `json:"completed"`
		Failed      int64      `json:"failed"`
		SuccessRate float64    `json:"success_rate"`
		LastRun     *time.Time `json:"last_run,omitempty"`
		TotalSize   int64      `json:"total_size"`
	}

	RetentionStats struct {
		Rules   int64 `json:"rules"`
		Enabled int64 `json:"enabled"`
	}

	StorageUsage struct {
		Artifacts int64 `json:"artifacts"`
		TotalSize int64 `json:"total_size"`
	}

	PerformanceStats struct {
		MemoryUsedPercent float64 `json:"memory_used_percent"`
		CPUPercent        float64 `json:"cpu_percent"`
		Goroutines        int     `json:"goroutines"`
	}

	HealthCheck struct {
		Name    string      `json:"name"`
		Status  CheckStatus `json:"status"`
		Message string      `json:"message,omitempty"`
	}

	HealthReport struct {
		Status CheckStatus   `json:"status"`
		Checks []HealthCheck `json:"checks"`
	}

	GCReport struct {
		BackupsRemoved  int64 `json:"backups_removed"`
		ArchivesRemoved int64 `json:"archives_removed"`
		BytesFreed      int64 `json:"bytes_freed"`
	}
)

const (
	CheckStatusPass CheckStatus = "pass"
	CheckStatusWarn CheckStatus = "warn"
	CheckStatusFail CheckStatus = "fail"

	// composite statuses reuse CheckStatus-style strings for the report root
	OverallHealthy  CheckStatus = "healthy"
	OverallWarning  CheckStatus = "warning"
	OverallCritical CheckStatus = "critical"
)
