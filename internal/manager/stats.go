package manager

import (
	"context"
	"path"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"dataguard/internal/types"
	"dataguard/logger"
)

// GetStats aggregates backup, retention, storage and host numbers into one
// read model for the dashboard collaborator.
func (m *dataManager) GetStats(ctx context.Context, organizationID uuid.UUID) (*types.DataManagementStats, error) {
	jobs, err := m.jobRepository.FindByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	completed := lo.Filter(jobs, func(j *types.BackupJob, _ int) bool {
		return j.Status == types.JobStatusCompleted
	})
	failed := lo.Filter(jobs, func(j *types.BackupJob, _ int) bool {
		return j.Status == types.JobStatusFailed
	})

	stats := &types.DataManagementStats{GeneratedAt: time.Now()}
	stats.Backups = types.BackupStats{
		Total:     int64(len(jobs)),
		Completed: int64(len(completed)),
		Failed:    int64(len(failed)),
		TotalSize: lo.SumBy(completed, func(j *types.BackupJob) int64 { return j.Size }),
	}
	if finished := len(completed) + len(failed); finished > 0 {
		stats.Backups.SuccessRate = float64(len(completed)) / float64(finished)
	}
	if last, ok := lo.Find(jobs, func(j *types.BackupJob) bool { return j.EndTime != nil }); ok {
		// jobs come back ordered by start time descending
		stats.Backups.LastRun = last.EndTime
	}

	rules, err := m.ruleRepository.Count(ctx)
	if err != nil {
		return nil, err
	}
	enabled, err := m.ruleRepository.CountEnabled(ctx)
	if err != nil {
		return nil, err
	}
	stats.Retention = types.RetentionStats{Rules: rules, Enabled: enabled}

	stats.Storage = types.StorageUsage{
		Artifacts: int64(len(completed)),
		TotalSize: stats.Backups.TotalSize,
	}

	stats.Performance = types.PerformanceStats{Goroutines: runtime.NumGoroutine()}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.Performance.MemoryUsedPercent = vm.UsedPercent
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats.Performance.CPUPercent = percents[0]
	}

	return stats, nil
}

// ForceGarbageCollection removes backups beyond the configured retention
// counts and archives past their age limit, reporting counts and freed
// space. Per-artifact failures are logged and skipped.
func (m *dataManager) ForceGarbageCollection(ctx context.Context, organizationID uuid.UUID) (*types.GCReport, error) {
	configs, err := m.configRepository.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	configs = lo.Filter(configs, func(c *types.BackupConfiguration, _ int) bool {
		return c.OrganizationID == organizationID
	})

	report := &types.GCReport{}
	for _, cfg := range configs {
		if err := m.collectBackups(ctx, cfg, report); err != nil {
			logger.Error("backup gc failed",
				zap.String("configuration", cfg.Name),
				zap.Error(err))
		}
	}

	if err := m.collectArchives(ctx, organizationID, report); err != nil {
		logger.Warn("archive gc skipped",
			zap.String("organization", organizationID.String()),
			zap.Error(err))
	}

	logger.Info("garbage collection finished",
		zap.String("organization", organizationID.String()),
		zap.Int64("backups_removed", report.BackupsRemoved),
		zap.Int64("archives_removed", report.ArchivesRemoved),
		zap.Int64("bytes_freed", report.BytesFreed))
	return report, nil
}

func (m *dataManager) collectBackups(ctx context.Context, cfg *types.BackupConfiguration, report *types.GCReport) error {
	jobs, err := m.jobRepository.FindByConfigurationID(ctx, cfg.ID)
	if err != nil {
		return err
	}
	completed := lo.Filter(jobs, func(j *types.BackupJob, _ int) bool {
		return j.Status == types.JobStatusCompleted && j.Location != ""
	})

	keep := cfg.Retention.Daily + cfg.Retention.Weekly + cfg.Retention.Monthly + cfg.Retention.Yearly
	if keep < 1 {
		keep = 1
	}
	if len(completed) <= keep {
		return nil
	}

	provider, err := m.storageFactory.Create(cfg.Storage)
	if err != nil {
		return err
	}

	// FindByConfigurationID returns newest first; everything past the keep
	// window is beyond retention
	for _, job := range completed[keep:] {
		if err := provider.Delete(ctx, path.Base(job.Location)); err != nil {
			logger.Warn("failed to delete backup artifact",
				zap.String("job", job.ID.String()),
				zap.Error(err))
			continue
		}
		if err := m.jobRepository.Delete(ctx, job.ID); err != nil {
			logger.Warn("failed to delete backup record",
				zap.String("job", job.ID.String()),
				zap.Error(err))
			continue
		}
		report.BackupsRemoved++
		report.BytesFreed += job.Size
	}
	return nil
}

func (m *dataManager) collectArchives(ctx context.Context, organizationID uuid.UUID, report *types.GCReport) error {
	archiveCfg, err := m.archiveRepository.FindByOrganization(ctx, organizationID)
	if err != nil {
		return err
	}

	provider, err := m.storageFactory.Create(archiveCfg.Storage)
	if err != nil {
		return err
	}

	names, err := provider.List(ctx, "archive_")
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-archiveMaxAge)
	for _, name := range names {
		info, err := provider.Metadata(ctx, name)
		if err != nil {
			continue
		}
		if info.LastModified.After(cutoff) {
			continue
		}
		if err := provider.Delete(ctx, name); err != nil {
			logger.Warn("failed to delete archive artifact",
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		report.ArchivesRemoved++
		report.BytesFreed += info.Size
	}
	return nil
}
