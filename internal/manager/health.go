package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"dataguard/internal/types"
)

const recentWindow = 24 * time.Hour

// PerformHealthCheck runs the fixed check set and escalates: any fail makes
// the composite critical, otherwise any warn makes it warning.
func (m *dataManager) PerformHealthCheck(ctx context.Context) *types.HealthReport {
	checks := []types.HealthCheck{
		m.checkBackupService(ctx),
		m.checkRetentionService(ctx),
		m.checkStorage(ctx),
		m.checkRecentBackups(ctx),
	}

	status := types.OverallHealthy
	for _, c := range checks {
		if c.Status == types.CheckStatusFail {
			status = types.OverallCritical
			break
		}
		if c.Status == types.CheckStatusWarn {
			status = types.OverallWarning
		}
	}

	return &types.HealthReport{Status: status, Checks: checks}
}

func (m *dataManager) checkBackupService(ctx context.Context) types.HealthCheck {
	check := types.HealthCheck{Name: "backup-service", Status: types.CheckStatusPass}
	if _, err := m.configRepository.FindEnabled(ctx); err != nil {
		check.Status = types.CheckStatusFail
		check.Message = err.Error()
	}
	return check
}

func (m *dataManager) checkRetentionService(ctx context.Context) types.HealthCheck {
	check := types.HealthCheck{Name: "retention-service", Status: types.CheckStatusPass}
	if _, err := m.ruleRepository.Count(ctx); err != nil {
		check.Status = types.CheckStatusFail
		check.Message = err.Error()
	}
	return check
}

func (m *dataManager) checkStorage(ctx context.Context) types.HealthCheck {
	check := types.HealthCheck{Name: "storage", Status: types.CheckStatusPass}

	configs, err := m.configRepository.FindEnabled(ctx)
	if err != nil {
		check.Status = types.CheckStatusFail
		check.Message = err.Error()
		return check
	}
	if len(configs) == 0 {
		check.Status = types.CheckStatusWarn
		check.Message = "no enabled backup configurations"
		return check
	}

	provider, err := m.storageFactory.Create(configs[0].Storage)
	if err != nil {
		check.Status = types.CheckStatusFail
		check.Message = err.Error()
		return check
	}
	if err := provider.Ping(ctx); err != nil {
		check.Status = types.CheckStatusFail
		check.Message = err.Error()
	}
	return check
}

func (m *dataManager) checkRecentBackups(ctx context.Context) types.HealthCheck {
	check := types.HealthCheck{Name: "backup-success-rate", Status: types.CheckStatusPass}

	jobs, err := m.jobRepository.FindAll(ctx)
	if err != nil {
		check.Status = types.CheckStatusFail
		check.Message = err.Error()
		return check
	}

	cutoff := time.Now().Add(-recentWindow)
	recent := lo.Filter(jobs, func(j *types.BackupJob, _ int) bool {
		return j.StartTime.After(cutoff) && j.Status.Terminal()
	})
	if len(recent) == 0 {
		check.Status = types.CheckStatusWarn
		check.Message = "no backups finished in the last 24h"
		return check
	}

	completed := lo.CountBy(recent, func(j *types.BackupJob) bool {
		return j.Status == types.JobStatusCompleted
	})
	rate := float64(completed) / float64(len(recent))
	switch {
	case rate >= 0.9:
	case rate >= 0.5:
		check.Status = types.CheckStatusWarn
		check.Message = fmt.Sprintf("success rate %.0f%% over last 24h", rate*100)
	default:
		check.Status = types.CheckStatusFail
		check.Message = fmt.Sprintf("success rate %.0f%% over last 24h", rate*100)
	}
	return check
}
