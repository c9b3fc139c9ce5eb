package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dataguard/internal/database"
	"dataguard/internal/service"
	"dataguard/internal/storage"
	"dataguard/internal/types"
	"dataguard/logger"
)

const (
	registryMaxAge    = 24 * time.Hour
	retentionInterval = time.Hour
	cleanupInterval   = time.Hour
	gcInterval        = 24 * time.Hour
	archiveMaxAge     = 365 * 24 * time.Hour
)

type (
	// DataManager is the top level orchestrator: it owns the schedules and
	// produces the aggregate read models the dashboard consumes.
	DataManager interface {
		Initialize(ctx context.Context) error
		Shutdown() error
		RefreshSchedule(ctx context.Context, configurationID uuid.UUID) error
		GetStats(ctx context.Context, organizationID uuid.UUID) (*types.DataManagementStats, error)
		PerformHealthCheck(ctx context.Context) *types.HealthReport
		ForceGarbageCollection(ctx context.Context, organizationID uuid.UUID) (*types.GCReport, error)
	}

	dataManager struct {
		backupService     service.BackupService
		retentionService  service.RetentionService
		configRepository  database.BackupConfigurationRepository
		jobRepository     database.BackupJobRepository
		ruleRepository    database.RetentionRuleRepository
		archiveRepository database.ArchiveConfigurationRepository
		storageFactory    storage.Factory
		scheduler         gocron.Scheduler

		mu          sync.Mutex
		initialized bool
	}
)

func New(backup service.BackupService, retention service.RetentionService,
	configs database.BackupConfigurationRepository, jobs database.BackupJobRepository,
	rules database.RetentionRuleRepository, archives database.ArchiveConfigurationRepository,
	factory storage.Factory) (DataManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLimitConcurrentJobs(10, gocron.LimitModeWait))
	if err != nil {
		return nil, err
	}
	return &dataManager{
		backupService:     backup,
		retentionService:  retention,
		configRepository:  configs,
		jobRepository:     jobs,
		ruleRepository:    rules,
		archiveRepository: archives,
		storageFactory:    factory,
		scheduler:         scheduler,
	}, nil
}

// Initialize wires the recurring schedules and starts the scheduler.
// Calling it twice is a no-op.
func (m *dataManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}

	configs, err := m.configRepository.FindEnabled(ctx)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		if err := m.scheduleBackup(ctx, cfg); err != nil {
			logger.Warn("skipping backup schedule",
				zap.String("configuration", cfg.Name),
				zap.Error(err))
		}
	}

	if _, err := m.scheduler.NewJob(
		gocron.DurationJob(retentionInterval),
		gocron.NewTask(m.runRetention, ctx)); err != nil {
		return err
	}
	if _, err := m.scheduler.NewJob(
		gocron.DurationJob(cleanupInterval),
		gocron.NewTask(m.cleanupRegistry)); err != nil {
		return err
	}
	if _, err := m.scheduler.NewJob(
		gocron.DurationJob(gcInterval),
		gocron.NewTask(m.collectAll, ctx)); err != nil {
		return err
	}

	m.scheduler.Start()
	m.initialized = true
	logger.Info("data manager initialized",
		zap.Int("backup_schedules", len(configs)))
	return nil
}

func (m *dataManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil
	}

	if err := m.scheduler.Shutdown(); err != nil {
		return err
	}
	m.initialized = false
	logger.Info("data manager stopped")
	return nil
}

// RefreshSchedule re-registers a configuration's cron job after its schedule
// changed. A configuration that was disabled just has its job removed.
func (m *dataManager) RefreshSchedule(ctx context.Context, configurationID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return errors.New("data manager is not initialized")
	}

	if err := m.scheduler.RemoveJob(configurationID); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		return err
	}

	cfg, err := m.configRepository.FindByID(ctx, configurationID)
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		logger.Info("backup schedule removed",
			zap.String("configuration", cfg.Name))
		return nil
	}
	return m.scheduleBackup(ctx, cfg)
}

// scheduleBackup registers the configuration's cron schedule. Singleton mode
// serializes runs of the same configuration so dumps of the same tables
// never overlap; different configurations still run concurrently.
func (m *dataManager) scheduleBackup(ctx context.Context, cfg *types.BackupConfiguration) error {
	spec, err := cfg.Schedule.CronSpec()
	if err != nil {
		return err
	}

	job, err := m.scheduler.NewJob(
		gocron.CronJob(spec, false),
		gocron.NewTask(m.runBackup, ctx, cfg.ID),
		gocron.WithSingletonMode(gocron.LimitModeWait),
		gocron.WithIdentifier(cfg.ID))
	if err != nil {
		return err
	}

	logger.Info("backup schedule registered",
		zap.String("name", job.Name()),
		zap.String("configuration", cfg.Name),
		zap.String("spec", spec))
	return nil
}

// runBackup is a scheduler task; errors are logged, never propagated, so a
// single bad job cannot kill the scheduling loop.
func (m *dataManager) runBackup(ctx context.Context, configurationID uuid.UUID) {
	jobID, err := m.backupService.CreateBackup(ctx, configurationID)
	if err != nil {
		logger.Error("scheduled backup failed to start",
			zap.String("configuration", configurationID.String()),
			zap.Error(err))
		return
	}
	logger.Info("scheduled backup started",
		zap.String("configuration", configurationID.String()),
		zap.String("job", jobID.String()))
}

func (m *dataManager) runRetention(ctx context.Context) {
	if _, err := m.retentionService.Apply(ctx, nil); err != nil {
		logger.Error("scheduled retention run failed", zap.Error(err))
	}
}

func (m *dataManager) cleanupRegistry() {
	if removed := m.backupService.PurgeRegistry(registryMaxAge); removed > 0 {
		logger.Info("job registry purged", zap.Int("removed", removed))
	}
}

func (m *dataManager) collectAll(ctx context.Context) {
	configs, err := m.configRepository.FindEnabled(ctx)
	if err != nil {
		logger.Error("artifact cleanup failed", zap.Error(err))
		return
	}

	seen := make(map[uuid.UUID]struct{})
	for _, cfg := range configs {
		if _, done := seen[cfg.OrganizationID]; done {
			continue
		}
		seen[cfg.OrganizationID] = struct{}{}
		if _, err := m.ForceGarbageCollection(ctx, cfg.OrganizationID); err != nil {
			logger.Error("artifact cleanup failed",
				zap.String("organization", cfg.OrganizationID.String()),
				zap.Error(err))
		}
	}
}
