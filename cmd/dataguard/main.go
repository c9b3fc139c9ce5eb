package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dataguard/internal/config"
	"dataguard/internal/database"
	"dataguard/internal/dump"
	"dataguard/internal/httphandlers"
	"dataguard/internal/manager"
	"dataguard/internal/misc"
	"dataguard/internal/service"
	"dataguard/internal/storage"
	"dataguard/logger"
)

func main() {
	root := &cobra.Command{
		Use:   "dataguard",
		Short: "Backup orchestration and data retention service",
	}
	root.AddCommand(serveCommand())

	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the data protection service",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg := config.New()

			if err := logger.InitLogger(cfg.Environment); err != nil {
				return err
			}
			defer logger.Sync()

			srv, teardown, err := setup(cfg)
			if err != nil {
				return err
			}

			go func() {
				logger.Info("serving http on " + cfg.ListenAddr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("server closed: ", err)
				}
			}()

			done := make(chan os.Signal, 1)
			signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
			<-done
			log.Println("Shutting down...")

			if teardown != nil {
				if err := teardown(); err != nil {
					logger.Error("teardown failed", zap.Error(err))
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}

func setup(cfg config.Config) (*http.Server, func() error, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	configRepo := database.NewBackupConfigurationRepository(db)
	jobRepo := database.NewBackupJobRepository(db)
	restoreRepo := database.NewRestoreJobRepository(db)
	ruleRepo := database.NewRetentionRuleRepository(db)
	archiveRepo := database.NewArchiveConfigurationRepository(db)
	tableStore := database.NewTableStore(db)

	var encryptor misc.Encryptor
	if cfg.EncryptionKey != "" {
		encryptor, err = misc.NewEncryptor(cfg.EncryptionKey)
		if err != nil {
			cancel()
			return nil, nil, err
		}
	}

	trackedTables, err := dump.LoadTrackedTables(cfg.TablesFile)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	factory := storage.NewFactory()
	dumper := dump.NewDumper(tableStore, trackedTables)
	retentionSvc := service.NewRetentionService(ruleRepo, archiveRepo, tableStore, factory)
	backupSvc := service.NewBackupService(configRepo, jobRepo, restoreRepo,
		factory, dumper, encryptor, retentionSvc, cfg.Environment)

	dm, err := manager.New(backupSvc, retentionSvc, configRepo, jobRepo, ruleRepo, archiveRepo, factory)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if err := dm.Initialize(ctx); err != nil {
		cancel()
		return nil, nil, err
	}

	apiHandler := httphandlers.NewApiHandler(backupSvc, retentionSvc, dm, cfg.AccessKey)
	routes := httphandlers.Routes(apiHandler)

	return &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: routes,
		}, func() error {
			if err := dm.Shutdown(); err != nil {
				logger.Error("manager shutdown failed", zap.Error(err))
			}
			sqlDB, _ := db.DB()
			if sqlDB != nil {
				err := sqlDB.Close()
				logger.Info("DB Closed", zap.Error(err))
			}
			cancel()
			return nil
		}, nil
}
