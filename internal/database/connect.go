package database

import (
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"dataguard/internal/types"
)

func Open(dir string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dir), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open DB: "+dir)
	}

	if err := db.AutoMigrate(
		&types.BackupConfiguration{},
		&types.BackupJob{},
		&types.RestoreJob{},
		&types.DataRetentionRule{},
		&types.ArchiveConfiguration{}); err != nil {
		return nil, err
	}

	return db, nil
}
