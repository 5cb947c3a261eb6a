package database

import (
	"fmt"
	"time"

	"invexis/internal/model"
	"invexis/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// migrator is the part of *gorm.DB that creates the journal schema
type migrator interface {
	AutoMigrate(dst ...interface{}) error
}

// NewConnection opens the journal database using GORM. A schema that cannot
// be migrated is an error; writes would fail on every commit otherwise.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := migrate(db); err != nil {
		if sqlDB, cerr := db.DB(); cerr == nil {
			sqlDB.Close()
		}
		return nil, err
	}
	return db, nil
}

// migrate creates or updates the journal tables
func migrate(m migrator) error {
	if err := m.AutoMigrate(&model.AuditLog{}, &model.StockMovement{}); err != nil {
		return fmt.Errorf("auto-migrate journal models: %w", err)
	}
	logger.Logger.Debug().Msg("Journal models migrated")
	return nil
}
