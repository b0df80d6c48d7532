package db

import (
	"fmt"

	"github.com/inconshreveable/log15/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Postgres keeps every record kind in one table, discriminated by kind.
type Postgres struct {
	db  *gorm.DB
	log log15.Logger
}

func Open(dsn string, log log15.Logger) (*Postgres, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("Open: failed to connect to postgres: %w", err)
	}
	if err := gdb.AutoMigrate(&StoredRecord{}); err != nil {
		return nil, fmt.Errorf("Open: failed to migrate: %w", err)
	}

	log.Info("Connected to postgres")
	return NewPostgres(gdb, log), nil
}

// NewPostgres wraps an already opened connection.
func NewPostgres(gdb *gorm.DB, log log15.Logger) *Postgres {
	return &Postgres{db: gdb, log: log}
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
