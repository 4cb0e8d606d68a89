package database

import (
	"errors"
	"fmt"
	"time"

	migrateV4 "github.com/golang-migrate/migrate/v4"
	migratePostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewPostgresDB создает новое подключение к PostgreSQL
func NewPostgresDB(dsn string, log *zap.Logger, slowThreshold time.Duration) (*gorm.DB, error) {
	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: NewZapGormLogger(log, gormlogger.Warn, slowThreshold, true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Настройка пула соединений
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// NewMigrator создает экземпляр migrate поверх существующего подключения.
// migrationsDir указывает на папку с SQL-файлами (например, "migrations").
func NewMigrator(db *gorm.DB, migrationsDir string) (*migrateV4.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get *sql.DB from *gorm.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database before migration: %w", err)
	}

	driver, err := migratePostgres.WithInstance(sqlDB, &migratePostgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver for migrate: %w", err)
	}

	m, err := migrateV4.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateDB применяет SQL-миграции "вверх"
func MigrateDB(db *gorm.DB, migrationsDir string, log *zap.Logger) error {
	m, err := NewMigrator(db, migrationsDir)
	if err != nil {
		return err
	}

	log.Info("applying database migrations", zap.String("dir", migrationsDir))
	err = m.Up()
	switch {
	case errors.Is(err, migrateV4.ErrNoChange):
		log.Info("database schema is up to date")
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	default:
		log.Info("migrations applied")
	}
	return nil
}
