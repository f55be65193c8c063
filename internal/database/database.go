// Package database owns the gorm connection and the catalog models.
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/qtremors/tremors-music/internal/config"
	"github.com/qtremors/tremors-music/internal/logger"
)

var db *gorm.DB

// Initialize opens the configured database and migrates the schema.
func Initialize(cfg *config.DatabaseConfig) error {
	var err error

	switch cfg.Type {
	case "postgres":
		db, err = connectPostgres(cfg)
	case "sqlite", "":
		db, err = connectSQLite(cfg)
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Type, err)
	}

	if err := Migrate(db); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	logger.Info("database initialized", "type", cfg.Type)
	return nil
}

// Migrate creates or updates the catalog tables.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&LibraryPath{},
		&Album{},
		&Song{},
		&Playlist{},
		&PlaylistSong{},
	)
}

func connectPostgres(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

func connectSQLite(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "music.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

// GetDB returns the shared database handle.
func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the shared handle, used by tests.
func SetDB(conn *gorm.DB) {
	db = conn
}
