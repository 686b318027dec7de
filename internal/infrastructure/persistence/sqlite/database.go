// Package sqlite implements the progress store on an embedded SQLite file
// using gorm and the pure-Go glebarez driver. It is the default store for
// local runs and the store used by tests.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Config contains SQLite settings.
type Config struct {
	// Path is the database file; MemoryPath for an in-memory database.
	Path string

	// MaxOpenConns limits the pool. In-memory databases need exactly 1
	// since every connection would otherwise see its own empty database.
	MaxOpenConns int

	// LogQueries enables gorm statement logging.
	LogQueries bool
}

// DefaultConfig returns defaults for a local data file.
func DefaultConfig() Config {
	return Config{
		Path:         "data/progress.db",
		MaxOpenConns: 1,
	}
}

// Database wraps the gorm handle.
type Database struct {
	DB   *gorm.DB
	path string
}

// Open connects, tunes and migrates the database.
func Open(cfg Config) (*Database, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	if cfg.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	logMode := gormlogger.Silent
	if cfg.LogQueries {
		logMode = gormlogger.Info
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: get sql.DB: %w", err)
	}
	if cfg.Path == MemoryPath || cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 1
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	if cfg.Path != MemoryPath {
		if err := configure(db); err != nil {
			return nil, err
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return &Database{DB: db, path: cfg.Path}, nil
}

// configure applies SQLite pragmas for a file database.
func configure(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return nil
}

// Migrate creates or updates the tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&userProgressModel{},
		&activityLogModel{},
		&achievementUnlockModel{},
	); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Path returns the database location.
func (d *Database) Path() string {
	return d.path
}
