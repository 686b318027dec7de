// Package bootstrap wires configuration into infrastructure for the
// server and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/resume-analyzer/progress-hub/config"
	"github.com/resume-analyzer/progress-hub/internal/domain/achievement"
	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
	"github.com/resume-analyzer/progress-hub/internal/infrastructure/messaging"
	"github.com/resume-analyzer/progress-hub/internal/infrastructure/persistence/postgres"
	"github.com/resume-analyzer/progress-hub/internal/infrastructure/persistence/redis"
	"github.com/resume-analyzer/progress-hub/internal/infrastructure/persistence/sqlite"
	"github.com/resume-analyzer/progress-hub/pkg/logger"
	"github.com/resume-analyzer/progress-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ══════════════════════════════════════════════════════════════════════════════

// NewLogger builds the process logger from config.
func NewLogger(cfg *config.Config, component string) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Output = os.Stdout
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.File = cfg.Observability.LogFile
	if cfg.Observability.LogMaxSizeMB > 0 {
		opts.MaxSizeMB = cfg.Observability.LogMaxSizeMB
	}
	if cfg.Observability.LogMaxBackups > 0 {
		opts.MaxBackups = cfg.Observability.LogMaxBackups
	}
	if cfg.Observability.LogMaxAgeDays > 0 {
		opts.MaxAgeDays = cfg.Observability.LogMaxAgeDays
	}
	opts.CompressFiles = cfg.Observability.LogCompress

	return logger.New(opts).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
		logger.Component(component),
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is an opened progress store.
type Store struct {
	Repo   progress.Repository
	Driver string

	ping  func(ctx context.Context) error
	close func()
}

// Ping checks the underlying database.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the database.
func (s *Store) Close() {
	s.close()
}

// OpenStore opens the store selected by cfg.Store.Driver. PostgreSQL
// connections are retried and migrated before use.
func OpenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Store, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case "postgres", "postgresql":
		return openPostgres(ctx, cfg, log)
	default:
		return openSQLite(cfg, log)
	}
}

func openSQLite(cfg *config.Config, log *logger.Logger) (*Store, error) {
	sc := sqlite.DefaultConfig()
	sc.Path = cfg.Store.SQLitePath
	sc.LogQueries = cfg.Database.LogQueries

	db, err := sqlite.Open(sc)
	if err != nil {
		return nil, err
	}
	log.Info("sqlite store opened", logger.String("path", db.Path()))

	return &Store{
		Repo:   sqlite.NewProgressRepository(db.DB),
		Driver: "sqlite",
		ping:   db.Ping,
		close: func() {
			if err := db.Close(); err != nil {
				log.Warn("failed to close sqlite store", logger.Err(err))
			}
		},
	}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Store, error) {
	pc := postgres.DefaultConfig()
	pc.URL = cfg.Database.URL
	pc.MaxConns = int32(cfg.Database.MaxConns)
	pc.MinConns = int32(cfg.Database.MinConns)
	pc.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pc.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	if cfg.Database.ConnectTimeout > 0 {
		pc.ConnectTimeout = cfg.Database.ConnectTimeout
	}

	retrier := retry.ConnectRetrier(cfg.Database.ConnectAttempts, func(attempt int, err error, delay time.Duration) {
		log.Warn("postgres connection failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})

	var conn *postgres.Connection
	err := retrier.Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, pc)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	migrator := postgres.NewMigrator(conn)
	if err := migrator.Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	if status, err := migrator.Status(ctx); err == nil {
		applied := 0
		for _, m := range status {
			if m.IsApplied {
				applied++
			}
		}
		log.Info("postgres store ready", logger.Int("migrations_applied", applied), logger.Int("migrations_total", len(status)))
	}

	return &Store{
		Repo:   postgres.NewProgressRepository(conn),
		Driver: "postgres",
		ping:   conn.Ping,
		close:  conn.Close,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS
// ══════════════════════════════════════════════════════════════════════════════

// OpenRedis connects to Redis. It returns nil when Redis is disabled
// or unreachable; the service then runs without cache and rank index.
func OpenRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Cache {
	if cfg.Redis.Disabled {
		log.Info("redis disabled, running without leaderboard cache")
		return nil
	}

	rc := redis.DefaultConfig()
	rc.URL = cfg.Redis.URL
	if cfg.Redis.Host != "" {
		rc.Host = cfg.Redis.Host
	}
	if cfg.Redis.Port > 0 {
		rc.Port = cfg.Redis.Port
	}
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		rc.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.MinIdleConns > 0 {
		rc.MinIdleConns = cfg.Redis.MinIdleConns
	}
	if cfg.Redis.DialTimeout > 0 {
		rc.DialTimeout = cfg.Redis.DialTimeout
	}
	if cfg.Redis.ReadTimeout > 0 {
		rc.ReadTimeout = cfg.Redis.ReadTimeout
	}
	if cfg.Redis.WriteTimeout > 0 {
		rc.WriteTimeout = cfg.Redis.WriteTimeout
	}

	cache, err := redis.NewCache(ctx, rc)
	if err != nil {
		log.Warn("failed to connect to redis, running without leaderboard cache", logger.Err(err))
		return nil
	}
	log.Info("redis connection established")
	return cache
}

// NewLeaderboardCache builds the namespaced leaderboard cache.
func NewLeaderboardCache(cache *redis.Cache, cfg *config.Config) *redis.LeaderboardCache {
	return redis.NewLeaderboardCache(cache, redis.LeaderboardCacheConfig{
		Namespace: cfg.Redis.Namespace,
		TTL:       cfg.Gamification.LeaderboardCacheTTL,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// EventBus is what both binaries need from a bus.
type EventBus interface {
	shared.EventBus
	Close() error
}

// NewEventBus returns a Redis-mirrored bus when a channel is configured and
// Redis is available, otherwise an in-process bus.
func NewEventBus(cache *redis.Cache, cfg *config.Config, log *logger.Logger) EventBus {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.Logger = log

	if cache != nil && cfg.Redis.EventChannel != "" {
		bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         cache.Client(),
			Channel:        cfg.Redis.EventChannel,
			LocalBusConfig: local,
			Logger:         log,
		})
		if err == nil {
			log.Info("domain events mirrored to redis", logger.String("channel", cfg.Redis.EventChannel))
			return bus
		}
		log.Warn("redis event bus unavailable, using in-process bus", logger.Err(err))
	}
	return messaging.NewInMemoryEventBus(local)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// LoadCatalog loads the configured catalog, or the embedded one.
func LoadCatalog(cfg *config.Config) (*achievement.Catalog, error) {
	if cfg.Gamification.CatalogPath == "" {
		return achievement.DefaultCatalog()
	}
	return achievement.LoadCatalog(cfg.Gamification.CatalogPath)
}

// NewEvaluator builds the evaluator with the configured early adopter cutoff.
func NewEvaluator(catalog *achievement.Catalog, cfg *config.Config) *achievement.Evaluator {
	return achievement.NewEvaluator(catalog, achievement.WithEarlyAdopterCutoff(cfg.Gamification.EarlyAdopterCutoff))
}
