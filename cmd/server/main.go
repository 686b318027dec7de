// Package main is the entry point of the progress hub API server.
//
// The server records user activities, evaluates achievements and serves
// progress, achievement and leaderboard reads over HTTP. Redis is optional:
// without it leaderboards are read straight from the store and ranks are
// reported as unranked.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/resume-analyzer/progress-hub/config"
	"github.com/resume-analyzer/progress-hub/internal/application/command"
	"github.com/resume-analyzer/progress-hub/internal/application/eventhandler"
	"github.com/resume-analyzer/progress-hub/internal/application/query"
	"github.com/resume-analyzer/progress-hub/internal/bootstrap"
	"github.com/resume-analyzer/progress-hub/internal/infrastructure/persistence/redis"
	httpserver "github.com/resume-analyzer/progress-hub/internal/interface/http"
	"github.com/resume-analyzer/progress-hub/internal/interface/http/handlers"
	"github.com/resume-analyzer/progress-hub/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration & logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := bootstrap.NewLogger(cfg, "server")
	defer func() { _ = log.Sync() }()

	log.Info("starting progress hub API",
		logger.String("version", cfg.App.Version),
		logger.String("store", cfg.Store.Driver),
		logger.String("timezone", cfg.App.Location.String()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Progress store
	// ─────────────────────────────────────────────────────────────────────────
	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open progress store: %w", err)
	}
	defer func() {
		log.Info("closing progress store")
		store.Close()
	}()

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("store", handlers.NewPingCheck(store))

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Redis read side (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		pageCache   query.LeaderboardCache
		rankIndex   query.RankIndex
		projection  eventhandler.LeaderboardProjection
		redisClient *redis.Cache
	)
	if redisClient = bootstrap.OpenRedis(ctx, cfg, log); redisClient != nil {
		defer func() { _ = redisClient.Close() }()

		guarded := redis.NewGuardedLeaderboard(bootstrap.NewLeaderboardCache(redisClient, cfg), nil)
		pageCache, rankIndex, projection = guarded, guarded, guarded

		health.AddOptionalCheck("redis", handlers.NewPingCheck(redisClient))
		health.AddOptionalCheck("redis_breaker", handlers.NewBreakerCheck(guarded.Breaker()))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Event bus & projections
	// ─────────────────────────────────────────────────────────────────────────
	bus := bootstrap.NewEventBus(redisClient, cfg, log)
	defer func() {
		log.Info("closing event bus")
		_ = bus.Close()
	}()

	if projection != nil {
		onRecorded := eventhandler.NewOnActivityRecordedHandler(projection, log, eventhandler.DefaultActivityRecordedConfig())
		if err := onRecorded.Register(bus); err != nil {
			return fmt.Errorf("failed to register event handlers: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Application layer
	// ─────────────────────────────────────────────────────────────────────────
	catalog, err := bootstrap.LoadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("failed to load achievement catalog: %w", err)
	}
	evaluator := bootstrap.NewEvaluator(catalog, cfg)
	log.Info("achievement catalog loaded", logger.Int("achievements", catalog.Len()))

	deps := httpserver.Dependencies{
		RecordActivity: command.NewRecordActivityHandler(store.Repo, evaluator, bus, command.RecordActivityHandlerConfig{
			Location: cfg.App.Location,
			Logger:   log,
		}),
		GetUserProgress:        query.NewGetUserProgressHandler(store.Repo),
		GetUserAchievements:    query.NewGetUserAchievementsHandler(store.Repo, catalog),
		GetAchievementProgress: query.NewGetAchievementProgressHandler(store.Repo, evaluator),
		GetActivityFeed:        query.NewGetActivityFeedHandler(store.Repo),
		GetUserRank:            query.NewGetUserRankHandler(store.Repo, rankIndex, log),
		GetLeaderboard:         query.NewGetLeaderboardHandler(store.Repo, pageCache, log),
		ListAchievements:       query.NewListAchievementsHandler(catalog),
		HealthChecker:          health,
		Logger:                 log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.RequestTimeout = cfg.HTTP.RequestTimeout
	httpConfig.GinMode = cfg.HTTP.GinMode
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerSec = cfg.HTTP.RateLimitPerSec
	httpConfig.RateLimitBurst = cfg.HTTP.RateLimitBurst
	httpConfig.Version = cfg.App.Version

	server := httpserver.NewServer(httpConfig, deps)
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok && err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", logger.Err(err))
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}
	log.Info("shutdown completed")
	return nil
}
