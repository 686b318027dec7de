// Package main is the entry point of the progress hub background worker.
//
// The worker keeps the Redis read side in step with the progress store:
// it periodically rebuilds the experience rank index and warms the cached
// leaderboard pages. The API server updates the same structures per event;
// this process repairs whatever those updates missed.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/resume-analyzer/progress-hub/config"
	"github.com/resume-analyzer/progress-hub/internal/bootstrap"
	"github.com/resume-analyzer/progress-hub/internal/infrastructure/scheduler"
	"github.com/resume-analyzer/progress-hub/internal/infrastructure/scheduler/jobs"
	"github.com/resume-analyzer/progress-hub/pkg/logger"
)

var errRedisRequired = errors.New("worker requires redis: nothing to rebuild without a rank index")

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

	log := bootstrap.NewLogger(cfg, "worker")
	defer func() { _ = log.Sync() }()

	log.Info("starting progress hub worker",
		logger.String("version", cfg.App.Version),
		logger.String("store", cfg.Store.Driver),
		logger.String("rebuild_schedule", cfg.Worker.RebuildSchedule),
	)

	schedule, err := scheduler.ParseSchedule(cfg.Worker.RebuildSchedule)
	if err != nil {
		return fmt.Errorf("invalid WORKER_REBUILD_SCHEDULE: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Store, Redis, event bus
	// ─────────────────────────────────────────────────────────────────────────
	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open progress store: %w", err)
	}
	defer store.Close()

	redisClient := bootstrap.OpenRedis(ctx, cfg, log)
	if redisClient == nil {
		return errRedisRequired
	}
	defer func() { _ = redisClient.Close() }()

	bus := bootstrap.NewEventBus(redisClient, cfg, log)
	defer func() { _ = bus.Close() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Jobs
	// ─────────────────────────────────────────────────────────────────────────
	leaderboard := bootstrap.NewLeaderboardCache(redisClient, cfg)
	rebuild := jobs.NewRebuildLeaderboardJob(store.Repo, leaderboard, leaderboard, bus, log,
		jobs.RebuildLeaderboardConfig{
			WarmLimit: cfg.Worker.WarmLimit,
			Timeout:   cfg.Worker.JobTimeout,
		})

	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.Logger = log
	schedCfg.Timezone = cfg.App.Location
	sched := scheduler.NewScheduler(schedCfg)

	if err := sched.Register(rebuild, schedule); err != nil {
		return fmt.Errorf("failed to register %s: %w", rebuild.Name(), err)
	}

	if cfg.Worker.RebuildOnStart {
		// A failed first run is logged by the scheduler; the schedule retries it.
		if res, err := sched.RunNow(ctx, rebuild.Name()); err == nil {
			if stats := rebuild.LastStats(); stats != nil {
				log.Info("initial rebuild done",
					logger.Int("users", stats.Users),
					logger.Int("pages_warmed", stats.PagesWarmed),
					logger.Duration("duration", res.Duration),
				)
			}
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	if err := sched.Stop(); err != nil {
		log.Warn("scheduler stop", logger.Err(err))
	}

	m := sched.GetMetrics().Snapshot()
	log.Info("worker stopped",
		logger.Int64("runs", m.TotalExecutions),
		logger.Int64("failures", m.TotalFailures),
	)
	return nil
}
