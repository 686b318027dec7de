// Package http implements the REST API of the progress hub on top of gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resume-analyzer/progress-hub/internal/application/command"
	"github.com/resume-analyzer/progress-hub/internal/application/query"
	"github.com/resume-analyzer/progress-hub/internal/interface/http/handlers"
	"github.com/resume-analyzer/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RequestTimeout bounds the context of every API request (0 = none).
	RequestTimeout time.Duration

	MaxHeaderBytes int

	// GinMode - debug, release or test.
	GinMode string

	AllowedOrigins []string

	// RateLimitPerSec - requests per second per client IP (0 = disabled).
	RateLimitPerSec float64
	RateLimitBurst  int

	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		RequestTimeout:  10 * time.Second,
		MaxHeaderBytes:  1 << 20,
		GinMode:         gin.ReleaseMode,
		AllowedOrigins:  []string{"*"},
		RateLimitPerSec: 20,
		RateLimitBurst:  40,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command side
	RecordActivity *command.RecordActivityHandler

	// Query side
	GetUserProgress        *query.GetUserProgressHandler
	GetUserAchievements    *query.GetUserAchievementsHandler
	GetAchievementProgress *query.GetAchievementProgressHandler
	GetActivityFeed        *query.GetActivityFeedHandler
	GetUserRank            *query.GetUserRankHandler
	GetLeaderboard         *query.GetLeaderboardHandler
	ListAchievements       *query.ListAchievementsHandler

	HealthChecker handlers.HealthChecker
	Logger        *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	setGinMode(config.GinMode)

	s := &Server{
		config: config,
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))
	if s.deps.HealthChecker == nil {
		s.deps.HealthChecker = handlers.NewNoopHealthChecker()
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.engine,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

func setGinMode(mode string) {
	switch strings.ToLower(mode) {
	case gin.DebugMode:
		gin.SetMode(gin.DebugMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupMiddleware() {
	s.engine.Use(
		handlers.RequestID(s.logger),
		handlers.AccessLog(s.logger),
		handlers.Recovery(s.logger),
		handlers.SecurityHeaders(),
		handlers.CORS(s.config.AllowedOrigins),
	)
	s.engine.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.CodeNotFound, "route not found")
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health
	// ─────────────────────────────────────────────────────────────────────────
	health := s.engine.Group("/health", handlers.NoCache())
	health.GET("", s.handleHealth)
	health.GET("/live", s.handleLive)
	health.GET("/ready", s.handleReady)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1
	// ─────────────────────────────────────────────────────────────────────────
	v1 := s.engine.Group("/api/v1")
	if s.config.RateLimitPerSec > 0 {
		v1.Use(handlers.NewRateLimiter(s.config.RateLimitPerSec, s.config.RateLimitBurst).Middleware())
	}
	v1.Use(handlers.Timeout(s.config.RequestTimeout))

	users := v1.Group("/users/:user_id")
	users.POST("/activities", s.handleRecordActivity)
	users.GET("/activities", s.handleGetActivityFeed)
	users.GET("/progress", s.handleGetUserProgress)
	users.GET("/achievements", s.handleGetUserAchievements)
	users.GET("/achievements/progress", s.handleGetAchievementProgress)
	users.GET("/rank", s.handleGetUserRank)

	v1.GET("/leaderboard", s.handleGetLeaderboard)
	v1.GET("/achievements", s.handleListAchievements)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
