package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudmesh/orchestrator/internal/application/dispatch"
	"github.com/cloudmesh/orchestrator/internal/application/engine"
	"github.com/cloudmesh/orchestrator/internal/application/locks"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router  *gin.Engine
	server  *http.Server
	engine  *engine.Service
	history *engine.HistoryService
	locks   *locks.Manager
	health  *dispatch.HealthMonitor
	lockTTL time.Duration
	logger  *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port           int
	Engine         *engine.Service
	History        *engine.HistoryService
	Locks          *locks.Manager
	Health         *dispatch.HealthMonitor
	LockDefaultTTL time.Duration
	Logger         *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger(cfg.Logger))

	s := &Server{
		router:  router,
		engine:  cfg.Engine,
		history: cfg.History,
		locks:   cfg.Locks,
		health:  cfg.Health,
		lockTTL: cfg.LockDefaultTTL,
		logger:  cfg.Logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Orchestration endpoints
		v1.POST("/orchestration", s.handlePull)

		// Push subscription endpoints
		v1.POST("/subscriptions", s.handleSubscribe)
		v1.GET("/subscriptions", s.handleQuerySubscriptions)
		v1.DELETE("/subscriptions/:id", s.handleUnsubscribe)
		v1.POST("/subscriptions/trigger", s.handleTrigger)

		// Lock endpoints
		v1.POST("/locks", s.handleAcquireLocks)
		v1.GET("/locks", s.handleQueryLocks)
		v1.POST("/locks/release", s.handleReleaseLocks)

		// Job history endpoints
		v1.GET("/jobs", s.handleQueryJobs)
		v1.GET("/jobs/:id", s.handleGetJob)
	}
}

// SetupWebSocket adds WebSocket handler to the server
func (s *Server) SetupWebSocket(handler interface{}) {
	// Type assert to get the handler
	if wsHandler, ok := handler.(interface {
		HandleJobStream(*gin.Context)
	}); ok {
		s.router.GET("/api/v1/jobs/:id/ws", wsHandler.HandleJobStream)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

// requestLogger is a middleware for request logging
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()))
	}
}
