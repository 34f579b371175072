// Package server exposes the assembled price data over HTTP: the
// filterable row table, per-item detail views, and thin proxies for the
// raw upstream endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"osrs-price-tracker/pkg/config"
	"osrs-price-tracker/pkg/logging"
)

// Server wraps the gin engine and the underlying http.Server.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	logger *logging.Logger
}

// NewServer builds the router and registers all routes.
func NewServer(cfg *config.ServerConfig, handler *Handler, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewLogger("error", "json")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	// CORS middleware
	engine.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	engine.GET("/healthz", handler.Health)

	api := engine.Group("/api")
	{
		api.GET("/rows", handler.Rows)
		api.GET("/item/:id", handler.Item)

		// Raw upstream proxies
		api.GET("/mapping", handler.Mapping)
		api.GET("/latest", handler.Latest)
		api.GET("/24h", handler.Volumes24h)
		api.GET("/timeseries", handler.Timeseries)
	}

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:              cfg.Address(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Engine returns the underlying router, for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.WithComponent("server").WithField("addr", s.http.Addr).Info("http server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithComponent("http").WithFields(map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("request handled")
	}
}
