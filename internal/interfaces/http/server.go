// Package http serves the optional operator HTTP surface: a liveness
// probe, a status summary, and a Prometheus-text /metrics endpoint
// backed by internal/infrastructure/monitoring's zero-dependency
// Monitor. It carries no conversational traffic — message handling
// stays entirely on the XMPP connection; this is an observation surface.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fluux-agent/gateway/internal/infrastructure/monitoring"
	"github.com/fluux-agent/gateway/internal/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatusProvider supplies the live runtime the /status and /metrics
// endpoints report on. internal/agent.Runtime satisfies it.
type StatusProvider interface {
	Uptime() time.Duration
	Monitor() *monitoring.Monitor
}

// Server is the gin-based operator HTTP surface.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

func NewServer(addr string, status StatusProvider, broadcaster *telemetry.Broadcaster, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		stats := status.Monitor().GetStats()
		stats["uptime_seconds"] = int(status.Uptime().Seconds())
		stats["ws_admin_subscribers"] = broadcaster.SubscriberCount()
		c.JSON(http.StatusOK, stats)
	})
	router.GET("/metrics", gin.WrapH(status.Monitor().PrometheusHandler()))

	return &Server{
		server: &http.Server{Addr: addr, Handler: router},
		logger: logger,
	}
}

func (s *Server) Start() {
	s.logger.Info("starting operator HTTP surface", zap.String("addr", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("operator HTTP surface error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping operator HTTP surface")
	return s.server.Shutdown(ctx)
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
