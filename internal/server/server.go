package server

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/guiyumin/reelget/internal/core/config"
	"github.com/guiyumin/reelget/internal/core/extractor"
	"github.com/guiyumin/reelget/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// Server is the HTTP gateway in front of the extractor
type Server struct {
	cfg      *config.Config
	resolver extractor.Resolver
	registry *prometheus.Registry
	server   *http.Server
	engine   *gin.Engine
}

// NewServer creates a new HTTP server. The routes are ready to serve
// through Handler before Start is called.
func NewServer(cfg *config.Config, resolver extractor.Resolver) *Server {
	s := &Server{
		cfg:      cfg,
		resolver: resolver,
		registry: prometheus.NewRegistry(),
	}

	metrics.Register(s.registry)
	s.registry.MustRegister(collectors.NewGoCollector())

	s.setupRoutes()
	return s
}

// Handler returns the gin engine
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine = gin.New()

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.requestIDMiddleware())
	s.engine.Use(s.loggingMiddleware())
	s.engine.Use(s.metricsMiddleware())

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/info", s.handleInfo)
	api.GET("/download", s.handleDownload)

	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	if distFS := GetDistFS(); distFS != nil {
		s.setupStaticFiles(distFS)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No timeout for downloads
		IdleTimeout:  120 * time.Second,
	}

	log.Info().
		Str("addr", s.server.Addr).
		Str("extractor", s.cfg.Extractor.Python).
		Int("max_concurrent", s.cfg.Server.MaxConcurrent).
		Bool("cancel_on_disconnect", s.cfg.Server.CancelOnDisconnect).
		Msg("Starting reelget server")

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// extractorContext returns the context subprocesses run under. Unless
// cancel_on_disconnect is set the extractor outlives the client.
func (s *Server) extractorContext(c *gin.Context) context.Context {
	if s.cfg.Server.CancelOnDisconnect {
		return c.Request.Context()
	}
	return context.WithoutCancel(c.Request.Context())
}

// Middleware

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		logger := log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger := zerolog.Ctx(c.Request.Context())
		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "/other"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// setupStaticFiles serves the embedded form with fallback to index.html
func (s *Server) setupStaticFiles(distFS fs.FS) {
	s.engine.GET("/assets/*filepath", func(c *gin.Context) {
		c.FileFromFS(c.Request.URL.Path, http.FS(distFS))
	})

	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			abortWithError(c, notFound("not found"))
			return
		}

		indexFile, err := fs.ReadFile(distFS, "index.html")
		if err != nil {
			c.String(http.StatusNotFound, "index.html not found")
			return
		}

		c.Data(http.StatusOK, "text/html; charset=utf-8", indexFile)
	})
}

func contentDisposition(filename string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, filename)
}
