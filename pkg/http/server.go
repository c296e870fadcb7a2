package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FutPull/pkg/http/middleware"
	applogger "FutPull/pkg/logger"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// HealthCheck probes one dependency for /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string // empty disables CORS
	HealthChecks    []HealthCheck
	HealthTimeout   time.Duration
	SlowThreshold   time.Duration
	Gatherer        prometheus.Gatherer
	Registerer      prometheus.Registerer
}

// Server wraps Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
	l      *applogger.Logger
}

// NewServer creates an Echo server with recovery, request logging, metrics,
// /healthz and /metrics, then lets every handler register its routes.
func NewServer(l *applogger.Logger, handlers []Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		HealthTimeout:   2 * time.Second,
		SlowThreshold:   2 * time.Second,
		Gatherer:        prometheus.DefaultGatherer,
		Registerer:      prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if l == nil {
		l = applogger.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover(l))
	e.Use(middleware.RequestLogging(l))
	e.Use(middleware.Metrics(cfg.Registerer, l, cfg.SlowThreshold))

	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORS(middleware.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodOptions},
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
			},
		}))
	}

	for _, h := range handlers {
		h.RegisterRoutes(e)
	}

	e.GET("/healthz", healthHandler(cfg.HealthChecks, cfg.HealthTimeout))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	return &Server{echo: e, config: cfg, l: l}
}

// healthHandler reports "ok" per dependency and answers 503 when any check
// fails.
func healthHandler(checks []HealthCheck, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				status[hc.Name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[hc.Name] = "ok"
		}
		return DataResponse(c, code, status)
	}
}

// Start listens in the background. Listen errors other than a graceful
// close are logged.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	go func() {
		s.l.Info("http server listening", applogger.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Error("http server error", applogger.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.l.Info("http server stopped")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		c.Host = host
	}
}

func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		c.Port = port
	}
}

// WithTimeouts sets read/write/shutdown timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithCORS allows cross-origin GETs from origins; "*" allows any.
func WithCORS(origins ...string) ServerOption {
	return func(c *ServerConfig) {
		c.CORSOrigins = origins
	}
}

// WithHealthChecks adds dependency probes to /healthz.
func WithHealthChecks(checks ...HealthCheck) ServerOption {
	return func(c *ServerConfig) {
		c.HealthChecks = append(c.HealthChecks, checks...)
	}
}

// WithRegistry serves and records metrics on reg instead of the default registry.
func WithRegistry(reg *prometheus.Registry) ServerOption {
	return func(c *ServerConfig) {
		c.Gatherer = reg
		c.Registerer = reg
	}
}
