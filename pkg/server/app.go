package server

import (
	"context"
	"fmt"
	"time"

	"FutPull/internal/handler/api"
	"FutPull/internal/service/ratelimit"
	"FutPull/internal/usecase"
	"FutPull/pkg/config"
	xhttp "FutPull/pkg/http"
	applogger "FutPull/pkg/logger"
)

// App runs either a batch build over a date range or the on-demand HTTP API.
type App struct {
	cfg     *config.Config
	l       *applogger.Logger
	builder *usecase.MinuteBarBuilder
	writer  *usecase.BarWriter
	handler *api.BarsEchoHandler
	limiter *ratelimit.Limiter
	checks  []xhttp.HealthCheck
}

func New(
	cfg *config.Config,
	l *applogger.Logger,
	builder *usecase.MinuteBarBuilder,
	writer *usecase.BarWriter,
	handler *api.BarsEchoHandler,
	limiter *ratelimit.Limiter,
	checks []xhttp.HealthCheck,
) *App {
	return &App{cfg: cfg, l: l, builder: builder, writer: writer, handler: handler, limiter: limiter, checks: checks}
}

// Logger is the application logger.
func (a *App) Logger() *applogger.Logger { return a.l }

// Build prepares the sinks and converts every trade date in [bgn, stp).
func (a *App) Build(ctx context.Context, bgn, stp time.Time) (usecase.RunReport, error) {
	if err := a.writer.Init(ctx); err != nil {
		return usecase.RunReport{}, fmt.Errorf("init sinks: %w", err)
	}
	defer func() {
		if err := a.writer.Close(); err != nil {
			a.l.Warn("close sinks", applogger.Error(err))
		}
	}()
	return a.builder.Run(ctx, bgn, stp)
}

// Serve runs the HTTP API until ctx is done, then shuts it down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := xhttp.NewServer(a.l, []xhttp.Handler{a.handler},
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORSOrigins...),
		xhttp.WithHealthChecks(a.checks...),
	)
	if err := srv.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()
	for {
		select {
		case <-ctx.Done():
			a.l.Info("shutdown signal received")
			return srv.Stop(context.WithoutCancel(ctx))
		case <-sweep.C:
			if n := a.limiter.Sweep(10 * time.Minute); n > 0 {
				a.l.Debug("rate limiter swept", applogger.Int("keys", n))
			}
		}
	}
}
