package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FutPull/internal/di"
	"FutPull/internal/domain/models"
	"FutPull/pkg/config"
	applogger "FutPull/pkg/logger"
	"FutPull/pkg/util"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	mode := flag.String("mode", "build", "build or serve")
	bgn := flag.String("bgn", "", "first trade date to build, yyyymmdd")
	stp := flag.String("stp", "", "stop date (exclusive), yyyymmdd; defaults to the day after -bgn")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Printf("config load failed: %v", err)
		return 2
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Printf("app initialization failed: %v", err)
		return 1
	}
	defer cleanup()
	l := app.Logger()
	l.Info("futpull starting", applogger.String("env", cfg.Environment), applogger.String("mode", *mode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "serve":
		if err := app.Serve(ctx); err != nil {
			l.Error("serve failed", applogger.Error(err))
			return 1
		}
	case "build":
		from, to, err := dateRange(*bgn, *stp)
		if err != nil {
			l.Error("bad date range", applogger.Error(err))
			return 2
		}
		report, err := app.Build(ctx, from, to)
		if err != nil {
			l.Error("build failed", applogger.String("run_id", report.RunID), applogger.Error(err))
			return 1
		}
		if failed := report.FailedDates(); len(failed) > 0 {
			l.Error("some trade dates were not saved",
				applogger.String("run_id", report.RunID),
				applogger.Strings("dates", failed),
			)
			return 1
		}
	default:
		l.Error("unknown mode", applogger.String("mode", *mode))
		return 2
	}
	return 0
}

func dateRange(bgn, stp string) (time.Time, time.Time, error) {
	if bgn == "" {
		return time.Time{}, time.Time{}, errors.New("-bgn is required in build mode")
	}
	from, err := util.ParseDate(bgn, models.ExchangeLocation)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if stp == "" {
		return from, from.AddDate(0, 0, 1), nil
	}
	to, err := util.ParseDate(stp, models.ExchangeLocation)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
