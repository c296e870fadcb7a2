package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FutPull/internal/domain/models"
	drepo "FutPull/internal/domain/repository"
	applogger "FutPull/pkg/logger"
)

// BarWriter fans one day's batch out to every enabled sink.
type BarWriter struct {
	sinks   []drepo.BarSink
	metrics drepo.Metrics
	l       *applogger.Logger
}

// NewBarWriter creates a new BarWriter instance.
func NewBarWriter(sinks []drepo.BarSink, metrics drepo.Metrics, l *applogger.Logger) *BarWriter {
	if l == nil {
		l = applogger.NewNop()
	}
	return &BarWriter{sinks: sinks, metrics: metrics, l: l}
}

// Init prepares every sink (tables, directories).
func (w *BarWriter) Init(ctx context.Context) error {
	for _, s := range w.sinks {
		if err := s.Init(ctx); err != nil {
			return fmt.Errorf("init %s sink: %w", s.Name(), err)
		}
	}
	return nil
}

// Saved reports whether every sink already holds tradeDate.
func (w *BarWriter) Saved(ctx context.Context, tradeDate string) (bool, error) {
	if len(w.sinks) == 0 {
		return false, nil
	}
	for _, s := range w.sinks {
		ok, err := s.Exists(ctx, tradeDate)
		if err != nil {
			return false, fmt.Errorf("%s exists: %w", s.Name(), err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Write saves batch to all sinks. A failing sink does not stop the others;
// the returned error joins every failure.
func (w *BarWriter) Write(ctx context.Context, batch models.BarBatch) error {
	var errs []error
	for _, s := range w.sinks {
		start := time.Now()
		if err := s.Save(ctx, batch); err != nil {
			w.metrics.RecordError("save_" + s.Name())
			w.l.Error("save bars failed",
				applogger.String("sink", s.Name()),
				applogger.String("trade_date", batch.TradeDate),
				applogger.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
			continue
		}
		w.metrics.RecordBars(s.Name(), len(batch.Records))
		w.metrics.RecordLatency("save_"+s.Name(), time.Since(start).Seconds())
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (w *BarWriter) Close() error {
	var errs []error
	for _, s := range w.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
