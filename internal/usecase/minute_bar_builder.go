package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"FutPull/internal/domain/models"
	drepo "FutPull/internal/domain/repository"
	dservice "FutPull/internal/domain/service"
	"FutPull/internal/services/minutebar"
	applogger "FutPull/pkg/logger"
	"FutPull/pkg/util"
)

// Date outcomes in a RunReport.
const (
	StatusBuilt   = "built"
	StatusSkipped = "skipped"
	StatusLocked  = "locked"
	StatusFailed  = "failed"
)

// Locker guards a trade date against concurrent builders. cache.Service
// satisfies it. The run id is the lock token.
type Locker interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

type BuilderConfig struct {
	Workers int
	Fields  []string
	LockTTL time.Duration
}

// UnitFailure records why one contract of a date produced no bars.
type UnitFailure struct {
	Contract string `json:"contract"`
	Reason   string `json:"reason"`
}

type DateReport struct {
	TradeDate string        `json:"trade_date"`
	Status    string        `json:"status"`
	Contracts int           `json:"contracts"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Bars      int           `json:"bars"`
	Failures  []UnitFailure `json:"failures,omitempty"`
	Err       string        `json:"error,omitempty"`
}

type RunReport struct {
	RunID    string       `json:"run_id"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Dates    []DateReport `json:"dates"`
}

// FailedDates lists the dates whose bars were not saved.
func (r RunReport) FailedDates() []string {
	var out []string
	for _, d := range r.Dates {
		if d.Status == StatusFailed {
			out = append(out, d.TradeDate)
		}
	}
	return out
}

// MinuteBarBuilder converts every selected contract of every trade date in a
// range and saves each day's bars.
type MinuteBarBuilder struct {
	calendar   drepo.TradingCalendar
	universe   drepo.ContractUniverse
	archive    drepo.TickArchive
	classifier drepo.InstrumentClassifier
	converter  dservice.BarConverter
	writer     *BarWriter
	progress   drepo.ProgressStore
	locker     Locker
	metrics    drepo.Metrics
	cfg        BuilderConfig
	l          *applogger.Logger
}

// NewMinuteBarBuilder creates a builder. locker may be nil.
func NewMinuteBarBuilder(
	calendar drepo.TradingCalendar,
	universe drepo.ContractUniverse,
	archive drepo.TickArchive,
	classifier drepo.InstrumentClassifier,
	converter dservice.BarConverter,
	writer *BarWriter,
	progress drepo.ProgressStore,
	locker Locker,
	metrics drepo.Metrics,
	cfg BuilderConfig,
	l *applogger.Logger,
) *MinuteBarBuilder {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Hour
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &MinuteBarBuilder{
		calendar:   calendar,
		universe:   universe,
		archive:    archive,
		classifier: classifier,
		converter:  converter,
		writer:     writer,
		progress:   progress,
		locker:     locker,
		metrics:    metrics,
		cfg:        cfg,
		l:          l,
	}
}

// Run builds every trade date in [bgn, stp). Dates are processed one after
// another; the units of a date run concurrently. Once ctx is done no new
// date or unit starts and the context error is returned with the partial
// report.
func (b *MinuteBarBuilder) Run(ctx context.Context, bgn, stp time.Time) (RunReport, error) {
	report := RunReport{RunID: uuid.NewString(), Started: time.Now()}
	l := b.l.With(applogger.String("run_id", report.RunID))

	if _, err := minutebar.ResolveFields(b.cfg.Fields); err != nil {
		return report, err
	}
	dates, err := b.calendar.Range(bgn, stp)
	if err != nil {
		return report, fmt.Errorf("trade dates: %w", err)
	}
	l.Info("minute bar run started",
		applogger.String("bgn", util.FormatDate(bgn)),
		applogger.String("stp", util.FormatDate(stp)),
		applogger.Int("dates", len(dates)),
		applogger.Int("workers", b.cfg.Workers),
	)

	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			report.Finished = time.Now()
			return report, err
		}
		dr := b.buildDate(ctx, l, report.RunID, d)
		report.Dates = append(report.Dates, dr)
	}
	report.Finished = time.Now()

	l.Info("minute bar run finished",
		applogger.Int("dates", len(report.Dates)),
		applogger.Strings("failed", report.FailedDates()),
		applogger.Duration("elapsed", report.Finished.Sub(report.Started)),
	)
	return report, ctx.Err()
}

func (b *MinuteBarBuilder) buildDate(ctx context.Context, l *applogger.Logger, runID string, d time.Time) DateReport {
	start := time.Now()
	ds := util.FormatDate(d)
	dr := DateReport{TradeDate: ds}
	l = l.With(applogger.String("trade_date", ds))

	fail := func(stage string, err error) DateReport {
		dr.Status = StatusFailed
		dr.Err = fmt.Sprintf("%s: %v", stage, err)
		b.metrics.RecordError(stage)
		l.Error("trade date failed", applogger.String("stage", stage), applogger.Error(err))
		return dr
	}

	if done, err := b.done(ctx, ds); err != nil {
		return fail("progress", err)
	} else if done {
		dr.Status = StatusSkipped
		l.Info("trade date already built, skipping")
		return dr
	}

	if b.locker != nil {
		key := "lock:build:" + ds
		ok, err := b.locker.TryLock(ctx, key, runID, b.cfg.LockTTL)
		if err != nil {
			return fail("lock", err)
		}
		if !ok {
			dr.Status = StatusLocked
			l.Warn("trade date is being built elsewhere, skipping")
			return dr
		}
		defer func() {
			if err := b.locker.Unlock(context.WithoutCancel(ctx), key, runID); err != nil {
				l.Warn("unlock failed", applogger.Error(err))
			}
		}()
	}

	prev, err := b.calendar.PrevTradeDate(d)
	if err != nil {
		return fail("calendar", err)
	}
	contracts, err := b.universe.Contracts(ctx, d)
	if err != nil {
		return fail("universe", err)
	}
	dr.Contracts = len(contracts)

	results := make([]models.Conversion, len(contracts))
	errs := make([]error, len(contracts))
	var g errgroup.Group
	g.SetLimit(b.cfg.Workers)
	for i, c := range contracts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = b.convertUnit(ctx, c, d, prev)
			return nil
		})
	}
	_ = g.Wait()

	var records []models.BarRecord
	retryable := 0
	for i, c := range contracts {
		if errs[i] != nil {
			dr.Failed++
			dr.Failures = append(dr.Failures, UnitFailure{Contract: c, Reason: errs[i].Error()})
			if !Permanent(errs[i]) {
				retryable++
			}
			continue
		}
		dr.Succeeded++
		records = append(records, results[i].Records...)
	}
	if err := ctx.Err(); err != nil {
		return fail("canceled", err)
	}
	dr.Bars = len(records)
	// Unsaved and unmarked, so the next run builds the date again.
	if retryable > 0 {
		return fail("convert", fmt.Errorf("%d of %d units failed", retryable, dr.Contracts))
	}

	batch, err := minutebar.Batch(ds, records, b.cfg.Fields)
	if err != nil {
		return fail("format", err)
	}
	if err := b.writer.Write(ctx, batch); err != nil {
		return fail("save", err)
	}
	if err := b.progress.MarkDone(ctx, ds); err != nil {
		l.Warn("mark progress failed", applogger.Error(err))
	}

	dr.Status = StatusBuilt
	b.metrics.RecordLatency("build_date", time.Since(start).Seconds())
	l.Info("trade date built",
		applogger.Int("contracts", dr.Contracts),
		applogger.Int("failed", dr.Failed),
		applogger.Int("bars", dr.Bars),
		applogger.Duration("elapsed", time.Since(start)),
	)
	return dr
}

func (b *MinuteBarBuilder) done(ctx context.Context, ds string) (bool, error) {
	done, err := b.progress.IsDone(ctx, ds)
	if err != nil || done {
		return done, err
	}
	return b.writer.Saved(ctx, ds)
}

// convertUnit reads and converts one contract. An empty archive is not a
// failure; the unit simply contributes no bars.
func (b *MinuteBarBuilder) convertUnit(ctx context.Context, contract string, d, prev time.Time) (models.Conversion, error) {
	start := time.Now()
	inst, err := b.classifier.Classify(contract)
	if err != nil {
		b.recordFailure(contract, err)
		return models.Conversion{}, err
	}
	unit := models.Unit{Contract: contract, Instrument: inst, TradeDate: d, PrevTradeDate: prev}

	raw, err := b.archive.ReadTicks(ctx, contract, d)
	empty := errors.Is(err, models.ErrEmptyArchive)
	if err != nil && !empty {
		b.recordFailure(contract, err)
		return models.Conversion{}, err
	}

	conv, err := b.converter.Convert(unit, raw)
	if err != nil {
		b.recordFailure(contract, err)
		return models.Conversion{}, err
	}
	if empty {
		b.metrics.RecordUnit("empty")
		b.l.Info("no ticks for unit",
			applogger.String("contract", contract),
			applogger.String("trade_date", util.FormatDate(d)),
		)
		return conv, nil
	}

	b.metrics.RecordUnit("ok")
	b.metrics.RecordTicks(conv.Stats.Snapped, conv.Stats.Dropped)
	b.metrics.RecordLatency("convert", time.Since(start).Seconds())
	b.l.Debug("unit converted",
		applogger.String("contract", contract),
		applogger.Int("ticks", conv.Stats.TicksIn),
		applogger.Int("snapped", conv.Stats.Snapped),
		applogger.Int("dropped", conv.Stats.Dropped),
		applogger.Int("bars", len(conv.Records)),
		applogger.Int("incomplete", conv.Stats.Incomplete),
	)
	return conv, nil
}

func (b *MinuteBarBuilder) recordFailure(contract string, err error) {
	b.metrics.RecordUnit("failed")
	b.metrics.RecordError(ErrorKind(err))
	b.l.Warn("unit failed", applogger.String("contract", contract), applogger.Error(err))
}

// Permanent reports whether a unit failure would repeat on every run. Such
// units do not hold back the rest of the date.
func Permanent(err error) bool {
	return errors.Is(err, models.ErrUnsupportedInstrument) || errors.Is(err, models.ErrInvalidContract)
}

// ErrorKind labels an error for metrics.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrUnsupportedInstrument):
		return "unsupported_instrument"
	case errors.Is(err, models.ErrMalformedTick):
		return "malformed_tick"
	case errors.Is(err, models.ErrInvalidContract):
		return "invalid_contract"
	case errors.Is(err, models.ErrEmptyArchive):
		return "empty_archive"
	case errors.Is(err, models.ErrDateNotInCalendar):
		return "calendar"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "archive"
	}
}
