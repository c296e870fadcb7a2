package repository

import (
	"context"
	"time"

	"FutPull/internal/domain/models"
)

// TickArchive reads the raw ticks of one contract on one trade date, in
// archive order. A missing archive or member is models.ErrEmptyArchive.
type TickArchive interface {
	ReadTicks(ctx context.Context, contract string, tradeDate time.Time) ([]models.RawTick, error)
}

type InstrumentClassifier interface {
	Classify(contract string) (models.Instrument, error)
}

type TradingCalendar interface {
	PrevTradeDate(d time.Time) (time.Time, error)
	Range(bgn, stp time.Time) ([]time.Time, error) // bgn inclusive, stp exclusive
}

type ContractUniverse interface {
	Contracts(ctx context.Context, tradeDate time.Time) ([]string, error)
}

type BarSink interface {
	Name() string
	Init(ctx context.Context) error // ensure tables, directories
	Exists(ctx context.Context, tradeDate string) (bool, error)
	Save(ctx context.Context, batch models.BarBatch) error
	Close() error
}

type ProgressStore interface {
	IsDone(ctx context.Context, tradeDate string) (bool, error)
	MarkDone(ctx context.Context, tradeDate string) error
}

type Metrics interface {
	RecordUnit(status string)
	RecordTicks(snapped, dropped int)
	RecordBars(sink string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
