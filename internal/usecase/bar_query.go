package usecase

import (
	"context"
	"fmt"
	"time"

	"FutPull/internal/domain/models"
	drepo "FutPull/internal/domain/repository"
	dservice "FutPull/internal/domain/service"
	"FutPull/internal/service/instrument"
	"FutPull/internal/services/minutebar"
	"FutPull/internal/services/session"
)

// BarResult is one unit converted on demand.
type BarResult struct {
	Contract  string                 `json:"contract"`
	TradeDate string                 `json:"trade_date"`
	Table     models.BarTable        `json:"-"`
	Stats     models.ConversionStats `json:"stats"`
}

// BarQuery answers single contract/date requests without touching the sinks.
type BarQuery struct {
	calendar   drepo.TradingCalendar
	archive    drepo.TickArchive
	classifier drepo.InstrumentClassifier
	converter  dservice.BarConverter
	metrics    drepo.Metrics
}

func NewBarQuery(
	calendar drepo.TradingCalendar,
	archive drepo.TickArchive,
	classifier drepo.InstrumentClassifier,
	converter dservice.BarConverter,
	metrics drepo.Metrics,
) *BarQuery {
	return &BarQuery{calendar: calendar, archive: archive, classifier: classifier, converter: converter, metrics: metrics}
}

// Bars converts contract on tradeDate and projects the result onto fields.
// An empty archive is returned as models.ErrEmptyArchive.
func (q *BarQuery) Bars(ctx context.Context, contract string, tradeDate time.Time, fields []string) (BarResult, error) {
	start := time.Now()
	res := BarResult{Contract: contract, TradeDate: tradeDate.Format("20060102")}

	fields, err := minutebar.ResolveFields(fields)
	if err != nil {
		return res, err
	}
	inst, err := q.classifier.Classify(contract)
	if err != nil {
		return res, err
	}
	if _, err := session.Classify(inst); err != nil {
		q.metrics.RecordError(ErrorKind(err))
		return res, err
	}
	prev, err := q.calendar.PrevTradeDate(tradeDate)
	if err != nil {
		return res, err
	}
	raw, err := q.archive.ReadTicks(ctx, contract, tradeDate)
	if err != nil {
		q.metrics.RecordError(ErrorKind(err))
		return res, err
	}
	conv, err := q.converter.Convert(models.Unit{
		Contract:      contract,
		Instrument:    inst,
		TradeDate:     tradeDate,
		PrevTradeDate: prev,
	}, raw)
	if err != nil {
		q.metrics.RecordError(ErrorKind(err))
		return res, err
	}
	if res.Table, err = minutebar.Project(conv.Records, fields); err != nil {
		return res, err
	}
	res.Stats = conv.Stats
	q.metrics.RecordTicks(conv.Stats.Snapped, conv.Stats.Dropped)
	q.metrics.RecordLatency("query_bars", time.Since(start).Seconds())
	return res, nil
}

// Session returns the session policy an instrument such as "IF.CFX" trades
// under on tradeDate.
func (q *BarQuery) Session(instrumentID string, tradeDate time.Time) (session.Policy, error) {
	inst, err := instrument.ParseInstrument(instrumentID)
	if err != nil {
		return session.Policy{}, err
	}
	prev, err := q.calendar.PrevTradeDate(tradeDate)
	if err != nil {
		return session.Policy{}, err
	}
	p, err := session.ForDate(inst, tradeDate, prev)
	if err != nil {
		return session.Policy{}, fmt.Errorf("session for %s: %w", inst.ID(), err)
	}
	return p, nil
}
