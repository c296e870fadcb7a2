// Package minutebar turns the raw ticks of one contract on one trade date
// into calendar-aligned one-minute OHLCV bars.
//
// The pipeline is resolve, revise, aggregate, format. Each stage is a pure
// function over its input, so an Engine holds no per-call state and may be
// shared across goroutines.
package minutebar

import (
	"fmt"

	"FutPull/internal/domain/models"
	"FutPull/internal/services/session"
	"FutPull/pkg/util"
)

type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Convert runs the whole pipeline for unit. The session policy is resolved
// before any tick is looked at, so an unsupported instrument fails even
// when raw is empty.
func (e *Engine) Convert(unit models.Unit, raw []models.RawTick) (models.Conversion, error) {
	out := models.Conversion{Contract: unit.Contract, TradeDate: unit.TradeDate}

	policy, err := session.ForDate(unit.Instrument, unit.TradeDate, unit.PrevTradeDate)
	if err != nil {
		return out, fmt.Errorf("session policy for %s: %w", unit.Contract, err)
	}
	out.Stats.TicksIn = len(raw)
	if len(raw) == 0 {
		return out, nil
	}

	resolved, err := Resolve(raw, unit.TradeDate, unit.PrevTradeDate)
	if err != nil {
		return out, fmt.Errorf("resolve %s: %w", unit.Contract, err)
	}
	kept, stats := Revise(policy, resolved)
	out.Stats.Snapped = stats.Snapped
	out.Stats.Dropped = stats.Dropped

	out.Bars = Aggregate(kept)
	out.Records, out.Stats.Incomplete = Format(out.Bars, unit.Contract, util.FormatDate(unit.TradeDate))
	return out, nil
}
