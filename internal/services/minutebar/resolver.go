package minutebar

import (
	"fmt"
	"sort"
	"time"

	"FutPull/internal/domain/models"
	"FutPull/pkg/util"
)

const (
	nightTailEnd = 4 * time.Hour
	dayEnd       = 16 * time.Hour
)

// ResolveDate maps a time-of-day offset to the trade date it belongs to.
// Ticks up to 04:00:00 are the tail of the night session, which runs on the
// calendar day after prevTradeDate. Ticks after 16:00:00 open the night
// session of prevTradeDate.
func ResolveDate(clock time.Duration, tradeDate, prevTradeDate time.Time) time.Time {
	switch {
	case clock <= nightTailEnd:
		return prevTradeDate.AddDate(0, 0, 1)
	case clock <= dayEnd:
		return tradeDate
	default:
		return prevTradeDate
	}
}

// Resolve places raw ticks on the absolute time line and turns the
// cumulative volume and turnover into increments. Differences are taken in
// arrival order; the first tick gets 0 and counter resets clamp to 0. The
// result is stably sorted by timestamp.
func Resolve(raw []models.RawTick, tradeDate, prevTradeDate time.Time) ([]models.ResolvedTick, error) {
	t := util.Midnight(tradeDate, models.ExchangeLocation)
	p := util.Midnight(prevTradeDate, models.ExchangeLocation)

	out := make([]models.ResolvedTick, 0, len(raw))
	for i, tick := range raw {
		clock, ok := util.ParseClock(tick.UpdateTime)
		if !ok {
			return nil, fmt.Errorf("tick %d: update time %q: %w", i, tick.UpdateTime, models.ErrMalformedTick)
		}
		if tick.UpdateMillisec < 0 || tick.UpdateMillisec > 999 {
			return nil, fmt.Errorf("tick %d: millisecond %d: %w", i, tick.UpdateMillisec, models.ErrMalformedTick)
		}
		date := ResolveDate(clock, t, p)

		var vol, amount float64
		if i > 0 {
			vol = increment(raw[i-1].Volume, tick.Volume)
			amount = increment(raw[i-1].Turnover, tick.Turnover)
		}
		out = append(out, models.ResolvedTick{
			Raw:       tick,
			TradeDate: date,
			Timestamp: date.Add(clock + time.Duration(tick.UpdateMillisec)*time.Millisecond),
			Volume:    vol,
			Turnover:  amount,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func increment(prev, cur float64) float64 {
	if d := cur - prev; d > 0 {
		return d
	}
	return 0
}
