package minutebar

import (
	"math"
	"time"

	"FutPull/internal/domain/models"
)

// Aggregate buckets chronologically ordered ticks into one-minute bars.
// Only minutes holding at least one tick produce a bar.
func Aggregate(ticks []models.ResolvedTick) []models.MinuteBar {
	var (
		bars []models.MinuteBar
		cur  *models.MinuteBar
	)
	for _, tick := range ticks {
		minute := tick.Timestamp.Truncate(time.Minute)
		price := tick.Raw.LastPrice
		if cur == nil || !cur.Timestamp.Equal(minute) {
			bars = append(bars, models.MinuteBar{
				Timestamp: minute,
				Open:      price,
				High:      price,
				Low:       price,
			})
			cur = &bars[len(bars)-1]
		}
		cur.High = math.Max(cur.High, price)
		cur.Low = math.Min(cur.Low, price)
		cur.Close = price
		cur.Volume += tick.Volume
		cur.Turnover += tick.Turnover
		if oi := tick.Raw.OpenInterest; oi != nil && !math.IsNaN(*oi) {
			v := *oi
			cur.OpenInterest = &v
		}
	}
	return bars
}
