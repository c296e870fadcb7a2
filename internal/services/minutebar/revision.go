package minutebar

import (
	"FutPull/internal/domain/models"
	"FutPull/internal/services/session"
)

// RevisionStats counts what Revise did to its input.
type RevisionStats struct {
	Snapped int
	Dropped int
}

// Revise snaps ticks that fall in a forbidden zone of p and keeps the ones
// whose revised timestamp lies in a truncation window. ticks must be in
// chronological order; the input slice is left untouched.
func Revise(p session.Policy, ticks []models.ResolvedTick) ([]models.ResolvedTick, RevisionStats) {
	var stats RevisionStats
	kept := make([]models.ResolvedTick, 0, len(ticks))
	for _, tick := range ticks {
		ts, snapped := p.Snap(tick.Timestamp)
		if snapped {
			stats.Snapped++
		}
		if !p.Contains(ts) {
			stats.Dropped++
			continue
		}
		kept = append(kept, tick.WithTimestamp(ts))
	}
	return kept, stats
}
