// Package session models the exchange trading-session calendars used to
// revise raw ticks before they are bucketed into minute bars.
package session

import (
	"strings"
	"time"

	"FutPull/internal/domain/models"
	"FutPull/pkg/util"
)

// Kind is the session policy variant an instrument trades under.
type Kind int

const (
	KindNonCfx Kind = iota
	KindCfxEquity
	KindCfxTreasuryBond
)

func (k Kind) String() string {
	switch k {
	case KindNonCfx:
		return "non_cfx"
	case KindCfxEquity:
		return "cfx_equity"
	case KindCfxTreasuryBond:
		return "cfx_treasury_bond"
	default:
		return "unknown"
	}
}

// SnapPolicy tells where a tick inside a forbidden zone is moved to.
type SnapPolicy int

const (
	// SnapToEnd moves the tick to the zone end.
	SnapToEnd SnapPolicy = iota
	// SnapToStartMinusEpsilon moves the tick one millisecond before the zone begin.
	SnapToStartMinusEpsilon
)

func (p SnapPolicy) String() string {
	if p == SnapToEnd {
		return "snap_to_end"
	}
	return "snap_to_start_minus_epsilon"
}

// Epsilon is the distance a SnapToStartMinusEpsilon tick lands before its zone.
const Epsilon = time.Millisecond

// EquityCutover is the first trade date of the 09:30-15:00 equity index hours.
var EquityCutover = time.Date(2016, 1, 1, 0, 0, 0, 0, models.ExchangeLocation)

var (
	equityCodes = map[string]bool{"IH": true, "IF": true, "IC": true, "IM": true}
	bondCodes   = map[string]bool{"TS": true, "TF": true, "T": true, "TL": true}
)

// ForbiddenZone is a closed interval [Begin, End] whose ticks get snapped.
type ForbiddenZone struct {
	Begin time.Time
	End   time.Time
	Snap  SnapPolicy
}

// Contains reports whether ts lies in the zone, both bounds included.
func (z ForbiddenZone) Contains(ts time.Time) bool {
	return !ts.Before(z.Begin) && !ts.After(z.End)
}

// Target is the instant a tick inside the zone is moved to.
func (z ForbiddenZone) Target() time.Time {
	if z.Snap == SnapToEnd {
		return z.End
	}
	return z.Begin.Add(-Epsilon)
}

// Window is a half-open interval [Begin, End) of live trading.
type Window struct {
	Begin time.Time
	End   time.Time
}

// Contains reports whether ts lies in [Begin, End).
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Begin) && ts.Before(w.End)
}

// Policy is the resolved calendar of one instrument on one trade date.
type Policy struct {
	Kind    Kind
	Zones   []ForbiddenZone
	Windows []Window
}

// Snap applies the first zone containing ts. The second result is false
// when no zone matched and ts is returned unchanged.
func (p Policy) Snap(ts time.Time) (time.Time, bool) {
	for _, z := range p.Zones {
		if z.Contains(ts) {
			return z.Target(), true
		}
	}
	return ts, false
}

// Contains reports whether ts falls inside one of the truncation windows.
func (p Policy) Contains(ts time.Time) bool {
	for _, w := range p.Windows {
		if w.Contains(ts) {
			return true
		}
	}
	return false
}

// Classify picks the policy variant for an instrument.
func Classify(inst models.Instrument) (Kind, error) {
	exchange := strings.ToUpper(strings.TrimSpace(inst.Exchange))
	code := strings.ToUpper(strings.TrimSpace(inst.Code))
	switch {
	case exchange == "":
		return 0, &models.UnsupportedInstrumentError{Exchange: inst.Exchange, Instrument: inst.Code}
	case exchange != models.ExchangeCFX:
		return KindNonCfx, nil
	case equityCodes[code]:
		return KindCfxEquity, nil
	case bondCodes[code]:
		return KindCfxTreasuryBond, nil
	default:
		return 0, &models.UnsupportedInstrumentError{Exchange: inst.Exchange, Instrument: inst.Code}
	}
}

// ForDate builds the policy of inst for tradeDate. prevTradeDate anchors the
// night session of non-CFX instruments.
func ForDate(inst models.Instrument, tradeDate, prevTradeDate time.Time) (Policy, error) {
	kind, err := Classify(inst)
	if err != nil {
		return Policy{}, err
	}
	t := midnight(tradeDate)
	switch kind {
	case KindCfxEquity:
		return cfxEquity(t), nil
	case KindCfxTreasuryBond:
		return cfxTreasuryBond(t), nil
	default:
		return nonCfx(t, midnight(prevTradeDate)), nil
	}
}

func nonCfx(t, p time.Time) Policy {
	// the night tail is anchored on the calendar day after the previous
	// trade date, which differs from t over weekends and holidays
	l := p.AddDate(0, 0, 1)
	zones := []ForbiddenZone{
		zone(p, 20, 59, 21, 0, SnapToEnd),
		zone(l, 2, 30, 2, 35, SnapToStartMinusEpsilon),
		zone(t, 8, 59, 9, 0, SnapToEnd),
		zone(t, 10, 15, 10, 16, SnapToStartMinusEpsilon),
		zone(t, 10, 29, 10, 30, SnapToEnd),
		zone(t, 11, 30, 11, 31, SnapToStartMinusEpsilon),
		zone(t, 13, 29, 13, 30, SnapToEnd),
		zone(t, 15, 0, 15, 5, SnapToStartMinusEpsilon),
	}
	return Policy{
		Kind:  KindNonCfx,
		Zones: zones,
		Windows: []Window{
			{Begin: zones[0].End, End: zones[1].Begin},
			{Begin: zones[2].End, End: zones[7].Begin},
		},
	}
}

func cfxEquity(t time.Time) Policy {
	auction := zone(t, 9, 25, 9, 30, SnapToEnd)
	closing := zone(t, 15, 0, 15, 5, SnapToStartMinusEpsilon)
	if t.Before(EquityCutover) {
		auction = zone(t, 9, 10, 9, 15, SnapToEnd)
		closing = zone(t, 15, 15, 15, 20, SnapToStartMinusEpsilon)
	}
	return singleSession(KindCfxEquity, t, auction, closing)
}

func cfxTreasuryBond(t time.Time) Policy {
	return singleSession(KindCfxTreasuryBond, t,
		zone(t, 9, 10, 9, 15, SnapToEnd),
		zone(t, 15, 15, 15, 20, SnapToStartMinusEpsilon),
	)
}

func singleSession(kind Kind, t time.Time, auction, closing ForbiddenZone) Policy {
	return Policy{
		Kind: kind,
		Zones: []ForbiddenZone{
			auction,
			zone(t, 11, 30, 11, 31, SnapToStartMinusEpsilon),
			zone(t, 12, 59, 13, 0, SnapToEnd),
			closing,
		},
		Windows: []Window{{Begin: auction.End, End: closing.Begin}},
	}
}

func zone(day time.Time, bh, bm, eh, em int, snap SnapPolicy) ForbiddenZone {
	return ForbiddenZone{
		Begin: at(day, bh, bm),
		End:   at(day, eh, em),
		Snap:  snap,
	}
}

func at(day time.Time, h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func midnight(d time.Time) time.Time {
	return util.Midnight(d, models.ExchangeLocation)
}
