package models

import "time"

// ExchangeLocation is the wall-clock zone every tick and bar timestamp lives in.
var ExchangeLocation = time.FixedZone("CST", 8*3600)

// RawTick is one row of a vendor tick archive. Volume, Turnover and
// OpenInterest are cumulative counters for the trading day.
type RawTick struct {
	UpdateTime     string // HH:MM:SS
	UpdateMillisec int
	LastPrice      float64
	Volume         float64
	Turnover       float64
	OpenInterest   *float64 // nil when the vendor left the cell empty
}

// ResolvedTick is a RawTick placed on the absolute time line with its
// cumulative counters converted to increments.
type ResolvedTick struct {
	Raw       RawTick
	TradeDate time.Time
	Timestamp time.Time
	Volume    float64 // increment against the previous raw tick
	Turnover  float64 // increment against the previous raw tick
}

// WithTimestamp returns a copy of t carrying ts.
func (t ResolvedTick) WithTimestamp(ts time.Time) ResolvedTick {
	t.Timestamp = ts
	return t
}
