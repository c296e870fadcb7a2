package models

import (
	"math"
	"time"
)

// MinuteBar is the OHLCV aggregate of one non-empty minute bucket.
type MinuteBar struct {
	Timestamp    time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	Turnover     float64
	OpenInterest *float64
}

// Complete reports whether every price field and the open interest are present.
func (b MinuteBar) Complete() bool {
	if b.OpenInterest == nil || math.IsNaN(*b.OpenInterest) {
		return false
	}
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// External field vocabulary of a bar record.
const (
	FieldTimestamp = "timestamp"
	FieldTsCode    = "ts_code"
	FieldTradeDate = "trade_date"
	FieldOpen      = "open"
	FieldHigh      = "high"
	FieldLow       = "low"
	FieldClose     = "close"
	FieldVol       = "vol"
	FieldAmount    = "amount"
	FieldOI        = "oi"
)

// BarFields lists the vocabulary in its canonical order.
var BarFields = []string{
	FieldTimestamp, FieldTsCode, FieldTradeDate,
	FieldOpen, FieldHigh, FieldLow, FieldClose,
	FieldVol, FieldAmount, FieldOI,
}

// BarRecord is a complete MinuteBar stamped with its contract and trade date.
type BarRecord struct {
	Timestamp time.Time `json:"timestamp"`
	TsCode    string    `json:"ts_code"`
	TradeDate string    `json:"trade_date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Vol       float64   `json:"vol"`
	Amount    float64   `json:"amount"`
	OI        float64   `json:"oi"`
}

// Field returns the value stored under an external field name.
func (r BarRecord) Field(name string) (any, bool) {
	switch name {
	case FieldTimestamp:
		return r.Timestamp, true
	case FieldTsCode:
		return r.TsCode, true
	case FieldTradeDate:
		return r.TradeDate, true
	case FieldOpen:
		return r.Open, true
	case FieldHigh:
		return r.High, true
	case FieldLow:
		return r.Low, true
	case FieldClose:
		return r.Close, true
	case FieldVol:
		return r.Vol, true
	case FieldAmount:
		return r.Amount, true
	case FieldOI:
		return r.OI, true
	default:
		return nil, false
	}
}

// BarTable is the projection of bar records onto a caller-chosen field list.
// Each row holds values in Fields order.
type BarTable struct {
	Fields []string
	Rows   [][]any
}

// Len returns the number of rows.
func (t BarTable) Len() int { return len(t.Rows) }

// BarBatch is everything a sink needs to persist one trade date.
type BarBatch struct {
	TradeDate string
	Records   []BarRecord
	Table     BarTable
}
