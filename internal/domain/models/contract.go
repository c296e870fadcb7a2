package models

import "time"

// Exchange codes as they appear in contract ids.
const (
	ExchangeCFX = "CFX"
	ExchangeSHF = "SHF"
	ExchangeDCE = "DCE"
	ExchangeZCE = "ZCE"
	ExchangeINE = "INE"
	ExchangeGFE = "GFE"
)

// Instrument identifies a futures product on an exchange, e.g. {IF, CFX}.
type Instrument struct {
	Code     string
	Exchange string
}

// ID returns the dotted form used across the system, e.g. "IF.CFX".
func (i Instrument) ID() string {
	return i.Code + "." + i.Exchange
}

// Unit is one (contract, trading date) conversion job.
type Unit struct {
	Contract      string
	Instrument    Instrument
	TradeDate     time.Time
	PrevTradeDate time.Time
}
