package models

// BarsRequest is the query of GET /api/v1/bars. Fields is a comma-separated
// subset of the bar vocabulary; empty selects every field.
type BarsRequest struct {
	Contract  string `query:"contract" validate:"required"`
	TradeDate string `query:"trade_date" validate:"required,len=8,numeric"`
	Fields    string `query:"fields"`
}

// SessionRequest is the query of GET /api/v1/sessions.
type SessionRequest struct {
	Instrument string `query:"instrument" validate:"required"`
	TradeDate  string `query:"trade_date" validate:"required,len=8,numeric"`
}
