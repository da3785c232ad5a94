package domain

import "time"

// AnalyticsTrade mirrors one counterparty's side of a settled execution for
// the analytics recorder's append-only log (spec.md §3, "Trade
// (analytics)"). Two rows are recorded per execution, one per side.
type AnalyticsTrade struct {
	TradeID     string
	ExecutionID string
	Investor    string
	Symbol      string
	Side        OrderSide
	Quantity    int64
	Price       int64 // cents
	Ts          time.Time
}
