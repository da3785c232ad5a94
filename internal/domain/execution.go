package domain

import "time"

// Execution represents a single match formed by the matching engine.
// Immutable once created (spec.md §3).
type Execution struct {
	ExecutionID string
	BuyOrderID  string
	SellOrderID string
	Symbol      string
	Quantity    int64
	Price       int64 // cents
	Buyer       string // investor id
	Seller      string // investor id
	Ts          time.Time
}
