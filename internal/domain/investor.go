package domain

import (
	"sync"
	"time"
)

// Holding represents an investor's position in a single stock symbol.
// AvgPrice is the weighted-average buy price in cents; it is only
// meaningful while Quantity > 0.
type Holding struct {
	Quantity int64
	AvgPrice int64 // cents
}

// Investor represents a registered participant in the market.
type Investor struct {
	InvestorID string
	Name       string
	Email      string // unique
	Balance    int64  // cents, >= 0
	Holdings   map[string]*Holding // symbol → holding
	CreatedAt  time.Time
	Mu         sync.Mutex // per-investor lock for balance/holding mutations
}

// AvailableBalance returns the investor's cash balance. Unlike the
// teacher's broker model there is no separate cash-reservation concept
// here — orders are validated against balance at admission time and the
// settlement coordinator debits/credits as executions land (spec.md §4.4).
func (i *Investor) AvailableBalance() int64 {
	return i.Balance
}

// HeldQuantity returns the quantity held for symbol, or 0 if the investor
// has no holding in it.
func (i *Investor) HeldQuantity(symbol string) int64 {
	h, ok := i.Holdings[symbol]
	if !ok {
		return 0
	}
	return h.Quantity
}
