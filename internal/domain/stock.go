package domain

import (
	"sync"
	"time"
)

// Stock tracks a symbol's current quote and the day's OHLC range. Unlike
// order/cash arithmetic, which stays in integer cents, price fields here
// are float64 dollars: the price engine's formula (spec.md §4.3) is a
// continuous random walk and is specified in those terms.
type Stock struct {
	Symbol      string
	Name        string
	Current     float64
	Open        float64
	High        float64
	Low         float64
	Volume      int64
	LastUpdated time.Time
	Mu          sync.Mutex // serializes Apply/ResetDaily per symbol
}

// PricePoint is one row of a symbol's price history.
type PricePoint struct {
	Symbol string
	Price  float64
	Ts     time.Time
}

// NewStock creates a stock freshly listed at openPrice, with open, high,
// low and current all equal until the first Apply.
func NewStock(symbol, name string, openPrice float64) *Stock {
	now := time.Now()
	return &Stock{
		Symbol:      symbol,
		Name:        name,
		Current:     openPrice,
		Open:        openPrice,
		High:        openPrice,
		Low:         openPrice,
		Volume:      0,
		LastUpdated: now,
	}
}

// ResetDaily freezes a new open at the current price and collapses the
// high/low range back to it, per the market-open transition (spec.md
// §4.3). Caller must hold Mu.
func (s *Stock) ResetDaily() {
	s.Open = s.Current
	s.High = s.Current
	s.Low = s.Current
}
