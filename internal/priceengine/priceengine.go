package priceengine

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rgsouza/marketcore/internal/domain"
)

// EventPublisher publishes price tick events (spec.md §4.5).
type EventPublisher interface {
	PublishPriceUpdate(symbol string, price, changePct float64)
}

// HistoryStore persists price history rows (spec.md §5, table
// price_history, indexed on (symbol, timestamp)).
type HistoryStore interface {
	Append(p *domain.PricePoint) error
	Query(symbol string, start, end *time.Time, limit int) ([]*domain.PricePoint, error)
}

const (
	// impactFactorSignal is applied when an order is placed but not
	// immediately executed in full — it shows book pressure without the
	// full weight of a completed trade (spec.md §4.3).
	impactFactorSignal = 0.3
	// impactFactorSettled is applied on a completed execution.
	impactFactorSettled = 1.0
)

// Engine is the synthetic price engine described in spec.md §4.3: a
// per-symbol continuous random walk driven by order flow, with no real
// price discovery.
type Engine struct {
	volatility float64
	history    HistoryStore
	events     EventPublisher
	rng        *rand.Rand
	rngMu      sync.Mutex

	mu     sync.RWMutex
	stocks map[string]*domain.Stock
}

// NewEngine creates a price engine. volatility is the configured
// constant from spec.md §4.3 (default 0.001).
func NewEngine(volatility float64, history HistoryStore, events EventPublisher) *Engine {
	return &Engine{
		volatility: volatility,
		history:    history,
		events:     events,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		stocks:     make(map[string]*domain.Stock),
	}
}

// InitializeStock lists a new symbol at openPrice. A no-op if the symbol
// is already known.
func (e *Engine) InitializeStock(symbol, name string, openPrice float64) *domain.Stock {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.stocks[symbol]; ok {
		return s
	}
	s := domain.NewStock(symbol, name, openPrice)
	e.stocks[symbol] = s
	return s
}

func (e *Engine) get(symbol string) (*domain.Stock, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.stocks[symbol]
	return s, ok
}

// GetPrice returns the current quote for symbol.
func (e *Engine) GetPrice(symbol string) (*domain.Stock, error) {
	s, ok := e.get(symbol)
	if !ok {
		return nil, domain.ErrSymbolNotFound
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return snapshot(s), nil
}

// GetPrices returns the current quotes for every listed symbol.
func (e *Engine) GetPrices() []*domain.Stock {
	e.mu.RLock()
	symbols := make([]*domain.Stock, 0, len(e.stocks))
	for _, s := range e.stocks {
		symbols = append(symbols, s)
	}
	e.mu.RUnlock()

	out := make([]*domain.Stock, 0, len(symbols))
	for _, s := range symbols {
		s.Mu.Lock()
		out = append(out, snapshot(s))
		s.Mu.Unlock()
	}
	return out
}

// snapshot copies s's value fields into a fresh Stock, leaving the
// original's mutex untouched (copying a locked sync.Mutex is unsafe).
func snapshot(s *domain.Stock) *domain.Stock {
	return &domain.Stock{
		Symbol:      s.Symbol,
		Name:        s.Name,
		Current:     s.Current,
		Open:        s.Open,
		High:        s.High,
		Low:         s.Low,
		Volume:      s.Volume,
		LastUpdated: s.LastUpdated,
	}
}

// GetPriceHistory returns history rows for symbol within [start, end],
// newest first, capped at limit (spec.md §4.3).
func (e *Engine) GetPriceHistory(symbol string, start, end *time.Time, limit int) ([]*domain.PricePoint, error) {
	if e.history == nil {
		return nil, nil
	}
	return e.history.Query(symbol, start, end, limit)
}

// Apply moves the current price for symbol in response to order flow,
// per the formula in spec.md §4.3:
//
//	delta = current · volatility · dir · log(1 + qty/100) · (1 + (rand-0.5)·0.002) · impactFactor
//	next  = max(0.01, current + delta)
func (e *Engine) Apply(symbol string, qty int64, isBuy bool, impactFactor float64) error {
	s, ok := e.get(symbol)
	if !ok {
		return domain.ErrSymbolNotFound
	}

	s.Mu.Lock()
	dir := -1.0
	if isBuy {
		dir = 1.0
	}

	e.rngMu.Lock()
	noise := 1 + (e.rng.Float64()-0.5)*0.002
	e.rngMu.Unlock()

	delta := s.Current * e.volatility * dir * math.Log(1+float64(qty)/100) * noise * impactFactor
	next := math.Max(0.01, s.Current+delta)

	prev := s.Current
	s.Current = next
	if next > s.High {
		s.High = next
	}
	if next < s.Low {
		s.Low = next
	}
	s.Volume += qty
	now := time.Now()
	if now.Before(s.LastUpdated) {
		now = s.LastUpdated
	}
	s.LastUpdated = now
	s.Mu.Unlock()

	var changePct float64
	if prev != 0 {
		changePct = (next - prev) / prev * 100
	}

	if e.history != nil {
		_ = e.history.Append(&domain.PricePoint{Symbol: symbol, Price: next, Ts: now})
	}
	if e.events != nil {
		e.events.PublishPriceUpdate(symbol, next, changePct)
	}
	return nil
}

// Signal implements matching.PriceSignaler: an order that rests on the
// book without immediately executing in full nudges the price with the
// reduced book-pressure impact factor (spec.md §4.3).
func (e *Engine) Signal(symbol string, qty int64, isBuy bool) {
	_ = e.Apply(symbol, qty, isBuy, impactFactorSignal)
}

// ApplySettled applies the full-weight price impact of one settled
// execution (spec.md §4.2 step 3, §4.3's impactFactor 1.0 case).
func (e *Engine) ApplySettled(symbol string, qty int64, isBuy bool) error {
	return e.Apply(symbol, qty, isBuy, impactFactorSettled)
}

// ResetDaily freezes a new session open for every listed symbol, per
// the market-open transition (spec.md §4.3).
func (e *Engine) ResetDaily() {
	e.mu.RLock()
	stocks := make([]*domain.Stock, 0, len(e.stocks))
	for _, s := range e.stocks {
		stocks = append(stocks, s)
	}
	e.mu.RUnlock()

	for _, s := range stocks {
		s.Mu.Lock()
		s.ResetDaily()
		s.Mu.Unlock()
	}
}
