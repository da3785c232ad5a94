package market

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rgsouza/marketcore/internal/analytics"
	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/eventbus"
	"github.com/rgsouza/marketcore/internal/matching"
	"github.com/rgsouza/marketcore/internal/portfolio"
	"github.com/rgsouza/marketcore/internal/priceengine"
)

// State is the trading-session state gating order admission, per spec.md
// §6's GetMarketState/SetMarketState.
type State string

const (
	StateOpen   State = "OPEN"
	StateClosed State = "CLOSED"
	StatePaused State = "PAUSED"
)

func (s State) valid() bool {
	return s == StateOpen || s == StateClosed || s == StatePaused
}

// OrderStatusView is the result of GetOrderStatus (spec.md §6).
type OrderStatusView struct {
	OrderID   string
	Status    domain.OrderStatus
	Filled    int64
	Remaining int64
	AvgPrice  int64 // cents, 0 if unfilled
}

// PlaceOrderResult is the result of PlaceOrder (spec.md §6).
type PlaceOrderResult struct {
	OrderID string
	Status  domain.OrderStatus
	Message string
}

// Service composes the matching engine, settlement coordinator, price
// engine, portfolio store, event bus, and webhook service into the RPC
// surface of spec.md §6. It is the single point where market-state
// gating and pre-trade validation happen before an order ever reaches
// the matching engine.
type Service struct {
	engine    *matching.Engine
	expiry    *matching.ExpiryManager
	orders    *matching.MemoryOrderStore
	prices    *priceengine.Engine
	portfolio *portfolio.Service
	analytics *analytics.Recorder
	bus       *eventbus.Bus
	events    *EventRouter

	state State
}

// NewService composes a market service over the given dependencies.
// Market state starts CLOSED; call SetMarketState(OPEN) to accept orders.
// orders must be the same MemoryOrderStore passed to matching.NewEngine.
func NewService(
	engine *matching.Engine,
	expiry *matching.ExpiryManager,
	orders *matching.MemoryOrderStore,
	prices *priceengine.Engine,
	portfolioSvc *portfolio.Service,
	analyticsRec *analytics.Recorder,
	bus *eventbus.Bus,
	events *EventRouter,
) *Service {
	return &Service{
		engine:    engine,
		expiry:    expiry,
		orders:    orders,
		prices:    prices,
		portfolio: portfolioSvc,
		analytics: analyticsRec,
		bus:       bus,
		events:    events,
		state:     StateClosed,
	}
}

// GetMarketState returns the current trading-session state.
func (s *Service) GetMarketState() State {
	return s.state
}

// SetMarketState transitions the trading session. Transitioning into
// OPEN freezes a fresh session open for every listed symbol (spec.md
// §4.3's daily reset).
func (s *Service) SetMarketState(state State) error {
	if !state.valid() {
		return &domain.ValidationError{Message: "state must be one of OPEN, CLOSED, PAUSED"}
	}
	wasOpen := s.state == StateOpen
	s.state = state
	if state == StateOpen && !wasOpen {
		s.prices.ResetDaily()
	}
	return nil
}

// PlaceOrder validates and admits a new order, per spec.md §6 and the
// REJECTED-order contract of §7: a pre-trade failure (insufficient
// funds/shares, closed market) yields a REJECTED order with no side
// effects rather than an opaque error.
func (s *Service) PlaceOrder(investor, symbol string, side domain.OrderSide, qty, limitPrice int64) (PlaceOrderResult, error) {
	if s.state != StateOpen {
		return PlaceOrderResult{Status: domain.OrderStatusRejected, Message: domain.ErrMarketClosed.Error()}, domain.ErrMarketClosed
	}
	if qty <= 0 {
		return PlaceOrderResult{}, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}
	if limitPrice < 0 {
		return PlaceOrderResult{}, &domain.ValidationError{Message: "limit_price must be >= 0 (0 means market order)"}
	}
	if side != domain.OrderSideBuy && side != domain.OrderSideSell {
		return PlaceOrderResult{}, &domain.ValidationError{Message: "side must be BUY or SELL"}
	}

	validationPrice := limitPrice
	if validationPrice == 0 {
		if quote, err := s.prices.GetPrice(symbol); err == nil {
			validationPrice = int64(math.Round(quote.Current * 100))
		}
	}
	if err := s.portfolio.ValidateOrder(investor, symbol, side, qty, validationPrice); err != nil {
		return PlaceOrderResult{Status: domain.OrderStatusRejected, Message: err.Error()}, err
	}

	order := &domain.Order{
		Investor:   investor,
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		LimitPrice: limitPrice,
	}

	if _, err := s.engine.Admit(order); err != nil {
		return PlaceOrderResult{}, err
	}
	if s.expiry != nil {
		s.expiry.Track(order)
	}

	return PlaceOrderResult{OrderID: order.ID, Status: order.Status, Message: "accepted"}, nil
}

// CancelOrder cancels a resting order on behalf of investor.
func (s *Service) CancelOrder(orderID, investor string) error {
	order, err := s.engine.Cancel(orderID, investor)
	if err != nil {
		return err
	}
	if s.expiry != nil {
		s.expiry.Untrack(order.ID)
	}
	return nil
}

// GetOrderStatus reports an order's current fill state.
func (s *Service) GetOrderStatus(orderID string) (OrderStatusView, error) {
	o, err := s.orders.Get(orderID)
	if err != nil {
		return OrderStatusView{}, err
	}
	avg, _ := o.AveragePrice()
	return OrderStatusView{
		OrderID:   o.ID,
		Status:    o.Status,
		Filled:    o.FilledQuantity,
		Remaining: o.RemainingQuantity,
		AvgPrice:  avg,
	}, nil
}

// GetOrderBook returns price-aggregated depth for symbol.
func (s *Service) GetOrderBook(symbol string, limit int) (bids, asks []matching.PriceLevel) {
	return s.engine.GetOrderBook(symbol, limit)
}

// StreamMarketEvents subscribes to MARKET-family events, optionally
// filtered to symbols (an empty slice means every symbol), per spec.md
// §6's StreamMarketEvents.
func (s *Service) StreamMarketEvents(symbols []string) *eventbus.Subscription {
	want := toSet(symbols)
	return s.bus.Subscribe(func(e eventbus.Event) bool {
		if e.Kind != eventbus.KindMarket || e.Market == nil {
			return e.Kind == eventbus.KindOverflow
		}
		if len(want) == 0 {
			return true
		}
		return want[e.Market.Symbol]
	})
}

// StreamPrices subscribes to PRICE-family events, per spec.md §6's
// StreamPrices.
func (s *Service) StreamPrices(symbols []string) *eventbus.Subscription {
	want := toSet(symbols)
	return s.bus.Subscribe(func(e eventbus.Event) bool {
		if e.Kind != eventbus.KindPrice || e.Price == nil {
			return e.Kind == eventbus.KindOverflow
		}
		if len(want) == 0 {
			return true
		}
		return want[e.Price.Symbol]
	})
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

// StartExpiry launches the expiry manager's background goroutine, if
// one was configured.
func (s *Service) StartExpiry(ctx context.Context) {
	if s.expiry != nil {
		s.expiry.Start(ctx)
	}
}

// RecordPrediction runs PredictPrice for symbol and emits a
// PREDICTION_AVAILABLE event, per the PredictPrice entry of spec.md §6's
// Analytics surface. Intended to be called periodically from a ticker.
func (s *Service) RecordPrediction(symbol string, horizonMin float64) error {
	history, err := s.prices.GetPriceHistory(symbol, nil, nil, 20)
	if err != nil {
		return fmt.Errorf("predict price for %s: %w", symbol, err)
	}
	// GetPriceHistory returns newest first; PredictPrice fits oldest first.
	chrono := make([]*domain.PricePoint, len(history))
	for i, p := range history {
		chrono[len(history)-1-i] = p
	}
	pred := analytics.PredictPrice(chrono, horizonMin)
	s.events.PublishPredictionAvailable(map[string]any{
		"symbol":          symbol,
		"predicted_price": pred.PredictedPrice,
		"confidence":      pred.Confidence,
		"trend":           pred.Trend,
		"ts":              time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// MarketStats computes the 24h aggregate snapshot and market-wide
// sentiment across every listed symbol, per spec.md §6's GetMarketStats.
func (s *Service) MarketStats() analytics.MarketStats {
	snapshots := make(map[string]analytics.PriceSnapshot)
	for _, quote := range s.prices.GetPrices() {
		snapshots[quote.Symbol] = analytics.PriceSnapshot{Current: quote.Current, Open: quote.Open}
	}
	return s.analytics.MarketStats(snapshots)
}

// TopTraded ranks symbols by traded volume over the trailing window, per
// spec.md §6's GetTopTradedStocks.
func (s *Service) TopTraded(limit int, window time.Duration) []analytics.TopTradedEntry {
	return s.analytics.TopTraded(limit, window)
}

// InvestorPerformance computes investor's realized/unrealized P&L, win
// rate, and risk level, per spec.md §6's GetInvestorPerformance.
func (s *Service) InvestorPerformance(investorID string) (analytics.InvestorPerformance, error) {
	inv, err := s.portfolio.Get(investorID)
	if err != nil {
		return analytics.InvestorPerformance{}, err
	}

	inv.Mu.Lock()
	holdings := make(map[string]*domain.Holding, len(inv.Holdings))
	for symbol, h := range inv.Holdings {
		holdings[symbol] = &domain.Holding{Quantity: h.Quantity, AvgPrice: h.AvgPrice}
	}
	inv.Mu.Unlock()

	prices := make(map[string]int64, len(holdings))
	for symbol := range holdings {
		if quote, err := s.prices.GetPrice(symbol); err == nil {
			prices[symbol] = int64(math.Round(quote.Current * 100))
		}
	}

	return s.analytics.InvestorPerformance(investorID, holdings, prices), nil
}

// TradingVolume buckets symbol's trades into intervalMs-wide windows
// within [start, end], per spec.md §6's GetTradingVolume.
func (s *Service) TradingVolume(symbol string, start, end time.Time, intervalMs int64) []analytics.VolumeBucket {
	return s.analytics.TradingVolume(symbol, start, end, intervalMs)
}

// GetQuote previews the result of a market order of side/quantity
// against symbol's current book, without placing anything.
func (s *Service) GetQuote(symbol string, side domain.OrderSide, qty int64) (matching.Quote, error) {
	if qty <= 0 {
		return matching.Quote{}, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}
	if side != domain.OrderSideBuy && side != domain.OrderSideSell {
		return matching.Quote{}, &domain.ValidationError{Message: "side must be BUY or SELL"}
	}
	if _, err := s.prices.GetPrice(symbol); err != nil {
		return matching.Quote{}, err
	}
	return s.engine.GetQuote(symbol, side, qty), nil
}

// MostVolatile ranks every listed symbol by price swing over the
// trailing window, per spec.md §6's GetMostVolatileStocks.
func (s *Service) MostVolatile(limit int, window time.Duration) []analytics.VolatilityEntry {
	since := time.Now().Add(-window)
	history := make(map[string][]*domain.PricePoint)
	for _, quote := range s.prices.GetPrices() {
		points, err := s.prices.GetPriceHistory(quote.Symbol, &since, nil, 0)
		if err != nil {
			continue
		}
		history[quote.Symbol] = points
	}
	return analytics.MostVolatile(history, limit)
}
