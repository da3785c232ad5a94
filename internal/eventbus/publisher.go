package eventbus

import (
	"time"

	"github.com/rgsouza/marketcore/internal/domain"
)

// Publisher adapts a Bus to the narrow publisher interfaces consumed by
// the matching, settlement, price engine, and portfolio packages, so
// those packages depend only on small interfaces rather than on
// eventbus directly.
type Publisher struct {
	bus *Bus
}

// NewPublisher wraps bus.
func NewPublisher(bus *Bus) *Publisher { return &Publisher{bus: bus} }

// PublishOrderPlaced implements matching.EventPublisher.
func (p *Publisher) PublishOrderPlaced(o *domain.Order) {
	p.bus.PublishMarket(MarketEvent{
		Kind:     domain.EventOrderPlaced,
		OrderID:  o.ID,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Quantity: o.Quantity,
		Price:    o.LimitPrice,
		Investor: o.Investor,
		Ts:       time.Now(),
	})
}

// PublishOrderCanceled implements matching.EventPublisher.
func (p *Publisher) PublishOrderCanceled(o *domain.Order) {
	p.bus.PublishMarket(MarketEvent{
		Kind:     domain.EventOrderCanceled,
		OrderID:  o.ID,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Quantity: o.RemainingQuantity,
		Price:    o.LimitPrice,
		Investor: o.Investor,
		Ts:       time.Now(),
	})
}

// PublishOrderExecuted implements settlement.EventPublisher.
func (p *Publisher) PublishOrderExecuted(investor, orderID, symbol string, side domain.OrderSide, qty, price int64) {
	p.bus.PublishMarket(MarketEvent{
		Kind:     domain.EventOrderExecuted,
		OrderID:  orderID,
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		Price:    price,
		Investor: investor,
		Ts:       time.Now(),
	})
}

// PublishPriceUpdate implements priceengine.EventPublisher.
func (p *Publisher) PublishPriceUpdate(symbol string, price, changePct float64) {
	p.bus.PublishPrice(PriceEvent{
		Symbol:    symbol,
		Price:     price,
		ChangePct: changePct,
		Ts:        time.Now(),
	})
}

// PublishBalanceUpdated implements portfolio.EventPublisher. Balance
// events are informational to webhook subscribers; they do not flow
// over the typed price/market bus so as not to force every market-event
// subscriber to filter them out (spec.md §4.5 only names price and
// market event families on the bus).
func (p *Publisher) PublishBalanceUpdated(investor string, balance int64) {}

// PublishNewTransaction implements portfolio.EventPublisher.
func (p *Publisher) PublishNewTransaction(tx *domain.Transaction) {}
