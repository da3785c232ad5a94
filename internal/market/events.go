package market

import (
	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/eventbus"
	"github.com/rgsouza/marketcore/internal/webhook"
)

// RecordWriter persists the order and investor state the router sees
// pass through on its way to the bus and webhook sinks, off the hot
// path. It is the same write-behind hand-off settlement.ExecutionWriter
// gives executions, applied here to everything else spec.md §3/§6 asks
// to survive a restart.
type RecordWriter interface {
	WriteOrder(o *domain.Order)
	WriteBalance(investor string, balance int64)
	WriteTransaction(tx *domain.Transaction)
}

// EventRouter fans out a single logical event to both the typed event
// bus (spec.md §4.5, PRICE/MARKET families only) and the webhook
// service (spec.md §6, the full domain.EventKinds superset). It is the
// one place that closes the gap between the bus's narrower event
// vocabulary and the webhook surface's wider one: balance and
// transaction events never touch the bus, but webhook subscribers still
// see them.
type EventRouter struct {
	bus      *eventbus.Publisher
	webhooks *webhook.Service
	persist  RecordWriter
}

// NewEventRouter creates a router over bus and webhooks. Either may be
// nil, in which case that sink is skipped. persist may also be nil, in
// which case order/balance/transaction state is not durably recorded.
func NewEventRouter(bus *eventbus.Publisher, webhooks *webhook.Service, persist RecordWriter) *EventRouter {
	return &EventRouter{bus: bus, webhooks: webhooks, persist: persist}
}

func (r *EventRouter) dispatch(kind domain.EventKind, payload map[string]any) {
	if r.webhooks != nil {
		r.webhooks.Dispatch(kind, payload)
	}
}

// PublishOrderPlaced implements matching.EventPublisher.
func (r *EventRouter) PublishOrderPlaced(o *domain.Order) {
	if r.bus != nil {
		r.bus.PublishOrderPlaced(o)
	}
	if r.persist != nil {
		r.persist.WriteOrder(o)
	}
	r.dispatch(domain.EventOrderPlaced, map[string]any{
		"order_id": o.ID,
		"investor": o.Investor,
		"symbol":   o.Symbol,
		"side":     o.Side,
		"quantity": o.Quantity,
		"price":    o.LimitPrice,
	})
}

// PublishOrderCanceled implements matching.EventPublisher.
func (r *EventRouter) PublishOrderCanceled(o *domain.Order) {
	if r.bus != nil {
		r.bus.PublishOrderCanceled(o)
	}
	if r.persist != nil {
		r.persist.WriteOrder(o)
	}
	r.dispatch(domain.EventOrderCanceled, map[string]any{
		"order_id":  o.ID,
		"investor":  o.Investor,
		"symbol":    o.Symbol,
		"side":      o.Side,
		"remaining": o.RemainingQuantity,
	})
}

// PublishOrderExecuted implements settlement.EventPublisher.
func (r *EventRouter) PublishOrderExecuted(investor, orderID, symbol string, side domain.OrderSide, qty, price int64) {
	if r.bus != nil {
		r.bus.PublishOrderExecuted(investor, orderID, symbol, side, qty, price)
	}
	r.dispatch(domain.EventOrderExecuted, map[string]any{
		"order_id": orderID,
		"investor": investor,
		"symbol":   symbol,
		"side":     side,
		"quantity": qty,
		"price":    price,
	})
}

// PublishPriceUpdate implements priceengine.EventPublisher.
func (r *EventRouter) PublishPriceUpdate(symbol string, price, changePct float64) {
	if r.bus != nil {
		r.bus.PublishPriceUpdate(symbol, price, changePct)
	}
	r.dispatch(domain.EventPriceUpdate, map[string]any{
		"symbol":     symbol,
		"price":      price,
		"change_pct": changePct,
	})
}

// PublishBalanceUpdated implements portfolio.EventPublisher. Balance
// changes never reach the typed bus (spec.md §4.5 names only PRICE and
// MARKET families) but still fire BALANCE_UPDATED webhooks.
func (r *EventRouter) PublishBalanceUpdated(investor string, balance int64) {
	if r.persist != nil {
		r.persist.WriteBalance(investor, balance)
	}
	r.dispatch(domain.EventBalanceUpdated, map[string]any{
		"investor": investor,
		"balance":  balance,
	})
}

// PublishNewTransaction implements portfolio.EventPublisher.
func (r *EventRouter) PublishNewTransaction(tx *domain.Transaction) {
	if r.persist != nil {
		r.persist.WriteTransaction(tx)
	}
	r.dispatch(domain.EventNewTransaction, map[string]any{
		"transaction_id": tx.TransactionID,
		"investor":       tx.Investor,
		"symbol":         tx.Symbol,
		"type":           tx.Type,
		"quantity":       tx.Quantity,
		"price":          tx.Price,
		"total":          tx.Total,
	})
}

// PublishTopStocksUpdated implements the TOP_STOCKS_UPDATED webhook
// event named in spec.md §6. It has no bus-side representation; nothing
// in §4.5 lists it as a PRICE or MARKET event. Called periodically by
// runTopStocksTicker in cmd/market/main.go.
func (r *EventRouter) PublishTopStocksUpdated(payload map[string]any) {
	r.dispatch(domain.EventTopStocksUpdated, payload)
}

// PublishPredictionAvailable implements the PREDICTION_AVAILABLE webhook
// event named in spec.md §6.
func (r *EventRouter) PublishPredictionAvailable(payload map[string]any) {
	r.dispatch(domain.EventPredictionAvailable, payload)
}
