package matching

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/httpmetrics"
)

// OrderStore persists orders and answers lookups by ID. The matching
// engine owns the orders table (spec.md §5).
type OrderStore interface {
	Create(o *domain.Order) error
	Get(id string) (*domain.Order, error)
}

// Settler applies the downstream effects of one execution: investor cash
// and holdings, price movement, analytics, and event publication. It is
// implemented by the settlement package; the matching engine depends only
// on this narrow interface to avoid a package cycle.
type Settler interface {
	Settle(exec *domain.Execution, aggressorIsBuy bool) error
}

// EventPublisher publishes order lifecycle events (spec.md §4.5).
type EventPublisher interface {
	PublishOrderPlaced(o *domain.Order)
	PublishOrderCanceled(o *domain.Order)
}

// PriceSignaler applies the book-pressure price impact of an order that
// rests on the book without immediately executing in full (spec.md
// §4.3's impactFactor 0.3 case).
type PriceSignaler interface {
	Signal(symbol string, qty int64, isBuy bool)
}

// Engine implements the matching engine described in spec.md §4.1: a
// per-symbol serialized state machine operating on price-time-priority
// order books.
type Engine struct {
	books    *Books
	orders   OrderStore
	settler  Settler
	events   EventPublisher
	price    PriceSignaler
	registry *domain.SymbolRegistry
}

// NewEngine creates a matching engine over the given dependencies.
func NewEngine(orders OrderStore, settler Settler, events EventPublisher, price PriceSignaler, registry *domain.SymbolRegistry) *Engine {
	return &Engine{
		books:    NewBooks(),
		orders:   orders,
		settler:  settler,
		events:   events,
		price:    price,
		registry: registry,
	}
}

// Admit inserts a newly validated order into the correct side of its
// symbol's book and runs the match loop, per spec.md §4.1's Admit
// contract. The caller is responsible for pre-trade validation (funds,
// shares, market state) before calling Admit; Admit itself never checks
// those — by the time an order reaches the matching engine it is assumed
// well-formed.
func (e *Engine) Admit(o *domain.Order) ([]*domain.Execution, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	o.RemainingQuantity = o.Quantity
	o.FilledQuantity = 0
	o.Status = domain.OrderStatusPending
	o.Executions = []*domain.Execution{}

	if _, err := e.orders.Get(o.ID); err == nil {
		return nil, domain.ErrDuplicateOrderID
	}

	e.registry.Register(o.Symbol)
	if err := e.orders.Create(o); err != nil {
		return nil, err
	}
	httpmetrics.OrdersTotal.WithLabelValues(string(o.Side), o.Symbol).Inc()

	var execs []*domain.Execution
	e.books.With(o.Symbol, func(book *Book) {
		if e.events != nil {
			e.events.PublishOrderPlaced(o)
		}
		if o.Side == domain.OrderSideBuy {
			book.InsertBid(o)
		} else {
			book.InsertAsk(o)
		}
		execs = e.match(book, o.Symbol)

		// IOC cancellation: a market order never rests on the book. Any
		// quantity match() could not fill against available counterparty
		// liquidity is canceled here rather than left resting.
		if o.IsMarket() && o.RemainingQuantity > 0 {
			book.Remove(o.ID)
			o.RemainingQuantity = 0
			o.Status = domain.OrderStatusCanceled
			o.UpdatedAt = time.Now()
		}
	})

	if o.RemainingQuantity > 0 && e.price != nil {
		e.price.Signal(o.Symbol, o.RemainingQuantity, o.Side == domain.OrderSideBuy)
	}

	return execs, nil
}

// match repeatedly crosses the best bid and best ask of symbol's book
// per the algorithm in spec.md §4.1, steps 1–9. It must be called with
// the symbol's book already locked.
func (e *Engine) match(book *Book, symbol string) []*domain.Execution {
	var execs []*domain.Execution

	for {
		bestBid, hasBid := book.BestBid()
		bestAsk, hasAsk := book.BestAsk()
		if !hasBid || !hasAsk {
			break
		}

		bid := bestBid.Order
		ask := bestAsk.Order

		canCross := bid.IsMarket() || ask.IsMarket() || bid.LimitPrice >= ask.LimitPrice
		if !canCross {
			break
		}

		var execPrice int64
		switch {
		case bid.IsMarket():
			execPrice = ask.LimitPrice
		case ask.IsMarket():
			execPrice = bid.LimitPrice
		default:
			execPrice = ask.LimitPrice
		}

		qty := bid.RemainingQuantity
		if ask.RemainingQuantity < qty {
			qty = ask.RemainingQuantity
		}

		exec := &domain.Execution{
			ExecutionID: uuid.New().String(),
			BuyOrderID:  bid.ID,
			SellOrderID: ask.ID,
			Symbol:      symbol,
			Quantity:    qty,
			Price:       execPrice,
			Buyer:       bid.Investor,
			Seller:      ask.Investor,
			Ts:          time.Now(),
		}

		bid.FilledQuantity += qty
		bid.RemainingQuantity -= qty
		ask.FilledQuantity += qty
		ask.RemainingQuantity -= qty
		bid.Executions = append(bid.Executions, exec)
		ask.Executions = append(ask.Executions, exec)
		bid.UpdatedAt = exec.Ts
		ask.UpdatedAt = exec.Ts

		setFillStatus(bid)
		setFillStatus(ask)

		if bid.RemainingQuantity == 0 {
			book.Remove(bid.ID)
		}
		if ask.RemainingQuantity == 0 {
			book.Remove(ask.ID)
		}

		// Aggressor rule (spec.md §4.2 step 3): the market order is the
		// aggressor; if neither is market, the later-arrived order is.
		aggressorIsBuy := bid.IsMarket()
		if !bid.IsMarket() && !ask.IsMarket() {
			aggressorIsBuy = bid.CreatedAt.After(ask.CreatedAt)
		}

		if e.settler != nil {
			if err := e.settler.Settle(exec, aggressorIsBuy); err != nil {
				// Settlement failure is flagged and logged by the settlement
				// coordinator itself (spec.md §4.2); the match loop continues
				// since the book mutation above already happened atomically.
				_ = fmt.Errorf("settle execution %s: %w", exec.ExecutionID, err)
			}
		}

		execs = append(execs, exec)
		httpmetrics.ExecutionsTotal.WithLabelValues(symbol).Inc()

		// Market orders never rest; if fully drained of counterparties they
		// simply stop matching on the next loop iteration (no liquidity).
	}

	httpmetrics.OrderBookDepth.WithLabelValues(symbol, "bid").Set(float64(book.BidCount()))
	httpmetrics.OrderBookDepth.WithLabelValues(symbol, "ask").Set(float64(book.AskCount()))

	return execs
}

func setFillStatus(o *domain.Order) {
	switch {
	case o.RemainingQuantity == 0:
		o.Status = domain.OrderStatusFilled
	case o.FilledQuantity > 0:
		o.Status = domain.OrderStatusPartiallyFilled
	default:
		o.Status = domain.OrderStatusPending
	}
}

// Cancel removes orderID from its symbol's book if it is owned by
// investor and not yet terminal, per spec.md §4.1's Cancel contract.
func (e *Engine) Cancel(orderID, investor string) (*domain.Order, error) {
	o, err := e.orders.Get(orderID)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}
	if o.Investor != investor {
		return nil, domain.ErrOrderNotCancelable
	}
	if o.Status.IsTerminal() {
		return nil, domain.ErrOrderNotCancelable
	}

	var canceled bool
	e.books.With(o.Symbol, func(book *Book) {
		if o.Status.IsTerminal() {
			return
		}
		book.Remove(o.ID)
		o.RemainingQuantity = 0
		o.Status = domain.OrderStatusCanceled
		o.UpdatedAt = time.Now()
		canceled = true
	})
	if !canceled {
		return nil, domain.ErrOrderNotCancelable
	}
	if e.events != nil {
		e.events.PublishOrderCanceled(o)
	}
	return o, nil
}

// GetOrderBook returns price-aggregated depth for symbol, per spec.md
// §4.1's GetOrderBook contract. limit caps the number of levels per
// side; 0 means unlimited.
func (e *Engine) GetOrderBook(symbol string, limit int) (bids, asks []PriceLevel) {
	e.books.With(symbol, func(book *Book) {
		bids, asks = book.Depth(limit)
	})
	return
}

// QuoteLevel is one aggregated price level crossed while simulating a
// market order in GetQuote.
type QuoteLevel struct {
	Price    int64
	Quantity int64
}

// Quote is the read-only result of GetQuote: what a market order of the
// requested side and quantity would do to symbol's book right now.
type Quote struct {
	QuantityRequested int64
	QuantityAvailable int64
	FullyFillable     bool
	EstimatedAvgPrice int64
	EstimatedTotal    int64
	Levels            []QuoteLevel
}

// GetQuote walks the opposite side of symbol's book without mutating it,
// estimating the result of a market order of side/quantity. A BUY quote
// walks asks lowest-first; a SELL quote walks bids highest-first. This
// lets a caller preview slippage before committing to PlaceOrder.
func (e *Engine) GetQuote(symbol string, side domain.OrderSide, quantity int64) Quote {
	q := Quote{QuantityRequested: quantity}
	remaining := quantity

	walk := func(entry BookEntry) bool {
		if remaining <= 0 {
			return false
		}
		fillQty := entry.Order.RemainingQuantity
		if fillQty > remaining {
			fillQty = remaining
		}
		q.EstimatedTotal += entry.Price * fillQty
		q.QuantityAvailable += fillQty
		remaining -= fillQty

		if n := len(q.Levels); n > 0 && q.Levels[n-1].Price == entry.Price {
			q.Levels[n-1].Quantity += fillQty
		} else {
			q.Levels = append(q.Levels, QuoteLevel{Price: entry.Price, Quantity: fillQty})
		}
		return true
	}

	e.books.With(symbol, func(book *Book) {
		if side == domain.OrderSideBuy {
			book.WalkAsks(walk)
		} else {
			book.WalkBids(walk)
		}
	})

	q.FullyFillable = q.QuantityAvailable >= quantity
	if q.QuantityAvailable > 0 {
		q.EstimatedAvgPrice = q.EstimatedTotal / q.QuantityAvailable
	}
	return q
}
