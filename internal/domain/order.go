package domain

import "time"

// OrderSide indicates whether an order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderStatus represents the lifecycle state of an order (spec.md §3).
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// IsTerminal reports whether status is one a CANCELED/FILLED/REJECTED order
// never leaves (spec.md §8, "Order lifecycle").
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// Order represents a single buy or sell instruction submitted by an
// investor. LimitPrice == 0 means a market order (spec.md §3).
type Order struct {
	ID                string
	Investor          string
	Symbol            string
	Side              OrderSide
	Quantity          int64
	LimitPrice        int64 // cents, 0 means market
	FilledQuantity    int64
	RemainingQuantity int64
	Status            OrderStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ExpiresAt         *time.Time  // optional time-in-force, nil means good-till-canceled; always nil for market orders
	Executions        []*Execution // this order's own executions, in fill order
}

// IsMarket reports whether the order is a market order.
func (o *Order) IsMarket() bool {
	return o.LimitPrice == 0
}

// AveragePrice computes the volume-weighted average execution price
// as sum(execution.price × execution.quantity) / filled_quantity using
// integer arithmetic. Returns (price, true) when executions exist, or
// (0, false) when the order has not filled at all.
func (o *Order) AveragePrice() (int64, bool) {
	if len(o.Executions) == 0 || o.FilledQuantity == 0 {
		return 0, false
	}
	var total int64
	for _, e := range o.Executions {
		total += e.Price * e.Quantity
	}
	return total / o.FilledQuantity, true
}
