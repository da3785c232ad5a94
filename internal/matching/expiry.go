package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rgsouza/marketcore/internal/domain"
)

// ExpiryManager tracks resting limit orders that carry a time-in-force
// deadline and cancels them once their ExpiresAt has passed. Market
// orders never carry an ExpiresAt and are never tracked here (spec.md
// §3, Order invariants).
type ExpiryManager struct {
	interval time.Duration
	engine   *Engine
	events   EventPublisher
	active   []*domain.Order // sorted by ExpiresAt ascending
	mu       sync.Mutex
}

// NewExpiryManager creates an ExpiryManager that polls at interval.
func NewExpiryManager(interval time.Duration, engine *Engine, events EventPublisher) *ExpiryManager {
	return &ExpiryManager{
		interval: interval,
		engine:   engine,
		events:   events,
		active:   make([]*domain.Order, 0),
	}
}

// Track registers order for expiry tracking. A no-op if order has no
// ExpiresAt. Call after a successful Admit that left the order resting.
func (e *ExpiryManager) Track(order *domain.Order) {
	if order.ExpiresAt == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	expiresAt := *order.ExpiresAt
	idx := sort.Search(len(e.active), func(i int) bool {
		return e.active[i].ExpiresAt.After(expiresAt)
	})
	e.active = append(e.active, nil)
	copy(e.active[idx+1:], e.active[idx:])
	e.active[idx] = order
}

// Untrack removes orderID from expiry tracking, e.g. after it fills or
// is canceled through another path.
func (e *ExpiryManager) Untrack(orderID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, o := range e.active {
		if o.ID == orderID {
			e.active = append(e.active[:i], e.active[i+1:]...)
			return
		}
	}
}

// Start launches a background goroutine that expires orders whose
// deadline has passed, polling at the configured interval. It stops
// when ctx is canceled.
func (e *ExpiryManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				e.tick(t)
			}
		}
	}()
}

func (e *ExpiryManager) tick(now time.Time) {
	e.mu.Lock()
	var due []*domain.Order
	cutoff := 0
	for cutoff < len(e.active) {
		o := e.active[cutoff]
		if o.ExpiresAt == nil || o.ExpiresAt.After(now) {
			break
		}
		due = append(due, o)
		cutoff++
	}
	if cutoff > 0 {
		e.active = e.active[cutoff:]
	}
	e.mu.Unlock()

	for _, o := range due {
		e.expire(o)
	}
}

// expire cancels an order whose deadline has passed. Engine.Cancel already
// publishes ORDER_CANCELED on success, so expire does not publish again.
func (e *ExpiryManager) expire(o *domain.Order) {
	_, _ = e.engine.Cancel(o.ID, o.Investor)
}

// ActiveCount returns the number of orders currently tracked for expiry.
func (e *ExpiryManager) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}
