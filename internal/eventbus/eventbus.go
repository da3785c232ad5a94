package eventbus

import (
	"sync"
	"time"

	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/httpmetrics"
)

// DefaultQueueSize is the default bounded per-subscriber queue depth
// (spec.md §4.5).
const DefaultQueueSize = 1024

// Kind distinguishes the two event families of spec.md §4.5.
type Kind string

const (
	KindPrice    Kind = "PRICE"
	KindMarket   Kind = "MARKET"
	KindOverflow Kind = "OVERFLOW"
)

// Event is the unit delivered to subscribers. Exactly one of Price or
// Market is populated, except for the terminal OVERFLOW event, where
// neither is.
type Event struct {
	Kind   Kind
	Price  *PriceEvent
	Market *MarketEvent
	Ts     time.Time
}

// PriceEvent mirrors spec.md §4.5's price event shape.
type PriceEvent struct {
	Symbol    string
	Price     float64
	ChangePct float64
	Ts        time.Time
}

// MarketEvent mirrors spec.md §4.5's market event shape. Kind is one of
// domain.EventOrderPlaced, EventOrderExecuted, or EventOrderCanceled.
type MarketEvent struct {
	Kind     domain.EventKind
	OrderID  string
	Symbol   string
	Side     domain.OrderSide
	Quantity int64
	Price    int64
	Investor string
	Ts       time.Time
}

// subscriber holds one bounded queue and the filter selecting which
// events it wants.
type subscriber struct {
	id      uint64
	ch      chan Event
	filter  func(Event) bool
	dropped bool
}

// Bus is the typed publish/subscribe surface of spec.md §4.5. Publish
// never blocks: a slow subscriber whose queue overflows is dropped with
// a terminal OVERFLOW event, and publishers are never affected by one
// another's subscribers.
type Bus struct {
	mu        sync.RWMutex
	subs      map[uint64]*subscriber
	nextID    uint64
	queueSize int
}

// NewBus creates a Bus whose subscriber queues hold queueSize events
// (DefaultQueueSize if queueSize <= 0).
func NewBus(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{subs: make(map[uint64]*subscriber), queueSize: queueSize}
}

// Subscription is a handle to a live subscription. Events() yields the
// subscriber's stream; Unsubscribe stops delivery and releases the
// queue. The stream is not restartable: once Unsubscribe is called or
// the subscriber is dropped for overflow, Events() yields no more
// values.
type Subscription struct {
	bus *Bus
	id  uint64
	ch  <-chan Event
}

// Events returns the channel of events delivered to this subscription,
// in publish order. It is closed when the subscription ends, whether by
// explicit Unsubscribe or by overflow drop (preceded by one OVERFLOW
// event).
func (s *Subscription) Events() <-chan Event { return s.ch }

// Unsubscribe ends the subscription and releases its queue.
func (s *Subscription) Unsubscribe() { s.bus.unsubscribe(s.id) }

// Subscribe registers a new subscriber. filter, if non-nil, is called
// for every published event; only events for which it returns true are
// enqueued. The bus delivers events published after Subscribe returns;
// prior events are never replayed (spec.md §4.5).
func (b *Bus) Subscribe(filter func(Event) bool) *Subscription {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	sub := &subscriber{
		id:     id,
		ch:     make(chan Event, b.queueSize),
		filter: filter,
	}
	b.subs[id] = sub
	b.mu.Unlock()

	return &Subscription{bus: b, id: id, ch: sub.ch}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}

// publish delivers e to every matching subscriber without blocking. A
// subscriber whose queue is full is dropped: it receives one OVERFLOW
// event (best-effort) and its channel is closed. Ordering is preserved
// per-subscriber only.
func (b *Bus) publish(e Event) {
	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.filter == nil || sub.filter(e) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	var overflowed []uint64
	for _, sub := range targets {
		select {
		case sub.ch <- e:
		default:
			// Queue is full. Make room for the terminal OVERFLOW event by
			// discarding the oldest buffered one rather than trying to push
			// it into the same saturated queue — a stalled subscriber never
			// drains on its own, so a second non-blocking send would always
			// hit this same default case too.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- Event{Kind: KindOverflow, Ts: time.Now()}:
			default:
			}
			overflowed = append(overflowed, sub.id)
		}
	}

	for _, id := range overflowed {
		httpmetrics.EventBusOverflowsTotal.Inc()
		b.unsubscribe(id)
	}
}

// PublishPrice publishes a PRICE_UPDATE price event.
func (b *Bus) PublishPrice(p PriceEvent) {
	b.publish(Event{Kind: KindPrice, Price: &p, Ts: p.Ts})
}

// PublishMarket publishes a market event (ORDER_PLACED, ORDER_EXECUTED,
// or ORDER_CANCELED).
func (b *Bus) PublishMarket(m MarketEvent) {
	b.publish(Event{Kind: KindMarket, Market: &m, Ts: m.Ts})
}

// SubscriberCount reports the number of currently active subscribers.
// Useful for testing and metrics.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
