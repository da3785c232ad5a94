package matching

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/rgsouza/marketcore/internal/domain"
)

// BookEntry represents a single order resting on one side of a book.
type BookEntry struct {
	Price     int64
	IsMarket  bool
	CreatedAt time.Time
	OrderID   string
	Order     *domain.Order
}

// PriceLevel represents an aggregated price level in the order book, as
// returned by GetOrderBook (spec.md §4.1).
type PriceLevel struct {
	Price      int64
	Quantity   int64
	OrderCount int
}

// bidLess orders the bid side: market orders first (infinitely
// aggressive), then price descending, then arrival time ascending.
// Min() therefore returns the best bid.
func bidLess(a, b BookEntry) bool {
	if a.IsMarket != b.IsMarket {
		return a.IsMarket
	}
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.OrderID < b.OrderID
}

// askLess orders the ask side: market orders first, then price
// ascending, then arrival time ascending. Min() returns the best ask.
func askLess(a, b BookEntry) bool {
	if a.IsMarket != b.IsMarket {
		return a.IsMarket
	}
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.OrderID < b.OrderID
}

// Book maintains the bid and ask sides of a single symbol's order book
// using B-trees, with a secondary index for O(log n) removal by order ID.
// A Book has no internal locking of its own; callers serialize access per
// symbol (spec.md §4.1).
type Book struct {
	Symbol string
	bids   *btree.BTreeG[BookEntry]
	asks   *btree.BTreeG[BookEntry]
	index  map[string]BookEntry
}

// NewBook creates an order book for the given symbol.
func NewBook(symbol string) *Book {
	const degree = 32
	return &Book{
		Symbol: symbol,
		bids:   btree.NewG[BookEntry](degree, bidLess),
		asks:   btree.NewG[BookEntry](degree, askLess),
		index:  make(map[string]BookEntry),
	}
}

func entryFor(o *domain.Order) BookEntry {
	return BookEntry{
		Price:     o.LimitPrice,
		IsMarket:  o.IsMarket(),
		CreatedAt: o.CreatedAt,
		OrderID:   o.ID,
		Order:     o,
	}
}

// InsertBid adds order to the bid side.
func (b *Book) InsertBid(o *domain.Order) {
	e := entryFor(o)
	b.bids.ReplaceOrInsert(e)
	b.index[e.OrderID] = e
}

// InsertAsk adds order to the ask side.
func (b *Book) InsertAsk(o *domain.Order) {
	e := entryFor(o)
	b.asks.ReplaceOrInsert(e)
	b.index[e.OrderID] = e
}

// Remove deletes an order from the book by ID, trying both sides since
// the caller may not know which side it rests on. No-op if absent.
func (b *Book) Remove(orderID string) {
	e, ok := b.index[orderID]
	if !ok {
		return
	}
	delete(b.index, orderID)
	b.bids.Delete(e)
	b.asks.Delete(e)
}

// BestBid returns the highest-priority resting bid.
func (b *Book) BestBid() (BookEntry, bool) {
	return b.bids.Min()
}

// BestAsk returns the highest-priority resting ask.
func (b *Book) BestAsk() (BookEntry, bool) {
	return b.asks.Min()
}

// WalkAsks iterates asks in priority order; fn returns false to stop.
func (b *Book) WalkAsks(fn func(BookEntry) bool) {
	b.asks.Ascend(fn)
}

// WalkBids iterates bids in priority order; fn returns false to stop.
func (b *Book) WalkBids(fn func(BookEntry) bool) {
	b.bids.Ascend(fn)
}

// BidCount returns the number of resting bid orders.
func (b *Book) BidCount() int { return b.bids.Len() }

// AskCount returns the number of resting ask orders.
func (b *Book) AskCount() int { return b.asks.Len() }

// Depth returns up to n aggregated price levels per side, per
// GetOrderBook (spec.md §4.1).
func (b *Book) Depth(n int) (bids, asks []PriceLevel) {
	return levels(b.bids, n), levels(b.asks, n)
}

func levels(tree *btree.BTreeG[BookEntry], n int) []PriceLevel {
	if n <= 0 {
		n = 1 << 30
	}
	out := make([]PriceLevel, 0)
	tree.Ascend(func(e BookEntry) bool {
		if e.IsMarket {
			return true // market orders have no price level of their own
		}
		if len(out) > 0 && out[len(out)-1].Price == e.Price {
			out[len(out)-1].Quantity += e.Order.RemainingQuantity
			out[len(out)-1].OrderCount++
			return true
		}
		if len(out) >= n {
			return false
		}
		out = append(out, PriceLevel{
			Price:      e.Price,
			Quantity:   e.Order.RemainingQuantity,
			OrderCount: 1,
		})
		return true
	})
	return out
}

// Books is a thread-safe map of symbol → Book, with a per-symbol mutex
// serializing all matching activity for that symbol (spec.md §4.1).
type Books struct {
	mu    sync.RWMutex
	books map[string]*bookSlot
}

type bookSlot struct {
	mu   sync.Mutex
	book *Book
}

// NewBooks creates an empty Books registry.
func NewBooks() *Books {
	return &Books{books: make(map[string]*bookSlot)}
}

func (bs *Books) slot(symbol string) *bookSlot {
	bs.mu.RLock()
	s, ok := bs.books[symbol]
	bs.mu.RUnlock()
	if ok {
		return s
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()
	if s, ok = bs.books[symbol]; ok {
		return s
	}
	s = &bookSlot{book: NewBook(symbol)}
	bs.books[symbol] = s
	return s
}

// With runs fn with the named symbol's book locked for the duration,
// serializing matching for that symbol against all other callers.
func (bs *Books) With(symbol string, fn func(*Book)) {
	s := bs.slot(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.book)
}
