package matching

import (
	"sort"
	"sync"

	"github.com/rgsouza/marketcore/internal/domain"
)

// MemoryOrderStore is a thread-safe in-memory OrderStore, with a primary
// index by order id and a secondary index by investor (spec.md §5's
// orders table, indexed on (investor, status)).
type MemoryOrderStore struct {
	mu             sync.RWMutex
	orders         map[string]*domain.Order
	investorOrders map[string][]*domain.Order // investor → orders, append-only
}

// NewMemoryOrderStore creates an empty MemoryOrderStore.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		orders:         make(map[string]*domain.Order),
		investorOrders: make(map[string][]*domain.Order),
	}
}

// Create adds o to the store and appends it to its investor's index.
func (s *MemoryOrderStore) Create(o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	s.investorOrders[o.Investor] = append(s.investorOrders[o.Investor], o)
	return nil
}

// Get retrieves an order by id, or domain.ErrOrderNotFound.
func (s *MemoryOrderStore) Get(id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ListByInvestor returns investor's orders, newest first, optionally
// filtered by status, paginated 1-based. Returns the matching page and
// the total count of matching orders before pagination.
func (s *MemoryOrderStore) ListByInvestor(investor string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.investorOrders[investor]
	filtered := make([]*domain.Order, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if status != nil && all[i].Status != *status {
			continue
		}
		filtered = append(filtered, all[i])
	}

	total := len(filtered)
	start := (page - 1) * limit
	if start >= total {
		return []*domain.Order{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return filtered[start:end], total
}

// ListBySymbol returns every order for symbol, oldest first. It scans all
// orders; there is no separate per-symbol index.
func (s *MemoryOrderStore) ListBySymbol(symbol string) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Order, 0)
	for _, o := range s.orders {
		if o.Symbol == symbol {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
