package portfolio

import (
	"sync"

	"github.com/rgsouza/marketcore/internal/domain"
)

// Store is a thread-safe in-memory store for investors, keyed by
// investor id, with a secondary index enforcing email uniqueness
// (spec.md §3, §4.4).
type Store struct {
	mu        sync.RWMutex
	investors map[string]*domain.Investor
	byEmail   map[string]string // email -> investor id
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		investors: make(map[string]*domain.Investor),
		byEmail:   make(map[string]string),
	}
}

// Create adds investor to the store. Returns domain.ErrEmailTaken if
// another investor already holds that email.
func (s *Store) Create(inv *domain.Investor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[inv.Email]; taken {
		return domain.ErrEmailTaken
	}
	s.investors[inv.InvestorID] = inv
	s.byEmail[inv.Email] = inv.InvestorID
	return nil
}

// Get retrieves an investor by id. Returns domain.ErrInvestorNotFound if
// absent.
func (s *Store) Get(id string) (*domain.Investor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.investors[id]
	if !ok {
		return nil, domain.ErrInvestorNotFound
	}
	return inv, nil
}

// Exists reports whether id is a known investor.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.investors[id]
	return ok
}
