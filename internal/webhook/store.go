package webhook

import (
	"sync"

	"github.com/rgsouza/marketcore/internal/domain"
)

// Store is a thread-safe in-memory store for webhook subscriptions,
// keyed by webhook id (spec.md §6).
type Store struct {
	mu       sync.RWMutex
	webhooks map[string]*domain.Webhook
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{webhooks: make(map[string]*domain.Webhook)}
}

// Create adds w to the store.
func (s *Store) Create(w *domain.Webhook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhooks[w.WebhookID] = w
}

// Get retrieves a webhook by id, or domain.ErrWebhookNotFound.
func (s *Store) Get(id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.webhooks[id]
	if !ok {
		return nil, domain.ErrWebhookNotFound
	}
	return w, nil
}

// List returns every registered webhook.
func (s *Store) List() []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Webhook, 0, len(s.webhooks))
	for _, w := range s.webhooks {
		out = append(out, w)
	}
	return out
}

// ListActiveForEvent returns every active webhook subscribed to kind,
// directly or via the wildcard.
func (s *Store) ListActiveForEvent(kind domain.EventKind) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Webhook, 0)
	for _, w := range s.webhooks {
		if w.Matches(kind) {
			out = append(out, w)
		}
	}
	return out
}

// Delete removes a webhook by id, or domain.ErrWebhookNotFound.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.webhooks[id]; !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.webhooks, id)
	return nil
}
