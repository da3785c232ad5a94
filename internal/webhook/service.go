package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/httpmetrics"
)

const maxDeliveryAttempts = 3

// errDeliveryRejected means the endpoint responded with a non-2xx status.
var errDeliveryRejected = errors.New("webhook endpoint returned non-2xx status")

// RegisterRequest is the input for creating or updating a webhook
// subscription (spec.md §6's POST/PATCH /webhooks).
type RegisterRequest struct {
	URL    string
	Events []domain.EventKind
}

// PersistWriter durably records a webhook subscription's current state,
// or removes it on deletion. Implemented by persist's adapter types, the
// same narrow-interface pattern settlement.ExecutionWriter and
// market.RecordWriter use, so this package never imports persist.
type PersistWriter interface {
	WriteWebhook(w *domain.Webhook, deleted bool)
}

// Service implements the webhook HTTP surface of spec.md §6: CRUD over
// subscriptions plus fire-and-forget delivery with retry.
type Service struct {
	store   *Store
	client  *http.Client
	log     *slog.Logger
	persist PersistWriter
}

// NewService creates a webhook service. timeout bounds each individual
// delivery attempt. persist may be nil, in which case subscriptions are
// kept only in memory.
func NewService(store *Store, timeout time.Duration, log *slog.Logger, persist PersistWriter) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:   store,
		client:  &http.Client{Timeout: timeout},
		log:     log,
		persist: persist,
	}
}

func validateRequest(req RegisterRequest) error {
	if req.URL == "" {
		return &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return &domain.ValidationError{Message: "url must use http or https scheme"}
	}
	if len(req.Events) == 0 {
		return &domain.ValidationError{Message: "events must be a non-empty array"}
	}
	for _, e := range req.Events {
		if !domain.IsValidEventKind(e) {
			return &domain.ValidationError{Message: "unknown event kind: " + string(e)}
		}
	}
	return nil
}

func dedup(events []domain.EventKind) []domain.EventKind {
	seen := make(map[domain.EventKind]bool, len(events))
	out := make([]domain.EventKind, 0, len(events))
	for _, e := range events {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// Register creates a new webhook subscription.
func (s *Service) Register(req RegisterRequest) (*domain.Webhook, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	now := time.Now()
	w := &domain.Webhook{
		WebhookID: uuid.New().String(),
		URL:       req.URL,
		Events:    dedup(req.Events),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.Create(w)
	if s.persist != nil {
		s.persist.WriteWebhook(w, false)
	}
	return w, nil
}

// List returns every webhook subscription.
func (s *Service) List() []*domain.Webhook {
	return s.store.List()
}

// Get returns one webhook subscription by id.
func (s *Service) Get(id string) (*domain.Webhook, error) {
	return s.store.Get(id)
}

// Update applies a partial patch to an existing webhook (spec.md §6's
// PATCH /webhooks/:id). Fields left at their zero value in req are left
// unchanged, except Events: pass the full desired set when updating it.
func (s *Service) Update(id string, req RegisterRequest) (*domain.Webhook, error) {
	w, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if req.URL == "" && len(req.Events) == 0 {
		return nil, &domain.ValidationError{Message: "at least one of url or events must be provided"}
	}
	patched := *w
	if req.URL != "" {
		patched.URL = req.URL
	}
	if len(req.Events) > 0 {
		patched.Events = dedup(req.Events)
	}
	if err := validateRequest(RegisterRequest{URL: patched.URL, Events: patched.Events}); err != nil {
		return nil, err
	}
	w.URL = patched.URL
	w.Events = patched.Events
	w.UpdatedAt = time.Now()
	if s.persist != nil {
		s.persist.WriteWebhook(w, false)
	}
	return w, nil
}

// Delete removes a webhook subscription.
func (s *Service) Delete(id string) error {
	w, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if s.persist != nil {
		s.persist.WriteWebhook(w, true)
	}
	return nil
}

// Test sends a synthetic payload to url outside of any subscription, so
// callers can verify reachability before registering (spec.md §6's POST
// /webhooks/test).
func (s *Service) Test(rawURL string) error {
	if err := validateRequest(RegisterRequest{URL: rawURL, Events: []domain.EventKind{domain.EventAny}}); err != nil {
		return err
	}
	payload := map[string]any{
		"event": "TEST",
		"data":  map[string]any{"message": "this is a test delivery"},
		"ts":    time.Now().UTC().Format(time.RFC3339),
	}
	return s.deliverOnce(rawURL, "TEST", payload)
}

// Dispatch notifies every active webhook subscribed to kind, delivering
// in the background with retry (spec.md §7: "Webhook delivery retries
// with exponential backoff up to 3 attempts").
func (s *Service) Dispatch(kind domain.EventKind, payload any) {
	subs := s.store.ListActiveForEvent(kind)
	for _, w := range subs {
		go s.deliverWithRetry(w, kind, payload)
	}
}

func (s *Service) deliverWithRetry(w *domain.Webhook, kind domain.EventKind, payload any) {
	backoff := 200 * time.Millisecond
	for attempt := 1; attempt <= maxDeliveryAttempts; attempt++ {
		err := s.deliverOnce(w.URL, kind, payload)
		if err == nil {
			httpmetrics.WebhookDeliveriesTotal.WithLabelValues("delivered").Inc()
			return
		}
		s.log.Warn("webhook delivery failed",
			slog.String("webhook_id", w.WebhookID),
			slog.String("event", string(kind)),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		if attempt < maxDeliveryAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	httpmetrics.WebhookDeliveriesTotal.WithLabelValues("failed").Inc()
}

func (s *Service) deliverOnce(rawURL string, kind domain.EventKind, payload any) error {
	envelope := map[string]any{
		"event": kind,
		"data":  payload,
		"ts":    time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Event-Type", string(kind))

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errDeliveryRejected
	}
	return nil
}
