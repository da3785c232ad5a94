package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/webhook"
)

// WebhookHandler handles HTTP requests for webhook subscription
// endpoints.
type WebhookHandler struct {
	webhooks *webhook.Service
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhooks *webhook.Service) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// upsertWebhookRequest is the JSON request body for POST and PATCH
// /webhooks(/{webhook_id}).
type upsertWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// webhookResponse is the JSON shape of one webhook subscription.
type webhookResponse struct {
	WebhookID string   `json:"webhook_id"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	Active    bool     `json:"active"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func buildWebhookResponse(w *domain.Webhook) webhookResponse {
	events := make([]string, len(w.Events))
	for i, e := range w.Events {
		events[i] = string(e)
	}
	return webhookResponse{
		WebhookID: w.WebhookID,
		URL:       w.URL,
		Events:    events,
		Active:    w.Active,
		CreatedAt: w.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt: w.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func toEventKinds(raw []string) []domain.EventKind {
	out := make([]domain.EventKind, len(raw))
	for i, r := range raw {
		out[i] = domain.EventKind(r)
	}
	return out
}

// Register handles POST /webhooks.
func (h *WebhookHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req upsertWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	hook, err := h.webhooks.Register(webhook.RegisterRequest{
		URL:    req.URL,
		Events: toEventKinds(req.Events),
	})
	if err != nil {
		mapWebhookError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildWebhookResponse(hook))
}

// List handles GET /webhooks.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	hooks := h.webhooks.List()
	out := make([]webhookResponse, len(hooks))
	for i, hook := range hooks {
		out[i] = buildWebhookResponse(hook)
	}
	WriteJSON(w, http.StatusOK, out)
}

// Get handles GET /webhooks/{webhook_id}.
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "webhook_id")

	hook, err := h.webhooks.Get(id)
	if err != nil {
		mapWebhookError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildWebhookResponse(hook))
}

// Update handles PATCH /webhooks/{webhook_id}.
func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "webhook_id")

	var req upsertWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	hook, err := h.webhooks.Update(id, webhook.RegisterRequest{
		URL:    req.URL,
		Events: toEventKinds(req.Events),
	})
	if err != nil {
		mapWebhookError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildWebhookResponse(hook))
}

// Delete handles DELETE /webhooks/{webhook_id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "webhook_id")

	if err := h.webhooks.Delete(id); err != nil {
		mapWebhookError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// testWebhookRequest is the JSON request body for POST /webhooks/test.
type testWebhookRequest struct {
	URL string `json:"url"`
}

// Test handles POST /webhooks/test.
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req testWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.webhooks.Test(req.URL); err != nil {
		mapWebhookError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"delivered": true})
}

// mapWebhookError maps domain errors to HTTP responses for webhook
// endpoints.
func mapWebhookError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrWebhookNotFound):
		WriteError(w, http.StatusNotFound, "webhook_not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
