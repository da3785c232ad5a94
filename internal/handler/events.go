package handler

import (
	"net/http"

	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/webhook"
)

// EventHandler handles HTTP requests for the generic event surface:
// manually triggering a webhook dispatch and listing known event kinds.
// This is the one entry point for PRICE_ALERT, which has no internal
// producer of its own (spec.md §6 names it as a kind but nothing in the
// matching/settlement/price pipeline raises it).
type EventHandler struct {
	webhooks *webhook.Service
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(webhooks *webhook.Service) *EventHandler {
	return &EventHandler{webhooks: webhooks}
}

// triggerEventRequest is the JSON request body for POST /events.
type triggerEventRequest struct {
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
}

// Trigger handles POST /events: dispatches an arbitrary event to every
// webhook subscribed to it (or to "*").
func (h *EventHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req triggerEventRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	kind := domain.EventKind(req.EventType)
	if !domain.IsValidEventKind(kind) || kind == domain.EventAny {
		WriteError(w, http.StatusBadRequest, "validation_error", "event_type must be one of the known event kinds")
		return
	}

	h.webhooks.Dispatch(kind, req.EventData)
	WriteJSON(w, http.StatusAccepted, map[string]bool{"dispatched": true})
}

// eventTypesResponse is the JSON response for GET /events/types.
type eventTypesResponse struct {
	EventTypes []string `json:"event_types"`
}

// Types handles GET /events/types.
func (h *EventHandler) Types(w http.ResponseWriter, r *http.Request) {
	out := make([]string, len(domain.EventKinds))
	for i, k := range domain.EventKinds {
		out[i] = string(k)
	}
	WriteJSON(w, http.StatusOK, eventTypesResponse{EventTypes: out})
}
