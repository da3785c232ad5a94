package domain

import "time"

// EventKind enumerates the event types an investor or tool can subscribe
// to via a webhook, or observe on the event bus (spec.md §6).
type EventKind string

const (
	EventOrderPlaced         EventKind = "ORDER_PLACED"
	EventOrderExecuted       EventKind = "ORDER_EXECUTED"
	EventOrderCanceled       EventKind = "ORDER_CANCELED"
	EventPriceUpdate         EventKind = "PRICE_UPDATE"
	EventPriceAlert          EventKind = "PRICE_ALERT"
	EventBalanceUpdated      EventKind = "BALANCE_UPDATED"
	EventNewTransaction      EventKind = "NEW_TRANSACTION"
	EventTopStocksUpdated    EventKind = "TOP_STOCKS_UPDATED"
	EventPredictionAvailable EventKind = "PREDICTION_AVAILABLE"

	// EventAny is the wildcard subscription, matching every EventKind.
	EventAny EventKind = "*"
)

// EventKinds lists every concrete event kind (excludes the EventAny
// wildcard), in the order they appear in spec.md §6.
var EventKinds = []EventKind{
	EventOrderPlaced,
	EventOrderExecuted,
	EventOrderCanceled,
	EventPriceUpdate,
	EventPriceAlert,
	EventBalanceUpdated,
	EventNewTransaction,
	EventTopStocksUpdated,
	EventPredictionAvailable,
}

// IsValidEventKind reports whether k is one of EventKinds or the wildcard.
func IsValidEventKind(k EventKind) bool {
	if k == EventAny {
		return true
	}
	for _, known := range EventKinds {
		if known == k {
			return true
		}
	}
	return false
}

// Webhook represents an investor's (or tool's) subscription to a set of
// event kinds delivered over HTTP POST. A single webhook carries the whole
// subscribed set rather than one row per event.
type Webhook struct {
	WebhookID string
	URL       string
	Events    []EventKind
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Matches reports whether the webhook is active and subscribed to kind,
// either directly or via the "*" wildcard.
func (w *Webhook) Matches(kind EventKind) bool {
	if !w.Active {
		return false
	}
	for _, e := range w.Events {
		if e == EventAny || e == kind {
			return true
		}
	}
	return false
}
