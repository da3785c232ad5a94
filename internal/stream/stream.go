// Package stream upgrades HTTP connections to WebSocket and forwards live
// price and market events to subscribers, per spec.md §6's StreamPrices
// and StreamMarketEvents.
package stream

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rgsouza/marketcore/internal/eventbus"
	"github.com/rgsouza/marketcore/internal/market"
)

// outboundMessage is the JSON envelope written to every subscriber frame.
type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// priceFrame is the wire shape of one PRICE_UPDATE frame.
type priceFrame struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
	Ts        string  `json:"ts"`
}

// marketFrame is the wire shape of one market event frame.
type marketFrame struct {
	Kind     string  `json:"kind"`
	OrderID  string  `json:"order_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
	Investor string  `json:"investor"`
	Ts       string  `json:"ts"`
}

// Handler upgrades connections and relays market.Service's subscriptions
// over them.
type Handler struct {
	market   *market.Service
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandler wraps svc. Origin checking is left permissive, matching a
// public market-data feed with no session state of its own.
func NewHandler(svc *market.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		market: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// symbolsFrom parses a comma-separated ?symbols= query parameter.
func symbolsFrom(r *http.Request) []string {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

// StreamPrices upgrades the connection and relays PRICE_UPDATE events for
// the requested symbols (all symbols if ?symbols= is omitted) until the
// client disconnects.
func (h *Handler) StreamPrices(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	sub := h.market.StreamPrices(symbolsFrom(r))
	defer sub.Unsubscribe()

	for evt := range sub.Events() {
		if evt.Kind == eventbus.KindOverflow {
			conn.WriteJSON(outboundMessage{Type: "OVERFLOW"})
			return
		}
		if evt.Price == nil {
			continue
		}
		msg := outboundMessage{Type: "PRICE_UPDATE", Data: priceFrame{
			Symbol:    evt.Price.Symbol,
			Price:     evt.Price.Price,
			ChangePct: evt.Price.ChangePct,
			Ts:        evt.Price.Ts.UTC().Format(time.RFC3339Nano),
		}}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// StreamMarketEvents upgrades the connection and relays order lifecycle
// events for the requested symbols until the client disconnects.
func (h *Handler) StreamMarketEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	sub := h.market.StreamMarketEvents(symbolsFrom(r))
	defer sub.Unsubscribe()

	for evt := range sub.Events() {
		if evt.Kind == eventbus.KindOverflow {
			conn.WriteJSON(outboundMessage{Type: "OVERFLOW"})
			return
		}
		if evt.Market == nil {
			continue
		}
		msg := outboundMessage{Type: string(evt.Market.Kind), Data: marketFrame{
			Kind:     string(evt.Market.Kind),
			OrderID:  evt.Market.OrderID,
			Symbol:   evt.Market.Symbol,
			Side:     string(evt.Market.Side),
			Quantity: evt.Market.Quantity,
			Price:    float64(evt.Market.Price) / 100,
			Investor: evt.Market.Investor,
			Ts:       evt.Market.Ts.UTC().Format(time.RFC3339Nano),
		}}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
