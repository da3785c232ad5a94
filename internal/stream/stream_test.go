package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rgsouza/marketcore/internal/analytics"
	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/eventbus"
	"github.com/rgsouza/marketcore/internal/market"
	"github.com/rgsouza/marketcore/internal/matching"
	"github.com/rgsouza/marketcore/internal/portfolio"
	"github.com/rgsouza/marketcore/internal/priceengine"
	"github.com/rgsouza/marketcore/internal/settlement"
	"github.com/rgsouza/marketcore/internal/webhook"
)

type noopHistory struct{}

func (noopHistory) Append(*domain.PricePoint) error { return nil }
func (noopHistory) Query(string, *time.Time, *time.Time, int) ([]*domain.PricePoint, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*market.Service, *portfolio.Service) {
	t.Helper()
	registry := domain.NewSymbolRegistry()
	orders := matching.NewMemoryOrderStore()
	bus := eventbus.NewBus(16)
	pub := eventbus.NewPublisher(bus)
	webhookSvc := webhook.NewService(webhook.NewStore(), time.Second, nil, nil)
	router := market.NewEventRouter(pub, webhookSvc, nil)
	prices := priceengine.NewEngine(0.001, noopHistory{}, router)
	store := portfolio.NewStore()
	ledger := portfolio.NewTransactionLog()
	portSvc := portfolio.NewService(store, ledger, registry, router, nil)
	rec := analytics.NewRecorder(nil)
	coord := settlement.NewCoordinator(portSvc, prices, rec, router, nil, nil)
	engine := matching.NewEngine(orders, coord, router, prices, registry)
	expiry := matching.NewExpiryManager(time.Second, engine, router)
	svc := market.NewService(engine, expiry, orders, prices, portSvc, rec, bus, router)
	prices.InitializeStock("AAPL", "Apple Inc.", 150.00)
	svc.SetMarketState(market.StateOpen)
	return svc, portSvc
}

func TestStreamPrices_DeliversUpdate(t *testing.T) {
	svc, portSvc := newTestService(t)
	h := NewHandler(svc, nil)

	inv, err := portSvc.Register("Ada Lovelace", "ada@example.com", 10000)
	if err != nil {
		t.Fatalf("register investor: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(h.StreamPrices))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server time to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Errorf("read: %v", err)
		}
		close(done)
	}()

	// A resting buy with no counterparty leaves a remainder, which signals
	// the price engine and publishes a PRICE_UPDATE.
	if _, err := svc.PlaceOrder(inv.InvestorID, "AAPL", domain.OrderSideBuy, 5, 15000); err != nil {
		t.Fatalf("place order: %v", err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for price frame")
	}
}
