package handler

import (
	"strconv"
	"testing"
	"time"

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

// testHarness wires the full dependency graph the same way
// cmd/market/main.go does, so handler tests exercise real collaborators
// instead of mocks.
type testHarness struct {
	market    *market.Service
	portfolio *portfolio.Service
	prices    *priceengine.Engine
	webhooks  *webhook.Service
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	registry := domain.NewSymbolRegistry()
	orders := matching.NewMemoryOrderStore()
	bus := eventbus.NewBus(16)
	pub := eventbus.NewPublisher(bus)
	webhookSvc := webhook.NewService(webhook.NewStore(), time.Second, nil, nil)
	router := market.NewEventRouter(pub, webhookSvc, nil)

	priceEngine := priceengine.NewEngine(0.01, &fakeHistory{}, router)

	portStore := portfolio.NewStore()
	ledger := portfolio.NewTransactionLog()
	portSvc := portfolio.NewService(portStore, ledger, registry, router, nil)

	rec := analytics.NewRecorder(nil)
	coord := settlement.NewCoordinator(portSvc, priceEngine, rec, router, nil, nil)

	engine := matching.NewEngine(orders, coord, router, priceEngine, registry)
	expiry := matching.NewExpiryManager(0, engine, router)

	svc := market.NewService(engine, expiry, orders, priceEngine, portSvc, rec, bus, router)
	priceEngine.InitializeStock("AAPL", "Apple Inc.", 150.00)
	svc.SetMarketState(market.StateOpen)

	return &testHarness{market: svc, portfolio: portSvc, prices: priceEngine, webhooks: webhookSvc}
}

type fakeHistory struct {
	points []*domain.PricePoint
}

func (h *fakeHistory) Append(p *domain.PricePoint) error {
	h.points = append(h.points, p)
	return nil
}

func (h *fakeHistory) Query(symbol string, start, end *time.Time, limit int) ([]*domain.PricePoint, error) {
	return h.points, nil
}

var emailCounter int

func seedInvestor(t *testing.T, h *testHarness, balanceDollars float64) *domain.Investor {
	t.Helper()
	emailCounter++
	inv, err := h.portfolio.Register("Test Investor", "investor"+strconv.Itoa(emailCounter)+"@example.com", balanceDollars)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return inv
}
