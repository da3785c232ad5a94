package settlement

import (
	"errors"
	"testing"

	"github.com/rgsouza/marketcore/internal/domain"
)

type fakePortfolio struct {
	applied []struct {
		investor, symbol string
		signedQty, price int64
	}
	failOn string
}

func (f *fakePortfolio) ApplyTrade(investor, symbol string, signedQty, price int64, txID string) error {
	if investor == f.failOn {
		return errors.New("boom")
	}
	f.applied = append(f.applied, struct {
		investor, symbol string
		signedQty, price int64
	}{investor, symbol, signedQty, price})
	return nil
}

type fakePrice struct {
	calls []struct {
		symbol string
		qty    int64
		isBuy  bool
	}
}

func (f *fakePrice) ApplySettled(symbol string, qty int64, isBuy bool) error {
	f.calls = append(f.calls, struct {
		symbol string
		qty    int64
		isBuy  bool
	}{symbol, qty, isBuy})
	return nil
}

type fakeAnalytics struct {
	trades []*domain.AnalyticsTrade
}

func (f *fakeAnalytics) RecordTrade(t *domain.AnalyticsTrade) error {
	f.trades = append(f.trades, t)
	return nil
}

type fakeEvents struct {
	executed int
}

func (f *fakeEvents) PublishOrderExecuted(investor, orderID, symbol string, side domain.OrderSide, qty, price int64) {
	f.executed++
}

func newExec() *domain.Execution {
	return &domain.Execution{
		ExecutionID: "exec-1",
		BuyOrderID:  "buy-1",
		SellOrderID: "sell-1",
		Symbol:      "AAPL",
		Quantity:    10,
		Price:       15100,
		Buyer:       "alice",
		Seller:      "bob",
	}
}

func TestSettle_AppliesBothLegsAndSideEffects(t *testing.T) {
	portfolio := &fakePortfolio{}
	price := &fakePrice{}
	analytics := &fakeAnalytics{}
	events := &fakeEvents{}
	c := NewCoordinator(portfolio, price, analytics, events, nil, nil)

	if err := c.Settle(newExec(), true); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	if len(portfolio.applied) != 2 {
		t.Fatalf("ApplyTrade called %d times, want 2", len(portfolio.applied))
	}
	if portfolio.applied[0].investor != "alice" || portfolio.applied[0].signedQty != 10 {
		t.Errorf("buyer leg = %+v, want alice +10", portfolio.applied[0])
	}
	if portfolio.applied[1].investor != "bob" || portfolio.applied[1].signedQty != -10 {
		t.Errorf("seller leg = %+v, want bob -10", portfolio.applied[1])
	}
	if len(price.calls) != 1 || !price.calls[0].isBuy {
		t.Errorf("price calls = %+v, want one buy-aggressor call", price.calls)
	}
	if len(analytics.trades) != 2 {
		t.Errorf("analytics trades = %d, want 2", len(analytics.trades))
	}
	if events.executed != 2 {
		t.Errorf("executed events = %d, want 2", events.executed)
	}
}

func TestSettle_IdempotentOnExecutionID(t *testing.T) {
	portfolio := &fakePortfolio{}
	c := NewCoordinator(portfolio, &fakePrice{}, &fakeAnalytics{}, &fakeEvents{}, nil, nil)

	exec := newExec()
	if err := c.Settle(exec, true); err != nil {
		t.Fatalf("first Settle() error = %v", err)
	}
	if err := c.Settle(exec, true); err != nil {
		t.Fatalf("second Settle() error = %v", err)
	}
	if len(portfolio.applied) != 2 {
		t.Errorf("ApplyTrade called %d times across two Settle() calls, want 2 (second is a no-op)", len(portfolio.applied))
	}
}

func TestSettle_BuyerLegFailure_ReturnsSettlementFailed(t *testing.T) {
	portfolio := &fakePortfolio{failOn: "alice"}
	c := NewCoordinator(portfolio, &fakePrice{}, &fakeAnalytics{}, &fakeEvents{}, nil, nil)

	err := c.Settle(newExec(), true)
	if !errors.Is(err, domain.ErrSettlementFailed) {
		t.Errorf("Settle() error = %v, want wrapping ErrSettlementFailed", err)
	}
	if len(portfolio.applied) != 0 {
		t.Errorf("applied = %d legs, want 0 when buyer leg fails first", len(portfolio.applied))
	}
}

func TestSettle_SellerLegFailure_AfterBuyerCommitted(t *testing.T) {
	portfolio := &fakePortfolio{failOn: "bob"}
	c := NewCoordinator(portfolio, &fakePrice{}, &fakeAnalytics{}, &fakeEvents{}, nil, nil)

	err := c.Settle(newExec(), true)
	if !errors.Is(err, domain.ErrSettlementFailed) {
		t.Errorf("Settle() error = %v, want wrapping ErrSettlementFailed", err)
	}
	if len(portfolio.applied) != 1 {
		t.Errorf("applied = %d legs, want 1 (buyer leg committed before seller leg failed)", len(portfolio.applied))
	}
}

func TestSettle_SellAggressor_Direction(t *testing.T) {
	price := &fakePrice{}
	c := NewCoordinator(&fakePortfolio{}, price, &fakeAnalytics{}, &fakeEvents{}, nil, nil)
	if err := c.Settle(newExec(), false); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if len(price.calls) != 1 || price.calls[0].isBuy {
		t.Errorf("price calls = %+v, want one sell-aggressor call", price.calls)
	}
}
