package portfolio

import (
	"testing"

	"github.com/rgsouza/marketcore/internal/domain"
)

func newTestService() *Service {
	return NewService(NewStore(), NewTransactionLog(), domain.NewSymbolRegistry(), nil, nil)
}

func TestRegister_CreatesInvestorWithBalanceInCents(t *testing.T) {
	s := newTestService()
	inv, err := s.Register("Alice", "alice@example.com", 100.00)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if inv.Balance != 10000 {
		t.Errorf("Balance = %d, want 10000", inv.Balance)
	}
}

func TestRegister_DuplicateEmail_Fails(t *testing.T) {
	s := newTestService()
	if _, err := s.Register("Alice", "alice@example.com", 100.00); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if _, err := s.Register("Alice2", "alice@example.com", 50.00); err != domain.ErrEmailTaken {
		t.Errorf("Register() error = %v, want ErrEmailTaken", err)
	}
}

func TestRegister_InvalidEmail_Fails(t *testing.T) {
	s := newTestService()
	_, err := s.Register("Alice", "not-an-email", 100.00)
	var verr *domain.ValidationError
	if !errorsAs(err, &verr) {
		t.Errorf("Register() error = %v, want *domain.ValidationError", err)
	}
}

func errorsAs(err error, target **domain.ValidationError) bool {
	ve, ok := err.(*domain.ValidationError)
	if !ok {
		return false
	}
	*target = ve
	return true
}

func TestGet_RoundTrip(t *testing.T) {
	s := newTestService()
	created, _ := s.Register("Alice", "alice@example.com", 100.00)
	got, err := s.Get(created.InvestorID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Get() = %+v, want matching created record", got)
	}
}

func TestGet_Unknown_Fails(t *testing.T) {
	s := newTestService()
	if _, err := s.Get("nope"); err != domain.ErrInvestorNotFound {
		t.Errorf("Get() error = %v, want ErrInvestorNotFound", err)
	}
}

func TestAdjustBalance_InsufficientFunds(t *testing.T) {
	s := newTestService()
	inv, _ := s.Register("Alice", "alice@example.com", 10.00)
	if err := s.AdjustBalance(inv.InvestorID, -2000); err != domain.ErrInsufficientFunds {
		t.Errorf("AdjustBalance() error = %v, want ErrInsufficientFunds", err)
	}
}

func TestApplyTrade_Buy_WeightedAverage(t *testing.T) {
	s := newTestService()
	inv, _ := s.Register("Alice", "alice@example.com", 10000.00)

	if err := s.ApplyTrade(inv.InvestorID, "AAPL", 10, 14000, "tx1"); err != nil {
		t.Fatalf("ApplyTrade() error = %v", err)
	}
	if err := s.ApplyTrade(inv.InvestorID, "AAPL", 10, 16000, "tx2"); err != nil {
		t.Fatalf("ApplyTrade() error = %v", err)
	}

	got, _ := s.Get(inv.InvestorID)
	h := got.Holdings["AAPL"]
	if h.Quantity != 20 {
		t.Errorf("Quantity = %d, want 20", h.Quantity)
	}
	if h.AvgPrice != 15000 {
		t.Errorf("AvgPrice = %d, want 15000", h.AvgPrice)
	}
}

func TestApplyTrade_SellUnwindsHoldingAvgUnchanged(t *testing.T) {
	s := newTestService()
	inv, _ := s.Register("Bob", "bob@example.com", 100000.00)
	s.ApplyTrade(inv.InvestorID, "AAPL", 100, 14000, "seed")

	if err := s.ApplyTrade(inv.InvestorID, "AAPL", -10, 15100, "tx-sell"); err != nil {
		t.Fatalf("ApplyTrade() error = %v", err)
	}

	got, _ := s.Get(inv.InvestorID)
	h := got.Holdings["AAPL"]
	if h.Quantity != 90 {
		t.Errorf("Quantity = %d, want 90", h.Quantity)
	}
	if h.AvgPrice != 14000 {
		t.Errorf("AvgPrice = %d, want unchanged 14000 on sell", h.AvgPrice)
	}
	if got.Balance != 8751000 {
		t.Errorf("Balance = %d, want 8751000", got.Balance)
	}
}

func TestApplyTrade_SellDeletesHoldingAtZero(t *testing.T) {
	s := newTestService()
	inv, _ := s.Register("Bob", "bob@example.com", 10000.00)
	s.ApplyTrade(inv.InvestorID, "AAPL", 10, 14000, "seed")
	s.ApplyTrade(inv.InvestorID, "AAPL", -10, 15000, "sell")

	got, _ := s.Get(inv.InvestorID)
	if _, ok := got.Holdings["AAPL"]; ok {
		t.Error("Holdings[AAPL] still present at qty 0, want deleted")
	}
}

func TestApplyTrade_SellInsufficientShares(t *testing.T) {
	s := newTestService()
	inv, _ := s.Register("Bob", "bob@example.com", 0)
	if err := s.ApplyTrade(inv.InvestorID, "AAPL", -10, 15000, "tx"); err != domain.ErrInsufficientShares {
		t.Errorf("ApplyTrade() error = %v, want ErrInsufficientShares", err)
	}
}

func TestApplyTrade_RoundTrip_LeavesBalanceAndQtyUnchanged(t *testing.T) {
	s := newTestService()
	inv, _ := s.Register("Bob", "bob@example.com", 10000.00)
	startBalance := inv.Balance

	s.ApplyTrade(inv.InvestorID, "AAPL", 10, 15000, "buy")
	s.ApplyTrade(inv.InvestorID, "AAPL", -10, 15000, "sell")

	got, _ := s.Get(inv.InvestorID)
	if got.Balance != startBalance {
		t.Errorf("Balance = %d, want unchanged %d after round trip", got.Balance, startBalance)
	}
	if _, ok := got.Holdings["AAPL"]; ok {
		t.Error("Holdings[AAPL] present after round trip, want deleted")
	}
}

func TestValidateOrder_Buy_InsufficientFunds(t *testing.T) {
	s := newTestService()
	inv, _ := s.Register("Alice", "alice@example.com", 10.00)
	err := s.ValidateOrder(inv.InvestorID, "AAPL", domain.OrderSideBuy, 10, 15000)
	if err != domain.ErrInsufficientFunds {
		t.Errorf("ValidateOrder() error = %v, want ErrInsufficientFunds", err)
	}
}

func TestValidateOrder_NeverMutates(t *testing.T) {
	s := newTestService()
	inv, _ := s.Register("Alice", "alice@example.com", 10000.00)
	before, _ := s.Get(inv.InvestorID)
	balanceBefore := before.Balance

	s.ValidateOrder(inv.InvestorID, "AAPL", domain.OrderSideBuy, 10, 15000)

	after, _ := s.Get(inv.InvestorID)
	if after.Balance != balanceBefore {
		t.Errorf("Balance = %d, want unchanged %d", after.Balance, balanceBefore)
	}
}

func TestValidateOrder_Sell_InsufficientShares(t *testing.T) {
	s := newTestService()
	inv, _ := s.Register("Bob", "bob@example.com", 0)
	err := s.ValidateOrder(inv.InvestorID, "AAPL", domain.OrderSideSell, 10, 15000)
	if err != domain.ErrInsufficientShares {
		t.Errorf("ValidateOrder() error = %v, want ErrInsufficientShares", err)
	}
}

func TestTransactions_NewestFirst(t *testing.T) {
	s := newTestService()
	inv, _ := s.Register("Alice", "alice@example.com", 10000.00)
	s.ApplyTrade(inv.InvestorID, "AAPL", 10, 15000, "tx1")
	s.ApplyTrade(inv.InvestorID, "AAPL", 10, 15100, "tx2")

	txs, err := s.Transactions(inv.InvestorID, 0, nil, nil)
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	if len(txs) != 2 || txs[0].TransactionID != "tx2" {
		t.Errorf("Transactions() = %+v, want tx2 first", txs)
	}
}

func TestGetPortfolio_ComputesProfitLoss(t *testing.T) {
	s := newTestService()
	inv, _ := s.Register("Alice", "alice@example.com", 10000.00)
	s.ApplyTrade(inv.InvestorID, "AAPL", 10, 15000, "tx1")

	views, err := s.GetPortfolio(inv.InvestorID, map[string]int64{"AAPL": 16000})
	if err != nil {
		t.Fatalf("GetPortfolio() error = %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %+v, want 1", views)
	}
	if views[0].ProfitLoss != 10000 {
		t.Errorf("ProfitLoss = %d, want 10000 (10 shares * 1000 cents gain)", views[0].ProfitLoss)
	}
}
