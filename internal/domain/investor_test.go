package domain

import "testing"

func TestInvestor_AvailableBalance(t *testing.T) {
	i := &Investor{Balance: 100000}
	if got := i.AvailableBalance(); got != 100000 {
		t.Errorf("AvailableBalance() = %d, want 100000", got)
	}
}

func TestInvestor_HeldQuantity(t *testing.T) {
	i := &Investor{
		Holdings: map[string]*Holding{
			"AAPL": {Quantity: 50, AvgPrice: 15000},
		},
	}
	if got := i.HeldQuantity("AAPL"); got != 50 {
		t.Errorf("HeldQuantity(AAPL) = %d, want 50", got)
	}
	if got := i.HeldQuantity("GOOG"); got != 0 {
		t.Errorf("HeldQuantity(GOOG) = %d, want 0", got)
	}
}
