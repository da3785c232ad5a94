package domain

import "testing"

func TestNewStock(t *testing.T) {
	s := NewStock("AAPL", "Apple Inc.", 150.00)
	if s.Current != 150.00 || s.Open != 150.00 || s.High != 150.00 || s.Low != 150.00 {
		t.Errorf("NewStock() did not seed OHLC equal to open price: %+v", s)
	}
	if s.Volume != 0 {
		t.Errorf("NewStock() Volume = %d, want 0", s.Volume)
	}
}

func TestStock_ResetDaily(t *testing.T) {
	s := NewStock("AAPL", "Apple Inc.", 150.00)
	s.Current = 162.50
	s.High = 165.00
	s.Low = 148.00
	s.ResetDaily()
	if s.Open != 162.50 || s.High != 162.50 || s.Low != 162.50 {
		t.Errorf("ResetDaily() = {open=%v high=%v low=%v}, want all 162.50", s.Open, s.High, s.Low)
	}
}
