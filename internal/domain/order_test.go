package domain

import (
	"testing"
	"time"
)

func TestOrder_AveragePrice_SingleExecution(t *testing.T) {
	o := &Order{
		FilledQuantity: 100,
		Executions: []*Execution{
			{Price: 15000, Quantity: 100, Ts: time.Now()},
		},
	}
	avg, ok := o.AveragePrice()
	if !ok {
		t.Fatal("AveragePrice() returned false, want true")
	}
	if avg != 15000 {
		t.Errorf("AveragePrice() = %d, want 15000", avg)
	}
}

func TestOrder_AveragePrice_MultipleExecutions(t *testing.T) {
	// 700 @ 14800 + 300 @ 14900 = 10360000 + 4470000 = 14830000 / 1000 = 14830
	o := &Order{
		FilledQuantity: 1000,
		Executions: []*Execution{
			{Price: 14800, Quantity: 700, Ts: time.Now()},
			{Price: 14900, Quantity: 300, Ts: time.Now()},
		},
	}
	avg, ok := o.AveragePrice()
	if !ok {
		t.Fatal("AveragePrice() returned false, want true")
	}
	if avg != 14830 {
		t.Errorf("AveragePrice() = %d, want 14830", avg)
	}
}

func TestOrder_AveragePrice_NoExecutions(t *testing.T) {
	o := &Order{
		FilledQuantity: 0,
		Executions:     []*Execution{},
	}
	_, ok := o.AveragePrice()
	if ok {
		t.Error("AveragePrice() returned true, want false for no executions")
	}
}

func TestOrder_AveragePrice_NilExecutions(t *testing.T) {
	o := &Order{
		FilledQuantity: 0,
		Executions:     nil,
	}
	_, ok := o.AveragePrice()
	if ok {
		t.Error("AveragePrice() returned true, want false for nil executions")
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}
	nonTerminal := []OrderStatus{OrderStatusPending, OrderStatusPartiallyFilled}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", s)
		}
	}
}

func TestOrder_IsMarket(t *testing.T) {
	if !(&Order{LimitPrice: 0}).IsMarket() {
		t.Error("IsMarket() = false for LimitPrice 0, want true")
	}
	if (&Order{LimitPrice: 15000}).IsMarket() {
		t.Error("IsMarket() = true for LimitPrice 15000, want false")
	}
}
