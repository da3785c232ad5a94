package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRegister_CreatesInvestor(t *testing.T) {
	h := newHarness(t)
	invH := NewInvestorHandler(h.portfolio, h.prices)

	body, _ := json.Marshal(registerRequest{
		Name:           "Ada Lovelace",
		Email:          "ada@example.com",
		InitialBalance: 5000.00,
	})
	req := httptest.NewRequest(http.MethodPost, "/investors", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	invH.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body = %s", rec.Code, rec.Body.String())
	}

	var resp investorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Balance != 5000.00 {
		t.Errorf("balance = %v, want 5000.00", resp.Balance)
	}
}

func TestRegister_RejectsDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	invH := NewInvestorHandler(h.portfolio, h.prices)

	_, err := h.portfolio.Register("First", "dup@example.com", 100)
	if err != nil {
		t.Fatalf("seed Register() error = %v", err)
	}

	body, _ := json.Marshal(registerRequest{Name: "Second", Email: "dup@example.com", InitialBalance: 100})
	req := httptest.NewRequest(http.MethodPost, "/investors", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	invH.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetPortfolio_EmptyForFreshInvestor(t *testing.T) {
	h := newHarness(t)
	invH := NewInvestorHandler(h.portfolio, h.prices)
	inv := seedInvestor(t, h, 1000)

	r := chi.NewRouter()
	r.Get("/investors/{investor_id}/portfolio", invH.GetPortfolio)

	req := httptest.NewRequest(http.MethodGet, "/investors/"+inv.InvestorID+"/portfolio", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp []holdingResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 0 {
		t.Errorf("expected no holdings, got %v", resp)
	}
}

func TestGet_NotFound(t *testing.T) {
	h := newHarness(t)
	invH := NewInvestorHandler(h.portfolio, h.prices)

	r := chi.NewRouter()
	r.Get("/investors/{investor_id}", invH.Get)

	req := httptest.NewRequest(http.MethodGet, "/investors/does-not-exist", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
