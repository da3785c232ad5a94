package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestGetPrice_ReturnsListedStock(t *testing.T) {
	h := newHarness(t)
	stockH := NewStockHandler(h.prices)

	r := chi.NewRouter()
	r.Get("/stocks/{symbol}/price", stockH.GetPrice)

	req := httptest.NewRequest(http.MethodGet, "/stocks/AAPL/price", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp stockResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", resp.Symbol)
	}
}

func TestGetPrice_UnknownSymbolIsNotFound(t *testing.T) {
	h := newHarness(t)
	stockH := NewStockHandler(h.prices)

	r := chi.NewRouter()
	r.Get("/stocks/{symbol}/price", stockH.GetPrice)

	req := httptest.NewRequest(http.MethodGet, "/stocks/ZZZZ/price", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetPrices_ListsEveryStock(t *testing.T) {
	h := newHarness(t)
	stockH := NewStockHandler(h.prices)
	h.prices.InitializeStock("GOOG", "Alphabet Inc.", 2800.00)

	req := httptest.NewRequest(http.MethodGet, "/stocks", nil)
	rec := httptest.NewRecorder()
	stockH.GetPrices(rec, req)

	var resp []stockResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("len(resp) = %d, want 2", len(resp))
	}
}
