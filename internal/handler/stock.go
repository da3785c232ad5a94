package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/priceengine"
)

// StockHandler handles HTTP requests for price and price-history
// endpoints.
type StockHandler struct {
	prices *priceengine.Engine
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(prices *priceengine.Engine) *StockHandler {
	return &StockHandler{prices: prices}
}

// stockResponse is the JSON shape of one symbol's current quote.
type stockResponse struct {
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Current     float64 `json:"current"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Volume      int64   `json:"volume"`
	LastUpdated string  `json:"last_updated"`
}

func buildStockResponse(s *domain.Stock) stockResponse {
	return stockResponse{
		Symbol:      s.Symbol,
		Name:        s.Name,
		Current:     s.Current,
		Open:        s.Open,
		High:        s.High,
		Low:         s.Low,
		Volume:      s.Volume,
		LastUpdated: s.LastUpdated.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
}

// GetPrice handles GET /stocks/{symbol}/price.
func (h *StockHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	stock, err := h.prices.GetPrice(symbol)
	if err != nil {
		mapPriceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildStockResponse(stock))
}

// GetPrices handles GET /stocks.
func (h *StockHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	stocks := h.prices.GetPrices()
	out := make([]stockResponse, len(stocks))
	for i, s := range stocks {
		out[i] = buildStockResponse(s)
	}
	WriteJSON(w, http.StatusOK, out)
}

// pricePointResponse is the JSON shape of one price-history row.
type pricePointResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Ts     string  `json:"ts"`
}

// GetPriceHistory handles GET /stocks/{symbol}/history.
func (h *StockHandler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	limit := queryInt(r, "limit", 0)
	start := queryTime(r, "start")
	end := queryTime(r, "end")

	points, err := h.prices.GetPriceHistory(symbol, start, end, limit)
	if err != nil {
		mapPriceError(w, err)
		return
	}

	out := make([]pricePointResponse, len(points))
	for i, p := range points {
		out[i] = pricePointResponse{
			Symbol: p.Symbol,
			Price:  p.Price,
			Ts:     p.Ts.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

// mapPriceError maps domain errors to HTTP responses for price endpoints.
func mapPriceError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrSymbolNotFound) {
		WriteError(w, http.StatusNotFound, "symbol_not_found", err.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
}
