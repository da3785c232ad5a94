package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/market"
	"github.com/rgsouza/marketcore/internal/matching"
)

// OrderHandler handles HTTP requests for order and book endpoints.
type OrderHandler struct {
	market *market.Service
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(market *market.Service) *OrderHandler {
	return &OrderHandler{market: market}
}

// placeOrderRequest is the JSON request body for POST /orders.
type placeOrderRequest struct {
	Investor   string  `json:"investor"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   int64   `json:"quantity"`
	LimitPrice float64 `json:"limit_price"`
}

// placeOrderResponse is the JSON response for POST /orders.
type placeOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PlaceOrder handles POST /orders.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	limitCents, err := domain.DollarsToCents(req.LimitPrice)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "limit_price must have at most 2 decimal places")
		return
	}

	result, err := h.market.PlaceOrder(req.Investor, req.Symbol, domain.OrderSide(req.Side), req.Quantity, limitCents)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, placeOrderResponse{
		OrderID: result.OrderID,
		Status:  string(result.Status),
		Message: result.Message,
	})
}

// CancelOrder handles DELETE /orders/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	investor := r.URL.Query().Get("investor")

	if err := h.market.CancelOrder(orderID, investor); err != nil {
		mapOrderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// orderStatusResponse is the JSON response for GET /orders/{order_id}.
type orderStatusResponse struct {
	OrderID   string  `json:"order_id"`
	Status    string  `json:"status"`
	Filled    int64   `json:"filled"`
	Remaining int64   `json:"remaining"`
	AvgPrice  float64 `json:"avg_price"`
}

// GetOrderStatus handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	status, err := h.market.GetOrderStatus(orderID)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, orderStatusResponse{
		OrderID:   status.OrderID,
		Status:    string(status.Status),
		Filled:    status.Filled,
		Remaining: status.Remaining,
		AvgPrice:  domain.CentsToDollars(status.AvgPrice),
	})
}

// priceLevelResponse is one aggregated price level in a book response.
type priceLevelResponse struct {
	Price      float64 `json:"price"`
	Quantity   int64   `json:"quantity"`
	OrderCount int     `json:"order_count"`
}

// orderBookResponse is the JSON response for GET /stocks/{symbol}/book.
type orderBookResponse struct {
	Symbol string                `json:"symbol"`
	Bids   []priceLevelResponse  `json:"bids"`
	Asks   []priceLevelResponse  `json:"asks"`
}

// GetOrderBook handles GET /stocks/{symbol}/book.
func (h *OrderHandler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	limit := queryInt(r, "limit", 0)

	bids, asks := h.market.GetOrderBook(symbol, limit)
	WriteJSON(w, http.StatusOK, orderBookResponse{
		Symbol: symbol,
		Bids:   buildPriceLevels(bids),
		Asks:   buildPriceLevels(asks),
	})
}

func buildPriceLevels(levels []matching.PriceLevel) []priceLevelResponse {
	out := make([]priceLevelResponse, len(levels))
	for i, l := range levels {
		out[i] = priceLevelResponse{
			Price:      domain.CentsToDollars(l.Price),
			Quantity:   l.Quantity,
			OrderCount: l.OrderCount,
		}
	}
	return out
}

// quoteResponse is the JSON response for GET /stocks/{symbol}/quote.
type quoteResponse struct {
	Symbol            string               `json:"symbol"`
	Side              string               `json:"side"`
	QuantityRequested int64                `json:"quantity_requested"`
	QuantityAvailable int64                `json:"quantity_available"`
	FullyFillable     bool                 `json:"fully_fillable"`
	EstimatedAvgPrice float64              `json:"estimated_avg_price"`
	EstimatedTotal    float64              `json:"estimated_total"`
	Levels            []priceLevelResponse `json:"levels"`
}

// GetQuote handles GET /stocks/{symbol}/quote.
func (h *OrderHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	side := r.URL.Query().Get("side")
	qty, err := strconv.ParseInt(r.URL.Query().Get("quantity"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "quantity must be an integer")
		return
	}

	quote, err := h.market.GetQuote(symbol, domain.OrderSide(side), qty)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	levels := make([]priceLevelResponse, len(quote.Levels))
	for i, l := range quote.Levels {
		levels[i] = priceLevelResponse{Price: domain.CentsToDollars(l.Price), Quantity: l.Quantity}
	}

	WriteJSON(w, http.StatusOK, quoteResponse{
		Symbol:            symbol,
		Side:              side,
		QuantityRequested: quote.QuantityRequested,
		QuantityAvailable: quote.QuantityAvailable,
		FullyFillable:     quote.FullyFillable,
		EstimatedAvgPrice: domain.CentsToDollars(quote.EstimatedAvgPrice),
		EstimatedTotal:    domain.CentsToDollars(quote.EstimatedTotal),
		Levels:            levels,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// mapOrderError maps domain errors to HTTP responses for order endpoints.
func mapOrderError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvestorNotFound):
		WriteError(w, http.StatusNotFound, "investor_not_found", err.Error())
	case errors.Is(err, domain.ErrSymbolNotFound):
		WriteError(w, http.StatusNotFound, "symbol_not_found", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, domain.ErrDuplicateOrderID):
		WriteError(w, http.StatusConflict, "duplicate_order_id", err.Error())
	case errors.Is(err, domain.ErrOrderNotCancelable):
		WriteError(w, http.StatusConflict, "order_not_cancelable", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		WriteError(w, http.StatusConflict, "insufficient_funds", err.Error())
	case errors.Is(err, domain.ErrInsufficientShares):
		WriteError(w, http.StatusConflict, "insufficient_shares", err.Error())
	case errors.Is(err, domain.ErrNoLiquidity):
		WriteError(w, http.StatusConflict, "no_liquidity", err.Error())
	case errors.Is(err, domain.ErrMarketClosed):
		WriteError(w, http.StatusConflict, "market_closed", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
