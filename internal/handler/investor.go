package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/portfolio"
	"github.com/rgsouza/marketcore/internal/priceengine"
)

// InvestorHandler handles HTTP requests for investor registration and
// portfolio endpoints.
type InvestorHandler struct {
	portfolio *portfolio.Service
	prices    *priceengine.Engine
}

// NewInvestorHandler creates a new InvestorHandler.
func NewInvestorHandler(portfolio *portfolio.Service, prices *priceengine.Engine) *InvestorHandler {
	return &InvestorHandler{portfolio: portfolio, prices: prices}
}

// registerRequest is the JSON request body for POST /investors.
type registerRequest struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	InitialBalance float64 `json:"initial_balance"`
}

// investorResponse is the JSON response shape for an investor record.
type investorResponse struct {
	InvestorID string    `json:"investor_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Balance    float64   `json:"balance"`
	CreatedAt  time.Time `json:"created_at"`
}

// Register handles POST /investors.
func (h *InvestorHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	inv, err := h.portfolio.Register(req.Name, req.Email, req.InitialBalance)
	if err != nil {
		mapInvestorError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildInvestorResponse(inv))
}

// Get handles GET /investors/{investor_id}.
func (h *InvestorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "investor_id")

	inv, err := h.portfolio.Get(id)
	if err != nil {
		mapInvestorError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildInvestorResponse(inv))
}

func buildInvestorResponse(inv *domain.Investor) investorResponse {
	inv.Mu.Lock()
	defer inv.Mu.Unlock()
	return investorResponse{
		InvestorID: inv.InvestorID,
		Name:       inv.Name,
		Email:      inv.Email,
		Balance:    domain.CentsToDollars(inv.Balance),
		CreatedAt:  inv.CreatedAt,
	}
}

// holdingResponse is the JSON shape of one GetPortfolio position.
type holdingResponse struct {
	Symbol       string  `json:"symbol"`
	Quantity     int64   `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	CurrentValue float64 `json:"current_value"`
	ProfitLoss   float64 `json:"profit_loss"`
}

// GetPortfolio handles GET /investors/{investor_id}/portfolio.
func (h *InvestorHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "investor_id")

	currentPrices := make(map[string]int64)
	for _, quote := range h.prices.GetPrices() {
		cents, err := domain.DollarsToCents(quote.Current)
		if err == nil {
			currentPrices[quote.Symbol] = cents
		}
	}

	views, err := h.portfolio.GetPortfolio(id, currentPrices)
	if err != nil {
		mapInvestorError(w, err)
		return
	}

	out := make([]holdingResponse, len(views))
	for i, v := range views {
		out[i] = holdingResponse{
			Symbol:       v.Symbol,
			Quantity:     v.Quantity,
			AvgPrice:     domain.CentsToDollars(v.AvgPrice),
			CurrentPrice: domain.CentsToDollars(v.CurrentPrice),
			CurrentValue: domain.CentsToDollars(v.CurrentValue),
			ProfitLoss:   domain.CentsToDollars(v.ProfitLoss),
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

// transactionResponse is the JSON shape of one ledger row.
type transactionResponse struct {
	TransactionID string    `json:"transaction_id"`
	Investor      string    `json:"investor"`
	Symbol        string    `json:"symbol"`
	Type          string    `json:"type"`
	Quantity      int64     `json:"quantity"`
	Price         float64   `json:"price"`
	Total         float64   `json:"total"`
	Ts            time.Time `json:"ts"`
}

// Transactions handles GET /investors/{investor_id}/transactions.
func (h *InvestorHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "investor_id")
	limit := queryInt(r, "limit", 0)
	start := queryTime(r, "start")
	end := queryTime(r, "end")

	txs, err := h.portfolio.Transactions(id, limit, start, end)
	if err != nil {
		mapInvestorError(w, err)
		return
	}

	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = transactionResponse{
			TransactionID: tx.TransactionID,
			Investor:      tx.Investor,
			Symbol:        tx.Symbol,
			Type:          string(tx.Type),
			Quantity:      tx.Quantity,
			Price:         domain.CentsToDollars(tx.Price),
			Total:         domain.CentsToDollars(tx.Total),
			Ts:            tx.Ts,
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

func queryTime(r *http.Request, key string) *time.Time {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

// mapInvestorError maps domain errors to HTTP responses for investor
// endpoints.
func mapInvestorError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvestorNotFound):
		WriteError(w, http.StatusNotFound, "investor_not_found", err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "email_taken", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		WriteError(w, http.StatusConflict, "insufficient_funds", err.Error())
	case errors.Is(err, domain.ErrInsufficientShares):
		WriteError(w, http.StatusConflict, "insufficient_shares", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
