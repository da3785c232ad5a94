package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rgsouza/marketcore/internal/analytics"
	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/market"
	"github.com/rgsouza/marketcore/internal/priceengine"
)

// AnalyticsHandler handles HTTP requests for the analytics surface:
// top-traded stocks, volatility ranking, market-wide stats, per-investor
// performance, price prediction, and trading volume.
type AnalyticsHandler struct {
	market *market.Service
	prices *priceengine.Engine
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(market *market.Service, prices *priceengine.Engine) *AnalyticsHandler {
	return &AnalyticsHandler{market: market, prices: prices}
}

func queryWindow(r *http.Request, def time.Duration) time.Duration {
	raw := r.URL.Query().Get("window_minutes")
	if raw == "" {
		return def
	}
	mins := queryInt(r, "window_minutes", 0)
	if mins <= 0 {
		return def
	}
	return time.Duration(mins) * time.Minute
}

// topTradedResponse is one ranked row of GET /analytics/top-traded.
type topTradedResponse struct {
	Symbol      string `json:"symbol"`
	TotalVolume int64  `json:"total_volume"`
	TradeCount  int    `json:"trade_count"`
}

// TopTraded handles GET /analytics/top-traded.
func (h *AnalyticsHandler) TopTraded(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	window := queryWindow(r, 24*time.Hour)

	entries := h.market.TopTraded(limit, window)
	out := make([]topTradedResponse, len(entries))
	for i, e := range entries {
		out[i] = topTradedResponse{Symbol: e.Symbol, TotalVolume: e.TotalVolume, TradeCount: e.TradeCount}
	}
	WriteJSON(w, http.StatusOK, out)
}

// volatilityResponse is one ranked row of GET /analytics/most-volatile.
type volatilityResponse struct {
	Symbol     string  `json:"symbol"`
	Volatility float64 `json:"volatility"`
}

// MostVolatile handles GET /analytics/most-volatile.
func (h *AnalyticsHandler) MostVolatile(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	window := queryWindow(r, 24*time.Hour)

	entries := h.market.MostVolatile(limit, window)
	out := make([]volatilityResponse, len(entries))
	for i, e := range entries {
		out[i] = volatilityResponse{Symbol: e.Symbol, Volatility: e.Volatility}
	}
	WriteJSON(w, http.StatusOK, out)
}

// marketStatsResponse is the JSON response for GET /analytics/market-stats.
type marketStatsResponse struct {
	TradeCount        int     `json:"trade_count"`
	TotalVolume       int64   `json:"total_volume"`
	DistinctInvestors int     `json:"distinct_investors"`
	DistinctSymbols   int     `json:"distinct_symbols"`
	Trend             float64 `json:"trend"`
	Sentiment         string  `json:"sentiment"`
}

// MarketStats handles GET /analytics/market-stats.
func (h *AnalyticsHandler) MarketStats(w http.ResponseWriter, r *http.Request) {
	stats := h.market.MarketStats()
	WriteJSON(w, http.StatusOK, marketStatsResponse{
		TradeCount:        stats.TradeCount,
		TotalVolume:       stats.TotalVolume,
		DistinctInvestors: stats.DistinctInvestors,
		DistinctSymbols:   stats.DistinctSymbols,
		Trend:             stats.Trend,
		Sentiment:         string(stats.Sentiment),
	})
}

// symbolPnLResponse is one row of investorPerformanceResponse.BySymbol.
type symbolPnLResponse struct {
	Symbol        string  `json:"symbol"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// investorPerformanceResponse is the JSON response for
// GET /investors/{investor_id}/performance.
type investorPerformanceResponse struct {
	BySymbol   []symbolPnLResponse `json:"by_symbol"`
	WinRate    float64             `json:"win_rate"`
	RiskLevel  string              `json:"risk_level"`
	TradeCount int                 `json:"trade_count"`
	AvgTrade   float64             `json:"avg_trade"`
}

// InvestorPerformance handles GET /investors/{investor_id}/performance.
func (h *AnalyticsHandler) InvestorPerformance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "investor_id")

	perf, err := h.market.InvestorPerformance(id)
	if err != nil {
		mapInvestorError(w, err)
		return
	}

	bySymbol := make([]symbolPnLResponse, len(perf.BySymbol))
	for i, p := range perf.BySymbol {
		bySymbol[i] = symbolPnLResponse{
			Symbol:        p.Symbol,
			RealizedPnL:   domain.CentsToDollars(p.RealizedPnL),
			UnrealizedPnL: domain.CentsToDollars(p.UnrealizedPnL),
		}
	}
	WriteJSON(w, http.StatusOK, investorPerformanceResponse{
		BySymbol:   bySymbol,
		WinRate:    perf.WinRate,
		RiskLevel:  string(perf.RiskLevel),
		TradeCount: perf.TradeCount,
		AvgTrade:   domain.CentsToDollars(int64(perf.AvgTrade)),
	})
}

// predictionResponse is the JSON response for GET /stocks/{symbol}/predict.
type predictionResponse struct {
	Symbol         string  `json:"symbol"`
	PredictedPrice float64 `json:"predicted_price"`
	Confidence     float64 `json:"confidence"`
	Trend          string  `json:"trend"`
}

// PredictPrice handles GET /stocks/{symbol}/predict.
func (h *AnalyticsHandler) PredictPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	horizon := queryFloat(r, "horizon_minutes", 60)

	history, err := h.prices.GetPriceHistory(symbol, nil, nil, 20)
	if err != nil {
		mapPriceError(w, err)
		return
	}

	// GetPriceHistory returns newest first; PredictPrice fits oldest first.
	chrono := make([]*domain.PricePoint, len(history))
	for i, p := range history {
		chrono[len(history)-1-i] = p
	}
	pred := analytics.PredictPrice(chrono, horizon)
	WriteJSON(w, http.StatusOK, predictionResponse{
		Symbol:         symbol,
		PredictedPrice: pred.PredictedPrice,
		Confidence:     pred.Confidence,
		Trend:          string(pred.Trend),
	})
}

// volumeBucketResponse is one bucket of GET /stocks/{symbol}/volume.
type volumeBucketResponse struct {
	Ts       string  `json:"ts"`
	Volume   int64   `json:"volume"`
	Count    int     `json:"count"`
	AvgPrice float64 `json:"avg_price"`
}

// TradingVolume handles GET /stocks/{symbol}/volume.
func (h *AnalyticsHandler) TradingVolume(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	intervalMs := int64(queryInt(r, "interval_ms", 60000))

	end := time.Now()
	start := end.Add(-24 * time.Hour)
	if s := queryTime(r, "start"); s != nil {
		start = *s
	}
	if e := queryTime(r, "end"); e != nil {
		end = *e
	}

	buckets := h.market.TradingVolume(symbol, start, end, intervalMs)
	out := make([]volumeBucketResponse, len(buckets))
	for i, b := range buckets {
		out[i] = volumeBucketResponse{
			Ts:       b.Ts.UTC().Format(time.RFC3339),
			Volume:   b.Volume,
			Count:    b.Count,
			AvgPrice: domain.CentsToDollars(int64(b.AvgPrice)),
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}
