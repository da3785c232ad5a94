package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rgsouza/marketcore/internal/httpmetrics"
	"github.com/rgsouza/marketcore/internal/market"
	"github.com/rgsouza/marketcore/internal/portfolio"
	"github.com/rgsouza/marketcore/internal/priceengine"
	"github.com/rgsouza/marketcore/internal/stream"
	"github.com/rgsouza/marketcore/internal/webhook"
)

// NewRouter creates a chi router with all routes registered, request
// logging, Content-Type validation, and Prometheus instrumentation.
func NewRouter(
	marketSvc *market.Service,
	portfolioSvc *portfolio.Service,
	pricesEng *priceengine.Engine,
	webhookSvc *webhook.Service,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)
	r.Use(httpmetrics.Middleware(chiRoutePattern))

	orderH := NewOrderHandler(marketSvc)
	investorH := NewInvestorHandler(portfolioSvc, pricesEng)
	stockH := NewStockHandler(pricesEng)
	webhookH := NewWebhookHandler(webhookSvc)
	analyticsH := NewAnalyticsHandler(marketSvc, pricesEng)
	eventsH := NewEventHandler(webhookSvc)
	streamH := stream.NewHandler(marketSvc, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Market routes.
	r.Post("/orders", orderH.PlaceOrder)
	r.Get("/orders/{order_id}", orderH.GetOrderStatus)
	r.Delete("/orders/{order_id}", orderH.CancelOrder)
	r.Get("/stocks/{symbol}/book", orderH.GetOrderBook)
	r.Get("/stocks/{symbol}/quote", orderH.GetQuote)
	r.Get("/market/state", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"state": string(marketSvc.GetMarketState())})
	})
	r.Post("/market/state", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			State string `json:"state"`
		}
		if err := ParseJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if err := marketSvc.SetMarketState(market.State(req.State)); err != nil {
			mapOrderError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"state": req.State})
	})

	// Investor routes.
	r.Post("/investors", investorH.Register)
	r.Get("/investors/{investor_id}", investorH.Get)
	r.Get("/investors/{investor_id}/portfolio", investorH.GetPortfolio)
	r.Get("/investors/{investor_id}/transactions", investorH.Transactions)
	r.Get("/investors/{investor_id}/performance", analyticsH.InvestorPerformance)

	// Stock and analytics routes.
	r.Get("/stocks", stockH.GetPrices)
	r.Get("/stocks/{symbol}/price", stockH.GetPrice)
	r.Get("/stocks/{symbol}/history", stockH.GetPriceHistory)
	r.Get("/stocks/{symbol}/predict", analyticsH.PredictPrice)
	r.Get("/stocks/{symbol}/volume", analyticsH.TradingVolume)
	r.Get("/analytics/top-traded", analyticsH.TopTraded)
	r.Get("/analytics/most-volatile", analyticsH.MostVolatile)
	r.Get("/analytics/market-stats", analyticsH.MarketStats)

	// Webhook routes.
	r.Post("/webhooks", webhookH.Register)
	r.Get("/webhooks", webhookH.List)
	r.Get("/webhooks/{webhook_id}", webhookH.Get)
	r.Patch("/webhooks/{webhook_id}", webhookH.Update)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)
	r.Post("/webhooks/test", webhookH.Test)

	// Generic event routes.
	r.Post("/events", eventsH.Trigger)
	r.Get("/events/types", eventsH.Types)

	// Streaming routes.
	r.Get("/stream/prices", streamH.StreamPrices)
	r.Get("/stream/market-events", streamH.StreamMarketEvents)

	return r
}

// chiRoutePattern extracts the matched chi route pattern from a request's
// routing context, so httpmetrics.Middleware can label by route shape
// instead of by raw path (which would carry one label value per symbol or
// investor id).
func chiRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

// requestLogging returns middleware that logs each request's method,
// path, status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for every POST,
// PUT, and PATCH request; no route is exempt.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
