// Package httpmetrics exposes Prometheus instrumentation for the HTTP
// surface and the matching, event-bus and webhook subsystems behind it.
package httpmetrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestDuration tracks request latency by method, route, and
	// status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketcore_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "route", "status"},
	)

	// OrdersTotal counts orders admitted, by side and symbol.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketcore_orders_total",
			Help: "Total number of orders admitted, by side and symbol",
		},
		[]string{"side", "symbol"},
	)

	// ExecutionsTotal counts settled executions, by symbol.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketcore_executions_total",
			Help: "Total number of settled executions, by symbol",
		},
		[]string{"symbol"},
	)

	// OrderBookDepth tracks resting order count per symbol and side.
	OrderBookDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketcore_orderbook_depth",
			Help: "Current order book depth by symbol and side",
		},
		[]string{"symbol", "side"},
	)

	// WebhookDeliveriesTotal counts webhook delivery attempts by outcome.
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketcore_webhook_deliveries_total",
			Help: "Total webhook delivery attempts by outcome (delivered, failed)",
		},
		[]string{"outcome"},
	)

	// EventBusOverflowsTotal counts subscribers dropped for falling behind.
	EventBusOverflowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketcore_eventbus_overflows_total",
			Help: "Total number of event bus subscribers dropped for overflow",
		},
	)
)

// statusWriter wraps http.ResponseWriter to capture the status code, the
// same way the request-logging middleware does.
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

// Middleware records HTTPRequestDuration for every request. route should be
// the matched chi route pattern (via chi.RouteContext), not the raw path, so
// cardinality stays bounded regardless of path parameters.
func Middleware(routePattern func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if routePattern != nil {
				if p := routePattern(r); p != "" {
					route = p
				}
			}
			HTTPRequestDuration.WithLabelValues(
				r.Method,
				route,
				strconv.Itoa(ww.status),
			).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler returns the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
