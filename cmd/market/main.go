package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rgsouza/marketcore/internal/analytics"
	"github.com/rgsouza/marketcore/internal/config"
	"github.com/rgsouza/marketcore/internal/domain"
	"github.com/rgsouza/marketcore/internal/eventbus"
	"github.com/rgsouza/marketcore/internal/handler"
	"github.com/rgsouza/marketcore/internal/httpmetrics"
	"github.com/rgsouza/marketcore/internal/market"
	"github.com/rgsouza/marketcore/internal/matching"
	"github.com/rgsouza/marketcore/internal/persist"
	"github.com/rgsouza/marketcore/internal/portfolio"
	"github.com/rgsouza/marketcore/internal/priceengine"
	"github.com/rgsouza/marketcore/internal/settlement"
	"github.com/rgsouza/marketcore/internal/webhook"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/health", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	dbClient, err := persist.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbClient.Close()

	writer := persist.NewWriter(dbClient, 0, logger)
	history := persist.NewPriceHistoryStore(dbClient)

	registry := domain.NewSymbolRegistry()
	orders := matching.NewMemoryOrderStore()
	bus := eventbus.NewBus(cfg.EventBusQueueSize)
	pub := eventbus.NewPublisher(bus)
	webhookSvc := webhook.NewService(webhook.NewStore(), cfg.WebhookTimeout, logger, persist.WebhookWriter{Writer: writer})
	router := market.NewEventRouter(pub, webhookSvc, persist.StateWriter{Writer: writer})

	priceEngine := priceengine.NewEngine(cfg.PriceVolatilityFactor, history, router)

	portStore := portfolio.NewStore()
	ledger := portfolio.NewTransactionLog()
	portSvc := portfolio.NewService(portStore, ledger, registry, router, persist.PortfolioWriter{Writer: writer})

	rec := analytics.NewRecorder(persist.AnalyticsWriter{Writer: writer})
	coord := settlement.NewCoordinator(portSvc, priceEngine, rec, router, persist.ExecutionLegWriter{Writer: writer}, logger)

	engine := matching.NewEngine(orders, coord, router, priceEngine, registry)
	expiry := matching.NewExpiryManager(cfg.ExpirationInterval, engine, router)

	marketSvc := market.NewService(engine, expiry, orders, priceEngine, portSvc, rec, bus, router)

	for _, stock := range cfg.InitialStocks {
		priceEngine.InitializeStock(stock.Symbol, stock.Name, stock.Price)
	}
	hour := time.Now().Hour()
	if hour >= cfg.MarketOpenHour && hour < cfg.MarketCloseHour {
		marketSvc.SetMarketState(market.StateOpen)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer.Start(ctx)
	marketSvc.StartExpiry(ctx)
	go runSessionClock(ctx, marketSvc, cfg, logger)
	go runPredictionTicker(ctx, marketSvc, cfg, logger)
	go runTopStocksTicker(ctx, marketSvc, router, cfg)

	httpRouter := handler.NewRouter(marketSvc, portSvc, priceEngine, webhookSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpRouter,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	metricsAddr := fmt.Sprintf(":%d", cfg.MetricsPort)
	metricsSrv := &http.Server{
		Addr:    metricsAddr,
		Handler: httpmetrics.Handler(),
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	go func() {
		logger.Info("metrics server starting", slog.String("addr", metricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}

// runSessionClock flips market state between OPEN and CLOSED at the
// configured hour boundaries, checking once a minute rather than
// scheduling exact wakeups, so a transition can land up to a minute
// after the hour boundary.
func runSessionClock(ctx context.Context, svc *market.Service, cfg *config.Config, log *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hour := time.Now().Hour()
			open := hour >= cfg.MarketOpenHour && hour < cfg.MarketCloseHour
			want := market.StateClosed
			if open {
				want = market.StateOpen
			}
			if svc.GetMarketState() == want {
				continue
			}
			if err := svc.SetMarketState(want); err != nil {
				log.Error("session clock failed to set market state", slog.String("error", err.Error()))
			} else {
				log.Info("market state transitioned", slog.String("state", string(want)))
			}
		}
	}
}

// runPredictionTicker periodically recomputes a price prediction per
// listed symbol so PREDICTION_AVAILABLE webhooks fire without a client
// having to poll for one.
func runPredictionTicker(ctx context.Context, svc *market.Service, cfg *config.Config, log *slog.Logger) {
	ticker := time.NewTicker(cfg.VWAPWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, stock := range cfg.InitialStocks {
				if err := svc.RecordPrediction(stock.Symbol, 60); err != nil {
					log.Warn("prediction failed", slog.String("symbol", stock.Symbol), slog.String("error", err.Error()))
				}
			}
		}
	}
}

// runTopStocksTicker periodically recomputes the most-traded symbols and
// publishes TOP_STOCKS_UPDATED, so subscribers don't have to poll
// GET /analytics/top-traded for the leaderboard to move.
func runTopStocksTicker(ctx context.Context, svc *market.Service, router *market.EventRouter, cfg *config.Config) {
	ticker := time.NewTicker(cfg.VWAPWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries := svc.TopTraded(10, 24*time.Hour)
			stocks := make([]map[string]any, len(entries))
			for i, e := range entries {
				stocks[i] = map[string]any{
					"symbol":       e.Symbol,
					"total_volume": e.TotalVolume,
					"trade_count":  e.TradeCount,
				}
			}
			router.PublishTopStocksUpdated(map[string]any{"stocks": stocks})
		}
	}
}
