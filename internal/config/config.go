package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// InitialStock is one entry of the INITIAL_STOCKS spec
// ("SYM:PRICE:NAME,..."), per spec.md §6's Configuration section.
type InitialStock struct {
	Symbol string
	Price  float64
	Name   string
}

// Config holds all runtime configuration for the trading core.
type Config struct {
	Port               int
	LogLevel           string
	ExpirationInterval time.Duration
	WebhookTimeout     time.Duration
	VWAPWindow         time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration

	// DBPath is the on-disk SQLite file backing the shared store (spec.md
	// §6's "single on-disk relational file").
	DBPath string
	// InitialStocks seeds the price engine at boot (spec.md §3's Stock
	// lifecycle: "created at boot from configuration and never deleted").
	InitialStocks []InitialStock
	// PriceVolatilityFactor is the volatility constant in the price
	// engine's Apply formula (spec.md §4.3, default 0.001).
	PriceVolatilityFactor float64
	// MarketOpenHour/MarketCloseHour bound the trading session in local
	// hours [0,24], per spec.md §6's "market open/close hours".
	MarketOpenHour  int
	MarketCloseHour int
	// EventBusQueueSize is the bounded per-subscriber queue depth of the
	// event bus (spec.md §4.5, default 1024).
	EventBusQueueSize int
	// MetricsPort serves the Prometheus /metrics endpoint, separately from
	// the main HTTP port so scraping never competes with request traffic.
	MetricsPort int
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	expirationInterval, err := getDuration("EXPIRATION_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid EXPIRATION_INTERVAL: %w", err)
	}

	webhookTimeout, err := getDuration("WEBHOOK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	vwapWindow, err := getDuration("VWAP_WINDOW", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid VWAP_WINDOW: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	dbPath := getStr("DB_PATH", "marketcore.db")

	initialStocks, err := parseInitialStocks(getStr("INITIAL_STOCKS", "AAPL:150.00:Apple Inc.,GOOG:2800.00:Alphabet Inc.,TSLA:250.00:Tesla Inc."))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_STOCKS: %w", err)
	}

	volatility, err := getFloat("PRICE_VOLATILITY_FACTOR", 0.001)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_VOLATILITY_FACTOR: %w", err)
	}
	if volatility < 0 {
		return nil, fmt.Errorf("invalid PRICE_VOLATILITY_FACTOR: must be >= 0")
	}

	openHour, err := getInt("MARKET_OPEN_HOUR", 9)
	if err != nil {
		return nil, fmt.Errorf("invalid MARKET_OPEN_HOUR: %w", err)
	}
	closeHour, err := getInt("MARKET_CLOSE_HOUR", 17)
	if err != nil {
		return nil, fmt.Errorf("invalid MARKET_CLOSE_HOUR: %w", err)
	}
	if openHour < 0 || openHour > 24 || closeHour < 0 || closeHour > 24 {
		return nil, fmt.Errorf("MARKET_OPEN_HOUR and MARKET_CLOSE_HOUR must be in [0,24]")
	}

	eventBusQueueSize, err := getInt("EVENTBUS_QUEUE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid EVENTBUS_QUEUE_SIZE: %w", err)
	}

	metricsPort, err := getInt("METRICS_PORT", 9090)
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_PORT: %w", err)
	}

	return &Config{
		Port:                  port,
		LogLevel:              logLevel,
		ExpirationInterval:    expirationInterval,
		WebhookTimeout:        webhookTimeout,
		VWAPWindow:            vwapWindow,
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		IdleTimeout:           idleTimeout,
		ShutdownTimeout:       shutdownTimeout,
		DBPath:                dbPath,
		InitialStocks:         initialStocks,
		PriceVolatilityFactor: volatility,
		MarketOpenHour:        openHour,
		MarketCloseHour:       closeHour,
		EventBusQueueSize:     eventBusQueueSize,
		MetricsPort:           metricsPort,
	}, nil
}

// parseInitialStocks parses "SYM:PRICE:NAME,SYM:PRICE:NAME,..." into a
// list of InitialStock, per spec.md §6.
func parseInitialStocks(spec string) ([]InitialStock, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	entries := strings.Split(spec, ",")
	out := make([]InitialStock, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("entry %q must be SYM:PRICE:NAME", entry)
		}
		symbol := strings.ToUpper(strings.TrimSpace(parts[0]))
		if symbol == "" {
			return nil, fmt.Errorf("entry %q has an empty symbol", entry)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q has an invalid price: %w", entry, err)
		}
		if price < 0.01 {
			return nil, fmt.Errorf("entry %q price must be >= 0.01", entry)
		}
		name := strings.TrimSpace(parts[2])
		if name == "" {
			return nil, fmt.Errorf("entry %q has an empty name", entry)
		}
		out = append(out, InitialStock{Symbol: symbol, Price: price, Name: name})
	}
	return out, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
