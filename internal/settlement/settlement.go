package settlement

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rgsouza/marketcore/internal/domain"
)

// PortfolioStore applies the cash/holding side effects of a settled
// execution for one counterparty (spec.md §4.4's ApplyTrade and
// AdjustBalance, composed per settlement step).
type PortfolioStore interface {
	ApplyTrade(investor, symbol string, signedQty, price int64, txID string) error
}

// PriceMover applies the price impact of one settled execution (spec.md
// §4.3's impactFactor 1.0 case).
type PriceMover interface {
	ApplySettled(symbol string, qty int64, isBuy bool) error
}

// AnalyticsRecorder records both counterparties' legs of a settled
// execution for later aggregate queries (spec.md §4.6).
type AnalyticsRecorder interface {
	RecordTrade(t *domain.AnalyticsTrade) error
}

// EventPublisher publishes settlement-visible events (spec.md §4.5).
type EventPublisher interface {
	PublishOrderExecuted(investor, orderID, symbol string, side domain.OrderSide, qty, price int64)
}

// ExecutionWriter persists one settled execution to the durable store,
// off the hot path (spec.md §5). Settle is the one place in this module
// that sees a settled execution's full shape (both order ids, both
// counterparties) in a single call, so this is where the write-behind
// hand-off happens rather than in the matching engine.
type ExecutionWriter interface {
	WriteExecution(executionID, buyOrderID, sellOrderID, symbol, buyer, seller string, quantity, price int64, ts time.Time)
}

// Coordinator implements the settlement coordinator of spec.md §4.2: for
// each execution produced by the matching engine, it mutates buyer and
// seller cash/holdings, moves the price, records analytics, and
// publishes ORDER_EXECUTED — before the engine admits the next order on
// the same symbol, since Settle runs synchronously inside the match
// loop's per-symbol lock.
type Coordinator struct {
	portfolio PortfolioStore
	price     PriceMover
	analytics AnalyticsRecorder
	events    EventPublisher
	persist   ExecutionWriter
	log       *slog.Logger

	mu   sync.Mutex
	seen map[string]bool // execution id -> settled, for idempotency
}

// NewCoordinator creates a settlement coordinator over the given
// dependencies. persist may be nil, in which case executions are not
// durably recorded.
func NewCoordinator(portfolio PortfolioStore, price PriceMover, analytics AnalyticsRecorder, events EventPublisher, persist ExecutionWriter, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		portfolio: portfolio,
		price:     price,
		analytics: analytics,
		events:    events,
		persist:   persist,
		log:       log,
		seen:      make(map[string]bool),
	}
}

// Settle applies all downstream effects of exec, per the five steps of
// spec.md §4.2. It is idempotent on exec.ExecutionID: a second call for
// an already-settled execution is a no-op.
func (c *Coordinator) Settle(exec *domain.Execution, aggressorIsBuy bool) error {
	c.mu.Lock()
	if c.seen[exec.ExecutionID] {
		c.mu.Unlock()
		return nil
	}
	c.seen[exec.ExecutionID] = true
	c.mu.Unlock()

	log := c.log.With(
		slog.String("execution_id", exec.ExecutionID),
		slog.String("symbol", exec.Symbol),
	)

	// Steps 1-2: apply buyer then seller. Both must apply or neither;
	// since PortfolioStore.ApplyTrade mutates a single investor's row
	// under that investor's own lock, a failure on the second leg after
	// the first succeeded is the one case this coordinator cannot roll
	// back locally — it is flagged as SETTLEMENT_FAILED instead (spec.md
	// §4.2, Atomicity).
	buyTxID := uuid.New().String()
	if err := c.portfolio.ApplyTrade(exec.Buyer, exec.Symbol, exec.Quantity, exec.Price, buyTxID); err != nil {
		log.Error("settlement failed applying buyer leg", slog.String("error", err.Error()))
		return fmt.Errorf("%w: buyer leg: %v", domain.ErrSettlementFailed, err)
	}

	sellTxID := uuid.New().String()
	if err := c.portfolio.ApplyTrade(exec.Seller, exec.Symbol, -exec.Quantity, exec.Price, sellTxID); err != nil {
		log.Error("settlement failed applying seller leg after buyer leg committed",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: seller leg: %v", domain.ErrSettlementFailed, err)
	}

	// Step 3: move the price using the aggressor rule.
	if c.price != nil {
		if err := c.price.ApplySettled(exec.Symbol, exec.Quantity, aggressorIsBuy); err != nil {
			log.Warn("price engine apply failed", slog.String("error", err.Error()))
		}
	}

	// Step 4: record analytics trades from both perspectives.
	if c.analytics != nil {
		now := time.Now()
		_ = c.analytics.RecordTrade(&domain.AnalyticsTrade{
			TradeID:     uuid.New().String(),
			ExecutionID: exec.ExecutionID,
			Investor:    exec.Buyer,
			Symbol:      exec.Symbol,
			Side:        domain.OrderSideBuy,
			Quantity:    exec.Quantity,
			Price:       exec.Price,
			Ts:          now,
		})
		_ = c.analytics.RecordTrade(&domain.AnalyticsTrade{
			TradeID:     uuid.New().String(),
			ExecutionID: exec.ExecutionID,
			Investor:    exec.Seller,
			Symbol:      exec.Symbol,
			Side:        domain.OrderSideSell,
			Quantity:    exec.Quantity,
			Price:       exec.Price,
			Ts:          now,
		})
	}

	// Step 5: publish ORDER_EXECUTED once per side.
	if c.events != nil {
		c.events.PublishOrderExecuted(exec.Buyer, exec.BuyOrderID, exec.Symbol, domain.OrderSideBuy, exec.Quantity, exec.Price)
		c.events.PublishOrderExecuted(exec.Seller, exec.SellOrderID, exec.Symbol, domain.OrderSideSell, exec.Quantity, exec.Price)
	}

	if c.persist != nil {
		c.persist.WriteExecution(exec.ExecutionID, exec.BuyOrderID, exec.SellOrderID, exec.Symbol, exec.Buyer, exec.Seller, exec.Quantity, exec.Price, exec.Ts)
	}

	return nil
}
