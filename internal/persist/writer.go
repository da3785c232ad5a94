package persist

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rgsouza/marketcore/internal/domain"
)

// DefaultQueueSize is the default depth of the write-behind queue.
const DefaultQueueSize = 4096

// Writer applies records to the database asynchronously so the matching
// engine's per-symbol lock is never held across a disk write (spec.md
// §5's rule that suspension points never happen inside a held lock).
// Grounded on the same bounded-non-blocking-queue idiom as the event
// bus: a full queue drops the write rather than blocking the caller.
type Writer struct {
	db    *gorm.DB
	queue chan func(*gorm.DB) error
	log   *slog.Logger
}

// NewWriter creates a Writer over client with a queue of the given
// depth (DefaultQueueSize if depth <= 0).
func NewWriter(client *Client, depth int, log *slog.Logger) *Writer {
	if depth <= 0 {
		depth = DefaultQueueSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Writer{
		db:    client.DB(),
		queue: make(chan func(*gorm.DB) error, depth),
		log:   log,
	}
}

// Start launches the background goroutine draining the queue. It stops
// when ctx is canceled; queued writes made before cancellation are not
// guaranteed to drain.
func (w *Writer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case write := <-w.queue:
				if err := write(w.db); err != nil {
					w.log.Error("persist write failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// enqueue submits write without blocking. On a full queue the write is
// dropped and logged rather than stalling the caller's hot path.
func (w *Writer) enqueue(write func(*gorm.DB) error) {
	select {
	case w.queue <- write:
	default:
		w.log.Warn("persist queue full, dropping write")
	}
}

// WriteOrder persists o's current state.
func (w *Writer) WriteOrder(r OrderRecord) {
	w.enqueue(func(db *gorm.DB) error {
		return db.Save(&r).Error
	})
}

// WriteExecution persists one immutable execution row.
func (w *Writer) WriteExecution(r ExecutionRecord) {
	w.enqueue(func(db *gorm.DB) error {
		return db.Create(&r).Error
	})
}

// ExecutionLegWriter adapts a Writer to settlement.ExecutionWriter's
// narrow by-value signature, so the settlement package never needs to
// import persist's record types.
type ExecutionLegWriter struct {
	Writer *Writer
}

// WriteExecution implements settlement.ExecutionWriter.
func (a ExecutionLegWriter) WriteExecution(executionID, buyOrderID, sellOrderID, symbol, buyer, seller string, quantity, price int64, ts time.Time) {
	a.Writer.WriteExecution(ExecutionRecord{
		ID:          executionID,
		BuyOrderID:  buyOrderID,
		SellOrderID: sellOrderID,
		Symbol:      symbol,
		Quantity:    quantity,
		Price:       price,
		Buyer:       buyer,
		Seller:      seller,
		Ts:          ts,
	})
}

// StateWriter adapts a Writer to market.RecordWriter, converting the
// domain types the event router sees at publish time into this
// package's record structs so market never imports persist.
type StateWriter struct {
	Writer *Writer
}

// WriteOrder implements market.RecordWriter.
func (a StateWriter) WriteOrder(o *domain.Order) {
	a.Writer.WriteOrder(OrderRecord{
		ID:                o.ID,
		Investor:          o.Investor,
		Symbol:            o.Symbol,
		Side:              string(o.Side),
		Quantity:          o.Quantity,
		LimitPrice:        o.LimitPrice,
		FilledQuantity:    o.FilledQuantity,
		RemainingQuantity: o.RemainingQuantity,
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		ExpiresAt:         o.ExpiresAt,
	})
}

// WriteBalance implements market.RecordWriter.
func (a StateWriter) WriteBalance(investor string, balance int64) {
	a.Writer.UpdateInvestorBalance(investor, balance)
}

// WriteTransaction implements market.RecordWriter.
func (a StateWriter) WriteTransaction(tx *domain.Transaction) {
	a.Writer.WriteTransaction(TransactionRecord{
		ID:       tx.TransactionID,
		Investor: tx.Investor,
		Symbol:   tx.Symbol,
		Type:     string(tx.Type),
		Quantity: tx.Quantity,
		Price:    tx.Price,
		Total:    tx.Total,
		Ts:       tx.Ts,
	})
}

// PortfolioWriter adapts a Writer to portfolio.PersistWriter, converting
// domain.Investor and holding fields into this package's record structs
// so the portfolio package never imports persist.
type PortfolioWriter struct {
	Writer *Writer
}

// WriteInvestor implements portfolio.PersistWriter.
func (a PortfolioWriter) WriteInvestor(inv *domain.Investor) {
	a.Writer.WriteInvestor(InvestorRecord{
		ID:        inv.InvestorID,
		Name:      inv.Name,
		Email:     inv.Email,
		Balance:   inv.Balance,
		CreatedAt: inv.CreatedAt,
	})
}

// WriteHolding implements portfolio.PersistWriter.
func (a PortfolioWriter) WriteHolding(investor, symbol string, quantity, avgPrice int64) {
	a.Writer.WriteHolding(HoldingRecord{
		Investor: investor,
		Symbol:   symbol,
		Quantity: quantity,
		AvgPrice: avgPrice,
	})
}

// WriteInvestor persists an investor's full record, including the
// initial snapshot at registration.
func (w *Writer) WriteInvestor(r InvestorRecord) {
	w.enqueue(func(db *gorm.DB) error {
		return db.Save(&r).Error
	})
}

// UpdateInvestorBalance updates only the balance column for id, so a
// balance-changed event (which carries no Name/Email) cannot clobber the
// rest of an investor's row.
func (w *Writer) UpdateInvestorBalance(id string, balance int64) {
	w.enqueue(func(db *gorm.DB) error {
		return db.Model(&InvestorRecord{}).Where("investor_id = ?", id).Update("balance", balance).Error
	})
}

// WriteHolding upserts a (investor, symbol) holding row, deleting it
// when quantity reaches 0 (spec.md §3's Holding lifecycle).
func (w *Writer) WriteHolding(r HoldingRecord) {
	w.enqueue(func(db *gorm.DB) error {
		if r.Quantity == 0 {
			return db.Delete(&HoldingRecord{}, "investor = ? AND symbol = ?", r.Investor, r.Symbol).Error
		}
		return db.Save(&r).Error
	})
}

// WriteTransaction persists one append-only ledger row.
func (w *Writer) WriteTransaction(r TransactionRecord) {
	w.enqueue(func(db *gorm.DB) error {
		return db.Create(&r).Error
	})
}

// AnalyticsWriter adapts a Writer to analytics.PersistWriter, converting
// domain.AnalyticsTrade into this package's record struct so the
// analytics package never imports persist.
type AnalyticsWriter struct {
	Writer *Writer
}

// WriteAnalyticsTrade implements analytics.PersistWriter.
func (a AnalyticsWriter) WriteAnalyticsTrade(t *domain.AnalyticsTrade) {
	a.Writer.WriteAnalyticsTrade(AnalyticsTradeRecord{
		ID:          t.TradeID,
		ExecutionID: t.ExecutionID,
		Investor:    t.Investor,
		Symbol:      t.Symbol,
		Side:        string(t.Side),
		Quantity:    t.Quantity,
		Price:       t.Price,
		Ts:          t.Ts,
	})
}

// WriteAnalyticsTrade persists one counterparty leg of a settled
// execution for later aggregate queries.
func (w *Writer) WriteAnalyticsTrade(r AnalyticsTradeRecord) {
	w.enqueue(func(db *gorm.DB) error {
		return db.Create(&r).Error
	})
}

// WebhookWriter adapts a Writer to webhook.PersistWriter, converting
// domain.Webhook into this package's record struct so the webhook
// package never imports persist.
type WebhookWriter struct {
	Writer *Writer
}

// WriteWebhook implements webhook.PersistWriter.
func (a WebhookWriter) WriteWebhook(w *domain.Webhook, deleted bool) {
	events := make([]string, len(w.Events))
	for i, e := range w.Events {
		events[i] = string(e)
	}
	a.Writer.WriteWebhook(WebhookRecord{
		ID:        w.WebhookID,
		URL:       w.URL,
		Events:    strings.Join(events, ","),
		Active:    w.Active,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}, deleted)
}

// WriteWebhook upserts a webhook subscription row, or deletes it when
// deleted is true.
func (w *Writer) WriteWebhook(r WebhookRecord, deleted bool) {
	w.enqueue(func(db *gorm.DB) error {
		if deleted {
			return db.Delete(&WebhookRecord{}, "webhook_id = ?", r.ID).Error
		}
		return db.Save(&r).Error
	})
}
