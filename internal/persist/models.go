package persist

import "time"

// The structs below mirror the tables of spec.md §3/§6: a single
// on-disk relational file, written behind the hot path rather than on
// it. Field names follow the domain types each record is copied from;
// gorm tags carry the indexes spec.md §6 names explicitly.

// OrderRecord mirrors domain.Order.
type OrderRecord struct {
	ID                string `gorm:"primaryKey"`
	Investor          string `gorm:"index:idx_orders_investor_status"`
	Symbol            string
	Side              string
	Quantity          int64
	LimitPrice        int64
	FilledQuantity    int64
	RemainingQuantity int64
	Status            string `gorm:"index:idx_orders_investor_status"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ExpiresAt         *time.Time
}

// ExecutionRecord mirrors domain.Execution.
type ExecutionRecord struct {
	ID          string `gorm:"primaryKey;column:execution_id"`
	BuyOrderID  string
	SellOrderID string
	Symbol      string
	Quantity    int64
	Price       int64
	Buyer       string
	Seller      string
	Ts          time.Time
}

// InvestorRecord mirrors domain.Investor.
type InvestorRecord struct {
	ID        string `gorm:"primaryKey;column:investor_id"`
	Name      string
	Email     string `gorm:"uniqueIndex"`
	Balance   int64
	CreatedAt time.Time
}

// HoldingRecord mirrors domain.Holding, keyed by (investor, symbol).
type HoldingRecord struct {
	Investor string `gorm:"primaryKey;index:idx_portfolio_investor"`
	Symbol   string `gorm:"primaryKey"`
	Quantity int64
	AvgPrice int64
}

// TransactionRecord mirrors domain.Transaction.
type TransactionRecord struct {
	ID       string `gorm:"primaryKey;column:transaction_id"`
	Investor string `gorm:"index:idx_transactions_investor_ts"`
	Symbol   string
	Type     string
	Quantity int64
	Price    int64
	Total    int64
	Ts       time.Time `gorm:"index:idx_transactions_investor_ts"`
}

// PriceHistoryRecord mirrors domain.PricePoint.
type PriceHistoryRecord struct {
	ID     uint      `gorm:"primaryKey;autoIncrement"`
	Symbol string    `gorm:"index:idx_price_history_symbol_ts"`
	Price  float64
	Ts     time.Time `gorm:"index:idx_price_history_symbol_ts"`
}

// AnalyticsTradeRecord mirrors domain.AnalyticsTrade.
type AnalyticsTradeRecord struct {
	ID          string `gorm:"primaryKey;column:trade_id"`
	ExecutionID string
	Investor    string
	Symbol      string `gorm:"index:idx_analytics_trades_symbol_ts"`
	Side        string
	Quantity    int64
	Price       int64
	Ts          time.Time `gorm:"index:idx_analytics_trades_symbol_ts"`
}

// WebhookRecord mirrors domain.Webhook. Events is stored as a
// comma-joined string since spec.md's webhook subscription carries a
// small closed set rather than a relation worth a join table.
type WebhookRecord struct {
	ID        string `gorm:"primaryKey;column:webhook_id"`
	URL       string
	Events    string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
