package domain

import "time"

// TransactionType mirrors OrderSide for the ledger entry created by a
// settled execution.
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Transaction is an append-only ledger row recorded by the portfolio store
// for one counterparty leg of a settled execution (spec.md §3).
type Transaction struct {
	TransactionID string
	Investor      string
	Symbol        string
	Type          TransactionType
	Quantity      int64
	Price         int64 // cents
	Total         int64 // cents, Quantity * Price
	Ts            time.Time
}
