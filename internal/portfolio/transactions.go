package portfolio

import (
	"sort"
	"sync"
	"time"

	"github.com/rgsouza/marketcore/internal/domain"
)

// TransactionLog is a thread-safe, append-only store of transactions,
// keyed by investor id (spec.md §3, §4.4's Transactions query).
type TransactionLog struct {
	mu         sync.RWMutex
	byInvestor map[string][]*domain.Transaction
}

// NewTransactionLog creates an empty TransactionLog.
func NewTransactionLog() *TransactionLog {
	return &TransactionLog{byInvestor: make(map[string][]*domain.Transaction)}
}

// Append adds tx to investor's chronological ledger.
func (l *TransactionLog) Append(tx *domain.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byInvestor[tx.Investor] = append(l.byInvestor[tx.Investor], tx)
}

// Query returns investor's transactions newest-first, optionally bounded
// by [start, end] and capped at limit (0 means unlimited), per spec.md
// §4.4's Transactions contract.
func (l *TransactionLog) Query(investor string, limit int, start, end *time.Time) []*domain.Transaction {
	l.mu.RLock()
	all := l.byInvestor[investor]
	txs := make([]*domain.Transaction, len(all))
	copy(txs, all)
	l.mu.RUnlock()

	sort.Slice(txs, func(i, j int) bool { return txs[i].Ts.After(txs[j].Ts) })

	out := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if start != nil && tx.Ts.Before(*start) {
			continue
		}
		if end != nil && tx.Ts.After(*end) {
			continue
		}
		out = append(out, tx)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
