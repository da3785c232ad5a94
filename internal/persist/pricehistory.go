package persist

import (
	"time"

	"github.com/rgsouza/marketcore/internal/domain"
)

// PriceHistoryStore implements priceengine.HistoryStore against the
// durable price_history table, indexed on (symbol, timestamp) per
// spec.md §6. Unlike Writer's other tables, history rows are written
// synchronously: PredictPrice and MostVolatile read the same table a
// tick later, so a dropped async write would silently corrupt their
// input. The matching engine itself never calls into this store
// directly — only the price engine does, off its own per-symbol lock.
type PriceHistoryStore struct {
	client *Client
}

// NewPriceHistoryStore wraps client.
func NewPriceHistoryStore(client *Client) *PriceHistoryStore {
	return &PriceHistoryStore{client: client}
}

// Append inserts one price point row.
func (s *PriceHistoryStore) Append(p *domain.PricePoint) error {
	return s.client.DB().Create(&PriceHistoryRecord{
		Symbol: p.Symbol,
		Price:  p.Price,
		Ts:     p.Ts,
	}).Error
}

// Query returns symbol's price history within [start, end] (either may
// be nil, meaning unbounded), newest first, capped at limit (0 means
// unlimited).
func (s *PriceHistoryStore) Query(symbol string, start, end *time.Time, limit int) ([]*domain.PricePoint, error) {
	q := s.client.DB().Model(&PriceHistoryRecord{}).Where("symbol = ?", symbol)
	if start != nil {
		q = q.Where("ts >= ?", *start)
	}
	if end != nil {
		q = q.Where("ts <= ?", *end)
	}
	q = q.Order("ts DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []PriceHistoryRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*domain.PricePoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, &domain.PricePoint{Symbol: r.Symbol, Price: r.Price, Ts: r.Ts})
	}
	return out, nil
}
