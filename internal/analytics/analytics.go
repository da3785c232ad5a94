package analytics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rgsouza/marketcore/internal/domain"
)

// PriceSnapshot is the minimal current-price view the recorder needs for
// MarketStats, supplied by the price engine.
type PriceSnapshot struct {
	Current float64
	Open    float64
}

// PersistWriter durably records one settled trade leg. Implemented by
// persist's adapter types, the same narrow-interface pattern
// settlement.ExecutionWriter and market.RecordWriter use, so this
// package never imports persist.
type PersistWriter interface {
	WriteAnalyticsTrade(t *domain.AnalyticsTrade)
}

// Recorder implements the analytics recorder of spec.md §4.6: an
// append-only trade log with derived aggregates computed at query time.
type Recorder struct {
	mu      sync.RWMutex
	trades  []*domain.AnalyticsTrade
	persist PersistWriter
}

// NewRecorder creates an empty Recorder. persist may be nil, in which
// case the trade log is kept only in memory.
func NewRecorder(persist PersistWriter) *Recorder {
	return &Recorder{trades: make([]*domain.AnalyticsTrade, 0), persist: persist}
}

// RecordTrade appends t to the log.
func (r *Recorder) RecordTrade(t *domain.AnalyticsTrade) error {
	r.mu.Lock()
	r.trades = append(r.trades, t)
	r.mu.Unlock()
	if r.persist != nil {
		r.persist.WriteAnalyticsTrade(t)
	}
	return nil
}

func (r *Recorder) snapshot() []*domain.AnalyticsTrade {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.AnalyticsTrade, len(r.trades))
	copy(out, r.trades)
	return out
}

func inWindow(ts, now time.Time, window time.Duration) bool {
	return !ts.Before(now.Add(-window)) && !ts.After(now)
}

// TopTradedEntry is one ranked row of TopTraded.
type TopTradedEntry struct {
	Symbol      string
	TotalVolume int64
	TradeCount  int
}

// TopTraded ranks symbols by total traded quantity within the trailing
// window, tie-broken by trade count (spec.md §4.6).
func (r *Recorder) TopTraded(limit int, window time.Duration) []TopTradedEntry {
	now := time.Now()
	agg := make(map[string]*TopTradedEntry)
	for _, t := range r.snapshot() {
		if !inWindow(t.Ts, now, window) {
			continue
		}
		e, ok := agg[t.Symbol]
		if !ok {
			e = &TopTradedEntry{Symbol: t.Symbol}
			agg[t.Symbol] = e
		}
		e.TotalVolume += t.Quantity
		e.TradeCount++
	}

	out := make([]TopTradedEntry, 0, len(agg))
	for _, e := range agg {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalVolume != out[j].TotalVolume {
			return out[i].TotalVolume > out[j].TotalVolume
		}
		return out[i].TradeCount > out[j].TradeCount
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// VolatilityEntry is one ranked row of MostVolatile.
type VolatilityEntry struct {
	Symbol     string
	Volatility float64 // percent
}

// MostVolatile ranks symbols by (max-min)/avg*100 over their price
// history in the trailing window (spec.md §4.6). history maps symbol to
// its price points within the window, newest-first or not — order does
// not matter here.
func MostVolatile(history map[string][]*domain.PricePoint, limit int) []VolatilityEntry {
	out := make([]VolatilityEntry, 0, len(history))
	for symbol, points := range history {
		if len(points) == 0 {
			continue
		}
		min, max, sum := points[0].Price, points[0].Price, 0.0
		for _, p := range points {
			if p.Price < min {
				min = p.Price
			}
			if p.Price > max {
				max = p.Price
			}
			sum += p.Price
		}
		avg := sum / float64(len(points))
		if avg == 0 {
			continue
		}
		out = append(out, VolatilityEntry{Symbol: symbol, Volatility: (max - min) / avg * 100})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Volatility > out[j].Volatility })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Sentiment is the market-wide mood derived from MarketStats.
type Sentiment string

const (
	SentimentBullish Sentiment = "BULLISH"
	SentimentBearish Sentiment = "BEARISH"
	SentimentNeutral Sentiment = "NEUTRAL"
)

// MarketStats is the 24h aggregate snapshot of spec.md §4.6.
type MarketStats struct {
	TradeCount        int
	TotalVolume       int64
	DistinctInvestors int
	DistinctSymbols   int
	Trend             float64
	Sentiment         Sentiment
}

// MarketStats computes 24h totals plus a sentiment derived from the mean
// (current-open) across all listed symbols.
func (r *Recorder) MarketStats(stocks map[string]PriceSnapshot) MarketStats {
	now := time.Now()
	investors := make(map[string]bool)
	symbols := make(map[string]bool)
	var stats MarketStats

	for _, t := range r.snapshot() {
		if !inWindow(t.Ts, now, 24*time.Hour) {
			continue
		}
		stats.TradeCount++
		stats.TotalVolume += t.Quantity
		investors[t.Investor] = true
		symbols[t.Symbol] = true
	}
	stats.DistinctInvestors = len(investors)
	stats.DistinctSymbols = len(symbols)

	if len(stocks) > 0 {
		var sum float64
		for _, s := range stocks {
			sum += s.Current - s.Open
		}
		stats.Trend = sum / float64(len(stocks))
	}
	switch {
	case stats.Trend > 0.5:
		stats.Sentiment = SentimentBullish
	case stats.Trend < -0.5:
		stats.Sentiment = SentimentBearish
	default:
		stats.Sentiment = SentimentNeutral
	}
	return stats
}

// RiskLevel classifies an investor's trading intensity.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

// SymbolPnL is one symbol's realized and unrealized P&L for an investor.
type SymbolPnL struct {
	Symbol       string
	RealizedPnL  int64 // cents
	UnrealizedPnL int64 // cents
}

// InvestorPerformance is the per-investor rollup of spec.md §4.6.
type InvestorPerformance struct {
	BySymbol  []SymbolPnL
	WinRate   float64
	RiskLevel RiskLevel
	TradeCount int
	AvgTrade  float64 // cents
}

// InvestorPerformance computes realized P&L from matched BUY/SELL runs
// (FIFO per symbol), unrealized P&L from currentPrices, win rate, and
// risk level, per spec.md §4.6.
func (r *Recorder) InvestorPerformance(investor string, holdings map[string]*domain.Holding, currentPrices map[string]int64) InvestorPerformance {
	var mine []*domain.AnalyticsTrade
	for _, t := range r.snapshot() {
		if t.Investor == investor {
			mine = append(mine, t)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].Ts.Before(mine[j].Ts) })

	type lot struct {
		qty   int64
		price int64
	}
	openLots := make(map[string][]lot)
	realized := make(map[string]int64)
	wins, losses := 0, 0
	var totalNotional int64

	for _, t := range mine {
		totalNotional += t.Quantity * t.Price
		lots := openLots[t.Symbol]
		if t.Side == domain.OrderSideBuy {
			lots = append(lots, lot{qty: t.Quantity, price: t.Price})
		} else {
			remaining := t.Quantity
			for remaining > 0 && len(lots) > 0 {
				l := &lots[0]
				matched := remaining
				if l.qty < matched {
					matched = l.qty
				}
				pnl := matched * (t.Price - l.price)
				realized[t.Symbol] += pnl
				if pnl > 0 {
					wins++
				} else if pnl < 0 {
					losses++
				}
				l.qty -= matched
				remaining -= matched
				if l.qty == 0 {
					lots = lots[1:]
				}
			}
		}
		openLots[t.Symbol] = lots
	}

	symbolSet := make(map[string]bool)
	for s := range holdings {
		symbolSet[s] = true
	}
	for s := range realized {
		symbolSet[s] = true
	}

	bySymbol := make([]SymbolPnL, 0, len(symbolSet))
	for symbol := range symbolSet {
		var unrealized int64
		if h, ok := holdings[symbol]; ok {
			if price, ok := currentPrices[symbol]; ok {
				unrealized = h.Quantity * (price - h.AvgPrice)
			}
		}
		bySymbol = append(bySymbol, SymbolPnL{
			Symbol:        symbol,
			RealizedPnL:   realized[symbol],
			UnrealizedPnL: unrealized,
		})
	}
	sort.Slice(bySymbol, func(i, j int) bool { return bySymbol[i].Symbol < bySymbol[j].Symbol })

	var winRate float64
	if wins+losses > 0 {
		winRate = float64(wins) / float64(wins+losses)
	}

	var avgTrade float64
	if len(mine) > 0 {
		avgTrade = float64(totalNotional) / float64(len(mine))
	}

	var risk RiskLevel
	switch {
	case avgTrade >= 1000000 || len(mine) > 50: // $10,000 in cents
		risk = RiskHigh
	case avgTrade >= 500000 || len(mine) > 20: // $5,000 in cents
		risk = RiskMedium
	default:
		risk = RiskLow
	}

	return InvestorPerformance{
		BySymbol:   bySymbol,
		WinRate:    winRate,
		RiskLevel:  risk,
		TradeCount: len(mine),
		AvgTrade:   avgTrade,
	}
}

// Trend classifies a PredictPrice forecast.
type Trend string

const (
	TrendUp     Trend = "UP"
	TrendDown   Trend = "DOWN"
	TrendStable Trend = "STABLE"
)

// Prediction is the output of PredictPrice.
type Prediction struct {
	PredictedPrice float64
	Confidence     float64 // 0-100
	Trend          Trend
}

// PredictPrice fits a linear regression over the last 20 price points
// and extrapolates horizonMin/60 steps forward, per spec.md §4.6. points
// are taken oldest first: the final element is the current price.
func PredictPrice(points []*domain.PricePoint, horizonMin float64) Prediction {
	n := len(points)
	if n > 20 {
		points = points[n-20:]
		n = 20
	}
	if n < 2 {
		if n == 1 {
			return Prediction{PredictedPrice: points[0].Price, Confidence: 0, Trend: TrendStable}
		}
		return Prediction{}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, p := range points {
		x := float64(i)
		y := p.Price
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	var slope, intercept float64
	if denom != 0 {
		slope = (nf*sumXY - sumX*sumY) / denom
		intercept = (sumY - slope*sumX) / nf
	} else {
		intercept = sumY / nf
	}

	meanY := sumY / nf
	var ssTot, ssRes float64
	for i, p := range points {
		x := float64(i)
		fitted := slope*x + intercept
		ssRes += (p.Price - fitted) * (p.Price - fitted)
		ssTot += (p.Price - meanY) * (p.Price - meanY)
	}
	var rSquared float64
	if ssTot != 0 {
		rSquared = 1 - ssRes/ssTot
	}
	confidence := math.Max(0, math.Min(rSquared*100, 100))

	steps := horizonMin / 60
	lastX := float64(n - 1)
	predicted := slope*(lastX+steps) + intercept

	current := points[n-1].Price
	var trend Trend
	switch {
	case current == 0:
		trend = TrendStable
	case (predicted-current)/current > 0.005:
		trend = TrendUp
	case (predicted-current)/current < -0.005:
		trend = TrendDown
	default:
		trend = TrendStable
	}

	return Prediction{PredictedPrice: predicted, Confidence: confidence, Trend: trend}
}

// VolumeBucket is one non-empty row of TradingVolume.
type VolumeBucket struct {
	Ts       time.Time
	Volume   int64
	Count    int
	AvgPrice float64
}

// TradingVolume buckets symbol's trades into intervalMs-wide windows
// within [start, end] and returns only non-empty buckets, per spec.md
// §4.6.
func (r *Recorder) TradingVolume(symbol string, start, end time.Time, intervalMs int64) []VolumeBucket {
	interval := time.Duration(intervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Minute
	}

	buckets := make(map[int64]*VolumeBucket)
	for _, t := range r.snapshot() {
		if t.Symbol != symbol || t.Ts.Before(start) || t.Ts.After(end) {
			continue
		}
		key := t.Ts.Sub(start) / interval
		b, ok := buckets[int64(key)]
		if !ok {
			b = &VolumeBucket{Ts: start.Add(time.Duration(key) * interval)}
			buckets[int64(key)] = b
		}
		b.Volume += t.Quantity
		b.AvgPrice = (b.AvgPrice*float64(b.Count) + float64(t.Price)) / float64(b.Count+1)
		b.Count++
	}

	out := make([]VolumeBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ts.Before(out[j].Ts) })
	return out
}
