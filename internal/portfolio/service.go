package portfolio

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/rgsouza/marketcore/internal/domain"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// EventPublisher publishes portfolio-visible events (spec.md §4.5).
type EventPublisher interface {
	PublishBalanceUpdated(investor string, balance int64)
	PublishNewTransaction(tx *domain.Transaction)
}

// PersistWriter durably records investor and holding state. It is
// implemented by persist's adapter types, the same narrow-interface
// pattern settlement.ExecutionWriter and market.RecordWriter use, so
// this package never imports persist directly.
type PersistWriter interface {
	WriteInvestor(investor *domain.Investor)
	WriteHolding(investor, symbol string, quantity, avgPrice int64)
}

// HoldingView mirrors a single position, decorated with its current
// market value and realized-basis profit/loss, as returned by
// GetPortfolio (spec.md §4.4).
type HoldingView struct {
	Symbol       string
	Quantity     int64
	AvgPrice     int64 // cents
	CurrentPrice int64 // cents
	CurrentValue int64 // cents
	ProfitLoss   int64 // cents
}

// Service implements the portfolio store of spec.md §4.4: investor
// registration, balance adjustment, holdings, transactions, and
// pre-trade validation.
type Service struct {
	store   *Store
	ledger  *TransactionLog
	symbols *domain.SymbolRegistry
	events  EventPublisher
	persist PersistWriter
}

// NewService creates a portfolio service over the given dependencies.
// persist may be nil, in which case investor and holding state is kept
// only in memory.
func NewService(store *Store, ledger *TransactionLog, symbols *domain.SymbolRegistry, events EventPublisher, persist PersistWriter) *Service {
	return &Service{store: store, ledger: ledger, symbols: symbols, events: events, persist: persist}
}

// Register creates a new investor with the given initial balance (in
// dollars). Fails with a *domain.ValidationError on malformed input or
// domain.ErrEmailTaken on a uniqueness violation (spec.md §4.4).
func (s *Service) Register(name, email string, initialBalanceDollars float64) (*domain.Investor, error) {
	if name == "" {
		return nil, &domain.ValidationError{Message: "name must not be empty"}
	}
	if !emailRegex.MatchString(email) {
		return nil, &domain.ValidationError{Message: "email must be a valid address"}
	}
	if initialBalanceDollars < 0 {
		return nil, &domain.ValidationError{Message: "initial_balance must be >= 0"}
	}
	balanceCents, err := domain.DollarsToCents(initialBalanceDollars)
	if err != nil {
		return nil, &domain.ValidationError{Message: "initial_balance must have at most 2 decimal places"}
	}

	inv := &domain.Investor{
		InvestorID: uuid.New().String(),
		Name:       name,
		Email:      email,
		Balance:    balanceCents,
		Holdings:   make(map[string]*domain.Holding),
		CreatedAt:  time.Now(),
	}
	if err := s.store.Create(inv); err != nil {
		return nil, err
	}
	if s.persist != nil {
		s.persist.WriteInvestor(inv)
	}
	return inv, nil
}

// Get returns the investor record for id, or domain.ErrInvestorNotFound.
func (s *Service) Get(id string) (*domain.Investor, error) {
	return s.store.Get(id)
}

// AdjustBalance applies a signed cash delta (in cents) to investor's
// balance, per spec.md §4.4. Fails with domain.ErrInsufficientFunds if
// the result would go negative.
func (s *Service) AdjustBalance(id string, signedAmountCents int64) error {
	inv, err := s.store.Get(id)
	if err != nil {
		return err
	}

	inv.Mu.Lock()
	newBalance := inv.Balance + signedAmountCents
	if newBalance < 0 {
		inv.Mu.Unlock()
		return domain.ErrInsufficientFunds
	}
	inv.Balance = newBalance
	inv.Mu.Unlock()

	if s.events != nil {
		s.events.PublishBalanceUpdated(id, newBalance)
	}
	return nil
}

// ApplyTrade applies one counterparty leg of a settled execution: a
// positive signedQty is a buy (debits cash, grows the holding at a
// weighted-average price); a negative signedQty is a sell (credits
// cash, shrinks the holding, deleting it at qty 0), per the settlement
// rule in spec.md §4.2 step 1-2. txID identifies the ledger row.
func (s *Service) ApplyTrade(investor, symbol string, signedQty, price int64, txID string) error {
	inv, err := s.store.Get(investor)
	if err != nil {
		return err
	}

	inv.Mu.Lock()

	var tx *domain.Transaction
	var holdingQty, holdingAvgPrice int64
	now := time.Now()

	if signedQty > 0 {
		cost := signedQty * price
		if inv.Balance < cost {
			inv.Mu.Unlock()
			return domain.ErrInsufficientFunds
		}
		inv.Balance -= cost

		h, ok := inv.Holdings[symbol]
		if !ok {
			h = &domain.Holding{}
			inv.Holdings[symbol] = h
		}
		newQty := h.Quantity + signedQty
		h.AvgPrice = (h.AvgPrice*h.Quantity + price*signedQty) / newQty
		h.Quantity = newQty
		holdingQty, holdingAvgPrice = h.Quantity, h.AvgPrice

		tx = &domain.Transaction{
			TransactionID: txID,
			Investor:      investor,
			Symbol:        symbol,
			Type:          domain.TransactionBuy,
			Quantity:      signedQty,
			Price:         price,
			Total:         cost,
			Ts:            now,
		}
	} else if signedQty < 0 {
		qty := -signedQty
		h, ok := inv.Holdings[symbol]
		if !ok || h.Quantity < qty {
			inv.Mu.Unlock()
			return domain.ErrInsufficientShares
		}
		h.Quantity -= qty
		holdingQty, holdingAvgPrice = h.Quantity, h.AvgPrice
		if h.Quantity == 0 {
			delete(inv.Holdings, symbol)
		}
		proceeds := qty * price
		inv.Balance += proceeds

		tx = &domain.Transaction{
			TransactionID: txID,
			Investor:      investor,
			Symbol:        symbol,
			Type:          domain.TransactionSell,
			Quantity:      qty,
			Price:         price,
			Total:         proceeds,
			Ts:            now,
		}
	}

	balance := inv.Balance
	inv.Mu.Unlock()

	if tx != nil {
		s.ledger.Append(tx)
		if s.persist != nil {
			s.persist.WriteHolding(investor, symbol, holdingQty, holdingAvgPrice)
		}
		if s.events != nil {
			s.events.PublishBalanceUpdated(investor, balance)
			s.events.PublishNewTransaction(tx)
		}
	}
	return nil
}

// ValidateOrder is the pre-trade check of spec.md §4.4: for a BUY it
// requires balance >= qty*price; for a SELL it requires heldQty >= qty.
// It never mutates investor state.
func (s *Service) ValidateOrder(investor, symbol string, side domain.OrderSide, qty, price int64) error {
	inv, err := s.store.Get(investor)
	if err != nil {
		return err
	}

	inv.Mu.Lock()
	defer inv.Mu.Unlock()

	if side == domain.OrderSideBuy {
		if inv.Balance < qty*price {
			return domain.ErrInsufficientFunds
		}
		return nil
	}
	if inv.HeldQuantity(symbol) < qty {
		return domain.ErrInsufficientShares
	}
	return nil
}

// GetPortfolio returns investor's holdings decorated with current value
// and profit/loss, using currentPrices (cents) per symbol (spec.md
// §4.4). A symbol absent from currentPrices is valued at its avg price.
func (s *Service) GetPortfolio(id string, currentPrices map[string]int64) ([]HoldingView, error) {
	inv, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	inv.Mu.Lock()
	defer inv.Mu.Unlock()

	views := make([]HoldingView, 0, len(inv.Holdings))
	for symbol, h := range inv.Holdings {
		price, ok := currentPrices[symbol]
		if !ok {
			price = h.AvgPrice
		}
		value := h.Quantity * price
		views = append(views, HoldingView{
			Symbol:       symbol,
			Quantity:     h.Quantity,
			AvgPrice:     h.AvgPrice,
			CurrentPrice: price,
			CurrentValue: value,
			ProfitLoss:   value - h.Quantity*h.AvgPrice,
		})
	}
	return views, nil
}

// Transactions returns investor's transaction history, per spec.md
// §4.4's Transactions contract.
func (s *Service) Transactions(id string, limit int, start, end *time.Time) ([]*domain.Transaction, error) {
	if !s.store.Exists(id) {
		return nil, domain.ErrInvestorNotFound
	}
	return s.ledger.Query(id, limit, start, end), nil
}
