package ledger

import (
	"sync"
	"time"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PendingOrder is an order decided on one bar and not yet filled.
type PendingOrder struct {
	Action model.Action
	Date   time.Time
	Size   decimal.Decimal
}

// InstrumentState is everything the ledger tracks for one instrument.
type InstrumentState struct {
	Ticker   string
	Position *model.Position
	Pending  *PendingOrder
	Stats    []model.DailyStat
}

// Ledger owns positions, pending orders and daily stat history per instrument.
// It enforces at most one open position per instrument.
type Ledger struct {
	mu      sync.Mutex
	order   []string
	states  map[string]*InstrumentState
	journal []model.ClosedTrade
}

// New creates a ledger for the given instruments, kept in input order.
func New(tickers []string) *Ledger {
	l := &Ledger{states: make(map[string]*InstrumentState, len(tickers))}
	for _, t := range tickers {
		l.register(t)
	}
	return l
}

func (l *Ledger) register(ticker string) *InstrumentState {
	if st, ok := l.states[ticker]; ok {
		return st
	}
	st := &InstrumentState{Ticker: ticker}
	l.states[ticker] = st
	l.order = append(l.order, ticker)
	return st
}

// Open opens a position. Fails with ErrCodeDuplicatePosition if one is already open.
func (l *Ledger) Open(ticker string, date time.Time, price float64, size decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.register(ticker)
	if st.Position != nil {
		return errors.Newf(errors.ErrCodeDuplicatePosition, "%s already has a position opened %s at %.2f",
			ticker, st.Position.EntryDate.Format(model.DateLayout), st.Position.EntryPrice)
	}
	if price <= 0 || !size.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidPosition, "%s open with price %.2f size %s", ticker, price, size.String())
	}
	st.Position = &model.Position{
		Ticker:     ticker,
		EntryDate:  date,
		EntryPrice: price,
		Size:       size,
		PeakPrice:  price,
	}
	return nil
}

// Close closes the position at price and journals the round trip.
// Fails with ErrCodeNoPosition if nothing is open.
func (l *Ledger) Close(ticker string, date time.Time, price float64) (model.ClosedTrade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[ticker]
	if !ok || st.Position == nil {
		return model.ClosedTrade{}, errors.Newf(errors.ErrCodeNoPosition, "%s has no open position to close", ticker)
	}
	pos := st.Position
	exit := decimal.NewFromFloat(price)
	trade := model.ClosedTrade{
		ID:         uuid.NewString(),
		Ticker:     ticker,
		EntryDate:  pos.EntryDate,
		EntryPrice: pos.EntryPrice,
		ExitDate:   date,
		ExitPrice:  price,
		Size:       pos.Size,
		PnL:        exit.Sub(decimal.NewFromFloat(pos.EntryPrice)).Mul(pos.Size).Round(2),
		PnLPct:     pnlPct(pos.EntryPrice, price),
	}
	l.journal = append(l.journal, trade)
	st.Position = nil
	return trade, nil
}

// Observe records the close of the current bar against the open position,
// raising its peak price. It is a no-op while flat.
func (l *Ledger) Observe(ticker string, close float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[ticker]
	if !ok || st.Position == nil {
		return
	}
	if close > st.Position.PeakPrice {
		st.Position.PeakPrice = close
	}
}

// PeakPrice returns the highest close since entry, entry price included.
func (l *Ledger) PeakPrice(ticker string) (float64, error) {
	pos, err := l.openPosition(ticker)
	if err != nil {
		return 0, err
	}
	return pos.PeakPrice, nil
}

// PnLPct returns (close/entry - 1) * 100 for the open position.
func (l *Ledger) PnLPct(ticker string, close float64) (float64, error) {
	pos, err := l.openPosition(ticker)
	if err != nil {
		return 0, err
	}
	return pnlPct(pos.EntryPrice, close), nil
}

func (l *Ledger) openPosition(ticker string) (model.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[ticker]
	if !ok || st.Position == nil {
		return model.Position{}, errors.Newf(errors.ErrCodeNoPosition, "%s has no open position", ticker)
	}
	return *st.Position, nil
}

// Position returns a copy of the open position, if any.
func (l *Ledger) Position(ticker string) (model.Position, bool) {
	pos, err := l.openPosition(ticker)
	return pos, err == nil
}

// SetPending marks an order as submitted and not yet filled.
func (l *Ledger) SetPending(ticker string, order PendingOrder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.register(ticker).Pending = &order
}

// TakePending returns and clears the pending order, if any.
func (l *Ledger) TakePending(ticker string) (PendingOrder, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[ticker]
	if !ok || st.Pending == nil {
		return PendingOrder{}, false
	}
	order := *st.Pending
	st.Pending = nil
	return order, true
}

// Pending returns the pending order without clearing it.
func (l *Ledger) Pending(ticker string) (PendingOrder, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[ticker]
	if !ok || st.Pending == nil {
		return PendingOrder{}, false
	}
	return *st.Pending, true
}

// AppendStat appends to the instrument's daily stat history.
func (l *Ledger) AppendStat(stat model.DailyStat) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.register(stat.Ticker)
	st.Stats = append(st.Stats, stat)
}

// Stats returns a copy of the instrument's daily stat history.
func (l *Ledger) Stats(ticker string) []model.DailyStat {
	return l.LastStats(ticker, -1)
}

// LastStats returns at most the last n daily stats in chronological order.
// A negative n returns all of them.
func (l *Ledger) LastStats(ticker string, n int) []model.DailyStat {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[ticker]
	if !ok {
		return nil
	}
	stats := st.Stats
	if n >= 0 && len(stats) > n {
		stats = stats[len(stats)-n:]
	}
	out := make([]model.DailyStat, len(stats))
	copy(out, stats)
	return out
}

// Positions returns the open positions in instrument order.
func (l *Ledger) Positions() []model.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.Position
	for _, t := range l.order {
		if pos := l.states[t].Position; pos != nil {
			out = append(out, *pos)
		}
	}
	return out
}

// Trades returns the closed trades in the order they were closed.
func (l *Ledger) Trades() []model.ClosedTrade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.ClosedTrade, len(l.journal))
	copy(out, l.journal)
	return out
}

// Tickers returns the registered instruments in order.
func (l *Ledger) Tickers() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

func pnlPct(entry, close float64) float64 {
	return (close/entry - 1) * 100
}
