package engine

import (
	"fmt"
	"time"

	"TradeAdvisor/internal/calculator"
	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/ledger"
	"TradeAdvisor/internal/logger"
	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/recorder"
	"TradeAdvisor/internal/strategy"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the output of one walk-forward run.
type Result struct {
	// Actions are ordered by date, then by input instrument order.
	Actions []model.TradeAction
	// Stats holds each instrument's daily stats from its analysis start.
	Stats map[string][]model.DailyStat
	// Positions are the positions still open at the end of the run.
	Positions []model.Position
	// Trades are the round trips closed during the run.
	Trades []model.ClosedTrade
	// Excluded lists instruments skipped for lack of data.
	Excluded []string
	// Failures holds the instruments aborted on a ledger invariant violation.
	Failures map[string]error
}

// Option configures a Driver.
type Option func(*Driver)

// WithRuleSet injects a rule set instead of building one from the config.
func WithRuleSet(rs strategy.RuleSet) Option {
	return func(d *Driver) { d.rules = rs }
}

// WithProgress registers a callback invoked once per processed date.
func WithProgress(fn func(done, total int)) Option {
	return func(d *Driver) { d.progress = fn }
}

// Driver walks price series forward one date at a time, feeding the
// indicator engine, the rule set and the ledger.
type Driver struct {
	cfg      Config
	rules    strategy.RuleSet
	events   *recorder.EventBuilder
	log      *logger.Logger
	progress func(done, total int)
}

// NewDriver creates a driver. The rule set is built from cfg.Strategy unless
// one is injected.
func NewDriver(cfg Config, log *logger.Logger, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		cfg:    cfg,
		events: recorder.NewEventBuilder(cfg.ContextSize),
		log:    log,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rules == nil {
		rules, err := strategy.New(cfg.Strategy)
		if err != nil {
			return nil, err
		}
		d.rules = rules
	}
	return d, nil
}

// RuleSet returns the rule set in use.
func (d *Driver) RuleSet() strategy.RuleSet { return d.rules }

// Run walks every series forward. Malformed input rejects the whole run.
// An instrument whose ledger invariants break is aborted on its own; the
// others run to completion and the joined failures are returned along with
// the result.
func (d *Driver) Run(series []model.PriceSeries, recorded []model.RecordedPosition) (*Result, error) {
	if err := validateSeries(series); err != nil {
		return nil, err
	}

	result := &Result{
		Stats:    make(map[string][]model.DailyStat),
		Failures: make(map[string]error),
	}

	var instruments []*instrument
	var tickers []string
	for _, s := range series {
		if len(s.Bars) == 0 {
			d.log.Warn("no bars, instrument excluded", zap.String("ticker", s.Ticker))
			result.Excluded = append(result.Excluded, s.Ticker)
			continue
		}
		in, err := d.newInstrument(s)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, in)
		tickers = append(tickers, s.Ticker)
	}
	d.attachRecorded(instruments, recorded)

	book := ledger.New(tickers)
	dates := calendar(instruments)
	for i, date := range dates {
		actions := d.stepDate(book, instruments, date)
		result.Actions = append(result.Actions, actions...)
		if d.progress != nil {
			d.progress(i+1, len(dates))
		}
	}

	var failures []error
	for _, in := range instruments {
		result.Stats[in.ticker] = book.Stats(in.ticker)
		if in.err != nil {
			result.Failures[in.ticker] = in.err
			failures = append(failures, fmt.Errorf("%s: %w", in.ticker, in.err))
		}
		if in.phase == phaseWarmup {
			d.log.Warn("warm-up never completed", zap.String("ticker", in.ticker), zap.Int("bars", len(in.bars)))
		}
		for date, rec := range in.recorded {
			d.log.Warn("recorded position not applied",
				zap.String("ticker", rec.Ticker), zap.String("date", date.Format(model.DateLayout)))
		}
	}
	result.Positions = book.Positions()
	result.Trades = book.Trades()

	d.log.Info("walk-forward done",
		zap.Int("dates", len(dates)),
		zap.Int("instruments", len(instruments)),
		zap.Int("actions", len(result.Actions)),
		zap.Int("failures", len(failures)))
	return result, errors.Join(failures...)
}

func (d *Driver) newInstrument(s model.PriceSeries) (*instrument, error) {
	calc, err := calculator.NewEngine(d.cfg.Indicators)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "indicator params", err)
	}
	in := &instrument{
		ticker:   s.Ticker,
		bars:     s.Bars,
		calc:     calc,
		recorded: make(map[time.Time]model.RecordedPosition),
	}
	start, ok := analysisStart(s.Bars, d.cfg)
	if !ok {
		d.log.Warn("series shorter than warm-up",
			zap.String("ticker", s.Ticker), zap.Int("bars", len(s.Bars)), zap.Int("warmup", d.cfg.WarmupDays))
		in.phase = phaseDone
	}
	in.start = start
	return in, nil
}

// attachRecorded indexes recorded positions by instrument and date. Only the
// first entry of a (ticker, date) pair is kept.
func (d *Driver) attachRecorded(instruments []*instrument, recorded []model.RecordedPosition) {
	byTicker := make(map[string]*instrument, len(instruments))
	for _, in := range instruments {
		byTicker[in.ticker] = in
	}
	for _, rec := range recorded {
		in, ok := byTicker[rec.Ticker]
		if !ok {
			continue
		}
		day := model.Day(rec.Date)
		if _, dup := in.recorded[day]; dup {
			d.log.Warn("duplicate recorded position ignored",
				zap.String("ticker", rec.Ticker), zap.String("date", day.Format(model.DateLayout)))
			continue
		}
		in.recorded[day] = rec
	}
}

// stepDate advances every instrument that has a bar on date and returns the
// emitted actions in instrument order.
func (d *Driver) stepDate(book *ledger.Ledger, instruments []*instrument, date time.Time) []model.TradeAction {
	out := make([]optional.Option[model.TradeAction], len(instruments))

	if d.cfg.Parallel {
		var g errgroup.Group
		for i, in := range instruments {
			g.Go(func() error {
				out[i] = d.stepInstrument(book, in, date)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, in := range instruments {
			out[i] = d.stepInstrument(book, in, date)
		}
	}

	var actions []model.TradeAction
	for _, a := range out {
		if a.IsSome() {
			actions = append(actions, a.Unwrap())
		}
	}
	return actions
}

func (d *Driver) stepInstrument(book *ledger.Ledger, in *instrument, date time.Time) optional.Option[model.TradeAction] {
	none := optional.None[model.TradeAction]()
	bar, ok := in.barOn(date)
	if !ok || in.phase == phaseDone {
		return none
	}

	snap, ready := in.calc.Update(bar)
	if ready {
		snap.Ticker = in.ticker
		in.history = in.history.Push(snap, max(d.rules.Lookback(), 2))
	}

	// (1) warm-up: indicators and analysis start
	if in.phase == phaseWarmup {
		if !ready || date.Before(in.start) {
			return none
		}
		in.phase = phaseActive
		d.log.Debug("instrument active", zap.String("ticker", in.ticker), zap.String("date", date.Format(model.DateLayout)))
	}

	action, err := d.evaluate(book, in, bar)
	if err != nil {
		in.err = err
		in.phase = phaseDone
		d.log.Error("instrument aborted", zap.String("ticker", in.ticker), zap.Error(err))
		return none
	}
	return action
}

// evaluate runs one active bar: fill, stat, then at most one decision.
func (d *Driver) evaluate(book *ledger.Ledger, in *instrument, bar model.PriceBar) (optional.Option[model.TradeAction], error) {
	none := optional.None[model.TradeAction]()
	date := model.Day(bar.Date)

	// (2) fill the order decided on the previous bar
	filled, err := d.fillPending(book, in.ticker, bar)
	if err != nil {
		return none, err
	}
	book.Observe(in.ticker, bar.Close)

	// (3) daily stat
	pos, open := book.Position(in.ticker)
	posOpt := optional.None[model.Position]()
	if open {
		posOpt = optional.Some(pos)
	}
	stat := d.events.DailyStat(in.ticker, in.history, posOpt)
	book.AppendStat(stat)
	d.log.Debug(stat.AsText(true))

	// (4) one decision per bar
	if filled {
		return none, nil
	}

	if !open {
		if rec, ok := in.recorded[date]; ok {
			delete(in.recorded, date)
			if err := book.Open(in.ticker, date, rec.Price, decimal.NewFromFloat(rec.Size)); err != nil {
				return none, err
			}
			d.log.Info("BUY RECORDED", zap.String("ticker", in.ticker), zap.Float64("price", rec.Price), zap.Float64("size", rec.Size))
			return none, nil
		}
		if !d.decisionsAllowed(date) {
			return none, nil
		}
		reason := d.rules.BuySignal(in.ticker, in.history)
		if reason.IsNone() {
			return none, nil
		}
		return d.place(book, in, bar, model.ActionBuy, reason.Unwrap())
	}

	// (5) exits
	if !d.decisionsAllowed(date) {
		return none, nil
	}
	reason := d.rules.SellSignal(pos, in.history)
	if reason.IsNone() {
		return none, nil
	}
	return d.place(book, in, bar, model.ActionSell, reason.Unwrap())
}

func (d *Driver) decisionsAllowed(date time.Time) bool {
	return d.cfg.SingleDate.IsNone() || model.SameDay(d.cfg.SingleDate.Unwrap(), date)
}

// place submits the decided order and builds its trade action.
func (d *Driver) place(book *ledger.Ledger, in *instrument, bar model.PriceBar, action model.Action, reason string) (optional.Option[model.TradeAction], error) {
	date := model.Day(bar.Date)
	var size decimal.Decimal
	if action == model.ActionBuy {
		size = decimal.NewFromFloat(d.cfg.Strategy.Investment).Div(decimal.NewFromFloat(bar.Close)).Round(8)
	} else {
		pos, _ := book.Position(in.ticker)
		size = pos.Size
	}
	d.log.Info(string(action)+" CREATE",
		zap.String("ticker", in.ticker), zap.Float64("close", bar.Close), zap.String("reason", reason))

	switch d.cfg.FillMode {
	case FillClose:
		if err := d.fill(book, in.ticker, action, date, bar.Close, size); err != nil {
			return optional.None[model.TradeAction](), err
		}
	default:
		book.SetPending(in.ticker, ledger.PendingOrder{Action: action, Date: date, Size: size})
	}

	ta := d.events.TradeAction(date, action, in.ticker, reason, book.LastStats(in.ticker, d.events.ContextSize()))
	return optional.Some(ta), nil
}

// fillPending executes the pending order, if any, at the bar's open.
func (d *Driver) fillPending(book *ledger.Ledger, ticker string, bar model.PriceBar) (bool, error) {
	order, ok := book.TakePending(ticker)
	if !ok {
		return false, nil
	}
	return true, d.fill(book, ticker, order.Action, model.Day(bar.Date), bar.Open, order.Size)
}

func (d *Driver) fill(book *ledger.Ledger, ticker string, action model.Action, date time.Time, price float64, size decimal.Decimal) error {
	if action == model.ActionBuy {
		if err := book.Open(ticker, date, price, size); err != nil {
			return err
		}
		d.log.Info("BUY EXECUTED", zap.String("ticker", ticker), zap.Float64("price", price), zap.String("size", size.String()))
		return nil
	}
	trade, err := book.Close(ticker, date, price)
	if err != nil {
		return err
	}
	d.log.Info("SELL EXECUTED",
		zap.String("ticker", ticker), zap.Float64("price", price),
		zap.String("pnl", trade.PnL.String()), zap.Float64("pnl_pct", trade.PnLPct))
	return nil
}
