// Package advisor runs the collect, walk-forward, record pipeline shared by
// the command line and the scheduled service.
package advisor

import (
	"context"
	"time"

	"TradeAdvisor/internal/collector"
	"TradeAdvisor/internal/engine"
	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/ledger"
	"TradeAdvisor/internal/logger"
	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/portfolio"
	"TradeAdvisor/internal/recorder"
	"TradeAdvisor/internal/repository"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// Options wires an Advisor.
type Options struct {
	Tickers []string
	Engine  engine.Config
	// PositionsFile is the recorded positions CSV. Empty means none.
	PositionsFile string
	// StateFile receives the ledger state after every run. Empty disables it.
	StateFile string
	Collector *collector.Collector
	Recorder  recorder.Recorder
	// Now defaults to time.Now.
	Now func() time.Time
}

// Advisor runs the engine over freshly collected data.
type Advisor struct {
	opts Options
	log  *logger.Logger
	now  func() time.Time
}

// New creates an Advisor. A nil recorder records nothing.
func New(opts Options, log *logger.Logger) *Advisor {
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Advisor{opts: opts, log: log, now: now}
}

// LoadState reads the ledger state saved by the last run. Without a state
// file it returns an empty state.
func (a *Advisor) LoadState() (*ledger.State, error) {
	if a.opts.StateFile == "" {
		return &ledger.State{}, nil
	}
	return ledger.LoadState(a.opts.StateFile)
}

// Report is the outcome of one run.
type Report struct {
	RunID    string
	Strategy string
	From     time.Time
	To       time.Time
	// Session is the decision date of a single-date run, zero otherwise.
	Session time.Time
	Result  *engine.Result
}

// Portfolio values the open positions at the last close of each instrument.
func (r *Report) Portfolio() portfolio.PortfolioStats {
	return portfolio.Value(r.Result.Positions, portfolio.LastCloses(r.Result.Stats))
}

// Backtest walks [from, to] with decisions on every date from from onward.
func (a *Advisor) Backtest(ctx context.Context, from, to time.Time, progress func(done, total int)) (*Report, error) {
	cfg := a.opts.Engine
	cfg.StartDate = optional.Some(model.Day(from))
	cfg.SingleDate = optional.None[time.Time]()
	return a.run(ctx, cfg, model.Day(from), model.Day(to), false, progress)
}

// Today runs the engine for the latest session up to now, taking decisions on
// that session only.
func (a *Advisor) Today(ctx context.Context) (*Report, error) {
	return a.AsOf(ctx, a.now())
}

// AsOf is Today for the latest session on or before date.
func (a *Advisor) AsOf(ctx context.Context, date time.Time) (*Report, error) {
	to := model.Day(date)
	return a.run(ctx, a.opts.Engine, to, to, true, nil)
}

func (a *Advisor) run(ctx context.Context, cfg engine.Config, from, to time.Time, single bool, progress func(done, total int)) (*Report, error) {
	started := a.now()

	var recorded []model.RecordedPosition
	if a.opts.PositionsFile != "" {
		var err error
		if recorded, err = repository.LoadPositions(a.opts.PositionsFile); err != nil {
			return nil, err
		}
	}
	tickers := a.opts.Tickers
	if len(tickers) == 0 {
		tickers = repository.Tickers(recorded)
	}
	if len(tickers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "no tickers to analyse")
	}
	recorded = repository.ForTickers(recorded, tickers)

	// a single-date run replays from the oldest recorded position so the
	// positions still held are open on the session
	if single {
		for _, rec := range recorded {
			if d := model.Day(rec.Date); d.Before(from) {
				from = d
			}
		}
	}

	warmup := max(cfg.WarmupDays, cfg.Indicators.WarmupBars())
	series, err := a.opts.Collector.Collect(ctx, tickers, collector.WarmupFrom(from, warmup), to)
	if err != nil {
		return nil, err
	}

	var session time.Time
	if single {
		var ok bool
		if session, ok = lastSession(series); !ok {
			return nil, errors.New(errors.ErrCodeDataUnavailable, "no session data")
		}
		if from.After(session) {
			from = session
		}
		cfg.StartDate = optional.Some(from)
		cfg.SingleDate = optional.Some(session)
	}

	var opts []engine.Option
	if progress != nil {
		opts = append(opts, engine.WithProgress(progress))
	}
	driver, err := engine.NewDriver(cfg, a.log.Named("engine"), opts...)
	if err != nil {
		return nil, err
	}
	result, runErr := driver.Run(series, recorded)
	if result == nil {
		return nil, runErr
	}

	report := &Report{
		RunID:    uuid.NewString(),
		Strategy: driver.RuleSet().Name(),
		From:     from,
		To:       to,
		Session:  session,
		Result:   result,
	}
	a.persist(report, tickers, started)
	return report, runErr
}

// persist records the run and saves the ledger state. Storage failures are
// logged and never fail the run.
func (a *Advisor) persist(r *Report, tickers []string, started time.Time) {
	run := &recorder.RunRecord{
		ID:         r.RunID,
		Strategy:   r.Strategy,
		Tickers:    tickers,
		From:       r.From,
		To:         r.To,
		Actions:    len(r.Result.Actions),
		Failures:   len(r.Result.Failures),
		StartedAt:  started,
		FinishedAt: a.now(),
	}
	if !r.Session.IsZero() {
		session := r.Session
		run.SingleDate = &session
	}
	rec := a.opts.Recorder
	if err := rec.RecordRun(run); err != nil {
		a.log.Error("record run", zap.Error(err))
		return
	}
	for i := range r.Result.Actions {
		if err := rec.RecordTradeAction(r.RunID, &r.Result.Actions[i]); err != nil {
			a.log.Error("record trade action", zap.Error(err))
		}
	}
	for _, ticker := range tickers {
		stats := r.Result.Stats[ticker]
		if len(stats) == 0 {
			continue
		}
		if err := rec.RecordDailyStats(r.RunID, stats); err != nil {
			a.log.Error("record daily stats", zap.String("ticker", ticker), zap.Error(err))
		}
	}
	for i := range r.Result.Trades {
		if err := rec.RecordClosedTrade(r.RunID, &r.Result.Trades[i]); err != nil {
			a.log.Error("record closed trade", zap.Error(err))
		}
	}

	if a.opts.StateFile != "" {
		state := ledger.NewState(r.RunID, r.Result.Positions, r.Result.Trades)
		if err := ledger.SaveState(a.opts.StateFile, state); err != nil {
			a.log.Error("save ledger state", zap.String("file", a.opts.StateFile), zap.Error(err))
		}
	}
}

// lastSession returns the latest bar date across series.
func lastSession(series []model.PriceSeries) (time.Time, bool) {
	var last time.Time
	for _, s := range series {
		if n := len(s.Bars); n > 0 && s.Bars[n-1].Date.After(last) {
			last = s.Bars[n-1].Date
		}
	}
	return model.Day(last), !last.IsZero()
}
