package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"TradeAdvisor/internal/advisor"
	"TradeAdvisor/internal/logger"
	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/notifier"
	"TradeAdvisor/internal/portfolio"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	sendRetries = 3
	statsLines  = 10
)

// Notifier delivers formatted messages.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the advisor on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Advisor  *advisor.Advisor
	Notifier Notifier
	Ctx      context.Context

	log   *logger.Logger
	runMu sync.Mutex
	mu    sync.Mutex
	last  *advisor.Report
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, adv *advisor.Advisor, n Notifier, log *logger.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		Advisor:  adv,
		Notifier: n,
		Ctx:      ctx,
		log:      log,
	}
}

// Register registers the daily advisor run.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes the daily task immediately.
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

// Last returns the report of the latest successful run, if any.
func (s *Scheduler) Last() *advisor.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) dailyTask() {
	if !s.runMu.TryLock() {
		s.log.Warn("daily run already in progress, skipped")
		return
	}
	defer s.runMu.Unlock()

	s.log.Info("running daily task")
	report, err := s.Advisor.Today(s.Ctx)
	if report == nil {
		s.log.Error("daily run", zap.Error(err))
		s.trySend(notifier.FormatError("Daily run", err))
		return
	}
	if err != nil {
		// instrument failures; the others still produced actions
		s.log.Warn("daily run completed with failures", zap.Error(err))
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	s.log.Info("daily run done",
		zap.String("run_id", report.RunID),
		zap.String("session", report.Session.Format(model.DateLayout)),
		zap.Int("actions", len(report.Result.Actions)))

	msg := notifier.FormatTradeActions(report.Session, report.Result.Actions)
	msg += "\n\n" + notifier.FormatPortfolio(report.Portfolio())
	if err != nil {
		msg += "\n\n" + notifier.FormatError("Some instruments", err)
	}
	s.trySend(msg)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	switch commandName(command) {
	case "/today":
		s.dailyTask()
		return ""
	case "/positions":
		positions, closes, err := s.holdings()
		if err != nil {
			return notifier.FormatError("Loading positions", err)
		}
		return notifier.FormatPortfolio(portfolio.Value(positions, closes))
	case "/stats":
		fields := strings.Fields(command)
		if len(fields) < 2 {
			return "Usage: /stats TICKER"
		}
		ticker := strings.ToUpper(fields[1])
		last := s.Last()
		if last == nil {
			return "No run yet. Send /today first."
		}
		return notifier.FormatDailyStats(ticker, last.Result.Stats[ticker], statsLines)
	case "/performance":
		trades, err := s.trades()
		if err != nil {
			return notifier.FormatError("Loading trades", err)
		}
		return notifier.FormatPerformance(portfolio.ClosedPerformance(trades))
	default:
		return notifier.HelpText
	}
}

// holdings prefers the latest run, which carries closes, over the saved state.
func (s *Scheduler) holdings() ([]model.Position, map[string]float64, error) {
	if last := s.Last(); last != nil {
		return last.Result.Positions, portfolio.LastCloses(last.Result.Stats), nil
	}
	state, err := s.Advisor.LoadState()
	if err != nil {
		return nil, nil, err
	}
	return state.Positions, nil, nil
}

func (s *Scheduler) trades() ([]model.ClosedTrade, error) {
	if last := s.Last(); last != nil {
		return last.Result.Trades, nil
	}
	state, err := s.Advisor.LoadState()
	if err != nil {
		return nil, err
	}
	return state.Trades, nil
}

// commandName strips arguments and a trailing @botname.
func commandName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(name)
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}
