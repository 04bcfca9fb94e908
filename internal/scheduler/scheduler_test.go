package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"TradeAdvisor/internal/advisor"
	"TradeAdvisor/internal/collector"
	"TradeAdvisor/internal/engine"
	"TradeAdvisor/internal/ledger"
	"TradeAdvisor/internal/logger"
	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/notifier"
	"TradeAdvisor/internal/strategy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newScheduler(t *testing.T, fetcher collector.Fetcher) (*Scheduler, *fakeNotifier, string) {
	t.Helper()
	cfg, err := engine.DefaultConfig(strategy.BollingerRSI)
	require.NoError(t, err)
	stateFile := filepath.Join(t.TempDir(), "ledger.json")
	adv := advisor.New(advisor.Options{
		Tickers:   []string{"AAPL", "MSFT"},
		Engine:    cfg,
		StateFile: stateFile,
		Collector: collector.NewCollector(fetcher, logger.NewNop()),
		Now:       func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) },
	}, logger.NewNop())
	n := &fakeNotifier{}
	return NewScheduler(context.Background(), adv, n, logger.NewNop()), n, stateFile
}

func TestRegister(t *testing.T) {
	s, _, _ := newScheduler(t, &collector.MockFetcher{})
	require.NoError(t, s.Register("0 30 22 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a cron"))
}

func TestRunNowSendsReport(t *testing.T) {
	s, n, _ := newScheduler(t, &collector.MockFetcher{})
	s.RunNow()

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "TradeAdvisor</b> | 2024-05-31")
	assert.Contains(t, msgs[0], "Open positions")

	last := s.Last()
	require.NotNil(t, last)
	assert.Equal(t, strategy.BollingerRSI, last.Strategy)
}

func TestRunNowReportsFailure(t *testing.T) {
	s, n, _ := newScheduler(t, &collector.MockFetcher{Fail: map[string]bool{"AAPL": true, "MSFT": true}})
	s.RunNow()

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Daily run failed")
	assert.Nil(t, s.Last())
}

func TestHandleCommand(t *testing.T) {
	s, n, stateFile := newScheduler(t, &collector.MockFetcher{})
	ctx := context.Background()

	assert.Equal(t, notifier.HelpText, s.HandleCommand(ctx, "/help"))
	assert.Equal(t, notifier.HelpText, s.HandleCommand(ctx, "hello"))

	// before any run the saved state answers
	require.NoError(t, ledger.SaveState(stateFile, ledger.NewState("run-0", []model.Position{
		{Ticker: "AAPL", EntryPrice: 100, Size: decimal.NewFromInt(1), PeakPrice: 100},
	}, []model.ClosedTrade{
		{Ticker: "MSFT", EntryPrice: 100, ExitPrice: 110, PnL: decimal.NewFromInt(10)},
	})))
	assert.Contains(t, s.HandleCommand(ctx, "/positions"), "Invested: 100.00")
	assert.Contains(t, s.HandleCommand(ctx, "/performance@advisor_bot"), "All time: 100% (1/1)")

	assert.Contains(t, s.HandleCommand(ctx, "/stats AAPL"), "No run yet")

	assert.Equal(t, "", s.HandleCommand(ctx, "/today"))
	assert.Len(t, n.messages(), 1)
	assert.NotNil(t, s.Last())

	assert.Equal(t, "Usage: /stats TICKER", s.HandleCommand(ctx, "/stats"))
	assert.Contains(t, s.HandleCommand(ctx, "/stats aapl"), "<b>AAPL</b>")
	assert.Contains(t, s.HandleCommand(ctx, "/stats aapl"), "2024-05-31, AAPL, close")
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/today", commandName(" /Today@bot now "))
	assert.Equal(t, "", commandName("   "))
}
