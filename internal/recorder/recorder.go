package recorder

import (
	"time"

	"TradeAdvisor/internal/model"
)

// RunRecord describes one walk-forward run.
type RunRecord struct {
	ID         string
	Strategy   string
	Tickers    []string
	From       time.Time
	To         time.Time
	SingleDate *time.Time
	Actions    int
	Failures   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder persists run output for later analysis.
type Recorder interface {
	RecordRun(run *RunRecord) error
	RecordTradeAction(runID string, action *model.TradeAction) error
	RecordDailyStats(runID string, stats []model.DailyStat) error
	RecordClosedTrade(runID string, trade *model.ClosedTrade) error
	Close() error
}
