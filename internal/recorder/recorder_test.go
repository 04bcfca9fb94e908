package recorder

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"TradeAdvisor/internal/logger"
	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/strategy"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var day0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func stats(n int) []model.DailyStat {
	out := make([]model.DailyStat, n)
	for i := range out {
		out[i] = model.DailyStat{Date: day0.AddDate(0, 0, i), Ticker: "ACME", Close: 100 + float64(i)}
	}
	return out
}

func TestDailyStat(t *testing.T) {
	b := NewEventBuilder(5)
	h := strategy.History{
		{Date: day0, Close: 99, RSI: 40, RSIMA: 42},
		{Date: day0.AddDate(0, 0, 1), Close: 110.456, RSI: 45.678, RSIMA: 43.211, BBTop: 120, BBMid: 105, BBBot: 90},
	}

	flat := b.DailyStat("ACME", h, optional.None[model.Position]())
	assert.Equal(t, 110.46, flat.Close)
	assert.Equal(t, 45.68, flat.RSI)
	assert.Equal(t, 43.21, flat.RSIMA)
	assert.True(t, flat.RSICrossoverSignal)
	assert.Zero(t, flat.Position)
	assert.Zero(t, flat.PnLPct)

	pos := model.Position{Ticker: "ACME", EntryPrice: 100, PeakPrice: 100, Size: decimal.NewFromInt(1)}
	held := b.DailyStat("ACME", h, optional.Some(pos))
	assert.Equal(t, 100.0, held.Position)
	assert.Equal(t, 10.46, held.PnLPct)
	assert.Equal(t,
		"2024-05-02, ACME, close:  110.46, *rsi: 45.68, rsi-ma: 43.21, bb-top: 120.00, bb-mid: 105.00, bb-bot: 90.00, position: 100.00, pnl-pct: 10.46%",
		held.AsText(true))
}

func TestTradeActionContext(t *testing.T) {
	b := NewEventBuilder(5)

	cases := []struct {
		available int
		want      int
	}{
		{1, 1},
		{4, 4},
		{5, 5},
		{12, 5},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_stats", tc.available), func(t *testing.T) {
			s := stats(tc.available)
			last := s[len(s)-1]
			a := b.TradeAction(last.Date, model.ActionBuy, "ACME", "reason", s)
			require.Len(t, a.Context, tc.want)
			assert.Equal(t, last.AsText(true), a.Context[tc.want-1])
			assert.Equal(t, s[len(s)-tc.want].AsText(true), a.Context[0])
		})
	}
}

func TestTradeActionDeterministic(t *testing.T) {
	b := NewEventBuilder(0)
	assert.Equal(t, DefaultContextSize, b.ContextSize())

	s := stats(3)
	a1 := b.TradeAction(day0, model.ActionSell, "ACME", "why", s)
	a2 := b.TradeAction(day0, model.ActionSell, "ACME", "why", s)
	assert.Equal(t, a1, a2)
	assert.NotEmpty(t, a1.ID)

	other := b.TradeAction(day0, model.ActionBuy, "ACME", "why", s)
	assert.NotEqual(t, a1.ID, other.ID)
}

type SQLiteRecorderTestSuite struct {
	suite.Suite
	rec *SQLiteRecorder
}

func TestSQLiteRecorderSuite(t *testing.T) {
	suite.Run(t, new(SQLiteRecorderTestSuite))
}

func (s *SQLiteRecorderTestSuite) SetupTest() {
	rec, err := NewSQLiteRecorder(filepath.Join(s.T().TempDir(), "advisor.db"), logger.NewNop())
	s.Require().NoError(err)
	s.rec = rec
}

func (s *SQLiteRecorderTestSuite) TearDownTest() {
	s.NoError(s.rec.Close())
}

func (s *SQLiteRecorderTestSuite) TestRunAndActions() {
	single := day0
	run := &RunRecord{
		ID:         "run-1",
		Strategy:   strategy.RSICrossover,
		Tickers:    []string{"ACME", "INIT"},
		From:       day0,
		To:         day0.AddDate(0, 1, 0),
		SingleDate: &single,
		StartedAt:  time.Now(),
	}
	s.Require().NoError(s.rec.RecordRun(run))

	b := NewEventBuilder(5)
	first := b.TradeAction(day0, model.ActionBuy, "ACME", "buy reason", stats(2))
	second := b.TradeAction(day0.AddDate(0, 0, 3), model.ActionSell, "ACME", "sell reason", stats(7))
	s.Require().NoError(s.rec.RecordTradeAction(run.ID, &first))
	s.Require().NoError(s.rec.RecordTradeAction(run.ID, &second))

	run.Actions = 2
	run.FinishedAt = time.Now()
	s.Require().NoError(s.rec.RecordRun(run))

	actions, err := s.rec.TradeActions(run.ID)
	s.Require().NoError(err)
	s.Require().Len(actions, 2)
	s.Equal(first, actions[0])
	s.Equal(second, actions[1])

	none, err := s.rec.TradeActions("other")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *SQLiteRecorderTestSuite) TestDailyStatsBatches() {
	s.Require().NoError(s.rec.RecordDailyStats("run-1", stats(statsBatchSize+17)))
	s.Require().NoError(s.rec.RecordDailyStats("run-1", nil))

	n, err := s.rec.CountDailyStats("run-1", "ACME")
	s.Require().NoError(err)
	s.Equal(statsBatchSize+17, n)
}

func (s *SQLiteRecorderTestSuite) TestClosedTrade() {
	trade := &model.ClosedTrade{
		ID: "t-1", Ticker: "ACME", EntryDate: day0, EntryPrice: 100,
		ExitDate: day0.AddDate(0, 0, 5), ExitPrice: 110,
		Size: decimal.NewFromInt(3), PnL: decimal.NewFromInt(30), PnLPct: 10,
	}
	s.Require().NoError(s.rec.RecordClosedTrade("run-1", trade))
	s.Error(s.rec.RecordClosedTrade("run-1", trade))
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(&RunRecord{}))
	assert.NoError(t, r.RecordTradeAction("x", &model.TradeAction{}))
	assert.NoError(t, r.RecordDailyStats("x", stats(2)))
	assert.NoError(t, r.RecordClosedTrade("x", &model.ClosedTrade{}))
	assert.NoError(t, r.Close())
}
