package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDailyStatAsText(t *testing.T) {
	stat := DailyStat{
		Date:               time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
		Ticker:             "SNOW",
		Close:              136.18,
		RSI:                27.56,
		RSIMA:              44.78,
		RSICrossoverSignal: false,
		BBTop:              170.1,
		BBMid:              155.25,
		BBBot:              140.4,
		Position:           151.6,
		PnLPct:             -10.17,
	}
	assert.Equal(t,
		"2024-05-31, SNOW, close:  136.18,  rsi: 27.56, rsi-ma: 44.78, bb-top: 170.10, bb-mid: 155.25, bb-bot: 140.40, position: 151.60, pnl-pct: -10.17%",
		stat.AsText(true))

	stat.RSICrossoverSignal = true
	assert.Contains(t, stat.AsText(false), "*rsi: 27.56")
	assert.NotContains(t, stat.AsText(false), "2024-05-31")
}

func TestTradeActionAsText(t *testing.T) {
	action := TradeAction{
		Date:    time.Date(2023, 8, 18, 0, 0, 0, 0, time.UTC),
		Action:  ActionBuy,
		Ticker:  "AMD",
		Reason:  "AMD Close (104.44,105.45) above Bollinger bottom (104.51) while RSI (40.88) below 44.00",
		Context: []string{"line one", "line two"},
	}
	assert.Equal(t, "2023-08-18 BUY AMD because "+action.Reason, action.AsText(false))
	assert.Equal(t, "2023-08-18 BUY AMD because "+action.Reason+"\nContext:\nline one\nline two", action.AsText(true))
}

func TestDayHelpers(t *testing.T) {
	ts := time.Date(2024, 1, 2, 21, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Day(ts))
	assert.True(t, SameDay(ts, Day(ts)))
	assert.False(t, SameDay(ts, ts.AddDate(0, 0, 1)))
}

func TestPositionCost(t *testing.T) {
	p := Position{EntryPrice: 100.5, Size: decimal.NewFromInt(10)}
	assert.True(t, p.Cost().Equal(decimal.NewFromFloat(1005)))
}
