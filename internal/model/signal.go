package model

import (
	"fmt"
	"strings"
	"time"
)

// Action is the direction of a trade decision.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// DailyStat is the per-bar audit record of one instrument once warm-up has elapsed.
type DailyStat struct {
	Date               time.Time
	Ticker             string
	Close              float64
	RSI                float64
	RSIMA              float64
	RSICrossoverSignal bool
	BBTop              float64
	BBMid              float64
	BBBot              float64
	// Position is the open position's entry price, or zero when flat.
	Position float64
	PnLPct   float64
}

// AsText renders the stat on one line.
func (s DailyStat) AsText(includeDate bool) string {
	crossover := " "
	if s.RSICrossoverSignal {
		crossover = "*"
	}
	text := fmt.Sprintf("%s, close: %7.2f, %srsi: %.2f, rsi-ma: %.2f, bb-top: %.2f, bb-mid: %.2f, bb-bot: %.2f, position: %.2f, pnl-pct: %.2f%%",
		s.Ticker, s.Close, crossover, s.RSI, s.RSIMA, s.BBTop, s.BBMid, s.BBBot, s.Position, s.PnLPct)
	if includeDate {
		text = s.Date.Format(DateLayout) + ", " + text
	}
	return text
}

// TradeAction is an explained BUY or SELL decision. Immutable once built.
type TradeAction struct {
	ID      string
	Date    time.Time
	Action  Action
	Ticker  string
	Reason  string
	Context []string
}

// AsText renders the action, optionally followed by its context lines.
func (a TradeAction) AsText(withContext bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s because %s", a.Date.Format(DateLayout), a.Action, a.Ticker, a.Reason)
	if withContext && len(a.Context) > 0 {
		b.WriteString("\nContext:\n")
		b.WriteString(strings.Join(a.Context, "\n"))
	}
	return b.String()
}
