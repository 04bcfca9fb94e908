package recorder

import (
	"math"
	"time"

	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/strategy"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
)

// DefaultContextSize is the number of trailing daily stats attached to a trade action.
const DefaultContextSize = 5

// actionNamespace seeds trade action ids so identical runs produce identical ids.
var actionNamespace = uuid.MustParse("6f1c7a52-3d8e-4b0a-9a57-2f4e1c0d9b13")

// EventBuilder turns indicator history and rule outputs into DailyStat and
// TradeAction records.
type EventBuilder struct {
	contextSize int
}

// NewEventBuilder creates a builder attaching at most contextSize stats to each action.
func NewEventBuilder(contextSize int) *EventBuilder {
	if contextSize <= 0 {
		contextSize = DefaultContextSize
	}
	return &EventBuilder{contextSize: contextSize}
}

// ContextSize returns the configured context window.
func (b *EventBuilder) ContextSize() int { return b.contextSize }

// DailyStat builds the stat of the current bar in h. pos is the open position, if any.
func (b *EventBuilder) DailyStat(ticker string, h strategy.History, pos optional.Option[model.Position]) model.DailyStat {
	cur, _ := h.Ago(0)
	stat := model.DailyStat{
		Date:               cur.Date,
		Ticker:             ticker,
		Close:              round2(cur.Close),
		RSI:                round2(cur.RSI),
		RSIMA:              round2(cur.RSIMA),
		RSICrossoverSignal: h.RSICrossedAbove(),
		BBTop:              cur.BBTop,
		BBMid:              cur.BBMid,
		BBBot:              cur.BBBot,
	}
	if pos.IsSome() {
		p := pos.Unwrap()
		stat.Position = round2(p.EntryPrice)
		stat.PnLPct = round2((cur.Close/p.EntryPrice - 1) * 100)
	}
	return stat
}

// TradeAction builds an action whose context is the last stats, the
// triggering bar's included, in chronological order.
func (b *EventBuilder) TradeAction(date time.Time, action model.Action, ticker, reason string, stats []model.DailyStat) model.TradeAction {
	if len(stats) > b.contextSize {
		stats = stats[len(stats)-b.contextSize:]
	}
	context := make([]string, 0, len(stats))
	for _, s := range stats {
		context = append(context, s.AsText(true))
	}
	key := date.Format(model.DateLayout) + "|" + ticker + "|" + string(action)
	return model.TradeAction{
		ID:      uuid.NewSHA1(actionNamespace, []byte(key)).String(),
		Date:    date,
		Action:  action,
		Ticker:  ticker,
		Reason:  reason,
		Context: context,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
