package engine

import (
	"slices"
	"time"

	"TradeAdvisor/internal/calculator"
	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/strategy"
)

type phase int

const (
	phaseWarmup phase = iota
	phaseActive
	phaseDone
)

// instrument is the driver's per-instrument cursor. The ledger owns the
// position state; this holds what only the walk needs.
type instrument struct {
	ticker   string
	bars     []model.PriceBar
	cursor   int
	calc     *calculator.Engine
	history  strategy.History
	start    time.Time
	phase    phase
	recorded map[time.Time]model.RecordedPosition
	err      error
}

// barOn returns the instrument's bar for date and advances the cursor.
func (in *instrument) barOn(date time.Time) (model.PriceBar, bool) {
	if in.cursor >= len(in.bars) {
		return model.PriceBar{}, false
	}
	bar := in.bars[in.cursor]
	if !model.SameDay(bar.Date, date) {
		return model.PriceBar{}, false
	}
	in.cursor++
	return bar, true
}

// analysisStart picks the first date decisions may be taken for the series.
// ok is false when the series is shorter than the warm-up.
func analysisStart(bars []model.PriceBar, cfg Config) (time.Time, bool) {
	if cfg.StartDate.IsSome() {
		return model.Day(cfg.StartDate.Unwrap()), true
	}
	if len(bars) <= cfg.WarmupDays {
		return time.Time{}, false
	}
	return model.Day(bars[cfg.WarmupDays].Date), true
}

// calendar returns the ascending union of every series' dates.
func calendar(instruments []*instrument) []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, in := range instruments {
		for _, bar := range in.bars {
			d := model.Day(bar.Date)
			if !seen[d] {
				seen[d] = true
				dates = append(dates, d)
			}
		}
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates
}
