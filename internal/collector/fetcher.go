package collector

import (
	"context"
	"time"

	"TradeAdvisor/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDailyBars returns the daily bars of symbol dated within [from, to],
	// ascending.
	FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error)
	Name() string
}

// WarmupFrom returns the fetch start that leaves warmupDays trading days of
// history before start, counting five trading days per calendar week.
func WarmupFrom(start time.Time, warmupDays int) time.Time {
	weeks := (warmupDays + 4) / 5
	return model.Day(start).AddDate(0, 0, -7*weeks)
}

// inRange reports whether d falls within [from, to] by calendar date. A zero
// bound is open.
func inRange(d, from, to time.Time) bool {
	day := model.Day(d)
	if !from.IsZero() && day.Before(model.Day(from)) {
		return false
	}
	if !to.IsZero() && day.After(model.Day(to)) {
		return false
	}
	return true
}

// parseDate parses the leading YYYY-MM-DD of s, ignoring any time suffix.
func parseDate(s string) (time.Time, error) {
	if len(s) > len(model.DateLayout) {
		s = s[:len(model.DateLayout)]
	}
	return time.Parse(model.DateLayout, s)
}
