package model

import "time"

// DateLayout is the calendar date format used in reasons, renderings and files.
const DateLayout = "2006-01-02"

// PriceBar represents a single daily bar.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the date-ascending bars of one instrument.
type PriceSeries struct {
	Ticker string
	Bars   []PriceBar
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
