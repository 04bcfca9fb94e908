package model

import "time"

// IndicatorSnapshot holds the indicator values of one instrument for one bar.
type IndicatorSnapshot struct {
	Date   time.Time
	Ticker string
	Close  float64
	RSI    float64
	RSIMA  float64
	BBTop  float64
	BBMid  float64
	BBBot  float64
}
