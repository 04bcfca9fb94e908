package engine

import (
	"math"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"
)

// validateSeries rejects series with duplicate tickers, missing prices or
// dates that are not strictly ascending.
func validateSeries(series []model.PriceSeries) error {
	seen := make(map[string]bool, len(series))
	for _, s := range series {
		if s.Ticker == "" {
			return errors.New(errors.ErrCodeMalformedBar, "series without ticker")
		}
		if seen[s.Ticker] {
			return errors.Newf(errors.ErrCodeMalformedBar, "%s: duplicate series", s.Ticker)
		}
		seen[s.Ticker] = true

		for i, bar := range s.Bars {
			if bar.Date.IsZero() {
				return errors.Newf(errors.ErrCodeMalformedBar, "%s: bar %d has no date", s.Ticker, i)
			}
			for _, v := range []float64{bar.Open, bar.High, bar.Low, bar.Close} {
				if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					return errors.Newf(errors.ErrCodeMalformedBar, "%s: bar %s has missing or invalid prices (o=%v h=%v l=%v c=%v)",
						s.Ticker, bar.Date.Format(model.DateLayout), bar.Open, bar.High, bar.Low, bar.Close)
				}
			}
			// the walk is keyed by calendar day
			if i > 0 && !model.Day(bar.Date).After(model.Day(s.Bars[i-1].Date)) {
				return errors.Newf(errors.ErrCodeMalformedBar, "%s: bar %s does not follow %s",
					s.Ticker, bar.Date.Format(model.DateLayout), s.Bars[i-1].Date.Format(model.DateLayout))
			}
		}
	}
	return nil
}
