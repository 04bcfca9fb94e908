package collector

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without fixed bars get a deterministic synthetic series.
type MockFetcher struct {
	Bars map[string][]model.PriceBar
	// Fail lists symbols that return an error.
	Fail map[string]bool
	// BasePrice seeds generated series. Defaults to 100.
	BasePrice float64
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	if m.Fail[symbol] {
		return nil, errors.Newf(errors.ErrCodeDataUnavailable, "mock: %s unavailable", symbol)
	}
	if bars, ok := m.Bars[symbol]; ok {
		var out []model.PriceBar
		for _, b := range bars {
			if inRange(b.Date, from, to) {
				out = append(out, b)
			}
		}
		return out, nil
	}
	base := m.BasePrice
	if base == 0 {
		base = 100
	}
	return GenerateBars(symbol, base, from, to), nil
}

// GenerateBars builds a weekday series between from and to: a slow sine
// swing plus noise seeded by the symbol, so the same symbol always yields
// the same bars.
func GenerateBars(symbol string, basePrice float64, from, to time.Time) []model.PriceBar {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	var bars []model.PriceBar
	price := basePrice
	i := 0
	for d := model.Day(from); !d.After(model.Day(to)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		swing := 1 + 0.15*math.Sin(float64(i)/15)
		price = math.Max(basePrice*0.05, price*(1+rng.NormFloat64()*0.01))
		c := price * swing
		bars = append(bars, model.PriceBar{
			Date:   d,
			Open:   c * (1 + rng.NormFloat64()*0.002),
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000000,
		})
		i++
	}
	return bars
}
