package calculator

import (
	"math"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidConfiguration, "period must be positive")
	}
	if len(prices) < period {
		return 0, errors.Newf(errors.ErrCodeInsufficientHistory, "not enough data for SMA: need %d, got %d", period, len(prices))
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateStdDev returns the population standard deviation of the last period prices.
func CalculateStdDev(prices []float64, period int) (float64, error) {
	mean, err := CalculateSMA(prices, period)
	if err != nil {
		return 0, err
	}
	sq := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(period)), nil
}

// SMMA is Wilder's smoothed moving average. It is seeded with the simple
// average of the first period values, then prev*(period-1)/period + v/period.
type SMMA struct {
	period int
	seen   int
	sum    float64
	value  float64
}

// NewSMMA creates a smoothed moving average over period values.
func NewSMMA(period int) (*SMMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "smma period must be positive, got %d", period)
	}
	return &SMMA{period: period}, nil
}

// Update feeds the next value.
func (s *SMMA) Update(v float64) {
	s.seen++
	switch {
	case s.seen < s.period:
		s.sum += v
	case s.seen == s.period:
		s.sum += v
		s.value = s.sum / float64(s.period)
	default:
		s.value = (s.value*float64(s.period-1) + v) / float64(s.period)
	}
}

// Ready reports whether period values have been observed.
func (s *SMMA) Ready() bool { return s.seen >= s.period }

// Value returns the current smoothed average.
func (s *SMMA) Value() (float64, error) {
	if !s.Ready() {
		return 0, errors.Newf(errors.ErrCodeInsufficientHistory, "smma(%d) warming up: %d values", s.period, s.seen)
	}
	return s.value, nil
}

func extractCloses(bars []model.PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
