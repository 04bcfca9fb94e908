package calculator

import (
	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"
)

// CalculateRSI computes the Wilder-smoothed RSI over the given period.
// Requires at least period+1 bars.
func CalculateRSI(bars []model.PriceBar, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidConfiguration, "period must be positive")
	}
	if len(bars) < period+1 {
		return 0, errors.Newf(errors.ErrCodeInsufficientHistory, "not enough data for RSI: need %d, got %d", period+1, len(bars))
	}

	closes := extractCloses(bars)

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for remaining bars
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	return rsiFromAverages(avgGain, avgLoss), nil
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50.0
	case avgLoss == 0:
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// RSI is the incremental form of CalculateRSI: one close per Update.
type RSI struct {
	period    int
	prevClose float64
	closes    int
	gain      *SMMA
	loss      *SMMA
}

// NewRSI creates an RSI over period price changes.
func NewRSI(period int) (*RSI, error) {
	gain, err := NewSMMA(period)
	if err != nil {
		return nil, err
	}
	loss, _ := NewSMMA(period)
	return &RSI{period: period, gain: gain, loss: loss}, nil
}

// Update feeds the next close.
func (r *RSI) Update(close float64) {
	r.closes++
	if r.closes > 1 {
		change := close - r.prevClose
		if change > 0 {
			r.gain.Update(change)
			r.loss.Update(0)
		} else {
			r.gain.Update(0)
			r.loss.Update(-change)
		}
	}
	r.prevClose = close
}

// Ready reports whether period changes have been observed.
func (r *RSI) Ready() bool { return r.gain.Ready() }

// Value returns the current RSI in [0, 100].
func (r *RSI) Value() (float64, error) {
	if !r.Ready() {
		return 0, errors.Newf(errors.ErrCodeInsufficientHistory, "rsi(%d) warming up: %d closes", r.period, r.closes)
	}
	g, _ := r.gain.Value()
	l, _ := r.loss.Value()
	return rsiFromAverages(g, l), nil
}
