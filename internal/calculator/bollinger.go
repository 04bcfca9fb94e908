package calculator

import (
	"TradeAdvisor/internal/errors"
)

// Bands is one Bollinger Bands reading.
type Bands struct {
	Top float64
	Mid float64
	Bot float64
}

// CalculateBollinger returns the bands of the last period prices:
// mid = SMA, top/bot = mid ± devFactor * population stddev.
func CalculateBollinger(prices []float64, period int, devFactor float64) (Bands, error) {
	mid, err := CalculateSMA(prices, period)
	if err != nil {
		return Bands{}, err
	}
	sd, err := CalculateStdDev(prices, period)
	if err != nil {
		return Bands{}, err
	}
	return Bands{Top: mid + devFactor*sd, Mid: mid, Bot: mid - devFactor*sd}, nil
}

// Bollinger maintains Bollinger Bands over a rolling close window.
type Bollinger struct {
	window    *Window
	devFactor float64
}

// NewBollinger creates Bollinger Bands over period closes.
func NewBollinger(period int, devFactor float64) (*Bollinger, error) {
	if devFactor <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "bollinger dev factor must be positive, got %.2f", devFactor)
	}
	w, err := NewWindow(period)
	if err != nil {
		return nil, err
	}
	return &Bollinger{window: w, devFactor: devFactor}, nil
}

// Update feeds the next close.
func (b *Bollinger) Update(close float64) { b.window.Push(close) }

// Ready reports whether a full window has been observed.
func (b *Bollinger) Ready() bool { return b.window.Full() }

// Value returns the current bands.
func (b *Bollinger) Value() (Bands, error) {
	if !b.Ready() {
		return Bands{}, errors.Newf(errors.ErrCodeInsufficientHistory, "bollinger(%d) warming up: %d closes", b.window.Cap(), b.window.Len())
	}
	return CalculateBollinger(b.window.Values(), b.window.Cap(), b.devFactor)
}
