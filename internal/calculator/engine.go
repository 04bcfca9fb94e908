package calculator

import (
	"TradeAdvisor/internal/model"
)

// Params configures the indicator families.
type Params struct {
	RSIPeriod   int     `yaml:"rsi_period" validate:"gt=0"`
	RSIMAPeriod int     `yaml:"rsi_ma_period" validate:"gt=0"`
	BBPeriod    int     `yaml:"bb_period" validate:"gt=1"`
	BBDevFactor float64 `yaml:"bb_dev_factor" validate:"gt=0"`
}

// DefaultParams returns RSI(14), SMMA(14) of RSI and Bollinger(20, 2).
func DefaultParams() Params {
	return Params{RSIPeriod: 14, RSIMAPeriod: 14, BBPeriod: 20, BBDevFactor: 2}
}

// WarmupBars returns the number of bars needed before every indicator is ready.
func (p Params) WarmupBars() int {
	rsiMA := p.RSIPeriod + p.RSIMAPeriod
	if p.BBPeriod > rsiMA {
		return p.BBPeriod
	}
	return rsiMA
}

// Engine computes RSI, the smoothed average of RSI and Bollinger Bands for one
// instrument, one bar at a time.
type Engine struct {
	rsi   *RSI
	rsiMA *SMMA
	bb    *Bollinger
	bars  int
}

// NewEngine creates an indicator engine.
func NewEngine(p Params) (*Engine, error) {
	rsi, err := NewRSI(p.RSIPeriod)
	if err != nil {
		return nil, err
	}
	rsiMA, err := NewSMMA(p.RSIMAPeriod)
	if err != nil {
		return nil, err
	}
	bb, err := NewBollinger(p.BBPeriod, p.BBDevFactor)
	if err != nil {
		return nil, err
	}
	return &Engine{rsi: rsi, rsiMA: rsiMA, bb: bb}, nil
}

// Update feeds the bar and returns its snapshot. ok is false while any
// indicator is still warming up; the snapshot must not be used then.
func (e *Engine) Update(bar model.PriceBar) (snap model.IndicatorSnapshot, ok bool) {
	e.bars++
	e.rsi.Update(bar.Close)
	e.bb.Update(bar.Close)

	rsi, err := e.rsi.Value()
	if err != nil {
		return model.IndicatorSnapshot{}, false
	}
	e.rsiMA.Update(rsi)

	if !e.Ready() {
		return model.IndicatorSnapshot{}, false
	}
	rsiMA, _ := e.rsiMA.Value()
	bands, _ := e.bb.Value()
	return model.IndicatorSnapshot{
		Date:  bar.Date,
		Close: bar.Close,
		RSI:   rsi,
		RSIMA: rsiMA,
		BBTop: bands.Top,
		BBMid: bands.Mid,
		BBBot: bands.Bot,
	}, true
}

// Ready reports whether every indicator has completed warm-up.
func (e *Engine) Ready() bool {
	return e.rsi.Ready() && e.rsiMA.Ready() && e.bb.Ready()
}

// Bars returns the number of bars observed.
func (e *Engine) Bars() int { return e.bars }
