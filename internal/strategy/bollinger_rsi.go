package strategy

import (
	"fmt"

	"TradeAdvisor/internal/model"

	"github.com/moznion/go-optional"
)

// BollingerRSIRules buys a close crossing back above the lower Bollinger band
// while RSI is below the lower threshold. Exits, in order: a mid band "hat"
// inflection in profit, a lower band breakdown past the loss tolerance, and a
// plain percent loss stop.
type BollingerRSIRules struct {
	params Params
}

func (r *BollingerRSIRules) Name() string  { return BollingerRSI }
func (r *BollingerRSIRules) Lookback() int { return 4 }

func (r *BollingerRSIRules) BuySignal(ticker string, h History) optional.Option[string] {
	cur, ok := h.Ago(0)
	if !ok {
		return optional.None[string]()
	}
	prev, ok := h.Ago(1)
	if !ok {
		return optional.None[string]()
	}
	if prev.Close < prev.BBBot && cur.Close > cur.BBBot && cur.RSI < r.params.LowerRSI {
		return optional.Some(fmt.Sprintf("%s Close (%.2f,%.2f) above Bollinger bottom (%.2f) while RSI (%.2f) below %.2f",
			ticker, prev.Close, cur.Close, cur.BBBot, cur.RSI, r.params.LowerRSI))
	}
	return optional.None[string]()
}

func (r *BollingerRSIRules) SellSignal(pos model.Position, h History) optional.Option[string] {
	cur, ok := h.Ago(0)
	if !ok {
		return optional.None[string]()
	}
	if reason := r.midInflection(pos, h); reason.IsSome() {
		return reason
	}

	prevClose := cur.Close
	if prev, ok := h.Ago(1); ok {
		prevClose = prev.Close
	}
	pnl := pnlPct(pos.EntryPrice, cur.Close)

	if cur.Close < cur.BBBot && -pnl > r.params.BBLowCrossoverLossTolerance {
		return optional.Some(fmt.Sprintf("%s Close (%.2f, %.2f) below Bollinger bottom (%.2f) and loss above %.2f%% - pnl-pct: %.2f%%",
			pos.Ticker, prevClose, cur.Close, cur.BBBot, r.params.BBLowCrossoverLossTolerance, pnl))
	}
	if -pnl > r.params.LossPct {
		return optional.Some(fmt.Sprintf("%s Close (%.2f, %.2f) loss of %.2f%% (above %.2f%% tolerance)",
			pos.Ticker, prevClose, cur.Close, -pnl, r.params.LossPct))
	}
	return optional.None[string]()
}

// midInflection fires when the mid band rose over the two prior bars and fell
// on the current one, the position is above the profit target, and the close
// is below the close two bars back.
func (r *BollingerRSIRules) midInflection(pos model.Position, h History) optional.Option[string] {
	var mids [4]float64
	for k := 0; k < 4; k++ {
		snap, ok := h.Ago(k)
		if !ok {
			return optional.None[string]()
		}
		mids[k] = snap.BBMid
	}
	cur, _ := h.Ago(0)
	back2, _ := h.Ago(2)
	pnl := pnlPct(pos.EntryPrice, cur.Close)

	rising := mids[3] < mids[2] && mids[2] < mids[1]
	if !rising || mids[1] <= mids[0] {
		return optional.None[string]()
	}
	if cur.Close <= pos.EntryPrice || pnl <= r.params.InflectionProfitTarget || cur.Close >= back2.Close {
		return optional.None[string]()
	}
	return optional.Some(fmt.Sprintf("%s Bollinger mid inflection sustained (%.2f, %.2f, %.2f, %.2f) - pnl-pct: %.2f%%",
		pos.Ticker, mids[3], mids[2], mids[1], mids[0], pnl))
}
