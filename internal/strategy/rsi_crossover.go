package strategy

import (
	"fmt"

	"TradeAdvisor/internal/model"

	"github.com/moznion/go-optional"
)

// RSICrossoverRules buys an upward RSI crossover of its moving average while
// RSI is still oversold, and sells on profit retreat from the peak or on a
// maximum tolerated loss.
type RSICrossoverRules struct {
	params Params
}

func (r *RSICrossoverRules) Name() string  { return RSICrossover }
func (r *RSICrossoverRules) Lookback() int { return 2 }

// BuySignal fires when RSI(t) < lower threshold, RSI(t-1) < RSI-MA(t-1) and RSI(t) > RSI-MA(t).
func (r *RSICrossoverRules) BuySignal(ticker string, h History) optional.Option[string] {
	cur, ok := h.Ago(0)
	if !ok {
		return optional.None[string]()
	}
	prev, ok := h.Ago(1)
	if !ok {
		return optional.None[string]()
	}
	if cur.RSI >= r.params.LowerRSI || !h.RSICrossedAbove() {
		return optional.None[string]()
	}
	return optional.Some(fmt.Sprintf("%s RSI: %.2f (yesterday=%.2f) above RSI-MA %.2f under RSI < %.2f threshold",
		ticker, cur.RSI, prev.RSI, cur.RSIMA, r.params.LowerRSI))
}

// SellSignal checks profit protection when the position is in profit, or the
// loss threshold otherwise.
func (r *RSICrossoverRules) SellSignal(pos model.Position, h History) optional.Option[string] {
	cur, ok := h.Ago(0)
	if !ok {
		return optional.None[string]()
	}
	if cur.Close > pos.EntryPrice {
		// share of the peak profit still held
		profitPct := (cur.Close - pos.EntryPrice) / (pos.PeakPrice - pos.EntryPrice) * 100
		if r.params.ProfitProtectionFromPeak {
			// threshold is the tolerated retreat from peak profit: 0 exits on the first pullback
			retreat := 100 - profitPct
			if retreat > r.params.ProfitProtectionPct {
				return optional.Some(fmt.Sprintf("%s Profit retreated %.2f%% from peak beyond %.2f%% tolerance Selling with %.2f%% profit",
					pos.Ticker, retreat, r.params.ProfitProtectionPct, profitPct))
			}
			return optional.None[string]()
		}
		// threshold is the minimum share of peak profit to keep: 0 lets profit fall back to entry
		if profitPct < r.params.ProfitProtectionPct {
			return optional.Some(fmt.Sprintf("%s Maximum profit loss tolerance reached %.2f%% Selling with %.2f%% profit",
				pos.Ticker, r.params.ProfitProtectionPct, profitPct))
		}
		return optional.None[string]()
	}

	loss := (pos.EntryPrice/cur.Close - 1) * 100
	if loss > r.params.LossPct {
		return optional.Some(fmt.Sprintf("%s Maximum tolerated loss reached %.2f%% Selling with %.2f%% loss",
			pos.Ticker, r.params.LossPct, loss))
	}
	return optional.None[string]()
}
