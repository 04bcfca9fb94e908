package portfolio

import (
	"fmt"
	"sort"
	"time"

	"TradeAdvisor/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PositionStats values one open position at the latest close.
type PositionStats struct {
	Ticker string
	Date   time.Time
	Units  decimal.Decimal
	Open   decimal.Decimal
	Price  decimal.Decimal
	Amount decimal.Decimal
	Value  decimal.Decimal
	PnL    decimal.Decimal
	PnLPct decimal.Decimal
}

// AssetStats aggregates the open positions of one instrument.
type AssetStats struct {
	Ticker       string
	Price        decimal.Decimal
	Units        decimal.Decimal
	NumPositions int
	Amount       decimal.Decimal
	Value        decimal.Decimal
	PnL          decimal.Decimal
	PnLPct       decimal.Decimal
}

// PortfolioStats aggregates every open position.
type PortfolioStats struct {
	TotalInvested decimal.Decimal
	Value         decimal.Decimal
	PnL           decimal.Decimal
	PnLPct        decimal.Decimal
	Assets        []AssetStats
	Positions     []PositionStats
}

// LastCloses returns the close of each instrument's last daily stat.
func LastCloses(stats map[string][]model.DailyStat) map[string]float64 {
	out := make(map[string]float64, len(stats))
	for ticker, s := range stats {
		if len(s) > 0 {
			out[ticker] = s[len(s)-1].Close
		}
	}
	return out
}

// Value values positions at the given closes. Positions without a close are
// valued at their entry price. Assets are sorted by ticker.
func Value(positions []model.Position, closes map[string]float64) PortfolioStats {
	var stats PortfolioStats
	assets := make(map[string]*AssetStats)

	for _, pos := range positions {
		price := decimal.NewFromFloat(pos.EntryPrice)
		if c, ok := closes[pos.Ticker]; ok && c > 0 {
			price = decimal.NewFromFloat(c)
		}
		open := decimal.NewFromFloat(pos.EntryPrice)
		amount := pos.Size.Mul(open)
		value := pos.Size.Mul(price)
		ps := PositionStats{
			Ticker: pos.Ticker,
			Date:   pos.EntryDate,
			Units:  pos.Size,
			Open:   open,
			Price:  price,
			Amount: amount.Round(2),
			Value:  value.Round(2),
			PnL:    value.Sub(amount).Round(2),
			PnLPct: pct(value.Sub(amount), amount),
		}
		stats.Positions = append(stats.Positions, ps)

		a, ok := assets[pos.Ticker]
		if !ok {
			a = &AssetStats{Ticker: pos.Ticker, Price: price}
			assets[pos.Ticker] = a
		}
		a.NumPositions++
		a.Units = a.Units.Add(pos.Size)
		a.Amount = a.Amount.Add(amount)
		a.Value = a.Value.Add(value)

		stats.TotalInvested = stats.TotalInvested.Add(amount)
		stats.Value = stats.Value.Add(value)
	}

	for _, a := range assets {
		a.PnL = a.Value.Sub(a.Amount).Round(2)
		a.PnLPct = pct(a.Value.Sub(a.Amount), a.Amount)
		a.Amount = a.Amount.Round(2)
		a.Value = a.Value.Round(2)
		stats.Assets = append(stats.Assets, *a)
	}
	sort.Slice(stats.Assets, func(i, j int) bool { return stats.Assets[i].Ticker < stats.Assets[j].Ticker })

	stats.PnL = stats.Value.Sub(stats.TotalInvested).Round(2)
	stats.PnLPct = pct(stats.Value.Sub(stats.TotalInvested), stats.TotalInvested)
	stats.TotalInvested = stats.TotalInvested.Round(2)
	stats.Value = stats.Value.Round(2)
	return stats
}

// Performance summarises closed trades.
type Performance struct {
	// Year is zero for the all-time summary.
	Year   int
	Hits   int
	Misses int
	PnL    decimal.Decimal
}

// BattingAverage renders the share of profitable trades, e.g. "67% (2/3)".
func (p Performance) BattingAverage() string {
	total := p.Hits + p.Misses
	if total == 0 {
		return "0% (0/0)"
	}
	avg := decimal.NewFromInt(int64(p.Hits)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(0)
	return fmt.Sprintf("%s%% (%d/%d)", avg.String(), p.Hits, total)
}

// ClosedPerformance returns the all-time summary followed by one summary per
// exit year, ascending.
func ClosedPerformance(trades []model.ClosedTrade) (Performance, []Performance) {
	var all Performance
	years := make(map[int]*Performance)
	for _, t := range trades {
		y := t.ExitDate.Year()
		p, ok := years[y]
		if !ok {
			p = &Performance{Year: y}
			years[y] = p
		}
		for _, perf := range []*Performance{&all, p} {
			if t.ExitPrice > t.EntryPrice {
				perf.Hits++
			} else {
				perf.Misses++
			}
			perf.PnL = perf.PnL.Add(t.PnL)
		}
	}

	yearly := make([]Performance, 0, len(years))
	for _, p := range years {
		yearly = append(yearly, *p)
	}
	sort.Slice(yearly, func(i, j int) bool { return yearly[i].Year < yearly[j].Year })
	return all, yearly
}

func pct(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(2)
}
