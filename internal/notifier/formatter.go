package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/portfolio"
)

// HelpText lists the commands the bot answers.
const HelpText = "Available commands:\n" +
	"• /today - run the advisor for the latest session\n" +
	"• /positions - value the open positions\n" +
	"• /stats TICKER - recent daily stats of an instrument\n" +
	"• /performance - closed trade summary\n" +
	"• /help - this message"

// FormatTradeActions formats the actions of one session into a Telegram message.
func FormatTradeActions(date time.Time, actions []model.TradeAction) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>TradeAdvisor</b> | %s\n\n", date.Format(model.DateLayout)))
	if len(actions) == 0 {
		b.WriteString("No trade actions today.")
		return b.String()
	}
	for i, a := range actions {
		icon := "🟢"
		if a.Action == model.ActionSell {
			icon = "🔴"
		}
		b.WriteString(fmt.Sprintf("%s <b>%s %s</b>\n", icon, a.Action, html.EscapeString(a.Ticker)))
		b.WriteString(html.EscapeString(a.Reason))
		b.WriteString("\n")
		if len(a.Context) > 0 {
			b.WriteString("<pre>")
			b.WriteString(html.EscapeString(strings.Join(a.Context, "\n")))
			b.WriteString("</pre>\n")
		}
		if i < len(actions)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FormatDailyStats formats the last n stats of one instrument.
func FormatDailyStats(ticker string, stats []model.DailyStat, n int) string {
	if len(stats) > n {
		stats = stats[len(stats)-n:]
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s</b>\n", html.EscapeString(ticker)))
	if len(stats) == 0 {
		b.WriteString("No data.")
		return b.String()
	}
	lines := make([]string, len(stats))
	for i, s := range stats {
		lines[i] = s.AsText(true)
	}
	b.WriteString("<pre>")
	b.WriteString(html.EscapeString(strings.Join(lines, "\n")))
	b.WriteString("</pre>")
	return b.String()
}

// FormatPortfolio formats the valuation of the open positions.
func FormatPortfolio(stats portfolio.PortfolioStats) string {
	var b strings.Builder
	b.WriteString("💼 <b>Open positions</b>\n\n")
	if len(stats.Positions) == 0 {
		b.WriteString("No open positions.")
		return b.String()
	}
	for _, a := range stats.Assets {
		b.WriteString(fmt.Sprintf("<b>%s</b> x%d | units %s @ %s\n",
			html.EscapeString(a.Ticker), a.NumPositions, a.Units.StringFixed(4), a.Price.StringFixed(2)))
		b.WriteString(fmt.Sprintf("   invested %s, value %s, pnl %s (%s%%)\n",
			a.Amount.StringFixed(2), a.Value.StringFixed(2), a.PnL.StringFixed(2), a.PnLPct.StringFixed(2)))
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("Invested: %s\n", stats.TotalInvested.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Value:    %s\n", stats.Value.StringFixed(2)))
	b.WriteString(fmt.Sprintf("PnL:      %s (%s%%)", stats.PnL.StringFixed(2), stats.PnLPct.StringFixed(2)))
	return b.String()
}

// FormatPerformance formats the closed trade summary, all-time first.
func FormatPerformance(all portfolio.Performance, yearly []portfolio.Performance) string {
	var b strings.Builder
	b.WriteString("🏁 <b>Closed trades</b>\n\n")
	b.WriteString(fmt.Sprintf("All time: %s, pnl %s\n", all.BattingAverage(), all.PnL.StringFixed(2)))
	for _, p := range yearly {
		b.WriteString(fmt.Sprintf("%d: %s, pnl %s\n", p.Year, p.BattingAverage(), p.PnL.StringFixed(2)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatError formats a failed task.
func FormatError(task string, err error) string {
	return fmt.Sprintf("❌ <b>%s failed</b>\n%s", html.EscapeString(task), html.EscapeString(err.Error()))
}
