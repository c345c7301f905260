package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"SignalDesk/internal/model"
	"SignalDesk/internal/risk"
	"SignalDesk/internal/session"
)

// FormatPrice renders a price with the precision conventional for the instrument.
func FormatPrice(symbol string, v float64) string {
	switch {
	case strings.HasSuffix(symbol, "JPY"):
		return fmt.Sprintf("%.3f", v)
	case model.IsFXPair(symbol):
		return fmt.Sprintf("%.5f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func signalIcon(d model.Direction) string {
	switch d {
	case model.Buy:
		return "🟢"
	case model.Sell:
		return "🔴"
	}
	return "⚪"
}

func sourceNote(r *model.AnalysisResult) string {
	if r.Synthetic {
		return "⚠️ synthetic data (all sources unavailable)"
	}
	return "source: " + html.EscapeString(r.Source)
}

// FormatAnalysis renders a single-symbol analysis.
func FormatAnalysis(r *model.AnalysisResult) string {
	var b strings.Builder
	p := func(v float64) string { return FormatPrice(r.Symbol, v) }

	fmt.Fprintf(&b, "📊 <b>%s analysis</b> | %s UTC\n\n", html.EscapeString(r.Symbol), r.Timestamp.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Price: %s\n", p(r.CurrentPrice))
	fmt.Fprintf(&b, "Trend: %s (strength %d%%)\n", r.Trend, r.TrendStrength)
	fmt.Fprintf(&b, "%s <b>Signal: %s</b> (confidence %.0f%%)\n\n", signalIcon(r.Signal), strings.ToUpper(string(r.Signal)), r.Confidence)

	b.WriteString("📈 <b>Indicators:</b>\n")
	fmt.Fprintf(&b, "  RSI(14): %.1f\n", r.RSI)
	fmt.Fprintf(&b, "  MA20: %s | MA50: %s | MA200: %s\n", p(r.MA20), p(r.MA50), p(r.MA200))
	fmt.Fprintf(&b, "  Support: %s | Resistance: %s\n", p(r.Support), p(r.Resistance))
	fmt.Fprintf(&b, "  Volatility: %.2f%%\n", r.Volatility*100)

	if len(r.Votes) > 0 {
		b.WriteString("\n🗳 <b>Votes:</b>\n")
		for _, v := range r.Votes {
			fmt.Fprintf(&b, "  %s: %s @ %.0f\n", v.Voter, v.Direction, v.Confidence)
		}
	}

	if rec := r.Recommend; rec != nil {
		b.WriteString("\n🎯 <b>Recommendation:</b>\n")
		fmt.Fprintf(&b, "  Entry: %s\n  Stop loss: %s\n  Take profit: %s\n", p(rec.Entry), p(rec.StopLoss), p(rec.TakeProfit))
	}

	fmt.Fprintf(&b, "\n<i>%s</i>", sourceNote(r))
	return b.String()
}

// FormatSignals renders up to limit results as a compact list. A non-positive limit shows all.
func FormatSignals(title string, results []model.AnalysisResult, limit int) string {
	if len(results) == 0 {
		return fmt.Sprintf("📡 <b>%s</b>\n\nNo signals available.", html.EscapeString(title))
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📡 <b>%s</b>\n\n", html.EscapeString(title))
	for _, r := range results {
		fmt.Fprintf(&b, "%s <b>%s</b> %s %.0f%% @ %s",
			signalIcon(r.Signal), r.Symbol, strings.ToUpper(string(r.Signal)), r.Confidence, FormatPrice(r.Symbol, r.CurrentPrice))
		if r.Synthetic {
			b.WriteString(" ⚠️")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatMarketAnalysis renders the overview of the analysis watch list.
func FormatMarketAnalysis(results []model.AnalysisResult) string {
	if len(results) == 0 {
		return "🌍 <b>Market overview</b>\n\nNo analysis available."
	}
	var b strings.Builder
	b.WriteString("🌍 <b>Market overview</b>\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "<b>%s</b> %s\n", r.Symbol, FormatPrice(r.Symbol, r.CurrentPrice))
		fmt.Fprintf(&b, "  Trend: %s | RSI %.1f\n", r.Trend, r.RSI)
		fmt.Fprintf(&b, "  %s %s %.0f%%\n", signalIcon(r.Signal), strings.ToUpper(string(r.Signal)), r.Confidence)
	}
	return b.String()
}

// FormatHistory renders the signal history, newest last.
func FormatHistory(symbol string, results []model.AnalysisResult) string {
	title := "Signal history"
	if symbol != "" {
		title += " " + html.EscapeString(symbol)
	}
	if len(results) == 0 {
		return fmt.Sprintf("🗂 <b>%s</b>\n\nNo signals recorded yet.", title)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🗂 <b>%s</b>\n\n", title)
	for _, r := range results {
		fmt.Fprintf(&b, "%s %s %s %s %.0f%%\n",
			r.Timestamp.UTC().Format("01-02 15:04"), signalIcon(r.Signal), r.Symbol, strings.ToUpper(string(r.Signal)), r.Confidence)
	}
	return b.String()
}

// FormatSessions renders session states and the recommended pairs.
func FormatSessions(statuses []session.Status, pairs []string, anyOpen bool, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🕒 <b>Trading sessions</b> | %s GMT\n\n", now.UTC().Format("15:04"))
	for _, s := range statuses {
		state := "🔴 closed"
		if s.Active {
			state = "🟢 open"
		}
		fmt.Fprintf(&b, "• %s: %s (%02d:00-%02d:00 GMT)\n", s.Name, state, s.Open, s.Close)
	}
	b.WriteString("\n💱 <b>Recommended pairs:</b> ")
	if !anyOpen {
		b.WriteString("all pairs (quiet hours)")
	} else {
		b.WriteString(strings.Join(pairs, ", "))
	}
	return b.String()
}

// FormatRiskReport renders the risk manager snapshot.
func FormatRiskReport(r risk.Report) string {
	var b strings.Builder
	b.WriteString("🛡 <b>Risk report</b>\n\n")
	fmt.Fprintf(&b, "Balance: $%.2f\n", r.Balance)
	fmt.Fprintf(&b, "Total trades: %d | Win rate: %.1f%%\n\n", r.TotalTrades, r.WinRate)
	fmt.Fprintf(&b, "Risk per trade: %.1f%% ($%.2f)\n", r.RiskPerTrade*100, r.RiskAmount)
	fmt.Fprintf(&b, "Daily loss limit: %.1f%% ($%.2f)\n", r.MaxDailyRisk*100, r.DailyLossLimit)
	fmt.Fprintf(&b, "Losses today: $%.2f\n\n", r.TodayLosses)
	fmt.Fprintf(&b, "Trades left today: %d\n", r.RemainingTrades)
	if r.Active {
		b.WriteString("Status: 🟢 active")
	} else {
		b.WriteString("Status: 🔴 halted")
	}
	return b.String()
}

// FormatPositionSize renders a sizing answer and its validation outcome.
func FormatPositionSize(symbol string, entry, stop, size float64, verr error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📐 <b>Position size %s</b>\n\n", html.EscapeString(symbol))
	fmt.Fprintf(&b, "Entry: %s | Stop: %s\n", FormatPrice(symbol, entry), FormatPrice(symbol, stop))
	fmt.Fprintf(&b, "Size: %.2f units\n", size)
	if verr != nil {
		fmt.Fprintf(&b, "❌ Rejected: %s", html.EscapeString(verr.Error()))
	} else {
		b.WriteString("✅ Within risk limits")
	}
	return b.String()
}

// FormatSources renders source health in priority order.
func FormatSources(names []string, health map[string]bool, cacheSize int) string {
	var b strings.Builder
	b.WriteString("🔌 <b>Data sources</b>\n\n")
	if len(names) == 0 {
		b.WriteString("No sources enabled, serving synthetic data.\n")
	}
	for i, name := range names {
		state := "🔴 down"
		if health[name] {
			state = "🟢 up"
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, name, state)
	}
	fmt.Fprintf(&b, "\nCached series: %d", cacheSize)
	return b.String()
}

// FormatMarketSummary renders last prices in the order of symbols; missing quotes are skipped.
func FormatMarketSummary(title string, symbols []string, prices map[string]float64) string {
	if len(symbols) == 0 {
		symbols = make([]string, 0, len(prices))
		for s := range prices {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "💹 <b>%s</b>\n\n", html.EscapeString(title))
	n := 0
	for _, s := range symbols {
		v, ok := prices[s]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", s, FormatPrice(s, v))
		n++
	}
	if n == 0 {
		b.WriteString("No prices available.")
	}
	return b.String()
}

// FormatSymbols lists the supported instruments.
func FormatSymbols(symbols []string) string {
	return "📋 <b>Supported symbols</b>\n\n" + strings.Join(symbols, ", ")
}

// FormatDigest renders the scheduled signal digest.
func FormatDigest(results []model.AnalysisResult, minConfidence float64, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ <b>Signal digest</b> | %s UTC\n\n", now.UTC().Format("2006-01-02 15:04"))
	n := 0
	for i := range results {
		r := &results[i]
		if r.Signal == model.Hold || r.Confidence <= minConfidence {
			continue
		}
		n++
		fmt.Fprintf(&b, "%s <b>%s</b> %s %.0f%% @ %s\n",
			signalIcon(r.Signal), r.Symbol, strings.ToUpper(string(r.Signal)), r.Confidence, FormatPrice(r.Symbol, r.CurrentPrice))
		if rec := r.Recommend; rec != nil {
			fmt.Fprintf(&b, "  SL %s | TP %s\n", FormatPrice(r.Symbol, rec.StopLoss), FormatPrice(r.Symbol, rec.TakeProfit))
		}
	}
	if n == 0 {
		return ""
	}
	return b.String()
}

// FormatHelp lists the chat commands.
func FormatHelp() string {
	return `🤖 <b>SignalDesk commands</b>

/market - last prices of the majors
/fast - quick prices (cached)
/analysis [SYMBOL] - full analysis (default EURUSD)
/signals - top trading signals
/overview - market overview
/history [SYMBOL] [N] - recent strong signals
/sessions - trading sessions and pairs
/risk - risk report
/size SYMBOL ENTRY STOP - position size
/sources - data source health
/symbols - supported symbols
/clear - clear the data cache
/help - this message`
}
