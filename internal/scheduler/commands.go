package scheduler

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"SignalDesk/internal/metrics"
	"SignalDesk/internal/notifier"
)

const (
	defaultAnalysisSymbol = "EURUSD"
	signalsShown          = 6
	defaultHistoryLimit   = 10
)

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	name := strings.ToLower(fields[0])
	// Group chats address commands as /cmd@BotName.
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	args := fields[1:]

	reply, known := s.dispatch(ctx, name, args)
	label := name
	if !known {
		label = "unknown"
	}
	metrics.Commands.WithLabelValues(label).Inc()
	return reply
}

func (s *Scheduler) dispatch(ctx context.Context, name string, args []string) (string, bool) {
	d := s.deps
	switch name {
	case "/start":
		return "👋 Welcome to SignalDesk.\n\n" + notifier.FormatHelp(), true
	case "/help":
		return notifier.FormatHelp(), true
	case "/market":
		return notifier.FormatMarketSummary("Market prices", nil, d.Provider.MarketSummary(ctx, nil)), true
	case "/fast":
		return notifier.FormatMarketSummary("Quick prices", nil, d.Provider.FastMarketSummary(ctx, nil)), true
	case "/analysis":
		return s.analysis(ctx, args), true
	case "/signals":
		return notifier.FormatSignals("Trading signals", d.Analyzer.TradingSignals(ctx), signalsShown), true
	case "/overview":
		return notifier.FormatMarketAnalysis(d.Analyzer.MarketAnalysis(ctx)), true
	case "/history":
		symbol, limit := parseHistoryArgs(args)
		return notifier.FormatHistory(symbol, d.Analyzer.SignalHistory(symbol, limit)), true
	case "/sessions":
		now := s.now()
		pairs, ok := d.Sessions.RecommendedPairs(now)
		return notifier.FormatSessions(d.Sessions.Sessions(now), pairs, ok, now), true
	case "/risk":
		return notifier.FormatRiskReport(d.Risk.Report()), true
	case "/size":
		return s.positionSize(args), true
	case "/sources":
		return notifier.FormatSources(d.Provider.SourceNames(), d.Provider.Health(), d.Provider.CacheSize()), true
	case "/symbols":
		return notifier.FormatSymbols(d.Provider.AvailableSymbols()), true
	case "/clear":
		d.Provider.ClearCache()
		return "🧹 Data cache cleared.", true
	}
	return "Unknown command. Send /help for the list.", false
}

func (s *Scheduler) analysis(ctx context.Context, args []string) string {
	symbol := defaultAnalysisSymbol
	if len(args) > 0 {
		symbol = strings.ToUpper(args[0])
	}
	r, err := s.deps.Analyzer.Analyze(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("analysis command failed")
		return fmt.Sprintf("❌ Analysis failed: %s", html.EscapeString(err.Error()))
	}
	return notifier.FormatAnalysis(r)
}

func (s *Scheduler) positionSize(args []string) string {
	const usage = "Usage: /size SYMBOL ENTRY STOP"
	if len(args) != 3 {
		return usage
	}
	symbol := strings.ToUpper(args[0])
	entry, err1 := strconv.ParseFloat(args[1], 64)
	stop, err2 := strconv.ParseFloat(args[2], 64)
	if err1 != nil || err2 != nil || entry <= 0 || stop <= 0 {
		return usage
	}
	size := s.deps.Risk.PositionSize(entry, stop)
	return notifier.FormatPositionSize(symbol, entry, stop, size, s.deps.Risk.ValidateTrade(symbol, size))
}

// parseHistoryArgs accepts [SYMBOL] [N] in either order; a bare number is the limit.
func parseHistoryArgs(args []string) (symbol string, limit int) {
	limit = defaultHistoryLimit
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil {
			if n > 0 {
				limit = n
			}
			continue
		}
		symbol = strings.ToUpper(a)
	}
	return symbol, limit
}
