package reporting

import (
	"fmt"
	"strings"
	"time"

	"crypto-backtest-lab/internal/domain"
)

const reportWidth = 80

// RenderMetricsReport renders the human-readable performance report.
// Sections: portfolio summary, trade statistics, execution details, close
// reason breakdown, and the per-trade log.
func RenderMetricsReport(snap *domain.MetricsSnapshot, trades []domain.Trade, generatedAt time.Time) string {
	var sb strings.Builder

	rule := strings.Repeat("=", reportWidth)
	thin := strings.Repeat("-", reportWidth)

	sb.WriteString(rule + "\n")
	sb.WriteString("TRADING PERFORMANCE METRICS\n")
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "Generated: %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString(rule + "\n\n")

	sb.WriteString("PORTFOLIO SUMMARY\n")
	sb.WriteString(thin + "\n")
	writeRow(&sb, "Initial Balance", fmt.Sprintf("$%.2f", snap.InitialBalance))
	writeRow(&sb, "Final Balance", fmt.Sprintf("$%.2f", snap.FinalBalance))
	writeRow(&sb, "Total Return", fmt.Sprintf("$%.2f", snap.TotalReturn))
	writeRow(&sb, "Total Return %", fmt.Sprintf("%.2f%%", snap.TotalReturnPct))
	writeRow(&sb, "Total PnL", fmt.Sprintf("$%.2f", snap.TotalPnL))
	sb.WriteString("\n")

	sb.WriteString("TRADE STATISTICS\n")
	sb.WriteString(thin + "\n")
	writeRow(&sb, "Total Trades", fmt.Sprintf("%d", snap.NumTrades))
	writeRow(&sb, "Winning Trades", fmt.Sprintf("%d", snap.WinningTrades))
	writeRow(&sb, "Losing Trades", fmt.Sprintf("%d", snap.LosingTrades))
	writeRow(&sb, "Win Rate", fmt.Sprintf("%.2f%%", snap.WinRate))
	writeRow(&sb, "Average Win", fmt.Sprintf("$%.2f", snap.AvgWin))
	writeRow(&sb, "Average Loss", fmt.Sprintf("$%.2f", snap.AvgLoss))
	writeRow(&sb, "Profit Factor", fmt.Sprintf("%.3f", snap.ProfitFactor))
	writeRow(&sb, "Expectancy", fmt.Sprintf("$%.2f", snap.Expectancy))
	sb.WriteString("\n")

	sb.WriteString("EXECUTION DETAILS\n")
	sb.WriteString(thin + "\n")
	writeRow(&sb, "Total Steps", fmt.Sprintf("%d", snap.TotalSteps))
	writeRow(&sb, "Total Reward", fmt.Sprintf("%.2f", snap.TotalReward))
	sb.WriteString("\n")

	if len(snap.CloseReasons) > 0 {
		sb.WriteString("POSITION CLOSE REASONS\n")
		sb.WriteString(thin + "\n")
		for _, cr := range snap.CloseReasons {
			writeRow(&sb, cr.Reason, fmt.Sprintf("%d", cr.Count))
		}
		sb.WriteString("\n")
	}

	if len(trades) > 0 {
		sb.WriteString("DETAILED TRADE LOG\n")
		sb.WriteString(thin + "\n")
		for i, t := range trades {
			fmt.Fprintf(&sb, "Trade #%d [%s]\n", i+1, t.WinLoss())
			fmt.Fprintf(&sb, "  Time:       %s (step %d)\n", t.Timestamp.Format("2006-01-02 15:04:05"), t.Step)
			fmt.Fprintf(&sb, "  Entry:      %.4f  Exit: %.4f  Qty: %.4f\n", t.EntryPrice, t.ExitPrice, t.Quantity)
			fmt.Fprintf(&sb, "  PnL:        $%.2f (%.2f%%)\n", t.PnL, t.PnLPercent)
			fmt.Fprintf(&sb, "  Held:       %d steps\n", t.HoldingPeriod)
			fmt.Fprintf(&sb, "  Reason:     %s\n", t.CloseReason)
			fmt.Fprintf(&sb, "  Portfolio:  $%.2f\n", t.PortfolioValue)
			sb.WriteString("\n")
		}
	}

	sb.WriteString(rule + "\n")
	sb.WriteString("END OF REPORT\n")
	sb.WriteString(rule + "\n")

	return sb.String()
}

// writeRow prints a dotted key/value line, e.g.
// "Win Rate................................               55.00%".
func writeRow(sb *strings.Builder, key, value string) {
	const keyWidth = 40
	if len(key) < keyWidth {
		key += strings.Repeat(".", keyWidth-len(key))
	}
	fmt.Fprintf(sb, "%s %20s\n", key, value)
}
