// Package reporting renders backtest artifacts: the trades CSV and the
// metrics text report. Display rounding happens here and only here: prices
// and quantities to 4 decimals, currency amounts and percentages to 2,
// profit factor to 3.
package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"crypto-backtest-lab/internal/domain"
)

// tradeColumns is the fixed column order of the trades CSV.
var tradeColumns = []string{
	"trade_number",
	"timestamp",
	"step",
	"entry_price",
	"exit_price",
	"quantity",
	"pnl",
	"pnl_percent",
	"win_loss",
	"holding_period",
	"close_reason",
	"portfolio_value",
}

// RenderTradesCSV renders the trades table. Trades are numbered 1..N in the
// order given, which is their chronological step order.
func RenderTradesCSV(trades []domain.Trade) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write(tradeColumns)
	for i, t := range trades {
		_ = w.Write([]string{
			strconv.Itoa(i + 1),
			t.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.Itoa(t.Step),
			formatFloat(t.EntryPrice, 4),
			formatFloat(t.ExitPrice, 4),
			formatFloat(t.Quantity, 4),
			formatFloat(t.PnL, 2),
			formatFloat(t.PnLPercent, 2),
			t.WinLoss(),
			strconv.Itoa(t.HoldingPeriod),
			t.CloseReason,
			formatFloat(t.PortfolioValue, 2),
		})
	}
	w.Flush()

	return sb.String()
}

func formatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
