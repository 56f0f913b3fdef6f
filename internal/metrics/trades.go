// Package metrics derives trades and aggregate performance statistics from a
// completed step history. All functions are pure: the same history always
// yields identical output, and nothing here mutates its input.
package metrics

import "crypto-backtest-lab/internal/domain"

// ExtractTrades scans the step history in order and emits one Trade per
// closed position-change entry, in the order those entries appear within
// each record. Missing numeric fields in the source entry default to zero
// and a missing close reason defaults to "unknown"; extraction never fails.
func ExtractTrades(records []domain.StepRecord) []domain.Trade {
	var trades []domain.Trade

	for _, rec := range records {
		if rec.Info == nil || rec.Info.PositionChanges == nil {
			continue
		}

		for _, closed := range rec.Info.PositionChanges.Closed {
			reason := closed.CloseReason
			if reason == "" {
				reason = domain.CloseReasonUnknown
			}

			trades = append(trades, domain.Trade{
				Timestamp:      rec.Timestamp,
				Step:           rec.Step,
				EntryPrice:     closed.EntryPrice,
				ExitPrice:      closed.ExitPrice,
				Quantity:       closed.Quantity,
				PnL:            closed.PnL,
				PnLPercent:     closed.PnLPercent,
				HoldingPeriod:  closed.HoldingPeriod,
				CloseReason:    reason,
				PortfolioValue: rec.Info.PortfolioValue,
			})
		}
	}

	return trades
}
