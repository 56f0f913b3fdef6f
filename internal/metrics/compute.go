package metrics

import (
	"errors"
	"math"

	"crypto-backtest-lab/internal/domain"
)

// ErrZeroInitialBalance is returned when the initial balance is zero (or not
// finite), because the percentage return would be undefined.
var ErrZeroInitialBalance = errors.New("initial balance must be a nonzero finite value")

// Compute aggregates the full step history and the reconstructed trades into
// one MetricsSnapshot.
//
// Conventions (deliberate, matching the reference behaviour):
//   - a trade is a win iff pnl > 0 and a loss iff pnl < 0; pnl == 0 is
//     break-even and counted in neither bucket,
//   - win rate is 0 (not NaN) when there are no trades,
//   - profit factor is 0 when the losing-PnL sum is 0, including all-winning
//     runs; consumers treat 0 as "not meaningful" rather than "no edge".
func Compute(records []domain.StepRecord, trades []domain.Trade, initialBalance float64) (*domain.MetricsSnapshot, error) {
	if initialBalance == 0 || math.IsNaN(initialBalance) || math.IsInf(initialBalance, 0) {
		return nil, ErrZeroInitialBalance
	}

	snap := &domain.MetricsSnapshot{
		InitialBalance: initialBalance,
		FinalBalance:   initialBalance,
		TotalSteps:     len(records),
		NumTrades:      len(trades),
	}

	// Final portfolio value: the last record carrying an info payload. An
	// empty history leaves the final value at the initial balance.
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Info != nil {
			snap.FinalBalance = records[i].Info.PortfolioValue
			break
		}
	}

	snap.TotalReturn = snap.FinalBalance - snap.InitialBalance
	snap.TotalReturnPct = snap.TotalReturn / snap.InitialBalance * 100

	for _, rec := range records {
		snap.TotalReward += rec.Reward
	}

	var winSum, lossSum float64
	reasonIndex := make(map[string]int)
	for _, t := range trades {
		snap.TotalPnL += t.PnL
		switch {
		case t.PnL > 0:
			snap.WinningTrades++
			winSum += t.PnL
		case t.PnL < 0:
			snap.LosingTrades++
			lossSum += t.PnL
		}

		reason := t.CloseReason
		if reason == "" {
			reason = domain.CloseReasonUnknown
		}
		if idx, ok := reasonIndex[reason]; ok {
			snap.CloseReasons[idx].Count++
		} else {
			reasonIndex[reason] = len(snap.CloseReasons)
			snap.CloseReasons = append(snap.CloseReasons, domain.CloseReasonCount{Reason: reason, Count: 1})
		}
	}

	if snap.NumTrades > 0 {
		snap.WinRate = float64(snap.WinningTrades) / float64(snap.NumTrades) * 100
	}
	if snap.WinningTrades > 0 {
		snap.AvgWin = winSum / float64(snap.WinningTrades)
	}
	if snap.LosingTrades > 0 {
		snap.AvgLoss = lossSum / float64(snap.LosingTrades)
	}
	if lossSum != 0 {
		snap.ProfitFactor = winSum / math.Abs(lossSum)
	}

	p := snap.WinRate / 100
	snap.Expectancy = p*snap.AvgWin + (1-p)*snap.AvgLoss

	return snap, nil
}
