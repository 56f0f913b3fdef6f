package domain

import "time"

// Trade is a reconstructed closed round-trip position. Trades are derived
// from the step history, never recorded directly: one Trade exists per
// ClosedPosition entry in some StepRecord. Ordering follows chronological
// occurrence; trade numbering (1..N) is assigned at export time.
type Trade struct {
	Timestamp      time.Time
	Step           int
	EntryPrice     float64
	ExitPrice      float64
	Quantity       float64
	PnL            float64
	PnLPercent     float64
	HoldingPeriod  int
	CloseReason    string
	PortfolioValue float64 // portfolio value at the closing step
}

// Outcome classes for a trade, a pure function of the PnL sign.
const (
	TradeWin       = "WIN"
	TradeLoss      = "LOSS"
	TradeBreakeven = "BREAKEVEN"
)

// WinLoss classifies the trade by its realized PnL.
func (t *Trade) WinLoss() string {
	switch {
	case t.PnL > 0:
		return TradeWin
	case t.PnL < 0:
		return TradeLoss
	default:
		return TradeBreakeven
	}
}
