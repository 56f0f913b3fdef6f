package domain

import "time"

// Close reason codes for positions. The vocabulary is open: environments may
// report reasons outside this set and they are carried through verbatim.
const (
	CloseReasonStopLoss   = "stop-loss"
	CloseReasonTakeProfit = "take-profit"
	CloseReasonSignalExit = "signal-exit"
	CloseReasonEndOfData  = "end-of-data"
	CloseReasonUnknown    = "unknown"
)

// ClosedPosition describes one position closed during a step, as reported by
// the environment inside its info payload.
type ClosedPosition struct {
	EntryPrice    float64 `json:"entry_price"`
	ExitPrice     float64 `json:"exit_price"`
	Quantity      float64 `json:"quantity"`
	PnL           float64 `json:"pnl"`
	PnLPercent    float64 `json:"pnl_percent"`
	HoldingPeriod int     `json:"holding_period"` // steps held
	CloseReason   string  `json:"close_reason"`
}

// OpenedPosition describes one position opened during a step.
type OpenedPosition struct {
	EntryPrice float64 `json:"entry_price"`
	Quantity   float64 `json:"quantity"`
}

// PositionChanges groups the position transitions that happened in one step.
type PositionChanges struct {
	Opened []OpenedPosition `json:"opened,omitempty"`
	Closed []ClosedPosition `json:"closed,omitempty"`
}

// StepInfo is the structured info payload the environment returns on every
// step. PortfolioValue is required; PositionChanges is present only on steps
// where positions opened or closed.
type StepInfo struct {
	PortfolioValue  float64          `json:"portfolio_value"`
	PositionChanges *PositionChanges `json:"position_changes,omitempty"`
}

// StepRecord is one simulation step's recorded outcome. Records are immutable
// once appended to the history.
type StepRecord struct {
	Step      int       // monotonic step index, starting at 0
	Timestamp time.Time // event time of the underlying market bar
	Info      *StepInfo // environment info payload (nil if the env gave none)
	Reward    float64
}
