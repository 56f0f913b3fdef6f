package domain

// CloseReasonCount is one entry of the close-reason breakdown. Entries keep
// the insertion order of first occurrence for reporting.
type CloseReasonCount struct {
	Reason string
	Count  int
}

// MetricsSnapshot is the aggregate view of a completed backtest run. Every
// field is a pure function of the step history and the reconstructed trades;
// values are unrounded; display rounding happens only at export.
type MetricsSnapshot struct {
	InitialBalance float64
	FinalBalance   float64
	TotalReturn    float64 // FinalBalance - InitialBalance
	TotalReturnPct float64

	NumTrades     int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // percent, 0 when NumTrades == 0

	TotalPnL     float64
	AvgWin       float64 // 0 when there are no winning trades
	AvgLoss      float64 // 0 when there are no losing trades
	ProfitFactor float64 // 0 when the losing-PnL sum is 0
	Expectancy   float64

	TotalSteps  int
	TotalReward float64

	CloseReasons []CloseReasonCount
}
