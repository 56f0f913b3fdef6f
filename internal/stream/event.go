// Package stream defines the typed progress events a backtest run emits and
// the emitters that carry them to a consumer. Events form a totally ordered,
// forward-only sequence: info → init → step* → info* → complete, or a
// terminal error at any point. Consumers must tolerate unknown future fields.
package stream

// Event type tags carried in the "type" field of every serialized event.
const (
	TypeInfo     = "info"
	TypeInit     = "init"
	TypeStep     = "step"
	TypeComplete = "complete"
	TypeError    = "error"
	TypeWarning  = "warning"
)

// Event is a serializable progress event. Concrete event structs carry the
// tag in their Type field so they marshal to flat tagged objects.
type Event interface {
	EventType() string
}

// InfoEvent is a free-text status update.
type InfoEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewInfo creates an info event.
func NewInfo(message string) InfoEvent {
	return InfoEvent{Type: TypeInfo, Message: message}
}

func (e InfoEvent) EventType() string { return e.Type }

// WarningEvent reports a non-fatal problem, such as an export failure.
type WarningEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewWarning creates a warning event.
func NewWarning(message string) WarningEvent {
	return WarningEvent{Type: TypeWarning, Message: message}
}

func (e WarningEvent) EventType() string { return e.Type }

// InitEvent announces the total step bound of the run.
type InitEvent struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	TotalSteps int    `json:"total_steps"`
}

// NewInit creates an init event.
func NewInit(totalSteps int) InitEvent {
	return InitEvent{Type: TypeInit, Message: "Initializing backtest...", TotalSteps: totalSteps}
}

func (e InitEvent) EventType() string { return e.Type }

// StepEvent is a periodic progress snapshot, emitted every Nth step.
type StepEvent struct {
	Type           string  `json:"type"`
	Step           int     `json:"step"`
	TotalSteps     int     `json:"total_steps"`
	PortfolioValue float64 `json:"portfolio_value"`
	InitialBalance float64 `json:"initial_balance"`
	PnL            float64 `json:"pnl"`
	Timestamp      string  `json:"timestamp"`
	Reward         float64 `json:"reward"`
}

// NewStep creates a step event.
func NewStep(step, total int, portfolioValue, initialBalance, reward float64, timestamp string) StepEvent {
	return StepEvent{
		Type:           TypeStep,
		Step:           step,
		TotalSteps:     total,
		PortfolioValue: portfolioValue,
		InitialBalance: initialBalance,
		PnL:            portfolioValue - initialBalance,
		Timestamp:      timestamp,
		Reward:         reward,
	}
}

func (e StepEvent) EventType() string { return e.Type }

// Results is the payload of a terminal complete event.
type Results struct {
	Symbol         string  `json:"symbol"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	Steps          int     `json:"steps"`
	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
	TotalPnL       float64 `json:"total_pnl"`
	TotalReturn    float64 `json:"total_return"` // percent, rounded to 2 dp
	TotalReward    float64 `json:"total_reward"` // rounded to 2 dp
	NumTrades      int     `json:"num_trades"`
	WinRate        float64 `json:"win_rate"` // percent, rounded to 2 dp

	// Artifact paths; empty string marks a skipped or failed export.
	MetricsSaved   string `json:"metrics_saved"`
	TradesCSVSaved string `json:"trades_csv_saved"`
}

// CompleteEvent is the terminal success event carrying the full results.
type CompleteEvent struct {
	Type    string  `json:"type"`
	Results Results `json:"results"`
}

// NewComplete creates a complete event.
func NewComplete(results Results) CompleteEvent {
	return CompleteEvent{Type: TypeComplete, Results: results}
}

func (e CompleteEvent) EventType() string { return e.Type }

// ErrorEvent is the terminal failure event. Trace is an optional diagnostic.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
}

// NewError creates an error event.
func NewError(message, trace string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Message: message, Trace: trace}
}

func (e ErrorEvent) EventType() string { return e.Type }
