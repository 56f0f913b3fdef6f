// Package backtest drives a policy through a trading environment over a
// historical window, records every step, and orchestrates metrics
// computation, artifact export, and progress streaming for a run.
package backtest

import (
	"context"

	"crypto-backtest-lab/internal/domain"
)

// Observation is the feature vector the environment exposes to the policy.
// Its layout is a private contract between an environment and the policy
// trained against it; the driver never inspects it.
type Observation []float64

// Action is a discrete trading decision produced by a policy.
type Action int

// Trading actions.
const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

// StepResult is what the environment returns for one applied action.
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool // environment signalled completion
	Truncated   bool // run cut short by the environment
	Info        *domain.StepInfo
}

// Environment is the capability interface of the trading simulator. Any
// compliant implementation can be substituted; the driver owns no simulation
// logic. Info payloads must include portfolio_value and may include
// position_changes.closed entries.
type Environment interface {
	// Reset initializes the environment and returns the first observation.
	Reset(ctx context.Context) (Observation, *domain.StepInfo, error)

	// Step applies an action and advances the simulation by one bar.
	Step(ctx context.Context, action Action) (StepResult, error)
}

// Policy maps observations to actions. Implementations may be stochastic;
// the driver requests non-deterministic sampling.
type Policy interface {
	Predict(ctx context.Context, obs Observation, deterministic bool) (Action, error)
}
