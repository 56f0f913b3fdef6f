package backtest

import (
	"context"
	"fmt"
	"log"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/history"
	"crypto-backtest-lab/internal/stream"
)

// Default heuristic constants. All are overridable through Config.
const (
	// DefaultInitialBalance is the starting portfolio value of a run.
	DefaultInitialBalance = 10000

	// DefaultStreamInterval is the step-event cadence: every Nth step emits
	// a progress snapshot, bounding stream volume.
	DefaultStreamInterval = 10

	// DefaultMinRows is the minimum number of usable data rows a filtered
	// window needs for a run to be accepted.
	DefaultMinRows = 100
)

// timestampLayout is the wire format for step and result timestamps.
const timestampLayout = "2006-01-02 15:04:05"

// Config holds the tunable parameters of a run.
type Config struct {
	InitialBalance float64
	StreamInterval int
	MinRows        int
}

// withDefaults fills zero fields with the default constants.
func (c Config) withDefaults() Config {
	if c.InitialBalance == 0 {
		c.InitialBalance = DefaultInitialBalance
	}
	if c.StreamInterval <= 0 {
		c.StreamInterval = DefaultStreamInterval
	}
	if c.MinRows <= 0 {
		c.MinRows = DefaultMinRows
	}
	return c
}

// Driver runs the bounded step loop of one backtest against an environment
// and a policy. Steps execute strictly sequentially: step N's observation
// depends on step N-1's environment state.
type Driver struct {
	env     Environment
	policy  Policy
	emitter stream.Emitter
	logger  *log.Logger
	cfg     Config
}

// NewDriver creates a driver for one run.
func NewDriver(env Environment, policy Policy, emitter stream.Emitter, logger *log.Logger, cfg Config) *Driver {
	if emitter == nil {
		emitter = stream.Discard
	}
	return &Driver{
		env:     env,
		policy:  policy,
		emitter: emitter,
		logger:  logger,
		cfg:     cfg.withDefaults(),
	}
}

// Run executes the step loop over the filtered bars. The loop ends at the
// environment's done (or truncated) signal, or at len(bars) steps, which is
// a safety cap rather than a normal termination path. Each step is timestamped with
// its bar's open time, clamped to the last bar on overrun.
//
// Any error from the environment or policy aborts the run immediately; the
// partial history recorded so far is returned alongside the error.
func (d *Driver) Run(ctx context.Context, bars []domain.Bar) (*history.Recorder, int, error) {
	recorder := history.NewRecorder()
	totalSteps := len(bars)

	obs, _, err := d.env.Reset(ctx)
	if err != nil {
		return recorder, 0, fmt.Errorf("environment reset: %w", err)
	}

	done := false
	stepCount := 0

	for !done && stepCount < totalSteps {
		if err := ctx.Err(); err != nil {
			return recorder, stepCount, err
		}

		// Non-deterministic sampling: the policy may be stochastic.
		action, err := d.policy.Predict(ctx, obs, false)
		if err != nil {
			return recorder, stepCount, fmt.Errorf("policy predict at step %d: %w", stepCount, err)
		}

		res, err := d.env.Step(ctx, action)
		if err != nil {
			return recorder, stepCount, fmt.Errorf("environment step %d: %w", stepCount, err)
		}

		barIdx := stepCount
		if barIdx > len(bars)-1 {
			barIdx = len(bars) - 1
		}
		timestamp := bars[barIdx].OpenTime

		recorder.Record(stepCount, timestamp, res.Info, res.Reward)
		stepCount++

		if stepCount%d.cfg.StreamInterval == 0 {
			value := d.cfg.InitialBalance
			if res.Info != nil {
				value = res.Info.PortfolioValue
			}
			d.emit(stream.NewStep(stepCount, totalSteps, value, d.cfg.InitialBalance,
				res.Reward, timestamp.Format(timestampLayout)))
		}

		obs = res.Observation
		done = res.Done || res.Truncated
	}

	return recorder, stepCount, nil
}

// emit forwards an event, dropping it if the transport rejects it. The run
// itself is never failed by a consumer that went away.
func (d *Driver) emit(ev stream.Event) {
	if err := d.emitter.Emit(ev); err != nil && d.logger != nil {
		d.logger.Printf("dropping %s event: %v", ev.EventType(), err)
	}
}
