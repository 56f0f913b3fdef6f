// Package simenv provides a simulated long-only trading environment driven
// by historical bars. Each step advances one bar: protective exits are
// evaluated against the bar's high/low before the policy's action is applied
// at the close.
package simenv

import (
	"context"
	"errors"

	"crypto-backtest-lab/internal/backtest"
	"crypto-backtest-lab/internal/domain"
)

// Defaults for the simulation parameters.
const (
	DefaultStopLossPct   = 0.05
	DefaultTakeProfitPct = 0.10
	DefaultWindowSize    = 10
)

// ErrExhausted is returned when Step is called after the episode ended.
var ErrExhausted = errors.New("environment exhausted: no bars left")

// Config holds the simulation parameters.
type Config struct {
	InitialBalance float64
	StopLossPct    float64 // fraction below entry that forces an exit
	TakeProfitPct  float64 // fraction above entry that takes profit
	WindowSize     int     // lookback of the returns observation
}

func (c Config) withDefaults() Config {
	if c.StopLossPct <= 0 {
		c.StopLossPct = DefaultStopLossPct
	}
	if c.TakeProfitPct <= 0 {
		c.TakeProfitPct = DefaultTakeProfitPct
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	return c
}

// Env is a single-position spot simulation over a fixed bar series.
type Env struct {
	bars []domain.Bar
	cfg  Config

	idx       int // bar the next decision acts on
	stepCount int
	balance   float64
	qty       float64
	entry     float64
	entryStep int
	prevValue float64
}

// Compile-time interface check.
var _ backtest.Environment = (*Env)(nil)

// New creates an environment over bars. Bars must be in chronological order.
func New(bars []domain.Bar, cfg Config) *Env {
	return &Env{bars: bars, cfg: cfg.withDefaults()}
}

// Reset rewinds the simulation to the first bar with a flat position.
func (e *Env) Reset(_ context.Context) (backtest.Observation, *domain.StepInfo, error) {
	if len(e.bars) == 0 {
		return nil, nil, backtest.ErrNoData
	}

	e.idx = 0
	e.stepCount = 0
	e.balance = e.cfg.InitialBalance
	e.qty = 0
	e.entry = 0
	e.entryStep = 0
	e.prevValue = e.cfg.InitialBalance

	info := &domain.StepInfo{PortfolioValue: e.balance}
	return e.observation(), info, nil
}

// Step applies one action at the current bar and advances to the next.
func (e *Env) Step(_ context.Context, action backtest.Action) (backtest.StepResult, error) {
	if e.idx >= len(e.bars)-1 {
		return backtest.StepResult{}, ErrExhausted
	}

	bar := e.bars[e.idx]
	e.stepCount++
	changes := &domain.PositionChanges{}

	// Protective exits fire before the action, using intrabar extremes.
	if e.inPosition() {
		if stop := e.entry * (1 - e.cfg.StopLossPct); bar.Low <= stop {
			changes.Closed = append(changes.Closed, e.closePosition(stop, domain.CloseReasonStopLoss))
		} else if take := e.entry * (1 + e.cfg.TakeProfitPct); bar.High >= take {
			changes.Closed = append(changes.Closed, e.closePosition(take, domain.CloseReasonTakeProfit))
		}
	}

	switch action {
	case backtest.ActionBuy:
		if !e.inPosition() && e.balance > 0 {
			e.entry = bar.Close
			e.entryStep = e.stepCount
			e.qty = e.balance / bar.Close
			e.balance = 0
			changes.Opened = append(changes.Opened, domain.OpenedPosition{
				EntryPrice: e.entry,
				Quantity:   e.qty,
			})
		}
	case backtest.ActionSell:
		if e.inPosition() {
			changes.Closed = append(changes.Closed, e.closePosition(bar.Close, domain.CloseReasonSignalExit))
		}
	}

	e.idx++
	done := e.idx >= len(e.bars)-1

	// Last bar: flatten any open position so the run ends square.
	if done && e.inPosition() {
		changes.Closed = append(changes.Closed, e.closePosition(e.bars[e.idx].Close, domain.CloseReasonEndOfData))
	}

	value := e.balance + e.qty*e.bars[e.idx].Close
	reward := (value - e.prevValue) / e.cfg.InitialBalance
	e.prevValue = value

	info := &domain.StepInfo{PortfolioValue: value}
	if len(changes.Opened) > 0 || len(changes.Closed) > 0 {
		info.PositionChanges = changes
	}

	return backtest.StepResult{
		Observation: e.observation(),
		Reward:      reward,
		Done:        done,
		Info:        info,
	}, nil
}

// Len returns the number of decision steps the bar series allows.
func (e *Env) Len() int {
	if len(e.bars) < 2 {
		return 0
	}
	return len(e.bars) - 1
}

func (e *Env) inPosition() bool {
	return e.qty > 0
}

func (e *Env) closePosition(exitPrice float64, reason string) domain.ClosedPosition {
	pnl := e.qty * (exitPrice - e.entry)
	closed := domain.ClosedPosition{
		EntryPrice:    e.entry,
		ExitPrice:     exitPrice,
		Quantity:      e.qty,
		PnL:           pnl,
		PnLPercent:    (exitPrice - e.entry) / e.entry * 100,
		HoldingPeriod: e.stepCount - e.entryStep,
		CloseReason:   reason,
	}

	e.balance += e.qty * exitPrice
	e.qty = 0
	e.entry = 0
	return closed
}

// observation is the recent close-to-close returns window plus a position
// flag, padded with zeros near the start of the series.
func (e *Env) observation() backtest.Observation {
	obs := make(backtest.Observation, e.cfg.WindowSize+1)
	for i := 0; i < e.cfg.WindowSize; i++ {
		j := e.idx - e.cfg.WindowSize + i + 1
		if j <= 0 {
			continue
		}
		prev := e.bars[j-1].Close
		if prev != 0 {
			obs[i] = (e.bars[j].Close - prev) / prev
		}
	}
	if e.inPosition() {
		obs[e.cfg.WindowSize] = 1
	}
	return obs
}
