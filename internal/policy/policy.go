// Package policy provides action policies for the backtest driver. The
// bundled indicator policy trades RSI extremes confirmed by the MACD
// histogram; RandomPolicy exists for smoke runs and baselines.
package policy

import (
	"context"
	"math/rand"

	"github.com/thrasher-corp/gct-ta/indicators"

	"crypto-backtest-lab/internal/backtest"
	"crypto-backtest-lab/internal/domain"
)

// Default indicator parameters.
const (
	DefaultRSIPeriod  = 14
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
	DefaultOversold   = 30
	DefaultOverbought = 70
	DefaultEpsilon    = 0.05
)

// Config holds indicator policy parameters.
type Config struct {
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	Oversold   float64
	Overbought float64
	// Epsilon is the random-action probability used when Predict is called
	// with deterministic=false.
	Epsilon float64
	Seed    int64
}

func (c Config) withDefaults() Config {
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = DefaultRSIPeriod
	}
	if c.MACDFast <= 0 {
		c.MACDFast = DefaultMACDFast
	}
	if c.MACDSlow <= 0 {
		c.MACDSlow = DefaultMACDSlow
	}
	if c.MACDSignal <= 0 {
		c.MACDSignal = DefaultMACDSignal
	}
	if c.Oversold <= 0 {
		c.Oversold = DefaultOversold
	}
	if c.Overbought <= 0 {
		c.Overbought = DefaultOverbought
	}
	if c.Epsilon <= 0 {
		c.Epsilon = DefaultEpsilon
	}
	return c
}

// IndicatorPolicy decides actions from RSI and MACD computed over the bar
// closes. It keeps its own cursor into the series: each Predict call
// consumes one bar, in lockstep with the driver's step loop.
type IndicatorPolicy struct {
	closes []float64
	cursor int
	cfg    Config
	rng    *rand.Rand
}

// Compile-time interface check.
var _ backtest.Policy = (*IndicatorPolicy)(nil)

// NewIndicatorPolicy creates a policy over bars. Bars must be the same
// series, in the same order, that the environment steps through.
func NewIndicatorPolicy(bars []domain.Bar, cfg Config) *IndicatorPolicy {
	cfg = cfg.withDefaults()
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return &IndicatorPolicy{
		closes: closes,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Predict returns the action for the current bar. The position flag is the
// last observation element, as produced by the simulation environment.
func (p *IndicatorPolicy) Predict(_ context.Context, obs backtest.Observation, deterministic bool) (backtest.Action, error) {
	cursor := p.cursor
	if p.cursor < len(p.closes)-1 {
		p.cursor++
	}

	if !deterministic && p.rng.Float64() < p.cfg.Epsilon {
		return backtest.Action(p.rng.Intn(3)), nil
	}

	// Not enough history for a stable signal yet.
	warmup := p.cfg.MACDSlow + p.cfg.MACDSignal
	if cursor+1 < warmup {
		return backtest.ActionHold, nil
	}

	window := p.closes[:cursor+1]
	rsi := indicators.RSI(window, p.cfg.RSIPeriod)
	_, _, hist := indicators.MACD(window, p.cfg.MACDFast, p.cfg.MACDSlow, p.cfg.MACDSignal)
	if len(rsi) == 0 || len(hist) == 0 {
		return backtest.ActionHold, nil
	}
	lastRSI := rsi[len(rsi)-1]
	lastHist := hist[len(hist)-1]

	inPosition := len(obs) > 0 && obs[len(obs)-1] > 0

	if inPosition {
		if lastRSI >= p.cfg.Overbought || lastHist < 0 {
			return backtest.ActionSell, nil
		}
		return backtest.ActionHold, nil
	}
	if lastRSI <= p.cfg.Oversold && lastHist > 0 {
		return backtest.ActionBuy, nil
	}
	return backtest.ActionHold, nil
}

// RandomPolicy picks uniformly among hold, buy, and sell. Deterministic for
// a fixed seed.
type RandomPolicy struct {
	rng *rand.Rand
}

var _ backtest.Policy = (*RandomPolicy)(nil)

func NewRandomPolicy(seed int64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPolicy) Predict(_ context.Context, _ backtest.Observation, _ bool) (backtest.Action, error) {
	return backtest.Action(p.rng.Intn(3)), nil
}
