package policy

import (
	"context"
	"testing"
	"time"

	"crypto-backtest-lab/internal/backtest"
	"crypto-backtest-lab/internal/domain"
)

func barsFromCloses(closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:   "BTC/USD",
			OpenTime: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
			Open:     c, High: c, Low: c, Close: c,
		}
	}
	return bars
}

// declineThenFlat produces a long slide, pushing RSI deep into oversold.
func declineThenFlat(n int) []float64 {
	closes := make([]float64, n)
	price := 200.0
	for i := range closes {
		price -= 1.0
		closes[i] = price
	}
	return closes
}

func TestIndicatorPolicyHoldsDuringWarmup(t *testing.T) {
	bars := barsFromCloses(declineThenFlat(100))
	p := NewIndicatorPolicy(bars, Config{})

	obs := make(backtest.Observation, 11)
	// MACD slow+signal = 35 bars of warmup with default parameters.
	for i := 0; i < 30; i++ {
		a, err := p.Predict(context.Background(), obs, true)
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		if a != backtest.ActionHold {
			t.Fatalf("Expected hold during warmup at call %d, got %v", i, a)
		}
	}
}

func TestIndicatorPolicySellsOverbought(t *testing.T) {
	// Steady climb keeps RSI pinned near 100.
	closes := make([]float64, 120)
	price := 100.0
	for i := range closes {
		price += 1.0
		closes[i] = price
	}
	bars := barsFromCloses(closes)
	p := NewIndicatorPolicy(bars, Config{})

	obs := make(backtest.Observation, 11)
	obs[len(obs)-1] = 1 // in position

	var action backtest.Action
	var err error
	for i := 0; i < 100; i++ {
		action, err = p.Predict(context.Background(), obs, true)
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
	}
	if action != backtest.ActionSell {
		t.Errorf("Expected sell when overbought and in position, got %v", action)
	}
}

func TestIndicatorPolicyNeverBuysWhenInPosition(t *testing.T) {
	bars := barsFromCloses(declineThenFlat(120))
	p := NewIndicatorPolicy(bars, Config{})

	obs := make(backtest.Observation, 11)
	obs[len(obs)-1] = 1

	for i := 0; i < 100; i++ {
		a, err := p.Predict(context.Background(), obs, true)
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		if a == backtest.ActionBuy {
			t.Fatalf("Policy bought while already in position at call %d", i)
		}
	}
}

func TestIndicatorPolicyDeterministicReplay(t *testing.T) {
	closes := declineThenFlat(120)
	obs := make(backtest.Observation, 11)

	run := func() []backtest.Action {
		p := NewIndicatorPolicy(barsFromCloses(closes), Config{Seed: 7})
		var actions []backtest.Action
		for i := 0; i < 100; i++ {
			a, err := p.Predict(context.Background(), obs, true)
			if err != nil {
				t.Fatalf("Predict failed: %v", err)
			}
			actions = append(actions, a)
		}
		return actions
	}

	first := run()
	second := run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Deterministic replay diverged at call %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestRandomPolicySeededAndInRange(t *testing.T) {
	p1 := NewRandomPolicy(42)
	p2 := NewRandomPolicy(42)

	counts := make(map[backtest.Action]int)
	for i := 0; i < 300; i++ {
		a1, _ := p1.Predict(context.Background(), nil, false)
		a2, _ := p2.Predict(context.Background(), nil, false)
		if a1 != a2 {
			t.Fatalf("Same seed diverged at call %d", i)
		}
		if a1 < backtest.ActionHold || a1 > backtest.ActionSell {
			t.Fatalf("Action out of range: %v", a1)
		}
		counts[a1]++
	}

	// All three actions should appear over 300 draws.
	for _, a := range []backtest.Action{backtest.ActionHold, backtest.ActionBuy, backtest.ActionSell} {
		if counts[a] == 0 {
			t.Errorf("Action %v never drawn", a)
		}
	}
}
