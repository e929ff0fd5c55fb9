package de

import (
	"golang.org/x/exp/rand"
)

// MutationStrategy selects the donor-construction formula for one trial.
type MutationStrategy int

const (
	// Rand1 is DE/rand/1: v = x_r1 + F·(x_r2 − x_r3).
	Rand1 MutationStrategy = iota
	// Best1 is DE/best/1: v = x_best + F·(x_r1 − x_r2).
	Best1
	// CurrentToBest1 is DE/current-to-best/1:
	// v = x_i + F·(x_best − x_i) + F·(x_r1 − x_r2).
	CurrentToBest1
	// Rand2 is DE/rand/2: v = x_r1 + F·(x_r2 − x_r3) + F·(x_r4 − x_r5).
	Rand2

	numStrategies = 4
)

// String returns the conventional strategy name.
func (s MutationStrategy) String() string {
	switch s {
	case Rand1:
		return "rand/1"
	case Best1:
		return "best/1"
	case CurrentToBest1:
		return "current-to-best/1"
	case Rand2:
		return "rand/2"
	}
	return "unknown"
}

const (
	// longRunDecay is the exponential decay applied to the long-run success
	// rate after every strategy use.
	longRunDecay = 0.95
	// recentWindow is the number of most recent uses that feed the recent
	// success rate.
	recentWindow = 10
	// longRunWeight blends the long-run rate against the recent rate when
	// computing selection weights.
	longRunWeight = 0.7
)

// strategySelector picks mutation strategies with probability proportional to
// a blend of each strategy's long-run and recent success rates.
type strategySelector struct {
	longRun [numStrategies]float64
	recent  [numStrategies][]bool
}

func newStrategySelector() *strategySelector {
	s := &strategySelector{}
	for i := range s.longRun {
		s.longRun[i] = 1.0
	}
	return s
}

// Select samples a strategy proportionally to its blended weight.
func (s *strategySelector) Select(rng *rand.Rand) MutationStrategy {
	var weights [numStrategies]float64
	total := 0.0
	for i := 0; i < numStrategies; i++ {
		recentRate := 0.5
		if n := len(s.recent[i]); n > 0 {
			hits := 0
			for _, ok := range s.recent[i] {
				if ok {
					hits++
				}
			}
			recentRate = float64(hits) / float64(n)
		}
		w := longRunWeight*s.longRun[i] + (1-longRunWeight)*recentRate
		weights[i] = w
		total += w
	}

	draw := rng.Float64() * total
	for i := 0; i < numStrategies; i++ {
		draw -= weights[i]
		if draw <= 0 {
			return MutationStrategy(i)
		}
	}
	return MutationStrategy(numStrategies - 1)
}

// Note records the outcome of one strategy use: the long-run rate decays
// toward the outcome and the recent window shifts.
func (s *strategySelector) Note(strategy MutationStrategy, success bool) {
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	s.longRun[strategy] = longRunDecay*s.longRun[strategy] + (1-longRunDecay)*outcome

	window := append(s.recent[strategy], success)
	if len(window) > recentWindow {
		window = window[len(window)-recentWindow:]
	}
	s.recent[strategy] = window
}
