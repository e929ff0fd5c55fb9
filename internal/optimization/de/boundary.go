package de

import (
	"golang.org/x/exp/rand"

	"github.com/veilcraft/obscura/internal/optimization"
)

// BoundaryRule decides how out-of-range dimensions of mutant and trial
// vectors are repaired.
type BoundaryRule int

const (
	// Clip truncates each violating dimension to the violated bound.
	Clip BoundaryRule = iota
	// Reflect folds a violating value back across the violated bound, then
	// clips against the opposite bound.
	Reflect
	// Reinitialize redraws the violating dimension uniformly within bounds.
	Reinitialize
	// Midpoint replaces the violating dimension with the bound interval's
	// midpoint.
	Midpoint
)

// String returns the rule name.
func (r BoundaryRule) String() string {
	switch r {
	case Clip:
		return "clip"
	case Reflect:
		return "reflect"
	case Reinitialize:
		return "reinitialize"
	case Midpoint:
		return "midpoint"
	}
	return "unknown"
}

// ParseBoundaryRule maps a configuration string to a rule.
func ParseBoundaryRule(s string) (BoundaryRule, error) {
	switch s {
	case "clip":
		return Clip, nil
	case "reflect":
		return Reflect, nil
	case "reinitialize":
		return Reinitialize, nil
	case "midpoint":
		return Midpoint, nil
	}
	return Clip, optimization.NewErrorf("unknown boundary rule %q", s).
		WithComponent("de").WithOperation("ParseBoundaryRule")
}

// apply repairs x in place against bounds.
func (r BoundaryRule) apply(x []float64, bounds optimization.Bounds, rng *rand.Rand) {
	for i := range x {
		lo, hi := bounds[i][0], bounds[i][1]
		switch r {
		case Clip:
			if x[i] < lo {
				x[i] = lo
			} else if x[i] > hi {
				x[i] = hi
			}
		case Reflect:
			if x[i] < lo {
				x[i] = lo + (lo - x[i])
				if x[i] > hi {
					x[i] = hi
				}
			} else if x[i] > hi {
				x[i] = hi - (x[i] - hi)
				if x[i] < lo {
					x[i] = lo
				}
			}
		case Reinitialize:
			if x[i] < lo || x[i] > hi {
				x[i] = lo + rng.Float64()*(hi-lo)
			}
		case Midpoint:
			if x[i] < lo || x[i] > hi {
				x[i] = (lo + hi) / 2
			}
		}
	}
}
