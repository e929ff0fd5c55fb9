// Package optimization defines the shared contract between objective
// functions and the search algorithms that drive them.
package optimization

import (
	"context"
	"math"
)

// Optimizer is the interface implemented by search algorithms.
type Optimizer interface {
	// Optimize runs the search until termination and returns the result.
	Optimize(ctx context.Context) (*Result, error)

	// Best returns the best solution found so far.
	Best() *Solution

	// Stop gracefully stops a running optimization.
	Stop()
}

// ObjectiveFunc maps a decision vector to a scalar cost to minimize. It must
// accept any vector of the declared dimensionality, including adversarial
// out-of-range values; evaluation failures are returned as errors, never
// panics.
type ObjectiveFunc func(x []float64) (float64, error)

// Bounds holds one [lower, upper] pair per decision-vector dimension.
type Bounds [][2]float64

// Validate reports the first contradictory or non-finite bound pair.
func (b Bounds) Validate() error {
	if len(b) == 0 {
		return NewError("empty bounds").WithComponent("optimization").WithOperation("Bounds.Validate")
	}
	for i, pair := range b {
		lo, hi := pair[0], pair[1]
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return NewErrorf("non-finite bound at dimension %d: [%v, %v]", i, lo, hi).
				WithComponent("optimization").WithOperation("Bounds.Validate")
		}
		if lo > hi {
			return NewErrorf("contradictory bound at dimension %d: lower %v > upper %v", i, lo, hi).
				WithComponent("optimization").WithOperation("Bounds.Validate")
		}
	}
	return nil
}

// Solution is a decision vector paired with its evaluated cost.
type Solution struct {
	Vector []float64
	Value  float64
}

// Clone deep-copies the solution.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	return &Solution{
		Vector: append([]float64(nil), s.Vector...),
		Value:  s.Value,
	}
}

// Result is the outcome of one optimization run.
type Result struct {
	Best *Solution
	// History holds the best cost after each generation.
	History []float64
	// Generations is the number of generations actually run.
	Generations int
	// Converged is true when the tolerance criterion was met before the
	// iteration budget ran out.
	Converged bool
}

// WorstCost is the cost assigned to trial vectors whose objective evaluation
// failed. Keeping it finite keeps the search loop alive under adversarial
// mutants.
const WorstCost = math.MaxFloat64
