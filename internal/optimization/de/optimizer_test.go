package de

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilcraft/obscura/internal/optimization"
)

func sphere(x []float64) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

func sphereBounds(dim int) optimization.Bounds {
	b := make(optimization.Bounds, dim)
	for i := range b {
		b[i] = [2]float64{-5, 5}
	}
	return b
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, sphereBounds(2), Options{})
	assert.Error(t, err, "nil objective must be rejected")

	_, err = New(sphere, nil, Options{})
	assert.Error(t, err, "empty bounds must be rejected")

	_, err = New(sphere, optimization.Bounds{{1, -1}}, Options{})
	assert.Error(t, err, "inverted bounds must be rejected")

	_, err = New(sphere, optimization.Bounds{{0, math.NaN()}}, Options{})
	assert.Error(t, err, "non-finite bounds must be rejected")
}

func TestOptimizeSphere(t *testing.T) {
	opts := Options{
		PopulationSize: 60,
		MaxIterations:  500,
		Tolerance:      1e-8,
		Seed:           42,
		Boundary:       Reflect,
		ArchiveSize:    100,
	}

	solver, err := New(sphere, sphereBounds(10), opts)
	require.NoError(t, err)

	result, err := solver.Optimize(context.Background())
	require.NoError(t, err)

	assert.Less(t, result.Best.Value, 1e-4, "sphere optimum not reached")
	for i, v := range result.Best.Vector {
		assert.InDelta(t, 0, v, 0.1, "dimension %d far from optimum", i)
	}

	// The best-so-far history never worsens.
	for i := 1; i < len(result.History); i++ {
		assert.LessOrEqual(t, result.History[i], result.History[i-1])
	}
	assert.Equal(t, len(result.History), result.Generations)
}

func TestOptimizeDeterministicForFixedSeed(t *testing.T) {
	opts := Options{
		PopulationSize: 30,
		MaxIterations:  50,
		Seed:           7,
		Boundary:       Clip,
	}

	run := func() *optimization.Result {
		solver, err := New(sphere, sphereBounds(3), opts)
		require.NoError(t, err)
		result, err := solver.Optimize(context.Background())
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()
	assert.Equal(t, first.Best.Value, second.Best.Value)
	assert.Equal(t, first.Best.Vector, second.Best.Vector)
	assert.Equal(t, first.History, second.History)
}

func TestOptimizeRespectsBounds(t *testing.T) {
	bounds := sphereBounds(4)
	checked := func(x []float64) (float64, error) {
		for i, v := range x {
			if v < bounds[i][0] || v > bounds[i][1] {
				t.Fatalf("objective saw out-of-bounds value %v at dim %d", v, i)
			}
		}
		return sphere(x)
	}

	for _, rule := range []BoundaryRule{Clip, Reflect, Reinitialize, Midpoint} {
		solver, err := New(checked, bounds, Options{
			PopulationSize: 20,
			MaxIterations:  1000,
			Seed:           5,
			Boundary:       rule,
		})
		require.NoError(t, err)
		_, err = solver.Optimize(context.Background())
		require.NoError(t, err)
	}
}

func TestOptimizeFailingObjective(t *testing.T) {
	failing := func(x []float64) (float64, error) {
		return 0, errors.New("evaluation blew up")
	}

	solver, err := New(failing, sphereBounds(2), Options{
		PopulationSize: 10,
		MaxIterations:  5,
		Seed:           1,
	})
	require.NoError(t, err)

	result, err := solver.Optimize(context.Background())
	require.NoError(t, err, "objective failures are absorbed, not fatal")
	assert.Equal(t, optimization.WorstCost, result.Best.Value)
	assert.False(t, result.Converged)
}

func TestOptimizeNaNCost(t *testing.T) {
	nanObjective := func(x []float64) (float64, error) {
		return math.NaN(), nil
	}

	solver, err := New(nanObjective, sphereBounds(2), Options{
		PopulationSize: 10,
		MaxIterations:  5,
		Seed:           1,
	})
	require.NoError(t, err)

	result, err := solver.Optimize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, optimization.WorstCost, result.Best.Value)
}

func TestOptimizeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	solver, err := New(sphere, sphereBounds(2), Options{
		PopulationSize: 10,
		MaxIterations:  1000,
		Seed:           1,
	})
	require.NoError(t, err)

	_, err = solver.Optimize(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptimizeConvergesWithinTolerance(t *testing.T) {
	solver, err := New(sphere, sphereBounds(2), Options{
		PopulationSize: 40,
		MaxIterations:  2000,
		Tolerance:      1e-4,
		Seed:           9,
		Boundary:       Reflect,
	})
	require.NoError(t, err)

	result, err := solver.Optimize(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Converged)
	assert.Less(t, result.Generations, 2000, "tolerance should terminate the run early")
	assert.Less(t, math.Abs(result.Best.Value), 1e-4)
}

func TestOptimizeShrinkingPopulation(t *testing.T) {
	solver, err := New(sphere, sphereBounds(6), Options{
		PopulationSize:   60,
		MaxIterations:    200,
		Seed:             13,
		Boundary:         Reflect,
		ShrinkPopulation: true,
	})
	require.NoError(t, err)

	result, err := solver.Optimize(context.Background())
	require.NoError(t, err)

	// Shrinking keeps the best-ranked individuals, so quality is preserved.
	assert.Less(t, result.Best.Value, 1.0)
	floor := 6 / 2
	if floor < 4 {
		floor = 4
	}
	assert.GreaterOrEqual(t, len(solver.population), floor)
	assert.Less(t, len(solver.population), 60)
}

func TestArchiveBounded(t *testing.T) {
	solver, err := New(sphere, sphereBounds(3), Options{
		PopulationSize: 30,
		MaxIterations:  100,
		Seed:           21,
		ArchiveSize:    16,
	})
	require.NoError(t, err)

	_, err = solver.Optimize(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, solver.ArchiveLen(), 16)
	assert.Greater(t, solver.ArchiveLen(), 0, "improvements must displace individuals into the archive")
}

func TestBestReturnsClone(t *testing.T) {
	solver, err := New(sphere, sphereBounds(2), Options{
		PopulationSize: 10,
		MaxIterations:  10,
		Seed:           2,
	})
	require.NoError(t, err)

	_, err = solver.Optimize(context.Background())
	require.NoError(t, err)

	best := solver.Best()
	best.Vector[0] = 12345
	assert.NotEqual(t, 12345.0, solver.Best().Vector[0], "Best must return a defensive copy")
}
