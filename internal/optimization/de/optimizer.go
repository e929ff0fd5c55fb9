// Package de implements a self-adaptive differential evolution optimizer:
// per-trial (F, CR) sampling re-centered on the previous generation's
// successes, success-weighted mutation-strategy selection, configurable
// boundary repair, a bounded archive of displaced individuals, and optional
// linear population shrinking.
package de

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"github.com/veilcraft/obscura/internal/optimization"
)

// Options configure one optimizer instance.
type Options struct {
	// PopulationSize is the initial population size. Zero selects
	// max(30, 4·dim).
	PopulationSize int
	// MaxIterations is the generation budget.
	MaxIterations int
	// Tolerance terminates the run once |best cost| drops below it.
	Tolerance float64
	// Seed fixes the random stream; zero seeds from the clock.
	Seed uint64
	// Boundary selects the repair rule for out-of-range vectors.
	Boundary BoundaryRule
	// ArchiveSize bounds the FIFO archive of displaced individuals.
	// Zero disables the archive.
	ArchiveSize int
	// ShrinkPopulation enables linear population reduction toward
	// max(4, dim/2) over the iteration budget.
	ShrinkPopulation bool
}

// DefaultOptions mirror the solver defaults used by the planner.
func DefaultOptions() Options {
	return Options{
		MaxIterations: 800,
		Tolerance:     1e-6,
		Boundary:      Reflect,
		ArchiveSize:   100,
	}
}

// AdaptiveDE is a steady-state self-adaptive differential evolution search.
// Replacements become visible to mutation draws within the same generation.
type AdaptiveDE struct {
	objective optimization.ObjectiveFunc
	bounds    optimization.Bounds
	opts      Options
	dim       int

	src rand.Source
	rng *rand.Rand

	population [][]float64
	fitness    []float64
	bestIdx    int
	best       *optimization.Solution

	archive  [][]float64
	memory   *parameterMemory
	selector *strategySelector

	history []float64
	cancel  context.CancelFunc
}

// New validates the configuration and builds an optimizer. Contradictory
// bounds are fatal here, before any generation runs.
func New(objective optimization.ObjectiveFunc, bounds optimization.Bounds, opts Options) (*AdaptiveDE, error) {
	if objective == nil {
		return nil, optimization.NewError("nil objective").
			WithComponent("de").WithOperation("New")
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	dim := len(bounds)
	if opts.PopulationSize < 1 {
		opts.PopulationSize = 4 * dim
		if opts.PopulationSize < 30 {
			opts.PopulationSize = 30
		}
	}
	if opts.PopulationSize < 4 {
		return nil, optimization.NewErrorf("population size %d below minimum 4", opts.PopulationSize).
			WithComponent("de").WithOperation("New")
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 1000
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewSource(seed)

	return &AdaptiveDE{
		objective: objective,
		bounds:    bounds,
		opts:      opts,
		dim:       dim,
		src:       src,
		rng:       rand.New(src),
		memory:    newParameterMemory(),
		selector:  newStrategySelector(),
	}, nil
}

// Best returns a copy of the best solution found so far.
func (d *AdaptiveDE) Best() *optimization.Solution {
	return d.best.Clone()
}

// Stop cancels a running optimization.
func (d *AdaptiveDE) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

// Optimize runs the search until the iteration budget, the tolerance
// criterion, or context cancellation terminates it.
func (d *AdaptiveDE) Optimize(ctx context.Context) (*optimization.Result, error) {
	ctx, d.cancel = context.WithCancel(ctx)
	defer d.cancel()

	d.initializePopulation()

	converged := false
	generations := 0

	for g := 0; g < d.opts.MaxIterations; g++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if d.opts.ShrinkPopulation {
			d.shrinkPopulation(g)
		}

		usedStrategies := make([]MutationStrategy, 0, len(d.population))
		useOutcomes := make([]bool, 0, len(d.population))

		for i := range d.population {
			f, cr := d.memory.Sample(d.src, d.rng)
			strategy := d.selector.Select(d.rng)

			mutant := d.mutate(i, strategy, f)
			d.opts.Boundary.apply(mutant, d.bounds, d.rng)

			trial := d.crossover(d.population[i], mutant, cr)
			d.opts.Boundary.apply(trial, d.bounds, d.rng)

			trialCost := d.evaluate(trial)

			success := trialCost < d.fitness[i]
			if success {
				d.memory.Record(f, cr)
				d.pushArchive(d.population[i])
				d.population[i] = trial
				d.fitness[i] = trialCost
				if trialCost < d.best.Value {
					d.bestIdx = i
					d.best = &optimization.Solution{
						Vector: append([]float64(nil), trial...),
						Value:  trialCost,
					}
				}
			}

			usedStrategies = append(usedStrategies, strategy)
			useOutcomes = append(useOutcomes, success)
		}

		d.memory.Advance()
		for i, s := range usedStrategies {
			d.selector.Note(s, useOutcomes[i])
		}

		d.history = append(d.history, d.best.Value)
		generations = g + 1

		if math.Abs(d.best.Value) < d.opts.Tolerance {
			converged = true
			break
		}
	}

	return &optimization.Result{
		Best:        d.best.Clone(),
		History:     append([]float64(nil), d.history...),
		Generations: generations,
		Converged:   converged,
	}, nil
}

func (d *AdaptiveDE) initializePopulation() {
	n := d.opts.PopulationSize
	d.population = make([][]float64, n)
	d.fitness = make([]float64, n)

	for i := 0; i < n; i++ {
		x := make([]float64, d.dim)
		for j := 0; j < d.dim; j++ {
			lo, hi := d.bounds[j][0], d.bounds[j][1]
			x[j] = lo + d.rng.Float64()*(hi-lo)
		}
		d.population[i] = x
		d.fitness[i] = d.evaluate(x)
	}

	d.bestIdx = 0
	for i := 1; i < n; i++ {
		if d.fitness[i] < d.fitness[d.bestIdx] {
			d.bestIdx = i
		}
	}
	d.best = &optimization.Solution{
		Vector: append([]float64(nil), d.population[d.bestIdx]...),
		Value:  d.fitness[d.bestIdx],
	}
}

// evaluate converts objective failures and non-finite costs into the worst
// possible finite value so a bad trial is simply non-improving.
func (d *AdaptiveDE) evaluate(x []float64) float64 {
	v, err := d.objective(x)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return optimization.WorstCost
	}
	return v
}

// mutate builds a donor vector per the selected strategy. When the population
// has shrunk below the strategy's index demand, rand/1 is used instead.
func (d *AdaptiveDE) mutate(target int, strategy MutationStrategy, f float64) []float64 {
	switch strategy {
	case Best1:
		idx, ok := d.pickDistinct(2, target, d.bestIdx)
		if !ok {
			break
		}
		return d.combine(d.population[d.bestIdx], f, idx[0], idx[1])
	case CurrentToBest1:
		idx, ok := d.pickDistinct(2, target, d.bestIdx)
		if !ok {
			break
		}
		mutant := append([]float64(nil), d.population[target]...)
		diff := make([]float64, d.dim)
		floats.SubTo(diff, d.population[d.bestIdx], d.population[target])
		floats.AddScaled(mutant, f, diff)
		floats.SubTo(diff, d.population[idx[0]], d.population[idx[1]])
		floats.AddScaled(mutant, f, diff)
		return mutant
	case Rand2:
		idx, ok := d.pickDistinct(5, target, -1)
		if !ok {
			break
		}
		mutant := d.combine(d.population[idx[0]], f, idx[1], idx[2])
		diff := make([]float64, d.dim)
		floats.SubTo(diff, d.population[idx[3]], d.population[idx[4]])
		floats.AddScaled(mutant, f, diff)
		return mutant
	}

	// rand/1, also the fallback for undersized populations.
	idx, _ := d.pickDistinct(3, target, -1)
	return d.combine(d.population[idx[0]], f, idx[1], idx[2])
}

// combine returns base + f·(pop[a] − pop[b]).
func (d *AdaptiveDE) combine(base []float64, f float64, a, b int) []float64 {
	mutant := append([]float64(nil), base...)
	diff := make([]float64, d.dim)
	floats.SubTo(diff, d.population[a], d.population[b])
	floats.AddScaled(mutant, f, diff)
	return mutant
}

// pickDistinct draws count distinct population indices excluding the target
// and, when non-negative, the best index. ok is false when the population is
// too small for the request.
func (d *AdaptiveDE) pickDistinct(count, exclude1, exclude2 int) ([]int, bool) {
	perm := d.rng.Perm(len(d.population))
	picked := make([]int, 0, count)
	for _, idx := range perm {
		if idx == exclude1 || idx == exclude2 {
			continue
		}
		picked = append(picked, idx)
		if len(picked) == count {
			return picked, true
		}
	}
	return picked, false
}

// crossover binomially mixes the mutant into the target, forcing at least one
// dimension from the mutant so the trial always differs.
func (d *AdaptiveDE) crossover(target, mutant []float64, cr float64) []float64 {
	trial := append([]float64(nil), target...)
	forced := d.rng.Intn(d.dim)
	for j := 0; j < d.dim; j++ {
		if j == forced || d.rng.Float64() < cr {
			trial[j] = mutant[j]
		}
	}
	return trial
}

func (d *AdaptiveDE) pushArchive(displaced []float64) {
	if d.opts.ArchiveSize <= 0 {
		return
	}
	d.archive = append(d.archive, append([]float64(nil), displaced...))
	if len(d.archive) > d.opts.ArchiveSize {
		d.archive = d.archive[len(d.archive)-d.opts.ArchiveSize:]
	}
}

// ArchiveLen reports the number of displaced individuals currently retained.
func (d *AdaptiveDE) ArchiveLen() int { return len(d.archive) }

// shrinkPopulation linearly reduces the population toward max(4, dim/2),
// keeping the currently best-ranked individuals.
func (d *AdaptiveDE) shrinkPopulation(generation int) {
	floor := d.dim / 2
	if floor < 4 {
		floor = 4
	}
	initial := d.opts.PopulationSize
	progress := float64(generation) / float64(d.opts.MaxIterations)
	want := initial - int(progress*float64(initial-floor))
	if want < floor {
		want = floor
	}
	if want >= len(d.population) {
		return
	}

	order := make([]int, len(d.population))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return d.fitness[order[a]] < d.fitness[order[b]] })

	newPop := make([][]float64, want)
	newFit := make([]float64, want)
	for i := 0; i < want; i++ {
		newPop[i] = d.population[order[i]]
		newFit[i] = d.fitness[order[i]]
	}
	d.population = newPop
	d.fitness = newFit
	d.bestIdx = 0
}
