package mission

import (
	"context"
	"math"
	"sort"

	"github.com/veilcraft/obscura/internal/logging"
	"github.com/veilcraft/obscura/internal/optimization"
	"github.com/veilcraft/obscura/internal/optimization/de"
	"github.com/veilcraft/obscura/internal/scenario"
	"github.com/veilcraft/obscura/internal/strategy"
	"github.com/veilcraft/obscura/internal/threat"
)

// maxPopulation caps the dimension-scaled population size.
const maxPopulation = 200

// ThreatPlan is the optimized deployment against one threat.
type ThreatPlan struct {
	ThreatID    string
	Weight      float64
	Allocation  map[string]int
	Strategy    strategy.Strategy
	CoveredTime float64
	Generations int
	Converged   bool
}

// MissionPlan aggregates all per-threat plans.
type MissionPlan struct {
	Threats []ThreatPlan
	// WeightedScore is Σ weight·coveredTime over all planned threats, the
	// quantity the whole pipeline maximizes.
	WeightedScore float64
}

// Planner runs the full pipeline: assess threat weights, allocate carriers,
// then solve each threat sub-problem with the adaptive optimizer.
type Planner struct {
	sc   *scenario.Scenario
	log  *logging.Logger
	opts de.Options
}

// NewPlanner builds a planner. opts seeds every sub-problem's solver; a zero
// PopulationSize scales with the sub-problem dimension.
func NewPlanner(sc *scenario.Scenario, logger *logging.Logger, opts de.Options) *Planner {
	return &Planner{sc: sc, log: logger, opts: opts}
}

// Plan executes the pipeline and returns the aggregated mission plan.
func (p *Planner) Plan(ctx context.Context) (*MissionPlan, error) {
	weights := threat.AssessWeights(p.sc)
	allocation := threat.Allocate(p.sc, weights)

	plan := &MissionPlan{}
	for _, threatID := range p.sc.ThreatIDs() {
		alloc := allocation[threatID]
		if len(alloc) == 0 {
			p.log.Info("no carriers allocated, skipping threat", map[string]interface{}{
				"threat": threatID,
				"weight": weights[threatID],
			})
			continue
		}

		tp, err := p.planThreat(ctx, threatID, weights[threatID], alloc)
		if err != nil {
			return nil, err
		}
		plan.Threats = append(plan.Threats, *tp)
		plan.WeightedScore += tp.Weight * tp.CoveredTime
	}
	return plan, nil
}

// planThreat solves one threat sub-problem.
func (p *Planner) planThreat(ctx context.Context, threatID string, weight float64, alloc map[string]int) (*ThreatPlan, error) {
	obj, err := NewObjective(p.sc, alloc, []string{threatID}, nil)
	if err != nil {
		return nil, err
	}

	bounds, err := p.buildBounds(threatID, alloc)
	if err != nil {
		return nil, err
	}

	opts := p.opts
	if opts.PopulationSize == 0 {
		opts.PopulationSize = 15 * len(bounds)
		if opts.PopulationSize > maxPopulation {
			opts.PopulationSize = maxPopulation
		}
	}

	p.log.Info("optimizing deployment", map[string]interface{}{
		"threat":     threatID,
		"weight":     weight,
		"carriers":   len(alloc),
		"dimensions": len(bounds),
		"population": opts.PopulationSize,
	})

	solver, err := de.New(obj.Func(), bounds, opts)
	if err != nil {
		return nil, err
	}
	result, err := solver.Optimize(ctx)
	if err != nil {
		return nil, err
	}

	tp := &ThreatPlan{
		ThreatID:    threatID,
		Weight:      weight,
		Allocation:  alloc,
		Generations: result.Generations,
		Converged:   result.Converged,
	}

	if result.Best.Value < optimization.WorstCost {
		st, covered, err := obj.Report(result.Best.Vector)
		if err != nil {
			return nil, optimization.WrapError(err, "best vector failed to decode").
				WithComponent("mission").WithOperation("planThreat")
		}
		tp.Strategy = st
		tp.CoveredTime = covered[threatID]
	}

	p.log.Info("deployment optimized", map[string]interface{}{
		"threat":       threatID,
		"covered_time": tp.CoveredTime,
		"generations":  tp.Generations,
		"converged":    tp.Converged,
	})
	return tp, nil
}

// buildBounds lays out the per-dimension search box in schema order: speed
// and heading per carrier, then deploy/fuse pairs with increment encoding
// for later munitions.
func (p *Planner) buildBounds(threatID string, alloc map[string]int) (optimization.Bounds, error) {
	phys := p.sc.Physics

	ids := make([]string, 0, len(alloc))
	for id := range alloc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var bounds optimization.Bounds
	for _, carrierID := range ids {
		maxDeploy, err := DeployWindow(p.sc, carrierID, threatID)
		if err != nil {
			return nil, err
		}
		p.log.Debug("deploy window probed", map[string]interface{}{
			"threat":     threatID,
			"carrier":    carrierID,
			"max_deploy": maxDeploy,
		})

		bounds = append(bounds,
			[2]float64{phys.CarrierSpeedMin, phys.CarrierSpeedMax},
			[2]float64{0, 2 * math.Pi},
			[2]float64{deployProbeStart, maxDeploy},
			[2]float64{deployProbeStart, phys.CloudLifetime},
		)
		for m := 1; m < alloc[carrierID]; m++ {
			bounds = append(bounds,
				[2]float64{phys.MunitionInterval, 10},
				[2]float64{deployProbeStart, phys.CloudLifetime},
			)
		}
	}
	return bounds, nil
}
