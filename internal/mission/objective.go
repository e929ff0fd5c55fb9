// Package mission assembles the obscuration objective from the scenario,
// strategy codec and coverage sampler, and plans per-threat deployments with
// the adaptive optimizer.
package mission

import (
	"github.com/veilcraft/obscura/internal/optimization"
	"github.com/veilcraft/obscura/internal/scenario"
	"github.com/veilcraft/obscura/internal/sim"
	"github.com/veilcraft/obscura/internal/strategy"
)

// Objective scores decision vectors: it decodes a strategy, flies the
// carriers and munitions, spawns clouds, and integrates the weighted covered
// duration against each engaged threat. Evaluation is a pure function of the
// vector plus the read-only scenario state.
type Objective struct {
	sc       *scenario.Scenario
	schema   strategy.Schema
	threats  []*sim.Threat
	weights  []float64
	samplers []*sim.CoverageSampler
}

// NewObjective binds an objective to a carrier assignment and an ordered set
// of engaged threats. Weights default to 1 for threats missing an entry.
func NewObjective(sc *scenario.Scenario, assignments map[string]int, threatIDs []string, weights map[string]float64) (*Objective, error) {
	selectTarget := len(threatIDs) > 1
	schema, err := strategy.NewSchema(assignments, len(threatIDs), selectTarget)
	if err != nil {
		return nil, optimization.WrapError(err, "building decision schema").
			WithComponent("mission").WithOperation("NewObjective")
	}

	target, err := sc.TargetCylinder()
	if err != nil {
		return nil, err
	}

	o := &Objective{
		sc:       sc,
		schema:   schema,
		threats:  make([]*sim.Threat, 0, len(threatIDs)),
		weights:  make([]float64, 0, len(threatIDs)),
		samplers: make([]*sim.CoverageSampler, 0, len(threatIDs)),
	}
	for _, slot := range schema.Slots() {
		if _, err := sc.Carrier(slot.ID); err != nil {
			return nil, err
		}
	}
	for _, id := range threatIDs {
		t, err := sc.Threat(id)
		if err != nil {
			return nil, err
		}
		sampler, err := sim.NewCoverageSampler(t, target, sc.Sampling.TimeStep)
		if err != nil {
			return nil, err
		}
		w, ok := weights[id]
		if !ok {
			w = 1
		}
		o.threats = append(o.threats, t)
		o.weights = append(o.weights, w)
		o.samplers = append(o.samplers, sampler)
	}
	return o, nil
}

// Schema returns the decision-vector layout.
func (o *Objective) Schema() strategy.Schema { return o.schema }

// Dim returns the decision-vector length.
func (o *Objective) Dim() int { return o.schema.Dim() }

// Func adapts the objective to the optimizer calling convention. The returned
// cost is the negated weighted covered duration, so minimizing maximizes
// obscuration. Decode and integration failures surface as errors for the
// optimizer to convert into a worst-case finite cost.
func (o *Objective) Func() optimization.ObjectiveFunc {
	return func(x []float64) (float64, error) {
		covered, err := o.coveredDurations(x)
		if err != nil {
			return 0, err
		}
		total := 0.0
		for i, c := range covered {
			total += o.weights[i] * c
		}
		return -total, nil
	}
}

// coveredDurations evaluates the per-threat covered times for one vector.
func (o *Objective) coveredDurations(x []float64) ([]float64, error) {
	st, err := o.schema.Decode(x)
	if err != nil {
		return nil, err
	}

	perThreat := make([][]*sim.Cloud, len(o.threats))
	phys := o.sc.Physics

	for _, slot := range o.schema.Slots() {
		carrier, err := o.sc.Carrier(slot.ID)
		if err != nil {
			return nil, err
		}
		plan := st[slot.ID]
		carrier.SetFlightPlan(plan.Speed, plan.Heading)

		for _, mp := range plan.Munitions {
			if mp.DeployTime <= 0 || mp.FuseTime <= 0 {
				return nil, optimization.NewErrorf(
					"carrier %q: non-positive timing deploy=%v fuse=%v", slot.ID, mp.DeployTime, mp.FuseTime).
					WithComponent("mission").WithOperation("coveredDurations")
			}
			mun, err := carrier.Deploy(mp.DeployTime, mp.FuseTime, phys.Ballistics())
			if err != nil {
				return nil, err
			}
			cloud := mun.Cloud(phys.CloudRadius, phys.CloudSinkRate, phys.CloudLifetime)

			if mp.TargetIndex >= 0 {
				perThreat[mp.TargetIndex] = append(perThreat[mp.TargetIndex], cloud)
			} else {
				for i := range perThreat {
					perThreat[i] = append(perThreat[i], cloud)
				}
			}
		}
	}

	covered := make([]float64, len(o.threats))
	for i, sampler := range o.samplers {
		covered[i] = sampler.CoveredDuration(perThreat[i])
	}
	return covered, nil
}

// Report decodes a vector and returns its strategy together with the
// per-threat covered durations, for post-run inspection of the optimum.
func (o *Objective) Report(x []float64) (strategy.Strategy, map[string]float64, error) {
	st, err := o.schema.Decode(x)
	if err != nil {
		return nil, nil, err
	}
	covered, err := o.coveredDurations(x)
	if err != nil {
		return nil, nil, err
	}
	byThreat := make(map[string]float64, len(o.threats))
	for i, t := range o.threats {
		byThreat[t.ID()] = covered[i]
	}
	return st, byThreat, nil
}
