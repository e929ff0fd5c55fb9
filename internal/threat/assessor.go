// Package threat ranks inbound threats and allocates carriers and munitions
// to them. Its outputs feed the mission planner: per-threat weights and a
// carrier → munition-count assignment per threat.
package threat

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/veilcraft/obscura/internal/scenario"
)

// FactorWeights blend the threat factors into one score.
type FactorWeights struct {
	TimeToImpact float64
	Criticality  float64
	Difficulty   float64
}

// DefaultFactorWeights mirror the reference weighting: impact timing
// dominates, then criticality, then interception difficulty.
func DefaultFactorWeights() FactorWeights {
	return FactorWeights{TimeToImpact: 0.5, Criticality: 0.3, Difficulty: 0.2}
}

// Metrics are the per-threat assessment factors before normalization.
type Metrics struct {
	TimeToImpact float64
	Criticality  float64
	Difficulty   float64
	Overall      float64
}

const (
	referenceImpactTime = 60.0   // seconds; normalizes time-to-impact urgency
	referenceSpeed      = 400.0  // m/s
	referenceAltitude   = 2000.0 // m
)

// Assess computes the raw threat metrics for one threat.
func Assess(sc *scenario.Scenario, spec scenario.ThreatSpec, fw FactorWeights) Metrics {
	pos := spec.Position.R3()
	aim := spec.AimPoint.R3()
	targetBase := sc.Target.BaseCenter.R3()

	tti := r3.Norm(r3.Sub(aim, pos)) / spec.Speed

	// Criticality: closer, faster, and mid-altitude threats score higher.
	distToTarget := r3.Norm(r3.Sub(pos, aim))
	distanceScore := math.Max(0, 1-distToTarget/25000.0)
	speedScore := math.Min(1, spec.Speed/referenceSpeed)
	altitudeScore := math.Max(0, 1-math.Abs(pos.Z-referenceAltitude)/referenceAltitude)
	criticality := 0.5*distanceScore + 0.3*speedScore + 0.2*altitudeScore

	// Difficulty: lateral and altitude offsets from the protected asset make
	// an intercept geometry harder to set up.
	lateral := math.Min(1, math.Abs(pos.Y-targetBase.Y)/1000.0)
	altitude := math.Min(1, math.Abs(pos.Z-referenceAltitude)/1000.0)
	distance := math.Min(1, r3.Norm(r3.Sub(pos, targetBase))/20000.0)
	difficulty := 0.4*lateral + 0.3*altitude + 0.3*distance

	ttiScore := 1 / (1 + tti/referenceImpactTime)
	overall := fw.TimeToImpact*ttiScore + fw.Criticality*criticality + fw.Difficulty*difficulty

	return Metrics{
		TimeToImpact: tti,
		Criticality:  criticality,
		Difficulty:   difficulty,
		Overall:      overall,
	}
}

// AssessWeights scores every threat and normalizes the scores to sum to one.
// Degenerate all-zero scores fall back to equal weights.
func AssessWeights(sc *scenario.Scenario) map[string]float64 {
	fw := DefaultFactorWeights()
	scores := make(map[string]float64, len(sc.Threats))
	total := 0.0
	for _, t := range sc.Threats {
		m := Assess(sc, t, fw)
		scores[t.ID] = m.Overall
		total += m.Overall
	}

	weights := make(map[string]float64, len(scores))
	if total <= 0 {
		equal := 1.0 / float64(len(scores))
		for id := range scores {
			weights[id] = equal
		}
		return weights
	}
	for id, s := range scores {
		weights[id] = s / total
	}
	return weights
}
