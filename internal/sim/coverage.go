package sim

import (
	"math"

	"github.com/veilcraft/obscura/internal/optimization"
	"github.com/veilcraft/obscura/internal/sim/geometry"
)

// CoverageSampler integrates the total duration during which a target is
// collectively hidden from a threat by a set of clouds. Sampling is
// deterministic for a fixed step: no randomness, fixed grid.
type CoverageSampler struct {
	threat *Threat
	target *TargetCylinder
	step   float64
}

// NewCoverageSampler builds a sampler over a fixed time step.
func NewCoverageSampler(threat *Threat, target *TargetCylinder, step float64) (*CoverageSampler, error) {
	if step <= 0 {
		return nil, optimization.NewErrorf("non-positive sampling step %v", step).
			WithComponent("sim").WithOperation("NewCoverageSampler")
	}
	return &CoverageSampler{threat: threat, target: target, step: step}, nil
}

// Step returns the sampling step.
func (s *CoverageSampler) Step() float64 { return s.step }

// CoveredDuration walks the union of the clouds' activity windows and sums
// the step durations at which the target is collectively hidden. Instants are
// keyed by their grid index so overlapping clouds never double count.
func (s *CoverageSampler) CoveredDuration(clouds []*Cloud) float64 {
	if len(clouds) == 0 {
		return 0
	}

	start := math.Inf(1)
	end := math.Inf(-1)
	for _, c := range clouds {
		cs, ce := c.ActiveWindow()
		start = math.Min(start, cs)
		end = math.Max(end, ce)
	}

	covered := make(map[int64]struct{})
	spheres := make([]geometry.Sphere, 0, len(clouds))

	for t := start; t < end; t += s.step {
		spheres = spheres[:0]
		for _, c := range clouds {
			if center, ok := c.Center(t); ok {
				spheres = append(spheres, geometry.Sphere{Center: center, Radius: c.Radius()})
			}
		}
		if len(spheres) == 0 {
			continue
		}
		if geometry.CollectivelyHidden(s.threat.Position(t), spheres, s.target.KeyPoints()) {
			covered[int64(math.Round(t/s.step))] = struct{}{}
		}
	}

	return float64(len(covered)) * s.step
}

// FullyHiddenAt reports whether a single cloud hides the whole target at one
// sampled instant. It exists for analysis and tests of the single-cloud rim
// criterion; the objective uses the collective key-point test.
func (s *CoverageSampler) FullyHiddenAt(t float64, cloud *Cloud) bool {
	center, ok := cloud.Center(t)
	if !ok {
		return false
	}
	return geometry.FullyHidden(
		s.threat.Position(t),
		geometry.Sphere{Center: center, Radius: cloud.Radius()},
		s.target.BottomCenter(), s.target.TopCenter(), s.target.Radius(),
	)
}
