package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/spatial/r3"
)

func coverageFixture(t *testing.T) (*Threat, *TargetCylinder) {
	t.Helper()
	threat, err := NewThreat("M1", r3.Vec{X: 1000, Z: 1000}, r3.Vec{}, 100)
	require.NoError(t, err)
	target, err := NewTargetCylinder(r3.Vec{}, 7, 10, 16, 5)
	require.NoError(t, err)
	return threat, target
}

func TestNewCoverageSamplerValidation(t *testing.T) {
	threat, target := coverageFixture(t)

	_, err := NewCoverageSampler(threat, target, 0)
	assert.Error(t, err)
	_, err = NewCoverageSampler(threat, target, -0.1)
	assert.Error(t, err)
}

func TestCoveredDurationNoClouds(t *testing.T) {
	threat, target := coverageFixture(t)
	sampler, err := NewCoverageSampler(threat, target, 0.1)
	require.NoError(t, err)

	assert.Zero(t, sampler.CoveredDuration(nil))
}

func TestCoveredDurationObstructingCloud(t *testing.T) {
	threat, target := coverageFixture(t)
	sampler, err := NewCoverageSampler(threat, target, 0.1)
	require.NoError(t, err)

	// A large static cloud sits on the threat's sight line to the target for
	// the first part of the approach.
	cloud := &Cloud{
		detPos:   r3.Vec{X: 500, Z: 500},
		detTime:  0,
		radius:   100,
		sinkRate: 0,
		lifetime: 10,
	}

	covered := sampler.CoveredDuration([]*Cloud{cloud})
	assert.Greater(t, covered, 1.0, "the cloud blocks the early approach")
	assert.Less(t, covered, cloud.lifetime, "the threat passes the cloud before it expires")
}

// Adding a cloud can only grow the covered set: coverage is a union over
// shadow cones, never an intersection.
func TestCoveredDurationMonotoneUnderExtraClouds(t *testing.T) {
	threat, target := coverageFixture(t)
	sampler, err := NewCoverageSampler(threat, target, 0.1)
	require.NoError(t, err)

	first := &Cloud{detPos: r3.Vec{X: 500, Z: 500}, detTime: 0, radius: 100, lifetime: 6}
	second := &Cloud{detPos: r3.Vec{X: 200, Z: 200}, detTime: 4, radius: 100, lifetime: 6}

	alone := sampler.CoveredDuration([]*Cloud{first})
	both := sampler.CoveredDuration([]*Cloud{first, second})
	assert.GreaterOrEqual(t, both, alone)
}

func TestCoveredDurationDeterministic(t *testing.T) {
	threat, target := coverageFixture(t)
	sampler, err := NewCoverageSampler(threat, target, 0.1)
	require.NoError(t, err)

	clouds := []*Cloud{
		{detPos: r3.Vec{X: 500, Z: 500}, detTime: 0, radius: 100, lifetime: 10},
		{detPos: r3.Vec{X: 300, Z: 300}, detTime: 2, radius: 50, lifetime: 8},
	}

	first := sampler.CoveredDuration(clouds)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, sampler.CoveredDuration(clouds))
	}
}

func TestFullyHiddenAt(t *testing.T) {
	threat, target := coverageFixture(t)
	sampler, err := NewCoverageSampler(threat, target, 0.1)
	require.NoError(t, err)

	cloud := &Cloud{detPos: r3.Vec{X: 500, Z: 500}, detTime: 0, radius: 100, lifetime: 10}

	assert.True(t, sampler.FullyHiddenAt(0, cloud))
	assert.False(t, sampler.FullyHiddenAt(-1, cloud), "cloud not yet active")
	assert.False(t, sampler.FullyHiddenAt(15, cloud), "cloud dissipated")
}
