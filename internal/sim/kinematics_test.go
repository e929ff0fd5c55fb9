package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewThreatValidation(t *testing.T) {
	start := r3.Vec{X: 20000, Z: 2000}

	_, err := NewThreat("bad", start, start, 300)
	assert.Error(t, err, "threat starting on its aim point must be rejected")

	_, err = NewThreat("bad", start, r3.Vec{}, 0)
	assert.Error(t, err, "non-positive speed must be rejected")

	_, err = NewThreat("ok", start, r3.Vec{}, 300)
	assert.NoError(t, err)
}

func TestThreatKinematics(t *testing.T) {
	start := r3.Vec{X: 600, Z: 800}
	threat, err := NewThreat("M1", start, r3.Vec{}, 100)
	require.NoError(t, err)

	// |start| = 1000, so impact at t = 10.
	assert.InDelta(t, 10, threat.TimeToImpact(), 1e-12)

	p := threat.Position(5)
	assert.InDelta(t, 300, p.X, 1e-9)
	assert.InDelta(t, 0, p.Y, 1e-9)
	assert.InDelta(t, 400, p.Z, 1e-9)

	assert.InDelta(t, 1, r3.Norm(threat.Direction()), 1e-12)
}

func TestCarrierRequiresFlightPlan(t *testing.T) {
	c := NewCarrier("FY1", r3.Vec{X: 17800, Z: 1800})

	_, err := c.Velocity()
	assert.Error(t, err)

	_, err = c.Position(1)
	assert.Error(t, err)

	_, err = c.Deploy(1, 1, Ballistics{Gravity: 9.8, Mass: 5})
	assert.Error(t, err)

	c.SetFlightPlan(120, math.Pi)
	v, err := c.Velocity()
	require.NoError(t, err)
	assert.InDelta(t, -120, v.X, 1e-9)
	assert.InDelta(t, 0, v.Y, 1e-9)
	assert.InDelta(t, 0, v.Z, 1e-12)
}

func TestMunitionDragFreeFlightMatchesClosedForm(t *testing.T) {
	// With zero drag the trajectory reduces to a parabola and the integrator
	// must reproduce it.
	pos := r3.Vec{X: 100, Y: 50, Z: 1800}
	vel := r3.Vec{X: -120, Y: 10}
	b := Ballistics{Gravity: 9.8, Mass: 5, DragFactor: 0}
	const fuse = 3.6

	mun, err := NewMunition(pos, vel, 1.5, fuse, b)
	require.NoError(t, err)

	det := mun.DetonationPoint()
	assert.InDelta(t, pos.X+vel.X*fuse, det.X, 1e-6)
	assert.InDelta(t, pos.Y+vel.Y*fuse, det.Y, 1e-6)
	assert.InDelta(t, pos.Z-0.5*b.Gravity*fuse*fuse, det.Z, 1e-6)
	assert.InDelta(t, 1.5+fuse, mun.DetonationTime(), 1e-12)
}

func TestMunitionDragShortensRange(t *testing.T) {
	pos := r3.Vec{Z: 1800}
	vel := r3.Vec{X: 140}
	const fuse = 5.0

	free, err := NewMunition(pos, vel, 0, fuse, Ballistics{Gravity: 9.8, Mass: 5})
	require.NoError(t, err)
	dragged, err := NewMunition(pos, vel, 0, fuse, Ballistics{Gravity: 9.8, Mass: 5, DragFactor: 0.005})
	require.NoError(t, err)

	assert.Less(t, dragged.DetonationPoint().X, free.DetonationPoint().X)
}

func TestMunitionValidation(t *testing.T) {
	_, err := NewMunition(r3.Vec{}, r3.Vec{}, 0, 1, Ballistics{Gravity: 9.8, Mass: 0})
	assert.Error(t, err, "non-positive mass must be rejected")

	_, err = NewMunition(r3.Vec{}, r3.Vec{}, 0, -1, Ballistics{Gravity: 9.8, Mass: 5})
	assert.Error(t, err, "negative fuse time must be rejected")
}

func TestCloudLifecycle(t *testing.T) {
	mun, err := NewMunition(r3.Vec{Z: 1800}, r3.Vec{}, 2, 3, Ballistics{Gravity: 9.8, Mass: 5})
	if err != nil {
		t.Fatal(err)
	}
	cloud := mun.Cloud(10, 3, 20)

	detTime := mun.DetonationTime()

	tests := []struct {
		name  string
		t     float64
		phase CloudPhase
	}{
		{"before detonation", detTime - 0.1, CloudPending},
		{"at detonation", detTime, CloudActive},
		{"mid life", detTime + 10, CloudActive},
		{"just before expiry", detTime + 20 - 1e-9, CloudActive},
		{"at expiry", detTime + 20, CloudDissipated},
		{"after expiry", detTime + 30, CloudDissipated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cloud.Phase(tt.t); got != tt.phase {
				t.Errorf("Phase(%v) = %v, want %v", tt.t, got, tt.phase)
			}
			_, ok := cloud.Center(tt.t)
			if ok != (tt.phase == CloudActive) {
				t.Errorf("Center(%v) ok = %v, phase %v", tt.t, ok, tt.phase)
			}
		})
	}

	// The center sinks at the fixed rate while active.
	c0, _ := cloud.Center(detTime)
	c5, _ := cloud.Center(detTime + 5)
	if math.Abs((c0.Z-c5.Z)-15) > 1e-9 {
		t.Errorf("center sank %v over 5s, want 15", c0.Z-c5.Z)
	}

	start, end := cloud.ActiveWindow()
	if start != detTime || end != detTime+20 {
		t.Errorf("ActiveWindow = (%v, %v), want (%v, %v)", start, end, detTime, detTime+20)
	}
}
