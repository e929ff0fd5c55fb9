// Package sim provides the kinematic models and coverage sampling that back
// the obscuration objective: threats on constant-velocity lines, carriers
// with settable flight plans, ballistic munitions, and sinking smoke clouds.
package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/veilcraft/obscura/internal/optimization"
)

// Threat is a point observer closing on a fixed aim point at constant speed.
// It is immutable after construction.
type Threat struct {
	id    string
	start r3.Vec
	aim   r3.Vec
	speed float64
	dir   r3.Vec
}

// NewThreat builds a threat from its initial position, aim point and speed.
func NewThreat(id string, start, aim r3.Vec, speed float64) (*Threat, error) {
	d := r3.Sub(aim, start)
	norm := r3.Norm(d)
	if norm < 1e-9 {
		return nil, optimization.NewErrorf("threat %q starts on its aim point", id).
			WithComponent("sim").WithOperation("NewThreat")
	}
	if speed <= 0 {
		return nil, optimization.NewErrorf("threat %q has non-positive speed %v", id, speed).
			WithComponent("sim").WithOperation("NewThreat")
	}
	return &Threat{
		id:    id,
		start: start,
		aim:   aim,
		speed: speed,
		dir:   r3.Scale(1/norm, d),
	}, nil
}

// ID returns the threat identifier.
func (m *Threat) ID() string { return m.id }

// Start returns the initial position.
func (m *Threat) Start() r3.Vec { return m.start }

// Speed returns the closing speed.
func (m *Threat) Speed() float64 { return m.speed }

// Position returns the threat position at time t.
func (m *Threat) Position(t float64) r3.Vec {
	return r3.Add(m.start, r3.Scale(m.speed*t, m.dir))
}

// TimeToImpact returns the flight time from the start position to the aim point.
func (m *Threat) TimeToImpact() float64 {
	return r3.Norm(r3.Sub(m.aim, m.start)) / m.speed
}

// AimPoint returns the fixed point the threat closes on.
func (m *Threat) AimPoint() r3.Vec { return m.aim }

// Direction returns the unit flight direction.
func (m *Threat) Direction() r3.Vec { return m.dir }

// FlightPlan is a carrier's committed speed and horizontal heading.
type FlightPlan struct {
	Speed   float64
	Heading float64
}

// Carrier is a munition carrier with a fixed start position. A flight plan
// must be set before positions or deployments are queried.
type Carrier struct {
	id    string
	start r3.Vec
	plan  *FlightPlan
}

// NewCarrier builds a carrier at its initial position.
func NewCarrier(id string, start r3.Vec) *Carrier {
	return &Carrier{id: id, start: start}
}

// ID returns the carrier identifier.
func (c *Carrier) ID() string { return c.id }

// Start returns the initial position.
func (c *Carrier) Start() r3.Vec { return c.start }

// SetFlightPlan commits the carrier to a constant speed and heading in the
// horizontal plane.
func (c *Carrier) SetFlightPlan(speed, heading float64) {
	c.plan = &FlightPlan{Speed: speed, Heading: heading}
}

// Velocity returns the carrier's constant velocity vector.
func (c *Carrier) Velocity() (r3.Vec, error) {
	if c.plan == nil {
		return r3.Vec{}, optimization.NewErrorf("carrier %q has no flight plan", c.id).
			WithComponent("sim").WithOperation("Velocity")
	}
	return r3.Vec{
		X: c.plan.Speed * math.Cos(c.plan.Heading),
		Y: c.plan.Speed * math.Sin(c.plan.Heading),
	}, nil
}

// Position returns the carrier position at time t.
func (c *Carrier) Position(t float64) (r3.Vec, error) {
	v, err := c.Velocity()
	if err != nil {
		return r3.Vec{}, err
	}
	return r3.Add(c.start, r3.Scale(t, v)), nil
}

// Deploy releases a munition at deployTime with the carrier's velocity as the
// initial condition. The munition detonates fuseTime seconds after release.
func (c *Carrier) Deploy(deployTime, fuseTime float64, b Ballistics) (*Munition, error) {
	pos, err := c.Position(deployTime)
	if err != nil {
		return nil, err
	}
	vel, err := c.Velocity()
	if err != nil {
		return nil, err
	}
	return NewMunition(pos, vel, deployTime, fuseTime, b)
}

// Ballistics holds the constants of munition flight.
type Ballistics struct {
	Gravity    float64 // m/s², applied downward
	Mass       float64 // kg
	DragFactor float64 // k in drag = -(k/m)|v|v
}

// Munition is a released munition. The detonation point is integrated once at
// construction and cached; it is the only externally visible flight result.
type Munition struct {
	deployTime     float64
	fuseTime       float64
	detonationTime float64
	detonationPos  r3.Vec
}

// NewMunition integrates the ballistic flight from release to detonation.
func NewMunition(pos, vel r3.Vec, deployTime, fuseTime float64, b Ballistics) (*Munition, error) {
	if b.Mass <= 0 {
		return nil, optimization.NewErrorf("munition mass must be positive, got %v", b.Mass).
			WithComponent("sim").WithOperation("NewMunition")
	}
	if fuseTime < 0 {
		return nil, optimization.NewErrorf("negative fuse time %v", fuseTime).
			WithComponent("sim").WithOperation("NewMunition")
	}

	deriv := func(_ float64, y, dy []float64) {
		vx, vy, vz := y[3], y[4], y[5]
		speed := math.Sqrt(vx*vx + vy*vy + vz*vz)
		drag := 0.0
		if speed > 1e-6 {
			drag = -(b.DragFactor / b.Mass) * speed
		}
		dy[0], dy[1], dy[2] = vx, vy, vz
		dy[3] = drag * vx
		dy[4] = drag * vy
		dy[5] = drag*vz - b.Gravity
	}

	y0 := []float64{pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z}
	y, err := integrateRK45(deriv, y0, fuseTime, defaultRKOptions())
	if err != nil {
		return nil, optimization.WrapError(err, "ballistic integration failed").
			WithComponent("sim").WithOperation("NewMunition")
	}

	return &Munition{
		deployTime:     deployTime,
		fuseTime:       fuseTime,
		detonationTime: deployTime + fuseTime,
		detonationPos:  r3.Vec{X: y[0], Y: y[1], Z: y[2]},
	}, nil
}

// DeployTime returns the release time.
func (g *Munition) DeployTime() float64 { return g.deployTime }

// FuseTime returns the fuse duration.
func (g *Munition) FuseTime() float64 { return g.fuseTime }

// DetonationTime returns the absolute detonation time.
func (g *Munition) DetonationTime() float64 { return g.detonationTime }

// DetonationPoint returns the cached terminal position of the flight.
func (g *Munition) DetonationPoint() r3.Vec { return g.detonationPos }

// Cloud spawns the obscurant cloud produced at detonation.
func (g *Munition) Cloud(radius, sinkRate, lifetime float64) *Cloud {
	return &Cloud{
		detPos:   g.detonationPos,
		detTime:  g.detonationTime,
		radius:   radius,
		sinkRate: sinkRate,
		lifetime: lifetime,
	}
}

// CloudPhase is the lifecycle state of a cloud at a queried instant.
type CloudPhase int

const (
	// CloudPending means the cloud has not detonated yet.
	CloudPending CloudPhase = iota
	// CloudActive means the cloud currently obscures.
	CloudActive
	// CloudDissipated means the cloud's lifetime has elapsed.
	CloudDissipated
)

// String returns the phase name.
func (p CloudPhase) String() string {
	switch p {
	case CloudPending:
		return "pending"
	case CloudActive:
		return "active"
	case CloudDissipated:
		return "dissipated"
	}
	return "unknown"
}

// Cloud is a spherical obscurant of fixed radius whose center sinks at a
// constant rate for a fixed lifetime after detonation, then disappears.
type Cloud struct {
	detPos   r3.Vec
	detTime  float64
	radius   float64
	sinkRate float64
	lifetime float64
}

// Phase reports the cloud's lifecycle state at time t. The active window is
// half-open: [detonation, detonation+lifetime).
func (c *Cloud) Phase(t float64) CloudPhase {
	switch {
	case t < c.detTime:
		return CloudPending
	case t < c.detTime+c.lifetime:
		return CloudActive
	default:
		return CloudDissipated
	}
}

// Center returns the cloud center at time t, and false when the cloud is not
// active.
func (c *Cloud) Center(t float64) (r3.Vec, bool) {
	if c.Phase(t) != CloudActive {
		return r3.Vec{}, false
	}
	sink := c.sinkRate * (t - c.detTime)
	return r3.Vec{X: c.detPos.X, Y: c.detPos.Y, Z: c.detPos.Z - sink}, true
}

// Radius returns the fixed obscurant radius.
func (c *Cloud) Radius() float64 { return c.radius }

// ActiveWindow returns the half-open interval during which the cloud exists.
func (c *Cloud) ActiveWindow() (start, end float64) {
	return c.detTime, c.detTime + c.lifetime
}
