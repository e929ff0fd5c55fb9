// Package scenario loads and validates the immutable engagement description:
// physical constants, threats, carriers, target geometry, and sampling
// resolution. The value is injected into constructors; the core never reads
// ambient state.
package scenario

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/veilcraft/obscura/internal/sim"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Vec3 is a YAML-friendly [x, y, z] triple.
type Vec3 [3]float64

// R3 converts to a gonum 3-vector.
func (v Vec3) R3() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// Physics holds the physical constants of the engagement.
type Physics struct {
	Gravity          float64 `yaml:"gravity"`
	CloudRadius      float64 `yaml:"cloud_radius"`
	CloudSinkRate    float64 `yaml:"cloud_sink_rate"`
	CloudLifetime    float64 `yaml:"cloud_lifetime"`
	CarrierSpeedMin  float64 `yaml:"carrier_speed_min"`
	CarrierSpeedMax  float64 `yaml:"carrier_speed_max"`
	MunitionInterval float64 `yaml:"munition_interval"`
	MunitionMass     float64 `yaml:"munition_mass"`
	MunitionDrag     float64 `yaml:"munition_drag"`
}

// Ballistics extracts the munition flight constants.
func (p Physics) Ballistics() sim.Ballistics {
	return sim.Ballistics{Gravity: p.Gravity, Mass: p.MunitionMass, DragFactor: p.MunitionDrag}
}

// TargetSpec is the protected cylinder.
type TargetSpec struct {
	BaseCenter Vec3    `yaml:"base_center"`
	Radius     float64 `yaml:"radius"`
	Height     float64 `yaml:"height"`
}

// ThreatSpec is one inbound threat.
type ThreatSpec struct {
	ID       string  `yaml:"id"`
	Position Vec3    `yaml:"position"`
	Speed    float64 `yaml:"speed"`
	AimPoint Vec3    `yaml:"aim_point"`
}

// CarrierSpec is one munition carrier.
type CarrierSpec struct {
	ID       string `yaml:"id"`
	Position Vec3   `yaml:"position"`
}

// Sampling holds discretization knobs: the coverage time step and the target
// key-point density.
type Sampling struct {
	TimeStep      float64 `yaml:"time_step"`
	CircleSamples int     `yaml:"circle_samples"`
	HeightSamples int     `yaml:"height_samples"`
}

// Scenario is the full immutable engagement description.
type Scenario struct {
	Physics  Physics       `yaml:"physics"`
	Target   TargetSpec    `yaml:"target"`
	Threats  []ThreatSpec  `yaml:"threats"`
	Carriers []CarrierSpec `yaml:"carriers"`
	Sampling Sampling      `yaml:"sampling"`
}

// Default returns the built-in scenario.
func Default() (*Scenario, error) {
	return Parse(defaultsYAML)
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate rejects malformed scenarios. Configuration errors are fatal at
// construction and never silently defaulted.
func (sc *Scenario) Validate() error {
	p := sc.Physics
	switch {
	case p.Gravity <= 0:
		return fmt.Errorf("scenario: gravity must be positive, got %v", p.Gravity)
	case p.CloudRadius <= 0:
		return fmt.Errorf("scenario: cloud radius must be positive, got %v", p.CloudRadius)
	case p.CloudLifetime <= 0:
		return fmt.Errorf("scenario: cloud lifetime must be positive, got %v", p.CloudLifetime)
	case p.CloudSinkRate < 0:
		return fmt.Errorf("scenario: cloud sink rate must be non-negative, got %v", p.CloudSinkRate)
	case p.MunitionMass <= 0:
		return fmt.Errorf("scenario: munition mass must be positive, got %v", p.MunitionMass)
	case p.CarrierSpeedMin <= 0 || p.CarrierSpeedMax < p.CarrierSpeedMin:
		return fmt.Errorf("scenario: carrier speed range [%v, %v] is invalid", p.CarrierSpeedMin, p.CarrierSpeedMax)
	case p.MunitionInterval <= 0:
		return fmt.Errorf("scenario: munition interval must be positive, got %v", p.MunitionInterval)
	}

	if sc.Target.Radius <= 0 || sc.Target.Height <= 0 {
		return fmt.Errorf("scenario: target cylinder radius=%v height=%v is degenerate",
			sc.Target.Radius, sc.Target.Height)
	}
	if sc.Sampling.TimeStep <= 0 {
		return fmt.Errorf("scenario: sampling time step must be positive, got %v", sc.Sampling.TimeStep)
	}
	if sc.Sampling.CircleSamples < 3 || sc.Sampling.HeightSamples < 1 {
		return fmt.Errorf("scenario: sampling density circ=%d height=%d is too sparse",
			sc.Sampling.CircleSamples, sc.Sampling.HeightSamples)
	}

	if len(sc.Threats) == 0 {
		return fmt.Errorf("scenario: no threats defined")
	}
	if len(sc.Carriers) == 0 {
		return fmt.Errorf("scenario: no carriers defined")
	}

	seen := make(map[string]bool)
	for _, t := range sc.Threats {
		if t.ID == "" {
			return fmt.Errorf("scenario: threat with empty ID")
		}
		if seen[t.ID] {
			return fmt.Errorf("scenario: duplicate threat ID %q", t.ID)
		}
		seen[t.ID] = true
		if t.Speed <= 0 {
			return fmt.Errorf("scenario: threat %q speed %v is invalid", t.ID, t.Speed)
		}
	}
	seen = make(map[string]bool)
	for _, c := range sc.Carriers {
		if c.ID == "" {
			return fmt.Errorf("scenario: carrier with empty ID")
		}
		if seen[c.ID] {
			return fmt.Errorf("scenario: duplicate carrier ID %q", c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

// ThreatIDs returns all threat identifiers in sorted order.
func (sc *Scenario) ThreatIDs() []string {
	ids := make([]string, 0, len(sc.Threats))
	for _, t := range sc.Threats {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	return ids
}

// CarrierIDs returns all carrier identifiers in sorted order.
func (sc *Scenario) CarrierIDs() []string {
	ids := make([]string, 0, len(sc.Carriers))
	for _, c := range sc.Carriers {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return ids
}

// Threat builds the kinematic model for the identified threat.
func (sc *Scenario) Threat(id string) (*sim.Threat, error) {
	for _, t := range sc.Threats {
		if t.ID == id {
			return sim.NewThreat(t.ID, t.Position.R3(), t.AimPoint.R3(), t.Speed)
		}
	}
	return nil, fmt.Errorf("scenario: unknown threat ID %q", id)
}

// Carrier builds the kinematic model for the identified carrier.
func (sc *Scenario) Carrier(id string) (*sim.Carrier, error) {
	for _, c := range sc.Carriers {
		if c.ID == id {
			return sim.NewCarrier(c.ID, c.Position.R3()), nil
		}
	}
	return nil, fmt.Errorf("scenario: unknown carrier ID %q", id)
}

// TargetCylinder builds the target model with the configured key-point
// density.
func (sc *Scenario) TargetCylinder() (*sim.TargetCylinder, error) {
	return sim.NewTargetCylinder(
		sc.Target.BaseCenter.R3(),
		sc.Target.Radius,
		sc.Target.Height,
		sc.Sampling.CircleSamples,
		sc.Sampling.HeightSamples,
	)
}

// WriteYAML saves the scenario, for reproducing a run alongside its results.
func (sc *Scenario) WriteYAML(path string) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
