// Package strategy maps flat decision vectors to structured deployment
// strategies and back. The schema is the single source of truth for the
// vector layout, so encode and decode can never drift apart.
package strategy

import (
	"fmt"
	"math"
	"sort"
)

// CarrierSlot is one carrier's entry in the vector layout.
type CarrierSlot struct {
	ID        string
	Munitions int
}

// Schema describes the vector layout implied by the carrier/munition
// assignment: per carrier, speed and heading, then per munition two scalars
// (absolute deploy time for the first, deploy increment for the rest, plus
// fuse time) and optionally a target selector in [0, 1).
type Schema struct {
	slots        []CarrierSlot
	targetCount  int
	selectTarget bool
}

// NewSchema builds a schema for the given carrier → munition-count
// assignment. Carriers are laid out in sorted ID order. When selectTarget is
// true each munition carries an extra selector scalar choosing among
// targetCount threats.
func NewSchema(assignments map[string]int, targetCount int, selectTarget bool) (Schema, error) {
	if len(assignments) == 0 {
		return Schema{}, &DecodeError{Reason: "no carriers assigned"}
	}
	if selectTarget && targetCount < 1 {
		return Schema{}, &DecodeError{Reason: fmt.Sprintf("target selection with %d targets", targetCount)}
	}

	ids := make([]string, 0, len(assignments))
	for id := range assignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	slots := make([]CarrierSlot, 0, len(ids))
	for _, id := range ids {
		n := assignments[id]
		if n < 1 {
			return Schema{}, &DecodeError{Reason: fmt.Sprintf("carrier %q assigned %d munitions", id, n)}
		}
		slots = append(slots, CarrierSlot{ID: id, Munitions: n})
	}

	return Schema{slots: slots, targetCount: targetCount, selectTarget: selectTarget}, nil
}

// Slots returns the ordered carrier layout.
func (s Schema) Slots() []CarrierSlot { return s.slots }

// SelectsTarget reports whether munitions carry a target-selector scalar.
func (s Schema) SelectsTarget() bool { return s.selectTarget }

// TargetCount returns the number of selectable targets.
func (s Schema) TargetCount() int { return s.targetCount }

// Dim returns the decision-vector length the schema implies.
func (s Schema) Dim() int {
	perMunition := 2
	if s.selectTarget {
		perMunition = 3
	}
	dim := 0
	for _, slot := range s.slots {
		dim += 2 + slot.Munitions*perMunition
	}
	return dim
}

// MunitionPlan is one munition's decoded timing. TargetIndex is -1 when the
// schema carries no selector.
type MunitionPlan struct {
	DeployTime  float64
	FuseTime    float64
	TargetIndex int
}

// CarrierPlan is one carrier's decoded strategy.
type CarrierPlan struct {
	Speed     float64
	Heading   float64
	Munitions []MunitionPlan
}

// Strategy maps carrier IDs to their plans.
type Strategy map[string]CarrierPlan

// DecodeError reports a vector that cannot be decoded under the schema.
// Ill-formed vectors decode to a rejection, never a partial strategy.
type DecodeError struct {
	Reason string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return "strategy decode: " + e.Reason
}

// Decode parses a flat decision vector into a strategy. Subsequent munitions
// of a carrier store deploy-time increments, which keeps decoded deploy times
// naturally ordered after mutation.
func (s Schema) Decode(vec []float64) (Strategy, error) {
	if got, want := len(vec), s.Dim(); got != want {
		return nil, &DecodeError{Reason: fmt.Sprintf("vector length %d, schema requires %d", got, want)}
	}
	for i, v := range vec {
		if math.IsNaN(v) {
			return nil, &DecodeError{Reason: fmt.Sprintf("NaN at dimension %d", i)}
		}
	}

	out := make(Strategy, len(s.slots))
	i := 0
	for _, slot := range s.slots {
		plan := CarrierPlan{
			Speed:     vec[i],
			Heading:   vec[i+1],
			Munitions: make([]MunitionPlan, 0, slot.Munitions),
		}
		i += 2

		lastDeploy := 0.0
		for m := 0; m < slot.Munitions; m++ {
			deploy := vec[i]
			if m > 0 {
				deploy = lastDeploy + vec[i]
			}
			mp := MunitionPlan{
				DeployTime:  deploy,
				FuseTime:    vec[i+1],
				TargetIndex: -1,
			}
			i += 2
			if s.selectTarget {
				idx := int(vec[i] * float64(s.targetCount))
				if idx < 0 {
					idx = 0
				}
				if idx > s.targetCount-1 {
					idx = s.targetCount - 1
				}
				mp.TargetIndex = idx
				i++
			}
			plan.Munitions = append(plan.Munitions, mp)
			lastDeploy = deploy
		}
		out[slot.ID] = plan
	}
	return out, nil
}

// Encode flattens a strategy back into a decision vector. It is the exact
// inverse of Decode for well-formed strategies, except that target selectors
// are re-emitted as interval midpoints of their index bucket.
func (s Schema) Encode(st Strategy) ([]float64, error) {
	vec := make([]float64, 0, s.Dim())
	for _, slot := range s.slots {
		plan, ok := st[slot.ID]
		if !ok {
			return nil, &DecodeError{Reason: fmt.Sprintf("strategy missing carrier %q", slot.ID)}
		}
		if len(plan.Munitions) != slot.Munitions {
			return nil, &DecodeError{Reason: fmt.Sprintf(
				"carrier %q has %d munitions, schema requires %d", slot.ID, len(plan.Munitions), slot.Munitions)}
		}
		vec = append(vec, plan.Speed, plan.Heading)

		lastDeploy := 0.0
		for m, mp := range plan.Munitions {
			if m == 0 {
				vec = append(vec, mp.DeployTime)
			} else {
				vec = append(vec, mp.DeployTime-lastDeploy)
			}
			vec = append(vec, mp.FuseTime)
			if s.selectTarget {
				vec = append(vec, (float64(mp.TargetIndex)+0.5)/float64(s.targetCount))
			}
			lastDeploy = mp.DeployTime
		}
	}
	return vec, nil
}
