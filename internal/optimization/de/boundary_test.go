package de

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/veilcraft/obscura/internal/optimization"
)

func TestBoundaryRuleApply(t *testing.T) {
	bounds := optimization.Bounds{{0, 1}, {0, 1}, {0, 1}}
	rng := rand.New(rand.NewSource(3))

	tests := []struct {
		name string
		rule BoundaryRule
		in   []float64
		want []float64
	}{
		{
			name: "clip truncates to the violated bound",
			rule: Clip,
			in:   []float64{-0.3, 1.2, 0.5},
			want: []float64{0, 1, 0.5},
		},
		{
			name: "reflect folds back across the bound",
			rule: Reflect,
			in:   []float64{-0.3, 1.2, 0.5},
			want: []float64{0.3, 0.8, 0.5},
		},
		{
			name: "reflect clips against the opposite bound",
			rule: Reflect,
			in:   []float64{-5, 7, 0.5},
			want: []float64{1, 0, 0.5},
		},
		{
			name: "midpoint recenters violations",
			rule: Midpoint,
			in:   []float64{-0.3, 1.2, 0.5},
			want: []float64{0.5, 0.5, 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := append([]float64(nil), tt.in...)
			tt.rule.apply(x, bounds, rng)
			for i := range x {
				if x[i] != tt.want[i] {
					t.Errorf("dim %d: got %v, want %v", i, x[i], tt.want[i])
				}
			}
		})
	}
}

func TestBoundaryRuleReinitializeStaysInBounds(t *testing.T) {
	bounds := optimization.Bounds{{-2, 3}}
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 1000; i++ {
		x := []float64{100}
		Reinitialize.apply(x, bounds, rng)
		if x[0] < -2 || x[0] > 3 {
			t.Fatalf("reinitialized value %v outside bounds", x[0])
		}
	}

	// In-range values pass through untouched.
	x := []float64{1.5}
	Reinitialize.apply(x, bounds, rng)
	if x[0] != 1.5 {
		t.Errorf("in-range value changed to %v", x[0])
	}
}

func TestParseBoundaryRule(t *testing.T) {
	for _, s := range []string{"clip", "reflect", "reinitialize", "midpoint"} {
		rule, err := ParseBoundaryRule(s)
		if err != nil {
			t.Errorf("ParseBoundaryRule(%q): %v", s, err)
		}
		if rule.String() != s {
			t.Errorf("round trip %q -> %q", s, rule.String())
		}
	}

	if _, err := ParseBoundaryRule("bounce"); err == nil {
		t.Error("expected error for unknown rule")
	}
}
