package geometry

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestFullyHidden(t *testing.T) {
	observer := r3.Vec{Z: 1000}
	bottom := r3.Vec{}
	top := r3.Vec{Z: 10}
	const targetRadius = 7.0

	tests := []struct {
		name   string
		cloud  Sphere
		hidden bool
	}{
		{
			name:   "cloud on the sight line",
			cloud:  Sphere{Center: r3.Vec{Z: 500}, Radius: 50},
			hidden: true,
		},
		{
			name:   "cloud offset far to the side",
			cloud:  Sphere{Center: r3.Vec{X: 300, Z: 500}, Radius: 50},
			hidden: false,
		},
		{
			name:   "observer inside the cloud",
			cloud:  Sphere{Center: r3.Vec{Z: 995}, Radius: 50},
			hidden: true,
		},
		{
			name:   "cloud too small to shadow the rims",
			cloud:  Sphere{Center: r3.Vec{Z: 500}, Radius: 1},
			hidden: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FullyHidden(observer, tt.cloud, bottom, top, targetRadius)
			if got != tt.hidden {
				t.Errorf("FullyHidden = %v, want %v", got, tt.hidden)
			}
		})
	}
}

// The on-axis configuration is degenerate: apex, cloud center and rim centers
// are colinear, so the extremal-point construction has no unique plane. The
// result must still be well defined and stable across repeated calls.
func TestFullyHiddenColinearDeterminism(t *testing.T) {
	observer := r3.Vec{Z: 1000}
	cloud := Sphere{Center: r3.Vec{Z: 500}, Radius: 8}
	bottom := r3.Vec{}
	top := r3.Vec{Z: 10}

	first := FullyHidden(observer, cloud, bottom, top, 7)
	for i := 0; i < 100; i++ {
		if got := FullyHidden(observer, cloud, bottom, top, 7); got != first {
			t.Fatalf("call %d returned %v, first call returned %v", i, got, first)
		}
	}
}

func TestCollectivelyHidden(t *testing.T) {
	observer := r3.Vec{Z: 1000}
	left := r3.Vec{X: -7}
	right := r3.Vec{X: 7}
	keyPoints := []r3.Vec{left, right}

	// Each cloud shadows exactly one key point.
	cloudRight := Sphere{Center: r3.Vec{X: 3.5, Z: 500}, Radius: 1}
	cloudLeft := Sphere{Center: r3.Vec{X: -3.5, Z: 500}, Radius: 1}

	if CollectivelyHidden(observer, nil, keyPoints) {
		t.Error("no clouds should never hide anything")
	}
	if CollectivelyHidden(observer, []Sphere{cloudRight}, keyPoints) {
		t.Error("single cloud covers only one key point, expected not hidden")
	}
	if CollectivelyHidden(observer, []Sphere{cloudLeft}, keyPoints) {
		t.Error("single cloud covers only one key point, expected not hidden")
	}
	if !CollectivelyHidden(observer, []Sphere{cloudRight, cloudLeft}, keyPoints) {
		t.Error("two clouds jointly cover all key points, expected hidden")
	}
}

func TestCollectivelyHiddenObserverInsideCloud(t *testing.T) {
	observer := r3.Vec{Z: 1000}
	clouds := []Sphere{{Center: r3.Vec{Z: 999}, Radius: 10}}
	keyPoints := []r3.Vec{{X: 1e6}, {X: -1e6}}

	if !CollectivelyHidden(observer, clouds, keyPoints) {
		t.Error("observer inside a cloud sees nothing, expected hidden")
	}
}

func TestShadowConeHalfAngle(t *testing.T) {
	tests := []struct {
		name   string
		sphere Sphere
		dist   float64
	}{
		{"distant small sphere", Sphere{Center: r3.Vec{X: 100}, Radius: 10}, 100},
		{"near large sphere", Sphere{Center: r3.Vec{X: 20}, Radius: 10}, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, inside := shadowCone(r3.Vec{}, tt.sphere)
			if inside {
				t.Fatal("observer is outside the sphere")
			}
			// The tangent point lies exactly on the cone surface; a point
			// slightly beyond the tangent direction lies outside.
			if !c.containsPoint(tt.sphere.Center) {
				t.Error("sphere center must be inside its own shadow cone")
			}
			beyond := r3.Vec{X: tt.sphere.Center.X, Y: tt.sphere.Radius * 1.5}
			if c.containsPoint(beyond) {
				t.Error("point well outside the tangent lines must not be contained")
			}
		})
	}
}

func TestContainsCircleApexOnCenter(t *testing.T) {
	c, inside := shadowCone(r3.Vec{}, Sphere{Center: r3.Vec{X: 100}, Radius: 10})
	if inside {
		t.Fatal("observer is outside the sphere")
	}
	// A rim circle centered exactly on the apex is covered by continuity,
	// never rejected through NaN candidates.
	if !c.containsCircle(r3.Vec{}, 7, r3.Vec{Z: 1}) {
		t.Error("circle centered on the apex must be contained")
	}
}

// A cloud moved closer to the observer along the sight line subtends a larger
// angle, so hiding can only get easier.
func TestFullyHiddenMonotoneAlongSightLine(t *testing.T) {
	observer := r3.Vec{Z: 1000}
	bottom := r3.Vec{}
	top := r3.Vec{Z: 10}

	hiddenBefore := false
	for _, z := range []float64{100, 300, 500, 700, 900} {
		cloud := Sphere{Center: r3.Vec{Z: z}, Radius: 9}
		hidden := FullyHidden(observer, cloud, bottom, top, 7)
		if hiddenBefore && !hidden {
			t.Fatalf("hiding lost while moving cloud toward observer at z=%v", z)
		}
		hiddenBefore = hidden
	}
}
