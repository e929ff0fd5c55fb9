package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/veilcraft/obscura/internal/optimization"
)

// sideGeneratrices is the number of vertical sample lines on the cylinder
// wall. The rim circles bound the convex hull, so a sparse wall sampling is
// enough for the collective coverage test.
const sideGeneratrices = 4

// TargetCylinder is the protected asset: an upright cylinder plus a cached,
// deterministic key-point sampling of its surface. The key-point set is
// generated once and never depends on clouds or time, so repeated objective
// evaluations stay comparable.
type TargetCylinder struct {
	bottomCenter r3.Vec
	topCenter    r3.Vec
	radius       float64
	height       float64
	keyPoints    []r3.Vec
}

// NewTargetCylinder builds the cylinder and its key-point set.
// circSamples points are placed on each rim circle and heightSamples-1
// interior points on each of the wall generatrices.
func NewTargetCylinder(baseCenter r3.Vec, radius, height float64, circSamples, heightSamples int) (*TargetCylinder, error) {
	if radius <= 0 || height <= 0 {
		return nil, optimization.NewErrorf("degenerate target cylinder: radius=%v height=%v", radius, height).
			WithComponent("sim").WithOperation("NewTargetCylinder")
	}
	if circSamples < 3 || heightSamples < 1 {
		return nil, optimization.NewErrorf("too few samples: circ=%d height=%d", circSamples, heightSamples).
			WithComponent("sim").WithOperation("NewTargetCylinder")
	}

	c := &TargetCylinder{
		bottomCenter: baseCenter,
		topCenter:    r3.Add(baseCenter, r3.Vec{Z: height}),
		radius:       radius,
		height:       height,
	}
	c.keyPoints = c.generateKeyPoints(circSamples, heightSamples)
	return c, nil
}

func (c *TargetCylinder) generateKeyPoints(circSamples, heightSamples int) []r3.Vec {
	pts := make([]r3.Vec, 0, 2+2*circSamples+sideGeneratrices*(heightSamples-1))

	pts = append(pts, c.bottomCenter, c.topCenter)

	for i := 0; i < circSamples; i++ {
		angle := 2 * math.Pi * float64(i) / float64(circSamples)
		offset := r3.Vec{X: c.radius * math.Cos(angle), Y: c.radius * math.Sin(angle)}
		pts = append(pts, r3.Add(c.bottomCenter, offset), r3.Add(c.topCenter, offset))
	}

	// Interior wall points, rim heights excluded: the rims already carry them.
	for i := 0; i < sideGeneratrices; i++ {
		angle := 2 * math.Pi * float64(i) / float64(sideGeneratrices)
		offset := r3.Vec{X: c.radius * math.Cos(angle), Y: c.radius * math.Sin(angle)}
		for j := 1; j < heightSamples; j++ {
			z := c.height * float64(j) / float64(heightSamples)
			pts = append(pts, r3.Add(c.bottomCenter, r3.Add(offset, r3.Vec{Z: z})))
		}
	}

	return pts
}

// KeyPoints returns the cached surface sampling. Callers must not mutate the
// returned slice.
func (c *TargetCylinder) KeyPoints() []r3.Vec { return c.keyPoints }

// BottomCenter returns the base circle center.
func (c *TargetCylinder) BottomCenter() r3.Vec { return c.bottomCenter }

// TopCenter returns the top circle center.
func (c *TargetCylinder) TopCenter() r3.Vec { return c.topCenter }

// Radius returns the cylinder radius.
func (c *TargetCylinder) Radius() float64 { return c.radius }

// Height returns the cylinder height.
func (c *TargetCylinder) Height() float64 { return c.height }
