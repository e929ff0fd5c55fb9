// Package geometry implements the shadow-cone containment tests that decide
// whether spherical obscurant clouds hide a cylindrical target from a point
// observer.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// colinearEps scales the cross-product test that detects an apex, circle
	// center and cone axis lying on one line.
	colinearEps = 1e-6
	// zeroVecEps guards angle tests against an apex coinciding with a point.
	zeroVecEps = 1e-9
)

// Sphere is an obscurant cloud snapshot: center plus fixed radius.
type Sphere struct {
	Center r3.Vec
	Radius float64
}

// cone is the shadow cone cast by a sphere as seen from an observer.
type cone struct {
	apex      r3.Vec
	axis      r3.Vec // unit vector from apex toward the sphere center
	halfAngle float64
}

// shadowCone builds the cone subtended by s at observer. ok is false when the
// observer sits inside the sphere, in which case everything is hidden.
func shadowCone(observer r3.Vec, s Sphere) (c cone, inside bool) {
	toCenter := r3.Sub(s.Center, observer)
	dist := r3.Norm(toCenter)
	if dist <= s.Radius {
		return cone{}, true
	}
	return cone{
		apex:      observer,
		axis:      r3.Scale(1/dist, toCenter),
		halfAngle: math.Asin(s.Radius / dist),
	}, false
}

// containsPoint reports whether p lies inside the cone. Points numerically
// coincident with the apex count as contained by continuity.
func (c cone) containsPoint(p r3.Vec) bool {
	v := r3.Sub(p, c.apex)
	norm := r3.Norm(v)
	if norm < zeroVecEps {
		return true
	}
	cosBeta := r3.Dot(v, c.axis) / norm
	cosBeta = math.Max(-1, math.Min(1, cosBeta))
	// Non-strict: grazing points count as covered.
	return math.Acos(cosBeta) <= c.halfAngle
}

// containsCircle reports whether the full circle (center, radius, normal)
// lies inside the cone. Only the two angularly extremal points need testing:
// they are the intersections of the circle with the plane spanned by the
// apex, the circle center and the cone axis.
func (c cone) containsCircle(center r3.Vec, radius float64, normal r3.Vec) bool {
	toCenter := r3.Sub(center, c.apex)
	norm := r3.Norm(toCenter)
	if norm < zeroVecEps {
		// Apex on the circle center: treated as covered by continuity.
		return true
	}

	var candidates [2]r3.Vec
	n := 0

	if r3.Norm(r3.Cross(toCenter, c.axis)) < colinearEps*norm {
		// Degenerate: apex, center and axis are colinear, so every circle
		// point is equivalent. Pick any direction perpendicular to the
		// circle normal.
		seed := r3.Vec{X: 1}
		if math.Abs(normal.X) >= 0.9 {
			seed = r3.Vec{Y: 1}
		}
		ortho := r3.Cross(normal, seed)
		ortho = r3.Scale(1/r3.Norm(ortho), ortho)
		candidates[0] = r3.Add(center, r3.Scale(radius, ortho))
		n = 1
	} else {
		planeNormal := r3.Cross(toCenter, c.axis)
		dir := r3.Cross(planeNormal, normal)
		dir = r3.Scale(1/r3.Norm(dir), dir)
		candidates[0] = r3.Add(center, r3.Scale(radius, dir))
		candidates[1] = r3.Sub(center, r3.Scale(radius, dir))
		n = 2
	}

	for i := 0; i < n; i++ {
		if !c.containsPoint(candidates[i]) {
			return false
		}
	}
	return true
}

// FullyHidden reports whether a single cloud hides the whole cylinder bounded
// by the two rim circles from the observer. The convex hull of the cylinder
// is bounded by its rims, so containment of both rim circles implies
// containment of the body.
func FullyHidden(observer r3.Vec, cloud Sphere, bottomCenter, topCenter r3.Vec, targetRadius float64) bool {
	c, inside := shadowCone(observer, cloud)
	if inside {
		return true
	}
	down := r3.Vec{Z: -1}
	up := r3.Vec{Z: 1}
	return c.containsCircle(bottomCenter, targetRadius, down) &&
		c.containsCircle(topCenter, targetRadius, up)
}

// CollectivelyHidden reports whether the union of the clouds' shadow cones
// covers every key point. Each point may be covered by a different cloud, so
// two clouds that individually fail FullyHidden can still jointly hide the
// sampled surface.
func CollectivelyHidden(observer r3.Vec, clouds []Sphere, keyPoints []r3.Vec) bool {
	if len(clouds) == 0 {
		return false
	}

	cones := make([]cone, 0, len(clouds))
	for _, s := range clouds {
		c, inside := shadowCone(observer, s)
		if inside {
			return true
		}
		cones = append(cones, c)
	}

	for _, p := range keyPoints {
		covered := false
		for _, c := range cones {
			if c.containsPoint(p) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}
