// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA is run after GJK detects an overlap to find:
//   - Penetration depth (how far the shapes overlap)
//   - Contact normal (direction to separate the shapes, from A toward B)
//   - The polytope face the answer comes from, whose vertices remember the support
//     points of each shape
//
// The algorithm expands a polytope, starting from GJK's final simplex, inside the
// Minkowski difference until the face closest to the origin lies on its boundary.
// That face gives the Minimum Translation Vector.
//
// GenerateManifold then turns the contact features of both shapes into a single
// ContactSurface.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/akmonengine/rigid/actor"
	"github.com/akmonengine/rigid/gjk"
)

const (
	// DefaultMaxIterations limits polytope expansion.
	// Polyhedra converge in a handful of iterations, curved shapes need more.
	DefaultMaxIterations = 64

	// ConvergenceTolerance stops the expansion when a new support point improves the
	// closest face distance by less than this.
	ConvergenceTolerance = 1e-4

	// NormalSnapThreshold is used to clamp nearly-zero normal components to exactly zero.
	NormalSnapThreshold = 1e-8

	// completionTolerance is the distance under which a new support point is considered
	// to add no dimension to a degenerate simplex.
	completionTolerance = 1e-6

	minTetrahedronVolume = 1e-12
	minFaceArea          = 1e-10
	visibilityTolerance  = 1e-10

	polytopeInitialCapacity = 16
)

// Penetration is the result of EPA.
type Penetration struct {
	Normal mgl64.Vec3 // unit normal from A toward B
	Depth  float64    // depth of the inflated shapes along Normal
	// Witness holds the vertices of the closest face. Its support points locate the
	// contact feature on each shape.
	Witness gjk.Simplex
}

// EPA computes the penetration of (A + margin) into B from a GJK simplex enclosing the
// origin. The margin must be the one GJK ran with.
//
// An incomplete simplex, left by GJK when the origin lies on a lower dimensional
// feature, is first grown into a tetrahedron. When even that fails the shapes are
// reported as touching along the line between their centers.
//
// Running out of iterations returns the best estimate found so far together with an
// error; the estimate is usable. Polyhedra converge exactly. Curved shapes are
// approximated by the polytope, so their depth is only as close as ConvergenceTolerance
// and the iteration budget allow: deeply overlapping spheres, such as two coincident
// ones, may report noticeably less than the true depth.
func EPA(a, b actor.Shape, simplex *gjk.Simplex, margin float64, maxIterations int) (Penetration, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	working := *simplex
	if !completeSimplex(a, b, &working, margin) {
		return fallbackPenetration(a, b, simplex), nil
	}

	polytope := polytopePool.Get().(*Polytope)
	defer polytopePool.Put(polytope)

	if err := polytope.Init(&working); err != nil {
		return fallbackPenetration(a, b, simplex), nil
	}

	for i := 0; i < maxIterations; i++ {
		closest := polytope.ClosestFace()
		if closest < 0 {
			return fallbackPenetration(a, b, simplex), errors.New("polytope collapsed")
		}
		face := polytope.faces[closest]

		support := gjk.MinkowskiSupport(a, b, face.Normal, margin)
		if support.Point.Dot(face.Normal)-face.Distance < ConvergenceTolerance {
			return polytope.penetration(closest), nil
		}

		if !polytope.Expand(support) {
			return polytope.penetration(closest), nil
		}
	}

	closest := polytope.ClosestFace()
	if closest < 0 {
		return fallbackPenetration(a, b, simplex), errors.New("polytope collapsed")
	}
	return polytope.penetration(closest), errors.Errorf("EPA failed to converge after %d iterations", maxIterations)
}

var searchAxes = [6]mgl64.Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// completeSimplex grows a GJK simplex into a tetrahedron with non-zero volume.
// The origin stays on or inside the grown simplex because GJK only stops early when
// the origin lies on the simplex already.
func completeSimplex(a, b actor.Shape, simplex *gjk.Simplex, margin float64) bool {
	add := func(v gjk.Vertex) {
		simplex.Vertices[simplex.Count] = v
		simplex.Count++
	}

	if simplex.Count == 0 {
		add(gjk.MinkowskiSupport(a, b, searchAxes[0], margin))
	}

	if simplex.Count == 1 {
		for _, axis := range searchAxes {
			v := gjk.MinkowskiSupport(a, b, axis, margin)
			if v.Point.Sub(simplex.Point(0)).Len() > completionTolerance {
				add(v)
				break
			}
		}
		if simplex.Count == 1 {
			return false
		}
	}

	if simplex.Count == 2 {
		p0 := simplex.Point(0)
		axis := simplex.Point(1).Sub(p0).Normalize()
		direction := perpendicular(axis)
		rotation := mgl64.QuatRotate(math.Pi/3, axis)

		for i := 0; i < 6; i++ {
			v := gjk.MinkowskiSupport(a, b, direction, margin)
			offset := v.Point.Sub(p0)
			if offset.Sub(axis.Mul(offset.Dot(axis))).Len() > completionTolerance {
				add(v)
				break
			}
			direction = rotation.Rotate(direction)
		}
		if simplex.Count == 2 {
			return false
		}
	}

	if simplex.Count == 3 {
		p0 := simplex.Point(0)
		normal := simplex.Point(1).Sub(p0).Cross(simplex.Point(2).Sub(p0))
		if normal.Len() < minFaceArea {
			return false
		}
		normal = normal.Normalize()

		for _, direction := range [2]mgl64.Vec3{normal, normal.Mul(-1)} {
			v := gjk.MinkowskiSupport(a, b, direction, margin)
			if math.Abs(v.Point.Sub(p0).Dot(normal)) > completionTolerance {
				add(v)
				break
			}
		}
	}

	return simplex.Count == 4
}

// perpendicular returns a unit vector orthogonal to the unit vector v.
func perpendicular(v mgl64.Vec3) mgl64.Vec3 {
	axis := mgl64.Vec3{1, 0, 0}
	if math.Abs(v.X()) > 0.9 {
		axis = mgl64.Vec3{0, 1, 0}
	}
	return v.Cross(axis).Normalize()
}

// fallbackPenetration reports the shapes as just touching along the line between their
// centers, or along the up axis when the centers are unknown or coincide.
func fallbackPenetration(a, b actor.Shape, simplex *gjk.Simplex) Penetration {
	normal := mgl64.Vec3{0, 1, 0}

	pa, okA := a.(actor.Transformable)
	pb, okB := b.(actor.Transformable)
	if okA && okB {
		if d := pb.Position().Sub(pa.Position()); d.Len() > NormalSnapThreshold {
			normal = d.Normalize()
		}
	}

	return Penetration{Normal: normal, Depth: 0, Witness: *simplex}
}
