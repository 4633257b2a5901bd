package epa

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Face is a triangle of the polytope. Indices refer to the polytope vertices and are
// wound counter-clockwise seen from outside, so Normal points away from the interior.
type Face struct {
	Indices  [3]int
	Normal   mgl64.Vec3
	Distance float64 // distance from the origin to the face plane
}

// edge is a directed polytope edge. A face contributes its three edges in winding order.
type edge struct {
	a, b int
}

func (f *Face) edges() [3]edge {
	return [3]edge{
		{f.Indices[0], f.Indices[1]},
		{f.Indices[1], f.Indices[2]},
		{f.Indices[2], f.Indices[0]},
	}
}

// degenerate reports a sliver face that can never be the closest one.
func (f *Face) degenerate() bool {
	return math.IsInf(f.Distance, 1)
}

// snapNormalToAxis clamps nearly-zero components of a normal vector to exactly zero
// and renormalizes it, so axis-aligned contacts produce axis-aligned normals.
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	clamped := normal
	for i := range clamped {
		if math.Abs(clamped[i]) < NormalSnapThreshold {
			clamped[i] = 0
		}
	}

	length := clamped.Len()
	if length < 1e-8 {
		return mgl64.Vec3{0, 1, 0}
	}

	return clamped.Mul(1.0 / length)
}
