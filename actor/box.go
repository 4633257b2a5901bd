package actor

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
}

func (b *Box) Type() ShapeType {
	return ShapeTypeBox
}

func (b *Box) Volume() float64 {
	// full dimensions are 2*halfExtents
	return 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()
}

func (b *Box) Inertia() mgl64.Mat3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	// I = (m/12) * (d1² + d2²) with d = 2h
	factor := b.Volume() / 3.0
	return mgl64.Diag3(mgl64.Vec3{
		factor * (hy*hy + hz*hz),
		factor * (hx*hx + hz*hz),
		factor * (hx*hx + hy*hy),
	})
}

func (b *Box) IsInside(point mgl64.Vec3) bool {
	return math.Abs(point.X()) <= b.HalfExtents.X() &&
		math.Abs(point.Y()) <= b.HalfExtents.Y() &&
		math.Abs(point.Z()) <= b.HalfExtents.Z()
}

func (b *Box) Intersect(ray Ray) bool {
	_, ok := b.IntersectPoint(ray)
	return ok
}

// IntersectPoint uses the slab method, keeping track of the axes the ray crosses
// when it enters and leaves the box to report the face normal.
func (b *Box) IntersectPoint(ray Ray) (IntersectionPoint, bool) {
	if isDegenerate(ray.Direction) {
		return IntersectionPoint{}, false
	}

	tEnter, tExit := math.Inf(-1), math.Inf(1)
	var enterNormal, exitNormal mgl64.Vec3

	for axis := 0; axis < 3; axis++ {
		o, d, h := ray.Origin[axis], ray.Direction[axis], b.HalfExtents[axis]
		if math.Abs(d) < 1e-12 {
			if o < -h || o > h {
				return IntersectionPoint{}, false
			}
			continue
		}

		t0, t1 := (-h-o)/d, (h-o)/d
		sign := -1.0
		if t0 > t1 {
			t0, t1 = t1, t0
			sign = 1.0
		}

		if t0 > tEnter {
			tEnter = t0
			enterNormal = mgl64.Vec3{}
			enterNormal[axis] = sign
		}
		if t1 < tExit {
			tExit = t1
			exitNormal = mgl64.Vec3{}
			exitNormal[axis] = -sign
		}
		if tEnter > tExit {
			return IntersectionPoint{}, false
		}
	}

	t, ok := firstHit(tEnter, tExit)
	if !ok {
		return IntersectionPoint{}, false
	}
	normal := enterNormal
	if t != tEnter {
		normal = exitNormal
	}

	return IntersectionPoint{Point: ray.At(t), Normal: normal, T: t}, true
}

func (b *Box) RandomPoint(rng *rand.Rand) mgl64.Vec3 {
	return mgl64.Vec3{
		(2*rng.Float64() - 1) * b.HalfExtents.X(),
		(2*rng.Float64() - 1) * b.HalfExtents.Y(),
		(2*rng.Float64() - 1) * b.HalfExtents.Z(),
	}
}

// Support returns the corner furthest along direction. The corner index encodes the
// sign of each coordinate in its bits (x: 1, y: 2, z: 4).
func (b *Box) Support(direction mgl64.Vec3) SupportPoint {
	index := 0
	if direction.X() >= 0 {
		index |= 1
	}
	if direction.Y() >= 0 {
		index |= 2
	}
	if direction.Z() >= 0 {
		index |= 4
	}

	return SupportPoint{Point: b.corner(index), Feature: index}
}

func (b *Box) corner(index int) mgl64.Vec3 {
	c := b.HalfExtents.Mul(-1)
	for axis := 0; axis < 3; axis++ {
		if index&(1<<axis) != 0 {
			c[axis] = b.HalfExtents[axis]
		}
	}

	return c
}

// Collision returns the vertex, edge or face of the box facing the plane.
func (b *Box) Collision(simplex *ContactSimplex, separationPlane Plane, epsilon float64) *ContactSurface {
	if isDegenerate(separationPlane.Normal) {
		return degenerateSurface(simplex)
	}
	normal := separationPlane.Normal

	maxProjection := math.Inf(-1)
	for i := 0; i < 8; i++ {
		maxProjection = math.Max(maxProjection, normal.Dot(b.corner(i)))
	}

	var feature []mgl64.Vec3
	for i := 0; i < 8; i++ {
		c := b.corner(i)
		if normal.Dot(c) >= maxProjection-epsilon {
			feature = append(feature, c)
		}
	}

	// Faces are handed out as ordered polygons so they can be clipped
	if len(feature) > 2 {
		feature = b.face(normal)
	}

	return featureSurface(feature, separationPlane, epsilon)
}

// face returns the vertices of the face whose normal is most aligned with direction,
// in counter-clockwise order seen from outside.
func (b *Box) face(direction mgl64.Vec3) []mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	faces := [6]struct {
		normal   mgl64.Vec3
		vertices [4]mgl64.Vec3
	}{
		{mgl64.Vec3{1, 0, 0}, [4]mgl64.Vec3{{hx, -hy, -hz}, {hx, hy, -hz}, {hx, hy, hz}, {hx, -hy, hz}}},
		{mgl64.Vec3{-1, 0, 0}, [4]mgl64.Vec3{{-hx, -hy, hz}, {-hx, hy, hz}, {-hx, hy, -hz}, {-hx, -hy, -hz}}},
		{mgl64.Vec3{0, 1, 0}, [4]mgl64.Vec3{{-hx, hy, -hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}}},
		{mgl64.Vec3{0, -1, 0}, [4]mgl64.Vec3{{-hx, -hy, hz}, {-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, -hy, hz}}},
		{mgl64.Vec3{0, 0, 1}, [4]mgl64.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}}},
		{mgl64.Vec3{0, 0, -1}, [4]mgl64.Vec3{{hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}}},
	}

	best := 0
	bestDot := math.Inf(-1)
	for i, f := range faces {
		if dot := direction.Dot(f.normal); dot > bestDot {
			bestDot = dot
			best = i
		}
	}

	return faces[best].vertices[:]
}
