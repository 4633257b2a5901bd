package actor

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Capsule is a swept sphere around a segment along the local Y axis.
//
//	   _____________
//	  /             \
//	 |  o---------o  |
//	  \_____________/
//
// The segment runs from (0, -HalfHeight, 0) to (0, +HalfHeight, 0) and every point
// within Radius of it belongs to the capsule.
type Capsule struct {
	Radius     float64
	HalfHeight float64
}

func (c *Capsule) Type() ShapeType {
	return ShapeTypeCapsule
}

func (c *Capsule) segment() (mgl64.Vec3, mgl64.Vec3) {
	return mgl64.Vec3{0, -c.HalfHeight, 0}, mgl64.Vec3{0, c.HalfHeight, 0}
}

func (c *Capsule) cylinderVolume() float64 {
	return math.Pi * c.Radius * c.Radius * 2 * c.HalfHeight
}

func (c *Capsule) sphereVolume() float64 {
	return (4.0 / 3.0) * math.Pi * c.Radius * c.Radius * c.Radius
}

func (c *Capsule) Volume() float64 {
	return c.cylinderVolume() + c.sphereVolume()
}

// Inertia sums the cylinder and both hemispherical caps, moved onto the centroid
// with the parallel axis theorem.
func (c *Capsule) Inertia() mgl64.Mat3 {
	r := c.Radius
	h := 2 * c.HalfHeight
	mc, ms := c.cylinderVolume(), c.sphereVolume()

	axial := mc*r*r/2 + ms*2*r*r/5
	transverse := mc*(h*h/12+r*r/4) + ms*(2*r*r/5+h*h/4+3*h*r/8)

	return mgl64.Diag3(mgl64.Vec3{transverse, axial, transverse})
}

// closestOnSegment clamps the projection of point onto the capsule axis.
func (c *Capsule) closestOnSegment(point mgl64.Vec3) mgl64.Vec3 {
	y := math.Max(-c.HalfHeight, math.Min(c.HalfHeight, point.Y()))
	return mgl64.Vec3{0, y, 0}
}

func (c *Capsule) IsInside(point mgl64.Vec3) bool {
	return point.Sub(c.closestOnSegment(point)).LenSqr() <= c.Radius*c.Radius
}

func (c *Capsule) Intersect(ray Ray) bool {
	_, ok := c.IntersectPoint(ray)
	return ok
}

// IntersectPoint merges the ray intervals of the two cap spheres and of the
// cylinder; the capsule being convex, their union is a single interval.
func (c *Capsule) IntersectPoint(ray Ray) (IntersectionPoint, bool) {
	bottom, top := c.segment()
	tEnter, tExit := math.Inf(1), math.Inf(-1)
	hit := false

	merge := func(t0, t1 float64, ok bool) {
		if !ok {
			return
		}
		hit = true
		tEnter = math.Min(tEnter, t0)
		tExit = math.Max(tExit, t1)
	}
	merge(raySphere(ray, bottom, c.Radius))
	merge(raySphere(ray, top, c.Radius))
	merge(c.rayCylinder(ray))

	if !hit {
		return IntersectionPoint{}, false
	}
	t, ok := firstHit(tEnter, tExit)
	if !ok {
		return IntersectionPoint{}, false
	}

	point := ray.At(t)
	normal := safeNormalize(point.Sub(c.closestOnSegment(point)))
	return IntersectionPoint{Point: point, Normal: normal, T: t}, true
}

// rayCylinder intersects the ray with the finite cylinder between the cap centers.
func (c *Capsule) rayCylinder(ray Ray) (float64, float64, bool) {
	o, d := ray.Origin, ray.Direction
	if isDegenerate(d) {
		return 0, 0, false
	}

	// slab between the two cap planes
	s0, s1 := math.Inf(-1), math.Inf(1)
	if math.Abs(d.Y()) < 1e-12 {
		if math.Abs(o.Y()) > c.HalfHeight {
			return 0, 0, false
		}
	} else {
		s0 = (-c.HalfHeight - o.Y()) / d.Y()
		s1 = (c.HalfHeight - o.Y()) / d.Y()
		if s0 > s1 {
			s0, s1 = s1, s0
		}
	}

	// infinite cylinder x² + z² = r²
	a := d.X()*d.X() + d.Z()*d.Z()
	b := o.X()*d.X() + o.Z()*d.Z()
	k := o.X()*o.X() + o.Z()*o.Z() - c.Radius*c.Radius
	c0, c1 := math.Inf(-1), math.Inf(1)
	if a < degenerateLenSqr {
		if k > 0 {
			return 0, 0, false
		}
	} else {
		disc := b*b - a*k
		if disc < 0 {
			return 0, 0, false
		}
		sq := math.Sqrt(disc)
		c0, c1 = (-b-sq)/a, (-b+sq)/a
	}

	t0, t1 := math.Max(s0, c0), math.Min(s1, c1)
	if t0 > t1 {
		return 0, 0, false
	}

	return t0, t1, true
}

func (c *Capsule) RandomPoint(rng *rand.Rand) mgl64.Vec3 {
	half := mgl64.Vec3{c.Radius, c.HalfHeight + c.Radius, c.Radius}
	return rejectionSample(rng, half, c.IsInside)
}

func (c *Capsule) Support(direction mgl64.Vec3) SupportPoint {
	n := safeNormalize(direction)
	bottom, top := c.segment()

	tip := top
	if n.Y() < 0 {
		tip = bottom
	}

	return SupportPoint{Point: tip.Add(n.Mul(c.Radius)), Feature: NoFeature}
}

// Collision returns one point, or two when the capsule lies along the plane.
func (c *Capsule) Collision(simplex *ContactSimplex, separationPlane Plane, epsilon float64) *ContactSurface {
	if isDegenerate(separationPlane.Normal) {
		return degenerateSurface(simplex)
	}
	n := separationPlane.Normal
	bottom, top := c.segment()

	pb := bottom.Add(n.Mul(c.Radius))
	pt := top.Add(n.Mul(c.Radius))
	db, dt := n.Dot(pb), n.Dot(pt)

	var feature []mgl64.Vec3
	switch {
	case math.Abs(db-dt) <= epsilon:
		feature = []mgl64.Vec3{pb, pt}
	case db > dt:
		feature = []mgl64.Vec3{pb}
	default:
		feature = []mgl64.Vec3{pt}
	}

	return featureSurface(feature, separationPlane, epsilon)
}
