package actor

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Sphere represents a spherical collision shape centered on the origin
type Sphere struct {
	Radius float64
}

func (s *Sphere) Type() ShapeType {
	return ShapeTypeSphere
}

func (s *Sphere) Volume() float64 {
	// Volume of sphere = (4/3) * π * r³
	return (4.0 / 3.0) * math.Pi * s.Radius * s.Radius * s.Radius
}

func (s *Sphere) Inertia() mgl64.Mat3 {
	// I = (2/5) * m * r², m being the volume at unit density
	i := (2.0 / 5.0) * s.Volume() * s.Radius * s.Radius

	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func (s *Sphere) IsInside(point mgl64.Vec3) bool {
	return point.LenSqr() <= s.Radius*s.Radius
}

func (s *Sphere) Intersect(ray Ray) bool {
	_, ok := s.IntersectPoint(ray)
	return ok
}

func (s *Sphere) IntersectPoint(ray Ray) (IntersectionPoint, bool) {
	t0, t1, ok := raySphere(ray, mgl64.Vec3{}, s.Radius)
	if !ok {
		return IntersectionPoint{}, false
	}
	t, ok := firstHit(t0, t1)
	if !ok {
		return IntersectionPoint{}, false
	}

	point := ray.At(t)
	return IntersectionPoint{Point: point, Normal: safeNormalize(point), T: t}, true
}

func (s *Sphere) RandomPoint(rng *rand.Rand) mgl64.Vec3 {
	return rejectionSample(rng, mgl64.Vec3{s.Radius, s.Radius, s.Radius}, s.IsInside)
}

func (s *Sphere) Support(direction mgl64.Vec3) SupportPoint {
	return SupportPoint{Point: safeNormalize(direction).Mul(s.Radius), Feature: NoFeature}
}

func (s *Sphere) Collision(simplex *ContactSimplex, separationPlane Plane, epsilon float64) *ContactSurface {
	if isDegenerate(separationPlane.Normal) {
		return degenerateSurface(simplex)
	}

	// A sphere always touches in a single point
	return featureSurface([]mgl64.Vec3{s.Support(separationPlane.Normal).Point}, separationPlane, epsilon)
}

// raySphere returns the parameters where the ray line enters and leaves the sphere.
func raySphere(ray Ray, center mgl64.Vec3, radius float64) (float64, float64, bool) {
	a := ray.Direction.LenSqr()
	if a < degenerateLenSqr {
		return 0, 0, false
	}
	oc := ray.Origin.Sub(center)
	b := oc.Dot(ray.Direction)
	c := oc.LenSqr() - radius*radius

	disc := b*b - a*c
	if disc < 0 {
		return 0, 0, false
	}
	sq := math.Sqrt(disc)

	return (-b - sq) / a, (-b + sq) / a, true
}

// firstHit picks the first non-negative parameter of an entry/exit pair.
// A ray starting inside the shape hits at its exit point.
func firstHit(tEnter, tExit float64) (float64, bool) {
	switch {
	case tExit < 0:
		return 0, false
	case tEnter >= 0:
		return tEnter, true
	default:
		return tExit, true
	}
}
