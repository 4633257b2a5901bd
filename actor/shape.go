package actor

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypeCapsule
)

// NoFeature marks a support point on a smooth part of a shape.
const NoFeature = -1

// degenerateLenSqr is the squared length under which a direction is treated as zero.
const degenerateLenSqr = 1e-18

// Shape is the interface that all collision shapes must implement.
//
// Every query is expressed in the shape's own frame. Shapes are immutable once
// constructed, so a single Shape may back several TransformedShapes.
type Shape interface {
	Type() ShapeType
	// Volume returns the enclosed volume
	Volume() float64
	// Inertia returns the inertia tensor about the centroid for unit density
	Inertia() mgl64.Mat3
	IsInside(point mgl64.Vec3) bool
	Intersect(ray Ray) bool
	IntersectPoint(ray Ray) (IntersectionPoint, bool)
	// RandomPoint returns a point uniformly distributed inside the shape
	RandomPoint(rng *rand.Rand) mgl64.Vec3
	// Support returns the point of the shape furthest along direction
	Support(direction mgl64.Vec3) SupportPoint
	// Collision returns the contact feature of the shape facing the separation plane,
	// or nil when the shape does not reach within epsilon of it. The plane normal points
	// away from the shape, toward the other body.
	Collision(simplex *ContactSimplex, separationPlane Plane, epsilon float64) *ContactSurface
}

// Ray is a half-line starting at Origin. Direction need not be normalized.
type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectionPoint describes where a ray first crosses a shape's surface.
type IntersectionPoint struct {
	Point  mgl64.Vec3
	Normal mgl64.Vec3 // outward surface normal at Point
	T      float64    // ray parameter, Point == ray.At(T)
}

// Plane is the set of points p with Normal·p == Offset.
// Normal must be normalized.
type Plane struct {
	Normal mgl64.Vec3
	Offset float64
}

// NewPlane builds the plane through point with the given normal.
func NewPlane(normal, point mgl64.Vec3) Plane {
	n := safeNormalize(normal)
	return Plane{Normal: n, Offset: n.Dot(point)}
}

// Distance returns the signed distance of point to the plane, positive on the normal side.
func (p Plane) Distance(point mgl64.Vec3) float64 {
	return p.Normal.Dot(point) - p.Offset
}

// Flip returns the same plane with the opposite orientation.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Mul(-1), Offset: -p.Offset}
}

// SupportPoint is a point on a shape returned by a support query.
// Feature identifies the vertex reached on polyhedral shapes, NoFeature otherwise.
type SupportPoint struct {
	Point   mgl64.Vec3
	Feature int
}

// ContactSimplex holds the support points one shape contributed to a GJK simplex.
type ContactSimplex struct {
	Points [4]SupportPoint
	Count  int
}

// Add appends a support point, dropping it when the simplex is already full.
func (s *ContactSimplex) Add(p SupportPoint) {
	if s.Count >= len(s.Points) {
		return
	}
	s.Points[s.Count] = p
	s.Count++
}

// Witness returns the average of the simplex points, and false for an empty simplex.
func (s *ContactSimplex) Witness() (mgl64.Vec3, bool) {
	if s == nil || s.Count == 0 {
		return mgl64.Vec3{}, false
	}
	var sum mgl64.Vec3
	for i := 0; i < s.Count; i++ {
		sum = sum.Add(s.Points[i].Point)
	}
	return sum.Mul(1.0 / float64(s.Count)), true
}

// ContactPoint is a single point of a contact surface.
type ContactPoint struct {
	Position    mgl64.Vec3
	Penetration float64 // depth along the surface normal, negative when separated
}

// ContactSurface describes the region where two shapes touch.
type ContactSurface struct {
	Normal mgl64.Vec3 // unit normal, from the first shape toward the second
	Depth  float64    // penetration depth along Normal, negative within epsilon of touching
	Points []ContactPoint
}

// featureSurface packages the extreme feature of a shape against the plane. It returns
// nil when even the deepest point stays more than epsilon behind the plane.
func featureSurface(points []mgl64.Vec3, plane Plane, epsilon float64) *ContactSurface {
	surface := &ContactSurface{Normal: plane.Normal, Depth: math.Inf(-1)}
	for _, p := range points {
		d := plane.Distance(p)
		surface.Points = append(surface.Points, ContactPoint{Position: p, Penetration: d})
		surface.Depth = math.Max(surface.Depth, d)
	}
	if len(surface.Points) == 0 || surface.Depth < -epsilon {
		return nil
	}
	return surface
}

// degenerateSurface handles a separation plane with no usable normal: the contact is
// reported at the simplex witness with zero depth and the default up normal.
func degenerateSurface(simplex *ContactSimplex) *ContactSurface {
	witness, ok := simplex.Witness()
	if !ok {
		return nil
	}
	return &ContactSurface{
		Normal: mgl64.Vec3{0, 1, 0},
		Points: []ContactPoint{{Position: witness}},
	}
}

func isDegenerate(v mgl64.Vec3) bool {
	return v.LenSqr() < degenerateLenSqr
}

// safeNormalize returns the unit vector along v, or the up axis when v is zero.
func safeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	if isDegenerate(v) {
		return mgl64.Vec3{0, 1, 0}
	}
	return v.Normalize()
}

// rejectionSample draws points in the box [-half, half] until inside accepts one.
// The bound on attempts keeps a malformed shape from spinning forever.
func rejectionSample(rng *rand.Rand, half mgl64.Vec3, inside func(mgl64.Vec3) bool) mgl64.Vec3 {
	const maxAttempts = 1000
	var p mgl64.Vec3
	for i := 0; i < maxAttempts; i++ {
		p = mgl64.Vec3{
			(2*rng.Float64() - 1) * half.X(),
			(2*rng.Float64() - 1) * half.Y(),
			(2*rng.Float64() - 1) * half.Z(),
		}
		if inside(p) {
			return p
		}
	}
	return mgl64.Vec3{}
}

// Helper to generate the tangent basis
func getTangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}
