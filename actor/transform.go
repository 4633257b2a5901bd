package actor

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Transformable is a Shape placed in the world by a rigid transform.
// Transform maps body space to world space; all four matrices are kept consistent
// with the current placement.
type Transformable interface {
	Shape
	Position() mgl64.Vec3
	Transform() mgl64.Mat4
	TransposeTransform() mgl64.Mat4
	InverseTransform() mgl64.Mat4
	InverseTransposeTransform() mgl64.Mat4
}

var (
	_ Transformable = (*TransformedShape)(nil)
	_ Transformable = (*Body)(nil)
)

// TransformedShape decorates a Shape with a position and an orientation, and answers
// every Shape query in world space.
type TransformedShape struct {
	shape Shape

	position    mgl64.Vec3
	orientation mgl64.Quat
	r           mgl64.Mat3
	rT          mgl64.Mat3

	transform                 mgl64.Mat4
	transposeTransform        mgl64.Mat4
	inverseTransform          mgl64.Mat4
	inverseTransposeTransform mgl64.Mat4
}

// NewTransformedShape places shape at the origin with the identity orientation.
func NewTransformedShape(shape Shape) *TransformedShape {
	ts := &TransformedShape{shape: shape}
	ts.SetTransform(mgl64.Vec3{}, mgl64.QuatIdent())

	return ts
}

// SetTransform moves the shape. The orientation is expected to be a unit quaternion.
func (ts *TransformedShape) SetTransform(position mgl64.Vec3, orientation mgl64.Quat) {
	ts.position = position
	ts.orientation = orientation
	ts.r = orientation.Mat4().Mat3()
	ts.rT = ts.r.Transpose()

	ts.transform = mgl64.Translate3D(position.X(), position.Y(), position.Z()).Mul4(ts.r.Mat4())
	ts.transposeTransform = ts.transform.Transpose()

	// [rT | -rT·x]
	back := ts.rT.Mul3x1(position).Mul(-1)
	ts.inverseTransform = mgl64.Translate3D(back.X(), back.Y(), back.Z()).Mul4(ts.rT.Mat4())
	ts.inverseTransposeTransform = ts.inverseTransform.Transpose()
}

func (ts *TransformedShape) Shape() Shape {
	return ts.shape
}

func (ts *TransformedShape) Type() ShapeType {
	return ts.shape.Type()
}

func (ts *TransformedShape) Position() mgl64.Vec3 {
	return ts.position
}

func (ts *TransformedShape) Orientation() mgl64.Quat {
	return ts.orientation
}

// Rotation returns the orientation as a rotation matrix, r.
func (ts *TransformedShape) Rotation() mgl64.Mat3 {
	return ts.r
}

// RotationTranspose returns rT, the inverse rotation.
func (ts *TransformedShape) RotationTranspose() mgl64.Mat3 {
	return ts.rT
}

func (ts *TransformedShape) Transform() mgl64.Mat4                 { return ts.transform }
func (ts *TransformedShape) TransposeTransform() mgl64.Mat4        { return ts.transposeTransform }
func (ts *TransformedShape) InverseTransform() mgl64.Mat4          { return ts.inverseTransform }
func (ts *TransformedShape) InverseTransposeTransform() mgl64.Mat4 { return ts.inverseTransposeTransform }

// ToWorld maps a body-space point to world space.
func (ts *TransformedShape) ToWorld(point mgl64.Vec3) mgl64.Vec3 {
	return ts.r.Mul3x1(point).Add(ts.position)
}

// ToLocal maps a world-space point to body space.
func (ts *TransformedShape) ToLocal(point mgl64.Vec3) mgl64.Vec3 {
	return ts.rT.Mul3x1(point.Sub(ts.position))
}

func (ts *TransformedShape) Volume() float64 {
	return ts.shape.Volume()
}

// Inertia returns the unit-density inertia tensor in world orientation, r·I·rT.
func (ts *TransformedShape) Inertia() mgl64.Mat3 {
	return ts.r.Mul3(ts.shape.Inertia()).Mul3(ts.rT)
}

func (ts *TransformedShape) IsInside(point mgl64.Vec3) bool {
	return ts.shape.IsInside(ts.ToLocal(point))
}

func (ts *TransformedShape) Intersect(ray Ray) bool {
	return ts.shape.Intersect(ts.localRay(ray))
}

// IntersectPoint keeps the ray parameter: a rigid transform preserves lengths.
func (ts *TransformedShape) IntersectPoint(ray Ray) (IntersectionPoint, bool) {
	hit, ok := ts.shape.IntersectPoint(ts.localRay(ray))
	if !ok {
		return IntersectionPoint{}, false
	}

	return IntersectionPoint{
		Point:  ts.ToWorld(hit.Point),
		Normal: ts.r.Mul3x1(hit.Normal),
		T:      hit.T,
	}, true
}

func (ts *TransformedShape) localRay(ray Ray) Ray {
	return Ray{Origin: ts.ToLocal(ray.Origin), Direction: ts.rT.Mul3x1(ray.Direction)}
}

func (ts *TransformedShape) RandomPoint(rng *rand.Rand) mgl64.Vec3 {
	return ts.ToWorld(ts.shape.RandomPoint(rng))
}

func (ts *TransformedShape) Support(direction mgl64.Vec3) SupportPoint {
	sp := ts.shape.Support(ts.rT.Mul3x1(direction))
	sp.Point = ts.ToWorld(sp.Point)

	return sp
}

// Collision maps the simplex and the plane into body space, queries the shape, and
// maps the resulting surface back to world space.
func (ts *TransformedShape) Collision(simplex *ContactSimplex, separationPlane Plane, epsilon float64) *ContactSurface {
	var local ContactSimplex
	if simplex != nil {
		local = *simplex
		for i := 0; i < local.Count; i++ {
			local.Points[i].Point = ts.ToLocal(local.Points[i].Point)
		}
	}

	// n·(r·p + x) = d  <=>  (rT·n)·p = d - n·x
	localPlane := Plane{
		Normal: ts.rT.Mul3x1(separationPlane.Normal),
		Offset: separationPlane.Offset - separationPlane.Normal.Dot(ts.position),
	}

	surface := ts.shape.Collision(&local, localPlane, epsilon)
	if surface == nil {
		return nil
	}

	surface.Normal = ts.r.Mul3x1(surface.Normal)
	for i := range surface.Points {
		surface.Points[i].Position = ts.ToWorld(surface.Points[i].Position)
	}

	return surface
}

// AABB returns the world bounds of the shape, built from six support queries.
func (ts *TransformedShape) AABB() AABB {
	var aabb AABB
	for axis := 0; axis < 3; axis++ {
		var dir mgl64.Vec3
		dir[axis] = 1
		aabb.Max[axis] = ts.Support(dir).Point[axis]
		aabb.Min[axis] = ts.Support(dir.Mul(-1)).Point[axis]
	}

	return aabb
}
