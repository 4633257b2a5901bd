package actor

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Body represents a rigid body in the physics simulation.
//
// The integrated state is the position x, the orientation q, the linear momentum P and
// the angular momentum L. Velocities and world-space inertia are derived from it and
// refreshed by every mutator, so they are never stale when read.
// A body with a zero inverse mass is fixed: impulses, forces and integration leave it
// where it is.
type Body struct {
	// Name is only used when the body is logged.
	Name     string
	Material Material

	shape       Shape
	transformed *TransformedShape
	fields      []ForceField

	// Constants
	invMass    float64
	inertia    mgl64.Mat3 // body space
	invInertia mgl64.Mat3 // body space

	// Intrinsic state
	x mgl64.Vec3
	q mgl64.Quat
	p mgl64.Vec3
	l mgl64.Vec3

	// Derived state
	r               mgl64.Mat3
	rT              mgl64.Mat3
	invInertiaWorld mgl64.Mat3
	v               mgl64.Vec3
	omega           mgl64.Vec3

	// External state, accumulated until the next integration step
	force  mgl64.Vec3
	torque mgl64.Vec3
}

// NewBody adopts shape and derives mass and inertia from its volume at the uniform
// density 1/inverseDensity. An inverse density of zero creates a fixed body.
// The shape must have a strictly positive volume.
func NewBody(shape Shape, inverseDensity float64) *Body {
	b := &Body{
		shape:       shape,
		transformed: NewTransformedShape(shape),
		q:           mgl64.QuatIdent(),
		Material:    DefaultMaterial(),
	}

	if inverseDensity > 0 {
		b.invMass = inverseDensity / shape.Volume()
		b.inertia = shape.Inertia().Mul(1 / inverseDensity)
		b.invInertia = invertInertia(shape.Inertia()).Mul(inverseDensity)
	}
	b.updateDerived()

	return b
}

// invertInertia inverts the tensor directly when it is diagonal, which keeps the
// inverse of very small shapes away from the determinant threshold of Mat3.Inv.
func invertInertia(i mgl64.Mat3) mgl64.Mat3 {
	diagonal := true
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			if row != col && i.At(row, col) != 0 {
				diagonal = false
			}
		}
	}
	if !diagonal {
		return i.Inv()
	}

	var inv mgl64.Mat3
	for k := 0; k < 3; k++ {
		if d := i.At(k, k); d != 0 {
			inv.Set(k, k, 1/d)
		}
	}

	return inv
}

// updateDerived recomputes everything that depends on the intrinsic state.
func (b *Body) updateDerived() {
	b.r = b.q.Mat4().Mat3()
	b.rT = b.r.Transpose()
	b.invInertiaWorld = b.r.Mul3(b.invInertia).Mul3(b.rT)
	b.v = b.p.Mul(b.invMass)
	b.omega = b.invInertiaWorld.Mul3x1(b.l)
	b.transformed.SetTransform(b.x, b.q)
}

// IsFixed reports whether the body has a zero inverse mass.
func (b *Body) IsFixed() bool {
	return b.invMass == 0
}

// AddForceField registers a field evaluated by SetExternalForces.
func (b *Body) AddForceField(field ForceField) {
	b.fields = append(b.fields, field)
}

// ========== Setters ==========

// SetPosition moves the body without touching its momenta.
func (b *Body) SetPosition(position mgl64.Vec3) {
	b.x = position
	b.transformed.SetTransform(b.x, b.q)
}

// SetOrientation normalizes the quaternion before storing it.
func (b *Body) SetOrientation(orientation mgl64.Quat) {
	b.q = orientation.Normalize()
	b.updateDerived()
}

// SetVelocity sets the linear momentum matching velocity. It is a no-op for fixed bodies.
func (b *Body) SetVelocity(velocity mgl64.Vec3) {
	if b.IsFixed() {
		return
	}
	b.p = velocity.Mul(1 / b.invMass)
	b.v = b.p.Mul(b.invMass)
}

// SetAngularVelocity sets L = r·I·rT·omega.
func (b *Body) SetAngularVelocity(omega mgl64.Vec3) {
	if b.IsFixed() {
		return
	}
	inertiaWorld := b.r.Mul3(b.inertia).Mul3(b.rT)
	b.l = inertiaWorld.Mul3x1(omega)
	b.omega = b.invInertiaWorld.Mul3x1(b.l)
}

// SetLinearMomentum sets P and refreshes v. It is a no-op for fixed bodies.
func (b *Body) SetLinearMomentum(p mgl64.Vec3) {
	if b.IsFixed() {
		return
	}
	b.p = p
	b.v = b.p.Mul(b.invMass)
}

// SetAngularMomentum sets L and refreshes omega. It is a no-op for fixed bodies.
func (b *Body) SetAngularMomentum(l mgl64.Vec3) {
	if b.IsFixed() {
		return
	}
	b.l = l
	b.omega = b.invInertiaWorld.Mul3x1(b.l)
}

// ========== Getters ==========

func (b *Body) Shape() Shape                     { return b.shape }
func (b *Body) InverseMass() float64             { return b.invMass }
func (b *Body) InverseInertia() mgl64.Mat3       { return b.invInertia }
func (b *Body) InverseWorldInertia() mgl64.Mat3  { return b.invInertiaWorld }
func (b *Body) Position() mgl64.Vec3             { return b.x }
func (b *Body) Orientation() mgl64.Quat          { return b.q }
func (b *Body) Rotation() mgl64.Mat3             { return b.r }
func (b *Body) RotationTranspose() mgl64.Mat3    { return b.rT }
func (b *Body) Velocity() mgl64.Vec3             { return b.v }
func (b *Body) Omega() mgl64.Vec3                { return b.omega }
func (b *Body) LinearMomentum() mgl64.Vec3       { return b.p }
func (b *Body) AngularMomentum() mgl64.Vec3      { return b.l }
func (b *Body) Force() mgl64.Vec3                { return b.force }
func (b *Body) Torque() mgl64.Vec3               { return b.torque }
func (b *Body) Transformed() *TransformedShape   { return b.transformed }
func (b *Body) AABB() AABB                       { return b.transformed.AABB() }
func (b *Body) ForceFields() []ForceField        { return b.fields }
func (b *Body) Transform() mgl64.Mat4            { return b.transformed.Transform() }
func (b *Body) TransposeTransform() mgl64.Mat4   { return b.transformed.TransposeTransform() }
func (b *Body) InverseTransform() mgl64.Mat4     { return b.transformed.InverseTransform() }
func (b *Body) InverseTransposeTransform() mgl64.Mat4 {
	return b.transformed.InverseTransposeTransform()
}

// Mass returns +Inf for fixed bodies.
func (b *Body) Mass() float64 {
	if b.IsFixed() {
		return math.Inf(1)
	}

	return 1 / b.invMass
}

// KineticEnergy returns ½·v·P + ½·omega·L.
func (b *Body) KineticEnergy() float64 {
	return 0.5*b.v.Dot(b.p) + 0.5*b.omega.Dot(b.l)
}

// ========== Dynamics queries ==========

// PointVelocity returns the world velocity of a world point rigidly attached to the body.
func (b *Body) PointVelocity(point mgl64.Vec3) mgl64.Vec3 {
	return b.v.Add(b.omega.Cross(point.Sub(b.x)))
}

// PointAcceleration returns the world acceleration of a world point rigidly attached to
// the body under the accumulated force and torque.
func (b *Body) PointAcceleration(point mgl64.Vec3) mgl64.Vec3 {
	rel := point.Sub(b.x)
	linear := b.force.Mul(b.invMass)
	alpha := b.invInertiaWorld.Mul3x1(b.torque.Sub(b.omega.Cross(b.l)))
	centripetal := b.omega.Cross(b.omega.Cross(rel))

	return linear.Add(alpha.Cross(rel)).Add(centripetal)
}

// ImpulseResponse returns the change of velocity at p2 caused by a unit impulse along
// direction applied at p1: invMass·n + (invInertiaWorld·((p1-x)×n))×(p2-x).
func (b *Body) ImpulseResponse(direction, p1, p2 mgl64.Vec3) mgl64.Vec3 {
	angular := b.invInertiaWorld.Mul3x1(p1.Sub(b.x).Cross(direction))

	return direction.Mul(b.invMass).Add(angular.Cross(p2.Sub(b.x)))
}

// EffectiveDirection is the normalized ImpulseResponse. A fixed body, or an impulse that
// produces no velocity change at p2, yields the zero vector.
func (b *Body) EffectiveDirection(direction, p1, p2 mgl64.Vec3) mgl64.Vec3 {
	d := b.ImpulseResponse(direction, p1, p2)
	if isDegenerate(d) {
		return mgl64.Vec3{}
	}

	return d.Normalize()
}

// ========== Forces and impulses ==========

// SetExternalForces resets the accumulators to the sum of the registered force fields
// evaluated at time t.
func (b *Body) SetExternalForces(t float64) {
	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
	if b.IsFixed() {
		return
	}

	for _, field := range b.fields {
		b.AccumulateField(field, t)
	}
}

// AccumulateField adds the contribution of a field that is not registered on the body,
// such as a field shared by every body of a world.
func (b *Body) AccumulateField(field ForceField, t float64) {
	if b.IsFixed() {
		return
	}
	f, tau := field.Apply(b, t)
	b.force = b.force.Add(f)
	b.torque = b.torque.Add(tau)
}

// ApplyImpulse changes the momenta instantly and refreshes the velocities.
func (b *Body) ApplyImpulse(magnitude float64, direction, position mgl64.Vec3) {
	if b.IsFixed() {
		return
	}
	impulse := direction.Mul(magnitude)
	b.p = b.p.Add(impulse)
	b.l = b.l.Add(position.Sub(b.x).Cross(impulse))

	b.v = b.p.Mul(b.invMass)
	b.omega = b.invInertiaWorld.Mul3x1(b.l)
}

// ClearForces zeroes the accumulated force and torque. A stepper calls it once the
// accumulators have been integrated, so that the next ApplyForce starts from zero.
func (b *Body) ClearForces() {
	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
}

// ApplyForce accumulates a force until the next integration step.
func (b *Body) ApplyForce(magnitude float64, direction, position mgl64.Vec3) {
	if b.IsFixed() {
		return
	}
	f := direction.Mul(magnitude)
	b.force = b.force.Add(f)
	b.torque = b.torque.Add(position.Sub(b.x).Cross(f))
}

// ========== Shape queries, in world space ==========

func (b *Body) Type() ShapeType                { return b.shape.Type() }
func (b *Body) Volume() float64                { return b.transformed.Volume() }
func (b *Body) Inertia() mgl64.Mat3            { return b.transformed.Inertia() }
func (b *Body) IsInside(point mgl64.Vec3) bool { return b.transformed.IsInside(point) }
func (b *Body) Intersect(ray Ray) bool         { return b.transformed.Intersect(ray) }

func (b *Body) IntersectPoint(ray Ray) (IntersectionPoint, bool) {
	return b.transformed.IntersectPoint(ray)
}

func (b *Body) RandomPoint(rng *rand.Rand) mgl64.Vec3 {
	return b.transformed.RandomPoint(rng)
}

func (b *Body) Support(direction mgl64.Vec3) SupportPoint {
	return b.transformed.Support(direction)
}

func (b *Body) Collision(simplex *ContactSimplex, separationPlane Plane, epsilon float64) *ContactSurface {
	return b.transformed.Collision(simplex, separationPlane, epsilon)
}
