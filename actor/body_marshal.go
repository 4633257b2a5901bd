package actor

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/rigid/ode"
)

// StateSize is the number of scalars a body occupies in a state vector:
// position (3), orientation (4, w first), linear momentum (3), angular momentum (3).
const StateSize = 13

// Marshal appends the intrinsic state to dst and returns the extended vector.
func (b *Body) Marshal(dst ode.VectorN) ode.VectorN {
	return append(dst,
		b.x.X(), b.x.Y(), b.x.Z(),
		b.q.W, b.q.V.X(), b.q.V.Y(), b.q.V.Z(),
		b.p.X(), b.p.Y(), b.p.Z(),
		b.l.X(), b.l.Y(), b.l.Z(),
	)
}

// MarshalDerivative appends the time derivative of the intrinsic state, in the same
// layout as Marshal: v, dq/dt = ½·omega·q, force, torque.
func (b *Body) MarshalDerivative(dst ode.VectorN) ode.VectorN {
	qDot := mgl64.Quat{W: 0, V: b.omega}.Mul(b.q).Scale(0.5)

	return append(dst,
		b.v.X(), b.v.Y(), b.v.Z(),
		qDot.W, qDot.V.X(), qDot.V.Y(), qDot.V.Z(),
		b.force.X(), b.force.Y(), b.force.Z(),
		b.torque.X(), b.torque.Y(), b.torque.Z(),
	)
}

// Unmarshal reads the intrinsic state starting at offset and returns the offset just
// past it. The orientation is renormalized and the derived state recomputed.
// mgl64 leaves a quaternion untouched when |q| is within about 2e-10 of 1, so that is
// how close to unit length the orientation is kept.
// Fixed bodies keep zero momenta whatever the vector holds.
func (b *Body) Unmarshal(src ode.VectorN, offset int) int {
	s := src[offset : offset+StateSize]

	b.x = mgl64.Vec3{s[0], s[1], s[2]}
	b.q = mgl64.Quat{W: s[3], V: mgl64.Vec3{s[4], s[5], s[6]}}.Normalize()
	if !b.IsFixed() {
		b.p = mgl64.Vec3{s[7], s[8], s[9]}
		b.l = mgl64.Vec3{s[10], s[11], s[12]}
	}
	b.updateDerived()

	return offset + StateSize
}
