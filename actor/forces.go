package actor

import "github.com/go-gl/mathgl/mgl64"

// ForceField produces the force and torque acting on a body at simulation time t.
// Torque is taken about the body's center of mass.
type ForceField interface {
	Apply(body *Body, t float64) (force, torque mgl64.Vec3)
}

// ForceFieldFunc adapts a function to the ForceField interface.
type ForceFieldFunc func(body *Body, t float64) (mgl64.Vec3, mgl64.Vec3)

func (f ForceFieldFunc) Apply(body *Body, t float64) (mgl64.Vec3, mgl64.Vec3) {
	return f(body, t)
}

// Gravity is a uniform acceleration field.
type Gravity struct {
	Acceleration mgl64.Vec3
}

func (g Gravity) Apply(body *Body, _ float64) (mgl64.Vec3, mgl64.Vec3) {
	if body.IsFixed() {
		return mgl64.Vec3{}, mgl64.Vec3{}
	}

	return g.Acceleration.Mul(body.Mass()), mgl64.Vec3{}
}

// ConstantForce is a standing force applied at a point given in body space, so the
// point of application follows the body.
type ConstantForce struct {
	Force mgl64.Vec3
	Point mgl64.Vec3
}

func (c ConstantForce) Apply(body *Body, _ float64) (mgl64.Vec3, mgl64.Vec3) {
	arm := body.Rotation().Mul3x1(c.Point)
	return c.Force, arm.Cross(c.Force)
}

// Damping drags the momenta toward zero, P' = -Linear·P and L' = -Angular·L.
type Damping struct {
	Linear  float64
	Angular float64
}

func (d Damping) Apply(body *Body, _ float64) (mgl64.Vec3, mgl64.Vec3) {
	return body.LinearMomentum().Mul(-d.Linear), body.AngularMomentum().Mul(-d.Angular)
}
