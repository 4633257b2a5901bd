package constraint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/rigid/actor"
)

// Settings tune contact resolution.
type Settings struct {
	// Baumgarte is the fraction of the penetration beyond Slop removed per second
	// through a velocity bias, divided by dt.
	Baumgarte float64
	// Slop is the penetration left uncorrected, so resting contacts stay in touch.
	Slop float64
	// RestitutionThreshold is the approach speed under which contacts do not bounce.
	RestitutionThreshold float64
}

// DefaultSettings returns settings that keep resting stacks stable.
func DefaultSettings() Settings {
	return Settings{
		Baumgarte:            0.2,
		Slop:                 0.005,
		RestitutionThreshold: 0.5,
	}
}

type pointState struct {
	position    mgl64.Vec3
	normalMass  float64 // inverse of the effective mass along the normal
	target      float64 // normal velocity to reach, restitution plus bias
	accumulated float64 // total normal impulse applied this step
}

// ContactConstraint pushes two bodies apart along a contact surface.
// The surface normal points from BodyA toward BodyB.
type ContactConstraint struct {
	BodyA    *actor.Body
	BodyB    *actor.Body
	Surface  *actor.ContactSurface
	Settings Settings

	restitution     float64
	staticFriction  float64
	dynamicFriction float64

	points []pointState
}

func NewContactConstraint(bodyA, bodyB *actor.Body, surface *actor.ContactSurface, settings Settings) *ContactConstraint {
	return &ContactConstraint{
		BodyA:    bodyA,
		BodyB:    bodyB,
		Surface:  surface,
		Settings: settings,
	}
}

// relativeVelocity returns the velocity of B relative to A at point.
func (c *ContactConstraint) relativeVelocity(point mgl64.Vec3) mgl64.Vec3 {
	return c.BodyB.PointVelocity(point).Sub(c.BodyA.PointVelocity(point))
}

// inverseEffectiveMass returns the relative velocity change along direction at point
// for a unit impulse pair along direction.
func (c *ContactConstraint) inverseEffectiveMass(direction, point mgl64.Vec3) float64 {
	return direction.Dot(c.BodyA.ImpulseResponse(direction, point, point)) +
		direction.Dot(c.BodyB.ImpulseResponse(direction, point, point))
}

// Prepare computes the per point effective masses and velocity targets from the
// velocities before resolution.
func (c *ContactConstraint) Prepare(dt float64) {
	c.points = c.points[:0]
	if c.Surface == nil || len(c.Surface.Points) == 0 {
		return
	}
	if c.BodyA.IsFixed() && c.BodyB.IsFixed() {
		return
	}

	c.restitution = ComputeRestitution(c.BodyA.Material, c.BodyB.Material)
	c.staticFriction = ComputeStaticFriction(c.BodyA.Material, c.BodyB.Material)
	c.dynamicFriction = ComputeDynamicFriction(c.BodyA.Material, c.BodyB.Material)

	normal := c.Surface.Normal
	for _, point := range c.Surface.Points {
		k := c.inverseEffectiveMass(normal, point.Position)
		if k < 1e-10 {
			continue
		}

		normalVel := c.relativeVelocity(point.Position).Dot(normal)

		var target float64
		if -normalVel > c.Settings.RestitutionThreshold {
			target = -c.restitution * normalVel
		}
		if dt > 0 {
			target = math.Max(target, c.Settings.Baumgarte/dt*math.Max(0, point.Penetration-c.Settings.Slop))
		}

		c.points = append(c.points, pointState{
			position:   point.Position,
			normalMass: 1 / k,
			target:     target,
		})
	}
}

// SolveVelocity applies one pass of normal and friction impulses. The accumulated
// normal impulse is clamped to stay repulsive.
func (c *ContactConstraint) SolveVelocity(_ float64) {
	if len(c.points) == 0 {
		return
	}

	normal := c.Surface.Normal
	for i := range c.points {
		point := &c.points[i]

		// ========== NORMAL IMPULSE ==========
		relativeVel := c.relativeVelocity(point.position)
		normalVel := relativeVel.Dot(normal)

		lambda := (point.target - normalVel) * point.normalMass
		previous := point.accumulated
		point.accumulated = math.Max(0, previous+lambda)
		lambda = point.accumulated - previous

		c.applyImpulse(lambda, normal, point.position)

		// ========== TANGENTIAL IMPULSE (friction) ==========
		if point.accumulated <= 0 {
			continue
		}

		relativeVel = c.relativeVelocity(point.position)
		tangentVel := relativeVel.Sub(normal.Mul(relativeVel.Dot(normal)))
		tangentSpeed := tangentVel.Len()
		if tangentSpeed < 1e-9 {
			continue
		}
		tangentDir := tangentVel.Mul(1.0 / tangentSpeed)

		k := c.inverseEffectiveMass(tangentDir, point.position)
		if k < 1e-10 {
			continue
		}

		// Coulomb's law: |F_friction| ≤ μ * |F_normal|
		lambdaTangent := -tangentSpeed / k
		if math.Abs(lambdaTangent) > c.staticFriction*point.accumulated {
			lambdaTangent = -c.dynamicFriction * point.accumulated
		}

		c.applyImpulse(lambdaTangent, tangentDir, point.position)
	}

	clampSmallVelocities(c.BodyA)
	clampSmallVelocities(c.BodyB)
}

// applyImpulse gives B the impulse magnitude·direction at point and A the opposite.
func (c *ContactConstraint) applyImpulse(magnitude float64, direction, point mgl64.Vec3) {
	c.BodyB.ApplyImpulse(magnitude, direction, point)
	c.BodyA.ApplyImpulse(-magnitude, direction, point)
}

// NormalImpulse returns the total normal impulse applied since Prepare.
func (c *ContactConstraint) NormalImpulse() float64 {
	var total float64
	for _, p := range c.points {
		total += p.accumulated
	}
	return total
}
