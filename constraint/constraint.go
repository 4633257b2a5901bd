// Package constraint resolves contacts between bodies with sequential impulses.
package constraint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/rigid/actor"
)

// Constraint is solved iteratively: Prepare once per step, then SolveVelocity as many
// times as the solver iterates.
type Constraint interface {
	Prepare(dt float64)
	SolveVelocity(dt float64)
}

// ComputeRestitution averages the restitution of both materials.
func ComputeRestitution(matA, matB actor.Material) float64 {
	return (matA.Restitution + matB.Restitution) / 2.0

	// Maximum (if one bounces, it bounces):
	//return math.Max(matA.Restitution, matB.Restitution)
}

func ComputeStaticFriction(matA, matB actor.Material) float64 {
	// Geometric mean
	return math.Sqrt(matA.StaticFriction * matB.StaticFriction)
}

func ComputeDynamicFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.DynamicFriction * matB.DynamicFriction)
}

const velocityThreshold = 1e-5

func clampSmallVelocities(b *actor.Body) {
	if b.Velocity().Len() < velocityThreshold {
		b.SetVelocity(mgl64.Vec3{})
	}
	if b.Omega().Len() < velocityThreshold {
		b.SetAngularMomentum(mgl64.Vec3{})
	}
}
