package actor

// Material holds the surface properties used by contact resolution.
type Material struct {
	Restitution float64 // 0= no rebound, 1= perfect restitution

	StaticFriction  float64
	DynamicFriction float64
}

// DefaultMaterial returns an inelastic material with moderate friction.
func DefaultMaterial() Material {
	return Material{
		Restitution:     0.0,
		StaticFriction:  0.6,
		DynamicFriction: 0.4,
	}
}
