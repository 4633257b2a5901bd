package rigid

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/akmonengine/rigid/actor"
	"github.com/akmonengine/rigid/constraint"
	"github.com/akmonengine/rigid/epa"
	"github.com/akmonengine/rigid/gjk"
	"github.com/akmonengine/rigid/ode"
)

const DEFAULT_WORKERS = 1

// Config holds every tunable of a World.
type Config struct {
	// Gravity acceleration (m/s², or N/kg)
	Gravity  mgl64.Vec3 `json:"gravity"`
	Substeps int        `json:"substeps"`

	// Epsilon is the contact tolerance: shapes closer than this are in contact.
	Epsilon          float64 `json:"epsilon"`
	MaxIterations    int     `json:"max_iterations"`
	EPAIterations    int     `json:"epa_iterations"`
	SolverIterations int     `json:"solver_iterations"`

	// Default material of the bodies added to the world
	Restitution     float64 `json:"restitution"`
	StaticFriction  float64 `json:"static_friction"`
	DynamicFriction float64 `json:"dynamic_friction"`

	Baumgarte            float64 `json:"baumgarte"`
	Slop                 float64 `json:"slop"`
	RestitutionThreshold float64 `json:"restitution_threshold"`

	LinearDamping  float64 `json:"linear_damping"`
	AngularDamping float64 `json:"angular_damping"`

	// Integrator is one of "euler", "midpoint" or "rk4".
	Integrator string `json:"integrator"`
	Workers    int    `json:"workers"`
	// MaxSpeed above which a body is reported as running away. Zero disables the check.
	MaxSpeed float64 `json:"max_speed"`
}

// DefaultConfig returns a configuration suited to objects around a meter in size.
func DefaultConfig() Config {
	material := actor.DefaultMaterial()
	settings := constraint.DefaultSettings()

	return Config{
		Gravity:              mgl64.Vec3{0, -9.81, 0},
		Substeps:             4,
		Epsilon:              1e-3,
		MaxIterations:        gjk.DefaultMaxIterations,
		EPAIterations:        epa.DefaultMaxIterations,
		SolverIterations:     8,
		Restitution:          material.Restitution,
		StaticFriction:       material.StaticFriction,
		DynamicFriction:      material.DynamicFriction,
		Baumgarte:            settings.Baumgarte,
		Slop:                 settings.Slop,
		RestitutionThreshold: settings.RestitutionThreshold,
		Integrator:           ode.RK4{}.Name(),
		Workers:              DEFAULT_WORKERS,
		MaxSpeed:             100,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error

	if c.Substeps < 1 {
		err = multierr.Append(err, errors.Errorf("substeps must be at least 1, got %d", c.Substeps))
	}
	if c.Epsilon <= 0 {
		err = multierr.Append(err, errors.Errorf("epsilon must be positive, got %g", c.Epsilon))
	}
	if c.MaxIterations < 1 {
		err = multierr.Append(err, errors.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations))
	}
	if c.EPAIterations < 1 {
		err = multierr.Append(err, errors.Errorf("epa_iterations must be at least 1, got %d", c.EPAIterations))
	}
	if c.SolverIterations < 1 {
		err = multierr.Append(err, errors.Errorf("solver_iterations must be at least 1, got %d", c.SolverIterations))
	}
	if c.Restitution < 0 || c.Restitution > 1 {
		err = multierr.Append(err, errors.Errorf("restitution must be in [0, 1], got %g", c.Restitution))
	}
	if c.StaticFriction < 0 || c.DynamicFriction < 0 {
		err = multierr.Append(err, errors.New("friction coefficients cannot be negative"))
	}
	if c.Baumgarte < 0 || c.Baumgarte > 1 {
		err = multierr.Append(err, errors.Errorf("baumgarte must be in [0, 1], got %g", c.Baumgarte))
	}
	if c.Slop < 0 || c.RestitutionThreshold < 0 {
		err = multierr.Append(err, errors.New("slop and restitution_threshold cannot be negative"))
	}
	if c.LinearDamping < 0 || c.AngularDamping < 0 {
		err = multierr.Append(err, errors.New("damping cannot be negative"))
	}
	if _, lookupErr := ode.Lookup(c.Integrator); lookupErr != nil {
		err = multierr.Append(err, lookupErr)
	}
	if c.Workers < 0 {
		err = multierr.Append(err, errors.Errorf("workers cannot be negative, got %d", c.Workers))
	}
	if c.MaxSpeed < 0 {
		err = multierr.Append(err, errors.Errorf("max_speed cannot be negative, got %g", c.MaxSpeed))
	}

	return err
}

// Material returns the default material of the bodies added to the world.
func (c Config) Material() actor.Material {
	return actor.Material{
		Restitution:     c.Restitution,
		StaticFriction:  c.StaticFriction,
		DynamicFriction: c.DynamicFriction,
	}
}

// Settings returns the contact resolution settings.
func (c Config) Settings() constraint.Settings {
	return constraint.Settings{
		Baumgarte:            c.Baumgarte,
		Slop:                 c.Slop,
		RestitutionThreshold: c.RestitutionThreshold,
	}
}

// Query returns the collision query limits.
func (c Config) Query() Query {
	return Query{
		Epsilon:       c.Epsilon,
		MaxIterations: c.MaxIterations,
		EPAIterations: c.EPAIterations,
	}
}

// ConfigFromMap decodes attributes over DefaultConfig and validates the result.
// Values are weakly typed, so "0.5" and 1 decode into float fields. Gravity is a list
// of three numbers.
func ConfigFromMap(attributes map[string]interface{}) (Config, error) {
	cfg := DefaultConfig()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Config{}, errors.Wrap(err, "error creating decoder")
	}
	if err := decoder.Decode(attributes); err != nil {
		return Config{}, errors.Wrap(err, "error decoding config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}
