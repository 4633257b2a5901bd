// Package rigid is a reference stepper around the rigid body core: it integrates the
// bodies' momentum state with an explicit ODE solver, finds contacts with the GJK/EPA
// query and resolves them with impulses.
package rigid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/akmonengine/rigid/actor"
	"github.com/akmonengine/rigid/constraint"
	"github.com/akmonengine/rigid/ode"
)

type World struct {
	// List of all rigid bodies in the world
	Bodies []*actor.Body
	Events Events

	config     Config
	logger     *zap.SugaredLogger
	integrator ode.Integrator
	// fields apply to every body, after the body's own fields
	fields []actor.ForceField

	time  float64
	state ode.VectorN
	// applied holds, per body, the forces added with Body.ApplyForce before the step
	applied []wrench
}

type wrench struct {
	force  mgl64.Vec3
	torque mgl64.Vec3
}

// NewWorld validates cfg and builds an empty world. A nil logger discards all logs.
func NewWorld(cfg Config, logger *zap.SugaredLogger) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid world config")
	}
	integrator, err := ode.Lookup(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	w := &World{
		Events:     NewEvents(),
		config:     cfg,
		logger:     logger,
		integrator: integrator,
	}

	if cfg.Gravity != (mgl64.Vec3{}) {
		w.fields = append(w.fields, actor.Gravity{Acceleration: cfg.Gravity})
	}
	if cfg.LinearDamping > 0 || cfg.AngularDamping > 0 {
		w.fields = append(w.fields, actor.Damping{Linear: cfg.LinearDamping, Angular: cfg.AngularDamping})
	}

	return w, nil
}

func (w *World) Config() Config { return w.config }

// Time returns the simulated time.
func (w *World) Time() float64 { return w.time }

// AddBody adds a rigid body to the world
func (w *World) AddBody(body *actor.Body) {
	w.Bodies = append(w.Bodies, body)
}

// NewBody creates a body with the world's default material and adds it to the world.
func (w *World) NewBody(shape actor.Shape, inverseDensity float64, position mgl64.Vec3) *actor.Body {
	body := actor.NewBody(shape, inverseDensity)
	body.Material = w.config.Material()
	body.SetPosition(position)
	w.AddBody(body)

	return body
}

// RemoveBody removes a rigid body from the world
func (w *World) RemoveBody(body *actor.Body) {
	k := -1
	for i, b := range w.Bodies {
		if b == body {
			k = i
			break
		}
	}

	if k != -1 {
		w.Bodies = append(w.Bodies[:k], w.Bodies[k+1:]...)
	}

	w.Events.forget(body)
}

// Step advances the world by dt, split into Config.Substeps substeps, then sends the
// collision events of the step.
// Forces added with Body.ApplyForce since the previous step act during every substep,
// then the accumulators are cleared.
func (w *World) Step(dt float64) {
	h := dt / float64(w.config.Substeps)
	w.applied = lo.Map(w.Bodies, func(body *actor.Body, _ int) wrench {
		return wrench{force: body.Force(), torque: body.Torque()}
	})

	for range w.config.Substeps {
		// Phase 1: integrate momenta and positions
		w.integrate(h)

		// Phase 2: collision detection
		contacts := w.detectCollisions()

		// Phase 3: contact resolution
		w.resolve(h, contacts)

		w.Events.recordContacts(contacts)
		w.time += h
	}

	for _, body := range w.Bodies {
		body.ClearForces()
	}

	w.checkSpeeds()
	w.Events.flush()
}

func (w *World) integrate(h float64) {
	w.state = w.state[:0]
	for _, body := range w.Bodies {
		w.state = body.Marshal(w.state)
	}

	next := w.integrator.Step(w.time, h, w.state, w.derivative)
	w.unmarshal(next)
}

// derivative is the ode.DerivativeFunc of the whole world. Evaluating it moves the
// bodies to the state y.
func (w *World) derivative(t float64, y, dst ode.VectorN) ode.VectorN {
	w.unmarshal(y)

	task(w.config.Workers, lo.Range(len(w.Bodies)), func(i int) {
		body := w.Bodies[i]
		body.SetExternalForces(t)
		for _, field := range w.fields {
			body.AccumulateField(field, t)
		}
		body.AccumulateField(w.applied[i], t)
	})

	dst = dst[:0]
	for _, body := range w.Bodies {
		dst = body.MarshalDerivative(dst)
	}

	return dst
}

// Apply returns the force and torque the body accumulated before the step.
func (a wrench) Apply(*actor.Body, float64) (mgl64.Vec3, mgl64.Vec3) {
	return a.force, a.torque
}

func (w *World) unmarshal(y ode.VectorN) {
	offset := 0
	for _, body := range w.Bodies {
		offset = body.Unmarshal(y, offset)
	}
}

func (w *World) detectCollisions() []Contact {
	pairs := BroadPhase(w.Bodies, w.config.Epsilon, w.config.Workers)
	contacts, err := NarrowPhase(pairs, w.config.Query(), w.config.Workers)
	if err != nil {
		w.logger.Debugw("inexact contacts", "time", w.time, "error", err)
	}
	w.logger.Debugw("collision detection", "time", w.time, "pairs", len(pairs), "contacts", len(contacts))

	return contacts
}

// resolve runs the sequential impulse solver. Constraints share bodies, so they are
// solved one after the other.
func (w *World) resolve(h float64, contacts []Contact) {
	settings := w.config.Settings()
	constraints := lo.Map(contacts, func(c Contact, _ int) *constraint.ContactConstraint {
		return constraint.NewContactConstraint(c.BodyA, c.BodyB, c.Surface, settings)
	})

	for _, c := range constraints {
		c.Prepare(h)
	}
	for range w.config.SolverIterations {
		for _, c := range constraints {
			c.SolveVelocity(h)
		}
	}
}

// checkSpeeds warns about bodies moving faster than Config.MaxSpeed, which usually
// means the time step is too large for the scene.
func (w *World) checkSpeeds() {
	if w.config.MaxSpeed <= 0 {
		return
	}

	runaway := lo.Filter(w.Bodies, func(body *actor.Body, _ int) bool {
		return body.Velocity().Len() > w.config.MaxSpeed
	})
	for _, body := range runaway {
		w.logger.Warnw("body exceeds max speed", "body", body.Name, "speed", body.Velocity().Len(), "max_speed", w.config.MaxSpeed)
	}
}

// DynamicBodies returns the bodies that are not fixed.
func (w *World) DynamicBodies() []*actor.Body {
	return lo.Filter(w.Bodies, func(body *actor.Body, _ int) bool {
		return !body.IsFixed()
	})
}

// KineticEnergy returns the total kinetic energy of the bodies.
func (w *World) KineticEnergy() float64 {
	return lo.SumBy(w.Bodies, (*actor.Body).KineticEnergy)
}

// Raycast returns the body the ray hits first and where. Hits behind the origin are
// ignored.
func (w *World) Raycast(ray actor.Ray) (*actor.Body, actor.IntersectionPoint, bool) {
	var hitBody *actor.Body
	var hit actor.IntersectionPoint
	closest := math.Inf(1)

	for _, body := range w.Bodies {
		point, ok := body.IntersectPoint(ray)
		if !ok || point.T < 0 || point.T >= closest {
			continue
		}
		closest = point.T
		hitBody, hit = body, point
	}

	return hitBody, hit, hitBody != nil
}

// Dump logs the state of every body at debug level.
func (w *World) Dump() {
	for _, body := range w.Bodies {
		w.logger.Debugw("body", "time", w.time, "state", body)
	}
}
