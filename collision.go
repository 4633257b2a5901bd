package rigid

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/akmonengine/rigid/actor"
	"github.com/akmonengine/rigid/epa"
	"github.com/akmonengine/rigid/gjk"
)

// Query holds the tolerance and iteration limits of a collision query.
// Zero iteration counts fall back to the package defaults of gjk and epa.
type Query struct {
	Epsilon       float64
	MaxIterations int
	EPAIterations int
}

// Collide returns the contact surface between a and b, or nil when they are separated
// by more than epsilon. The normal points from a toward b and the depth is negative
// when the shapes are apart but within epsilon of each other.
func Collide(a, b actor.Shape, epsilon float64) *actor.ContactSurface {
	surface, _ := Query{Epsilon: epsilon}.Collide(a, b)
	return surface
}

// Collide runs GJK on a inflated by Epsilon, then EPA for the normal and depth, and
// finally asks each shape for its contact feature against the plane separating them.
//
// A non-nil error means EPA stopped on its iteration limit. The surface built from its
// last estimate is still returned.
func (q Query) Collide(a, b actor.Shape) (*actor.ContactSurface, error) {
	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)

	if !gjk.GJK(a, b, simplex, q.Epsilon, q.MaxIterations) {
		return nil, nil
	}

	penetration, err := epa.EPA(a, b, simplex, q.Epsilon, q.EPAIterations)
	return q.surface(a, b, penetration), err
}

// surface turns an EPA result into a contact surface.
func (q Query) surface(a, b actor.Shape, penetration epa.Penetration) *actor.ContactSurface {
	normal := penetration.Normal
	depth := penetration.Depth - q.Epsilon

	deepestA := a.Support(normal).Point
	deepestB := b.Support(normal.Mul(-1)).Point
	plane := actor.NewPlane(normal, deepestA.Add(deepestB).Mul(0.5))

	surfA := a.Collision(penetration.Witness.ContactSimplexA(), plane, q.Epsilon)
	surfB := b.Collision(penetration.Witness.ContactSimplexB(), plane.Flip(), q.Epsilon)

	// Both shapes reach the plane by construction; rounding may still lose one.
	if surfA == nil {
		surfA = &actor.ContactSurface{Points: []actor.ContactPoint{{Position: deepestA}}}
	}
	if surfB == nil {
		surfB = &actor.ContactSurface{Points: []actor.ContactPoint{{Position: deepestB}}}
	}

	return epa.GenerateManifold(surfA, surfB, normal, depth, q.Epsilon)
}

// Pair is two bodies whose bounds overlap and which might be colliding.
type Pair struct {
	BodyA *actor.Body
	BodyB *actor.Body
}

// Contact is a pair of bodies and the surface they touch along.
// The surface normal points from BodyA toward BodyB.
type Contact struct {
	BodyA   *actor.Body
	BodyB   *actor.Body
	Surface *actor.ContactSurface
}

// BroadPhase returns the pairs of bodies whose bounds, grown by margin, overlap.
// Pairs of fixed bodies are skipped. Each body is checked against every later body,
// which suits the small scenes the stepper is meant for.
func BroadPhase(bodies []*actor.Body, margin float64, workersCount int) []Pair {
	bounds := gather(workersCount, bodies, func(_ int, body *actor.Body) actor.AABB {
		return body.AABB().Expand(margin)
	})

	candidates := gather(workersCount, bodies, func(i int, body *actor.Body) []Pair {
		var pairs []Pair
		for j := i + 1; j < len(bodies); j++ {
			other := bodies[j]
			if body.IsFixed() && other.IsFixed() {
				continue
			}
			if bounds[i].Overlaps(bounds[j]) {
				pairs = append(pairs, Pair{BodyA: body, BodyB: other})
			}
		}
		return pairs
	})

	var pairs []Pair
	for _, c := range candidates {
		pairs = append(pairs, c...)
	}

	return pairs
}

type indexedPair struct {
	index int
	pair  Pair
}

type collisionResult struct {
	index   int
	contact Contact
	err     error
}

// NarrowPhase runs the collision query on every pair with workersCount goroutines.
// Contacts come back in the order of the pairs. The error gathers the queries whose
// estimate did not converge; their contacts are kept.
func NarrowPhase(pairs []Pair, query Query, workersCount int) ([]Contact, error) {
	workersCount = max(DEFAULT_WORKERS, workersCount)

	pairChan := make(chan indexedPair, workersCount)
	go func() {
		defer close(pairChan)
		for i, pair := range pairs {
			pairChan <- indexedPair{index: i, pair: pair}
		}
	}()

	results := make(chan collisionResult, workersCount)
	var wg sync.WaitGroup
	for range workersCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range pairChan {
				pair := p.pair
				surface, err := query.Collide(pair.BodyA, pair.BodyB)
				if surface == nil {
					continue
				}
				if err != nil {
					err = errors.Wrapf(err, "collision between %q and %q", pair.BodyA.Name, pair.BodyB.Name)
				}
				results <- collisionResult{
					index:   p.index,
					contact: Contact{BodyA: pair.BodyA, BodyB: pair.BodyB, Surface: surface},
					err:     err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var collected []collisionResult
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].index < collected[j].index
	})

	var err error
	contacts := make([]Contact, 0, len(collected))
	for _, r := range collected {
		contacts = append(contacts, r.contact)
		err = multierr.Append(err, r.err)
	}

	return contacts, err
}
