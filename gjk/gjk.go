// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) algorithm for collision detection.
//
// GJK decides whether two convex shapes overlap by testing if their Minkowski difference
// contains the origin. Shapes only need to answer support queries. The simplex is grown
// one support point at a time and reduced to the feature closest to the origin, which
// typically converges in 3-6 iterations.
//
// The first shape may be inflated by a margin: two shapes closer than the margin are then
// reported as overlapping, which lets callers treat near contacts as contacts.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/rigid/actor"
)

// DefaultMaxIterations bounds the simplex refinement loop.
const DefaultMaxIterations = 32

const degenerateLenSqr = 1e-16

// Vertex is a point of the Minkowski difference together with the support points of
// each shape that produced it.
type Vertex struct {
	Point mgl64.Vec3
	A     actor.SupportPoint
	B     actor.SupportPoint
}

// Simplex represents a set of 1-4 vertices in the Minkowski difference space.
// Size progression: 1 point → 2 points (line) → 3 points (triangle) → 4 points (tetrahedron)
type Simplex struct {
	Vertices [4]Vertex
	Count    int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

// Point returns the Minkowski point of vertex i.
func (s *Simplex) Point(i int) mgl64.Vec3 {
	return s.Vertices[i].Point
}

// ContactSimplexA returns the support points the first shape contributed.
func (s *Simplex) ContactSimplexA() *actor.ContactSimplex {
	cs := &actor.ContactSimplex{}
	for i := 0; i < s.Count; i++ {
		cs.Add(s.Vertices[i].A)
	}
	return cs
}

// ContactSimplexB returns the support points the second shape contributed.
func (s *Simplex) ContactSimplexB() *actor.ContactSimplex {
	cs := &actor.ContactSimplex{}
	for i := 0; i < s.Count; i++ {
		cs.Add(s.Vertices[i].B)
	}
	return cs
}

func (s *Simplex) push(v Vertex) {
	s.Vertices[s.Count] = v
	s.Count++
}

// set replaces the simplex content, oldest vertex first.
func (s *Simplex) set(vertices ...Vertex) {
	s.Count = copy(s.Vertices[:], vertices)
}

var SimplexPool = sync.Pool{
	New: func() interface{} {
		return &Simplex{}
	},
}

// MinkowskiSupport computes a support vertex of (A + margin) - B.
//
// A is inflated by a sphere of radius margin: its support point moves by margin along
// the normalized direction. The vertex keeps the support points of the un-inflated
// shapes so contact features can be recovered from the simplex.
func MinkowskiSupport(a, b actor.Shape, direction mgl64.Vec3, margin float64) Vertex {
	if direction.LenSqr() < degenerateLenSqr {
		direction = mgl64.Vec3{0, 1, 0}
	}

	supportA := a.Support(direction)
	supportB := b.Support(direction.Mul(-1))

	point := supportA.Point.Sub(supportB.Point)
	if margin != 0 {
		point = point.Add(direction.Normalize().Mul(margin))
	}

	return Vertex{Point: point, A: supportA, B: supportB}
}

// initialDirection points from A toward B when both shapes know their position.
func initialDirection(a, b actor.Shape) mgl64.Vec3 {
	pa, okA := a.(actor.Transformable)
	pb, okB := b.(actor.Transformable)
	if okA && okB {
		if direction := pb.Position().Sub(pa.Position()); direction.LenSqr() >= 1e-8 {
			return direction
		}
	}

	return mgl64.Vec3{1, 0, 0}
}

// GJK tests whether (A + margin) and B overlap.
//
// On overlap the simplex usually holds a tetrahedron enclosing the origin, ready to seed
// EPA. Fewer vertices are left when the origin lies exactly on a lower dimensional
// feature, which means the inflated shapes are touching.
// A new support point that does not pass the origin proves separation. Running out of
// iterations is also reported as separation.
func GJK(a, b actor.Shape, simplex *Simplex, margin float64, maxIterations int) bool {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	simplex.Reset()
	simplex.push(MinkowskiSupport(a, b, initialDirection(a, b), margin))

	direction := simplex.Point(0).Mul(-1)
	if direction.LenSqr() < degenerateLenSqr {
		return true
	}

	for i := 0; i < maxIterations; i++ {
		vertex := MinkowskiSupport(a, b, direction, margin)
		if vertex.Point.Dot(direction) <= 0 {
			return false
		}

		simplex.push(vertex)
		if containsOrigin(simplex, &direction) {
			return true
		}
	}

	return false
}

// containsOrigin reduces the simplex to the feature closest to the origin and updates the
// search direction. Only a tetrahedron can enclose the origin, apart from the degenerate
// cases where the origin lies on the simplex itself.
func containsOrigin(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}
	return false
}

// line handles the segment case. A is the newest vertex.
func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	va, vb := simplex.Vertices[1], simplex.Vertices[0]
	a, b := va.Point, vb.Point
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if ab.LenSqr() < 1e-8 {
		if ao.LenSqr() < 1e-8 {
			return true
		}
		simplex.set(va)
		*direction = ao
		return false
	}

	// Behind A: B is useless
	if ab.Dot(ao) <= 0 {
		simplex.set(va)
		*direction = ao
		return false
	}

	perp := ab.Cross(ao).Cross(ab)
	if perp.LenSqr() < 1e-8 {
		// the origin lies on the segment
		return true
	}

	*direction = perp
	return false
}

// triangle handles the triangle case. A is the newest vertex.
func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	va, vb, vc := simplex.Vertices[2], simplex.Vertices[1], simplex.Vertices[0]
	a, b, c := va.Point, vb.Point, vc.Point

	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)
	abc := ab.Cross(ac)

	// Collinear vertices: drop the oldest one
	if abc.LenSqr() < 1e-10 {
		simplex.set(vb, va)
		return line(simplex, direction)
	}

	if ab.Cross(abc).Dot(ao) > 0 {
		simplex.set(vb, va)
		*direction = ab.Cross(ao).Cross(ab)
		return false
	}

	if abc.Cross(ac).Dot(ao) > 0 {
		simplex.set(vc, va)
		*direction = ac.Cross(ao).Cross(ac)
		return false
	}

	if abc.Dot(ao) > 0 {
		*direction = abc
	} else {
		// keep the winding so that the normal faces the origin
		simplex.set(va, vc, vb)
		*direction = abc.Mul(-1)
	}

	return false
}

// tetrahedron handles the tetrahedron case. A is the newest vertex; each face normal is
// oriented away from the vertex opposite to it.
func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	va, vb, vc, vd := simplex.Vertices[3], simplex.Vertices[2], simplex.Vertices[1], simplex.Vertices[0]
	a, b, c, d := va.Point, vb.Point, vc.Point, vd.Point

	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	outward := func(n, towardOpposite mgl64.Vec3) mgl64.Vec3 {
		if n.Dot(towardOpposite) > 0 {
			return n.Mul(-1)
		}
		return n
	}
	abc := outward(ab.Cross(ac), ad)
	acd := outward(ac.Cross(ad), ab)
	adb := outward(ad.Cross(ab), ac)

	// Flat tetrahedron: fall back to its newest face
	if abc.LenSqr() < 1e-10 || acd.LenSqr() < 1e-10 || adb.LenSqr() < 1e-10 {
		simplex.set(vc, vb, va)
		return triangle(simplex, direction)
	}

	switch {
	case abc.Dot(ao) > 0:
		simplex.set(vc, vb, va)
	case acd.Dot(ao) > 0:
		simplex.set(vd, vc, va)
	case adb.Dot(ao) > 0:
		simplex.set(vb, vd, va)
	default:
		return true
	}

	return triangle(simplex, direction)
}
