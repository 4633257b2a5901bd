package epa

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/akmonengine/rigid/gjk"
)

// Polytope is the convex hull grown by EPA inside the Minkowski difference.
type Polytope struct {
	vertices []gjk.Vertex
	faces    []Face

	// interior is strictly inside the hull; face normals are oriented away from it.
	interior mgl64.Vec3

	// scratch buffers reused between expansions
	horizon []edge
	visible []bool
}

// polytopePool is the single sync.Pool for Polytope instances.
var polytopePool = sync.Pool{
	New: func() interface{} {
		return &Polytope{
			vertices: make([]gjk.Vertex, 0, polytopeInitialCapacity),
			faces:    make([]Face, 0, polytopeInitialCapacity),
			horizon:  make([]edge, 0, polytopeInitialCapacity),
			visible:  make([]bool, 0, polytopeInitialCapacity),
		}
	},
}

// Reset prepares the polytope for reuse.
func (p *Polytope) Reset() {
	p.vertices = p.vertices[:0]
	p.faces = p.faces[:0]
	p.horizon = p.horizon[:0]
	p.visible = p.visible[:0]
	p.interior = mgl64.Vec3{}
}

// Vertex returns the polytope vertex i.
func (p *Polytope) Vertex(i int) gjk.Vertex {
	return p.vertices[i]
}

// Faces returns the current faces. The slice is only valid until the next expansion.
func (p *Polytope) Faces() []Face {
	return p.faces
}

// Init builds the tetrahedron from a full simplex.
func (p *Polytope) Init(simplex *gjk.Simplex) error {
	if simplex.Count != 4 {
		return errors.Errorf("invalid simplex count: %d (expected 4)", simplex.Count)
	}

	p.Reset()
	for i := 0; i < 4; i++ {
		p.vertices = append(p.vertices, simplex.Vertices[i])
		p.interior = p.interior.Add(simplex.Point(i))
	}
	p.interior = p.interior.Mul(0.25)

	a, b, c, d := simplex.Point(0), simplex.Point(1), simplex.Point(2), simplex.Point(3)
	if volume := math.Abs(b.Sub(a).Cross(c.Sub(a)).Dot(d.Sub(a))); volume < minTetrahedronVolume {
		return errors.Errorf("flat simplex (volume %g)", volume)
	}

	p.faces = append(p.faces,
		p.newFace(0, 1, 2),
		p.newFace(0, 2, 3),
		p.newFace(0, 3, 1),
		p.newFace(1, 3, 2),
	)

	return nil
}

// newFace builds the triangle (i, j, k), swapping its winding if needed so the normal
// points away from the interior point.
func (p *Polytope) newFace(i, j, k int) Face {
	a, b, c := p.vertices[i].Point, p.vertices[j].Point, p.vertices[k].Point

	normal := b.Sub(a).Cross(c.Sub(a))
	if normal.Dot(a.Sub(p.interior)) < 0 {
		j, k = k, j
		normal = normal.Mul(-1)
	}

	face := Face{Indices: [3]int{i, j, k}}

	length := normal.Len()
	if length < minFaceArea {
		// Sliver: keep it for connectivity but never select it.
		face.Normal = a.Add(b).Add(c).Mul(1.0 / 3).Sub(p.interior)
		if face.Normal.LenSqr() < 1e-18 {
			face.Normal = mgl64.Vec3{0, 1, 0}
		}
		face.Normal = face.Normal.Normalize()
		face.Distance = math.Inf(1)
		return face
	}

	face.Normal = snapNormalToAxis(normal.Mul(1.0 / length))
	face.Distance = a.Dot(face.Normal)

	return face
}

// ClosestFace returns the index of the face closest to the origin, or -1 when every
// face is degenerate.
func (p *Polytope) ClosestFace() int {
	closest := -1
	minDistance := math.Inf(1)

	for i := range p.faces {
		if p.faces[i].degenerate() {
			continue
		}
		if p.faces[i].Distance < minDistance {
			closest = i
			minDistance = p.faces[i].Distance
		}
	}

	return closest
}

// Expand adds v to the hull: every face that sees v is removed and the horizon left
// behind is stitched to v. It returns false, leaving the polytope unchanged, when v is
// not beyond any face.
func (p *Polytope) Expand(v gjk.Vertex) bool {
	p.visible = p.visible[:0]
	anyVisible := false
	for i := range p.faces {
		face := &p.faces[i]
		seen := face.Normal.Dot(v.Point.Sub(p.vertices[face.Indices[0]].Point)) > visibilityTolerance
		p.visible = append(p.visible, seen)
		anyVisible = anyVisible || seen
	}
	if !anyVisible {
		return false
	}

	// Edges shared by two visible faces appear once in each direction and cancel out.
	p.horizon = p.horizon[:0]
	for i := range p.faces {
		if !p.visible[i] {
			continue
		}
		for _, e := range p.faces[i].edges() {
			if j := p.findEdge(edge{e.b, e.a}); j >= 0 {
				p.horizon[j] = p.horizon[len(p.horizon)-1]
				p.horizon = p.horizon[:len(p.horizon)-1]
				continue
			}
			p.horizon = append(p.horizon, e)
		}
	}

	kept := p.faces[:0]
	for i, face := range p.faces {
		if !p.visible[i] {
			kept = append(kept, face)
		}
	}
	p.faces = kept

	p.vertices = append(p.vertices, v)
	index := len(p.vertices) - 1
	for _, e := range p.horizon {
		p.faces = append(p.faces, p.newFace(e.a, e.b, index))
	}

	return true
}

func (p *Polytope) findEdge(e edge) int {
	for i := range p.horizon {
		if p.horizon[i] == e {
			return i
		}
	}
	return -1
}

// penetration packages the face at index as an EPA result.
func (p *Polytope) penetration(index int) Penetration {
	face := &p.faces[index]

	result := Penetration{
		Normal: face.Normal,
		Depth:  math.Max(face.Distance, 0),
	}
	for i, vi := range face.Indices {
		result.Witness.Vertices[i] = p.vertices[vi]
	}
	result.Witness.Count = 3

	return result
}
