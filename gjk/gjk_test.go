package gjk

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/rigid/actor"
)

// Test helper functions

func createBoxBody(position mgl64.Vec3, halfExtents mgl64.Vec3) *actor.Body {
	b := actor.NewBody(&actor.Box{HalfExtents: halfExtents}, 1.0)
	b.SetPosition(position)
	return b
}

func createSphereBody(position mgl64.Vec3, radius float64) *actor.Body {
	b := actor.NewBody(&actor.Sphere{Radius: radius}, 1.0)
	b.SetPosition(position)
	return b
}

func createCapsuleBody(position mgl64.Vec3, radius, halfHeight float64) *actor.Body {
	b := actor.NewBody(&actor.Capsule{Radius: radius, HalfHeight: halfHeight}, 1.0)
	b.SetPosition(position)
	return b
}

// simplexOf builds a simplex from Minkowski points, oldest first.
func simplexOf(points ...mgl64.Vec3) Simplex {
	var s Simplex
	for _, p := range points {
		s.push(Vertex{Point: p})
	}
	return s
}

// ========== MINKOWSKI SUPPORT ==========

func TestMinkowskiSupport(t *testing.T) {
	t.Run("two separated spheres along x-axis", func(t *testing.T) {
		a := createSphereBody(mgl64.Vec3{0, 0, 0}, 1.0)
		b := createSphereBody(mgl64.Vec3{3, 0, 0}, 1.0)

		// max(A.x) - min(B.x) = 1 - 2
		v := MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0}, 0)
		if v.Point.X() != -1.0 {
			t.Errorf("Expected support.X = -1, got %v", v.Point.X())
		}
		if v.A.Point != (mgl64.Vec3{1, 0, 0}) || v.B.Point != (mgl64.Vec3{2, 0, 0}) {
			t.Errorf("witnesses A=%v B=%v", v.A.Point, v.B.Point)
		}
	})

	t.Run("margin inflates A only", func(t *testing.T) {
		a := createSphereBody(mgl64.Vec3{0, 0, 0}, 1.0)
		b := createSphereBody(mgl64.Vec3{3, 0, 0}, 1.0)

		v := MinkowskiSupport(a, b, mgl64.Vec3{2, 0, 0}, 0.25)
		if math.Abs(v.Point.X()-(-0.75)) > 1e-12 {
			t.Errorf("Expected support.X = -0.75, got %v", v.Point.X())
		}
		if v.A.Point != (mgl64.Vec3{1, 0, 0}) {
			t.Errorf("the witness of A must stay on the real surface, got %v", v.A.Point)
		}
	})

	t.Run("box witness carries the corner feature", func(t *testing.T) {
		a := createBoxBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
		b := createSphereBody(mgl64.Vec3{5, 0, 0}, 1.0)

		v := MinkowskiSupport(a, b, mgl64.Vec3{1, 1, 1}, 0)
		if v.A.Feature != 7 || v.B.Feature != actor.NoFeature {
			t.Errorf("features A=%d B=%d", v.A.Feature, v.B.Feature)
		}
	})

	t.Run("zero direction", func(t *testing.T) {
		a := createSphereBody(mgl64.Vec3{0, 0, 0}, 1.0)
		b := createSphereBody(mgl64.Vec3{0, 0, 0}, 1.0)

		v := MinkowskiSupport(a, b, mgl64.Vec3{}, 0.1)
		if math.IsNaN(v.Point.X()) || math.IsNaN(v.Point.Y()) {
			t.Errorf("zero direction produced %v", v.Point)
		}
	})
}

// ========== GJK ==========

func TestGJK(t *testing.T) {
	tilted := createBoxBody(mgl64.Vec3{2.3, 0, 0}, mgl64.Vec3{1, 1, 1})
	tilted.SetOrientation(mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1}))

	tests := []struct {
		name     string
		a, b     actor.Shape
		margin   float64
		expected bool
	}{
		{"overlapping spheres", createSphereBody(mgl64.Vec3{}, 1), createSphereBody(mgl64.Vec3{1.5, 0, 0}, 1), 0, true},
		{"concentric spheres", createSphereBody(mgl64.Vec3{}, 1), createSphereBody(mgl64.Vec3{}, 1), 0, true},
		{"far apart spheres", createSphereBody(mgl64.Vec3{}, 1), createSphereBody(mgl64.Vec3{10, 0, 0}, 1), 0, false},
		{"diagonal spheres", createSphereBody(mgl64.Vec3{}, 1), createSphereBody(mgl64.Vec3{1.5, 1.5, 1.5}, 1), 0, false},
		{"stacked boxes", createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}), createBoxBody(mgl64.Vec3{0, 1.9, 0}, mgl64.Vec3{1, 1, 1}), 0, true},
		{"separated boxes", createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}), createBoxBody(mgl64.Vec3{0, 2.1, 0}, mgl64.Vec3{1, 1, 1}), 0, false},
		{"gap inside margin", createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}), createBoxBody(mgl64.Vec3{0, 2.05, 0}, mgl64.Vec3{1, 1, 1}), 0.1, true},
		{"gap beyond margin", createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}), createBoxBody(mgl64.Vec3{0, 2.2, 0}, mgl64.Vec3{1, 1, 1}), 0.1, false},
		{"tilted box corner in", createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}), tilted, 0, true},
		{"sphere on box face", createBoxBody(mgl64.Vec3{}, mgl64.Vec3{2, 0.5, 2}), createSphereBody(mgl64.Vec3{0.3, 1.4, -0.2}, 1), 0, true},
		{"sphere near box corner", createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}), createSphereBody(mgl64.Vec3{1.6, 1.6, 1.6}, 1), 0, false},
		{"capsule standing on box", createBoxBody(mgl64.Vec3{}, mgl64.Vec3{3, 0.5, 3}), createCapsuleBody(mgl64.Vec3{0, 0.95, 0}, 0.5, 1), 0, true},
		{"capsule above box", createBoxBody(mgl64.Vec3{}, mgl64.Vec3{3, 0.5, 3}), createCapsuleBody(mgl64.Vec3{0, 2.6, 0}, 0.5, 1), 0, false},
		{"plain shapes at the origin", &actor.Sphere{Radius: 1}, &actor.Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			simplex := &Simplex{}
			if got := GJK(tt.a, tt.b, simplex, tt.margin, DefaultMaxIterations); got != tt.expected {
				t.Errorf("GJK() = %v, want %v", got, tt.expected)
			}
			if simplex.Count < 1 || simplex.Count > 4 {
				t.Errorf("simplex count %d out of range", simplex.Count)
			}
		})
	}
}

func TestGJK_ReusesSimplex(t *testing.T) {
	simplex := SimplexPool.Get().(*Simplex)
	defer SimplexPool.Put(simplex)

	a := createSphereBody(mgl64.Vec3{}, 1)
	if !GJK(a, createSphereBody(mgl64.Vec3{1, 0, 0}, 1), simplex, 0, 0) {
		t.Fatal("expected overlap")
	}
	if GJK(a, createSphereBody(mgl64.Vec3{5, 0, 0}, 1), simplex, 0, 0) {
		t.Fatal("a stale simplex must not leak into the next query")
	}
}

func TestGJK_WitnessesLieOnShapes(t *testing.T) {
	a := createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	b := createSphereBody(mgl64.Vec3{0, 1.8, 0}, 1)
	simplex := &Simplex{}

	if !GJK(a, b, simplex, 1e-3, DefaultMaxIterations) {
		t.Fatal("expected overlap")
	}

	sa, sb := simplex.ContactSimplexA(), simplex.ContactSimplexB()
	if sa.Count != simplex.Count || sb.Count != simplex.Count {
		t.Fatalf("contact simplex sizes %d/%d, want %d", sa.Count, sb.Count, simplex.Count)
	}
	for i := 0; i < simplex.Count; i++ {
		pa, pb := sa.Points[i].Point, sb.Points[i].Point
		if !a.IsInside(pa.Mul(0.999999)) {
			t.Errorf("A witness %v is not on the box", pa)
		}
		if math.Abs(pb.Sub(b.Position()).Len()-1) > 1e-9 {
			t.Errorf("B witness %v is not on the sphere", pb)
		}
		// point = a + margin·d̂ - b, so the difference of witnesses is within the margin
		if diff := simplex.Point(i).Sub(pa.Sub(pb)).Len(); math.Abs(diff-1e-3) > 1e-12 {
			t.Errorf("vertex %d is %v away from its witnesses", i, diff)
		}
	}
}

// ========== SIMPLEX CASES ==========

func TestLine(t *testing.T) {
	t.Run("origin beside the segment", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{-1, 1, 0}, mgl64.Vec3{1, 1, 0})
		direction := mgl64.Vec3{0, 1, 0}

		if line(&simplex, &direction) {
			t.Error("a segment away from the origin cannot contain it")
		}
		if simplex.Count != 2 {
			t.Errorf("Expected simplex length 2, got %d", simplex.Count)
		}
		if direction.Dot(mgl64.Vec3{0, -1, 0}) <= 0 {
			t.Errorf("direction %v should point toward the origin", direction)
		}
	})

	t.Run("origin in the middle of the segment", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{1, 0, 0})
		direction := mgl64.Vec3{0, 1, 0}

		if !line(&simplex, &direction) {
			t.Error("Expected collision when the origin is on the segment")
		}
	})

	t.Run("origin behind point A", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{3, 0, 0}, mgl64.Vec3{1, 0, 0})
		direction := mgl64.Vec3{-1, 0, 0}

		if line(&simplex, &direction) {
			t.Error("Line should not contain origin")
		}
		if simplex.Count != 1 || simplex.Point(0) != (mgl64.Vec3{1, 0, 0}) {
			t.Errorf("Expected simplex reduced to A, got %+v", simplex)
		}
		if direction != (mgl64.Vec3{-1, 0, 0}) {
			t.Errorf("Expected direction (-1,0,0), got %v", direction)
		}
	})

	t.Run("coincident points", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{2, 0, 0})
		direction := mgl64.Vec3{}

		if line(&simplex, &direction) {
			t.Error("coincident points away from the origin")
		}
		if simplex.Count != 1 {
			t.Errorf("Expected 1 point, got %d", simplex.Count)
		}
	})
}

func TestTriangle(t *testing.T) {
	t.Run("origin above triangle", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{1, -1, -1}, mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{0, -1, 1})
		direction := mgl64.Vec3{}

		if triangle(&simplex, &direction) {
			t.Error("a triangle never contains the origin")
		}
		if simplex.Count != 3 {
			t.Fatalf("Expected the face to be kept, got %d points", simplex.Count)
		}
		if direction.Y() <= 0 {
			t.Errorf("direction %v should point up toward the origin", direction)
		}
	})

	t.Run("origin beyond edge AB", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{3, 1, 0}, mgl64.Vec3{1, -1, 0}, mgl64.Vec3{1, 1, 0})
		direction := mgl64.Vec3{}

		triangle(&simplex, &direction)
		if simplex.Count != 2 {
			t.Fatalf("Expected reduction to edge AB, got %d points", simplex.Count)
		}
		if simplex.Point(1) != (mgl64.Vec3{1, 1, 0}) || simplex.Point(0) != (mgl64.Vec3{1, -1, 0}) {
			t.Errorf("kept the wrong edge: %v %v", simplex.Point(0), simplex.Point(1))
		}
	})

	t.Run("collinear points", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{3, 1, 0}, mgl64.Vec3{2, 1, 0}, mgl64.Vec3{1, 1, 0})
		direction := mgl64.Vec3{}

		triangle(&simplex, &direction)
		if simplex.Count > 2 {
			t.Errorf("a flat triangle must degrade to a line, got %d points", simplex.Count)
		}
	})
}

func TestTetrahedron(t *testing.T) {
	t.Run("origin inside", func(t *testing.T) {
		simplex := simplexOf(
			mgl64.Vec3{1, -1, -1},
			mgl64.Vec3{-1, -1, -1},
			mgl64.Vec3{0, -1, 1},
			mgl64.Vec3{0, 1, 0},
		)
		direction := mgl64.Vec3{}

		if !tetrahedron(&simplex, &direction) {
			t.Error("Expected the origin to be enclosed")
		}
		if simplex.Count != 4 {
			t.Errorf("the enclosing tetrahedron must be kept, got %d", simplex.Count)
		}
	})

	t.Run("origin beside a side face", func(t *testing.T) {
		simplex := simplexOf(
			mgl64.Vec3{4, -1, -1},
			mgl64.Vec3{2, -1, -1},
			mgl64.Vec3{3, -1, 1},
			mgl64.Vec3{3, 1, 0},
		)
		direction := mgl64.Vec3{}

		if tetrahedron(&simplex, &direction) {
			t.Error("the origin is outside the tetrahedron")
		}
		if simplex.Count > 3 {
			t.Errorf("Expected a reduced simplex, got %d points", simplex.Count)
		}
		if direction.Dot(mgl64.Vec3{-3, -1, 0}) <= 0 {
			t.Errorf("direction %v should point toward the origin", direction)
		}
	})
}

func BenchmarkGJK_Spheres(b *testing.B) {
	a := createSphereBody(mgl64.Vec3{}, 1)
	c := createSphereBody(mgl64.Vec3{1.5, 0, 0}, 1)
	simplex := &Simplex{}

	for i := 0; i < b.N; i++ {
		GJK(a, c, simplex, 1e-3, DefaultMaxIterations)
	}
}

func BenchmarkGJK_Boxes(b *testing.B) {
	a := createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	c := createBoxBody(mgl64.Vec3{1.5, 0.5, 0}, mgl64.Vec3{1, 1, 1})
	simplex := &Simplex{}

	for i := 0; i < b.N; i++ {
		GJK(a, c, simplex, 1e-3, DefaultMaxIterations)
	}
}
