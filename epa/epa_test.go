package epa

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/rigid/actor"
	"github.com/akmonengine/rigid/gjk"
)

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

// runEPA runs GJK then EPA, failing the test when GJK finds no overlap.
func runEPA(t testing.TB, a, b actor.Shape, margin float64) (Penetration, error) {
	t.Helper()

	simplex := &gjk.Simplex{}
	if !gjk.GJK(a, b, simplex, margin, gjk.DefaultMaxIterations) {
		t.Fatalf("GJK found no overlap")
	}
	return EPA(a, b, simplex, margin, DefaultMaxIterations)
}

// ========== EPA ==========

func TestEPA(t *testing.T) {
	tilted := createBoxBody(mgl64.Vec3{2.3, 0, 0}, mgl64.Vec3{1, 1, 1})
	tilted.SetOrientation(mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1}))

	tests := []struct {
		name           string
		a, b           actor.Shape
		margin         float64
		expectedNormal mgl64.Vec3
		expectedDepth  float64
		normalTol      float64
		depthTol       float64
		exact          bool // polyhedral pairs converge without error
	}{
		{
			name:           "stacked boxes",
			a:              createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}),
			b:              createBoxBody(mgl64.Vec3{0, 1.8, 0}, mgl64.Vec3{1, 1, 1}),
			expectedNormal: mgl64.Vec3{0, 1, 0},
			expectedDepth:  0.2,
			normalTol:      1e-9,
			depthTol:       1e-9,
			exact:          true,
		},
		{
			name:           "offset stacked boxes",
			a:              createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}),
			b:              createBoxBody(mgl64.Vec3{0.3, 1.8, -0.2}, mgl64.Vec3{1, 1, 1}),
			expectedNormal: mgl64.Vec3{0, 1, 0},
			expectedDepth:  0.2,
			normalTol:      1e-9,
			depthTol:       1e-9,
			exact:          true,
		},
		{
			name:           "boxes side by side, B on the left",
			a:              createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}),
			b:              createBoxBody(mgl64.Vec3{-1.7, 0.1, 0}, mgl64.Vec3{1, 1, 1}),
			expectedNormal: mgl64.Vec3{-1, 0, 0},
			expectedDepth:  0.3,
			normalTol:      1e-9,
			depthTol:       1e-9,
			exact:          true,
		},
		{
			name:           "tilted box edge in a face",
			a:              createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}),
			b:              tilted,
			expectedNormal: mgl64.Vec3{1, 0, 0},
			expectedDepth:  math.Sqrt2 - 1.3,
			normalTol:      1e-6,
			depthTol:       1e-6,
			exact:          true,
		},
		{
			name:           "margin adds to the depth",
			a:              createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}),
			b:              createBoxBody(mgl64.Vec3{0, 1.8, 0}, mgl64.Vec3{1, 1, 1}),
			margin:         1e-3,
			expectedNormal: mgl64.Vec3{0, 1, 0},
			expectedDepth:  0.201,
			normalTol:      1e-2,
			depthTol:       2e-4,
		},
		{
			name:           "overlapping spheres",
			a:              createSphereBody(mgl64.Vec3{}, 1),
			b:              createSphereBody(mgl64.Vec3{1.5, 0, 0}, 1),
			expectedNormal: mgl64.Vec3{1, 0, 0},
			expectedDepth:  0.5,
			normalTol:      2e-2,
			depthTol:       1e-3,
		},
		{
			name:           "sphere resting in a box face",
			a:              createBoxBody(mgl64.Vec3{}, mgl64.Vec3{2, 0.5, 2}),
			b:              createSphereBody(mgl64.Vec3{0.3, 1.4, -0.2}, 1),
			expectedNormal: mgl64.Vec3{0, 1, 0},
			expectedDepth:  0.1,
			normalTol:      2e-2,
			depthTol:       1e-3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := runEPA(t, tt.a, tt.b, tt.margin)
			if tt.exact && err != nil {
				t.Fatalf("EPA() error = %v", err)
			}

			if !isNormalized(result.Normal, 1e-9) {
				t.Errorf("normal not normalized: %v", result.Normal)
			}
			if !vec3ApproxEqual(result.Normal, tt.expectedNormal, tt.normalTol) {
				t.Errorf("Normal = %v, want %v", result.Normal, tt.expectedNormal)
			}
			if math.Abs(result.Depth-tt.expectedDepth) > tt.depthTol {
				t.Errorf("Depth = %v, want %v", result.Depth, tt.expectedDepth)
			}
			if result.Witness.Count != 3 {
				t.Errorf("Witness.Count = %d, want 3", result.Witness.Count)
			}
		})
	}
}

func TestEPA_WitnessOnShapes(t *testing.T) {
	a := createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	b := createBoxBody(mgl64.Vec3{0.3, 1.8, -0.2}, mgl64.Vec3{1, 1, 1})

	result, err := runEPA(t, a, b, 0)
	if err != nil {
		t.Fatal(err)
	}

	// The closest face lies on top of A and under B.
	witnessA := result.Witness.ContactSimplexA()
	witnessB := result.Witness.ContactSimplexB()
	for i := 0; i < witnessA.Count; i++ {
		if y := witnessA.Points[i].Point.Y(); math.Abs(y-1) > 1e-9 {
			t.Errorf("A witness %d at y = %v, want 1", i, y)
		}
		if y := witnessB.Points[i].Point.Y(); math.Abs(y-0.8) > 1e-9 {
			t.Errorf("B witness %d at y = %v, want 0.8", i, y)
		}
	}
}

func TestEPA_DegenerateSimplex(t *testing.T) {
	t.Run("segment through the origin", func(t *testing.T) {
		a := createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
		b := createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})

		simplex := &gjk.Simplex{}
		simplex.Vertices[0] = gjk.MinkowskiSupport(a, b, mgl64.Vec3{0, 1, 0}, 0)
		simplex.Vertices[1] = gjk.MinkowskiSupport(a, b, mgl64.Vec3{0, -1, 0}, 0)
		simplex.Count = 2

		result, err := EPA(a, b, simplex, 0, DefaultMaxIterations)
		if err != nil {
			t.Fatalf("EPA() error = %v", err)
		}
		if math.Abs(result.Depth-2) > 1e-9 {
			t.Errorf("Depth = %v, want 2", result.Depth)
		}
		n := result.Normal
		if math.Abs(math.Abs(n.X())+math.Abs(n.Y())+math.Abs(n.Z())-1) > 1e-9 {
			t.Errorf("Normal = %v, want a coordinate axis", n)
		}
	})

	t.Run("input simplex is not modified", func(t *testing.T) {
		a := createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
		b := createBoxBody(mgl64.Vec3{0, 1.5, 0}, mgl64.Vec3{1, 1, 1})

		simplex := &gjk.Simplex{}
		simplex.Vertices[0] = gjk.MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0}, 0)
		simplex.Count = 1
		before := *simplex

		_, _ = EPA(a, b, simplex, 0, DefaultMaxIterations)
		if *simplex != before {
			t.Error("EPA must work on a copy of the GJK simplex")
		}
	})
}

func TestCompleteSimplex(t *testing.T) {
	a := createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	b := createSphereBody(mgl64.Vec3{0.5, 0.5, 0}, 1)

	for count := 1; count <= 3; count++ {
		simplex := &gjk.Simplex{}
		directions := []mgl64.Vec3{{0, 1, 0}, {0, -1, 0}, {1, 0, 0}}
		for i := 0; i < count; i++ {
			simplex.Vertices[i] = gjk.MinkowskiSupport(a, b, directions[i], 0)
		}
		simplex.Count = count

		if !completeSimplex(a, b, simplex, 0) {
			t.Fatalf("completeSimplex() from %d vertices failed", count)
		}
		if simplex.Count != 4 {
			t.Fatalf("Count = %d, want 4", simplex.Count)
		}

		p0 := simplex.Point(0)
		volume := simplex.Point(1).Sub(p0).Cross(simplex.Point(2).Sub(p0)).Dot(simplex.Point(3).Sub(p0))
		if math.Abs(volume) < minTetrahedronVolume {
			t.Errorf("completed simplex from %d vertices is flat", count)
		}
	}
}

func TestFallbackPenetration(t *testing.T) {
	t.Run("along the centers", func(t *testing.T) {
		a := createSphereBody(mgl64.Vec3{1, 1, 1}, 1)
		b := createSphereBody(mgl64.Vec3{1, 1, 3}, 1)

		result := fallbackPenetration(a, b, &gjk.Simplex{})
		if !vec3ApproxEqual(result.Normal, mgl64.Vec3{0, 0, 1}, 1e-12) || result.Depth != 0 {
			t.Errorf("fallback = %+v", result)
		}
	})

	t.Run("unknown positions", func(t *testing.T) {
		result := fallbackPenetration(&actor.Sphere{Radius: 1}, &actor.Sphere{Radius: 1}, &gjk.Simplex{})
		if result.Normal != (mgl64.Vec3{0, 1, 0}) {
			t.Errorf("Normal = %v, want up", result.Normal)
		}
	})
}

func TestEPA_IterationLimit(t *testing.T) {
	a := createSphereBody(mgl64.Vec3{}, 1)
	b := createSphereBody(mgl64.Vec3{1.2, 0.3, 0.1}, 1)

	simplex := &gjk.Simplex{}
	if !gjk.GJK(a, b, simplex, 0, gjk.DefaultMaxIterations) {
		t.Fatal("GJK found no overlap")
	}

	result, err := EPA(a, b, simplex, 0, 1)
	if err == nil {
		t.Skip("converged in a single expansion")
	}
	if !isNormalized(result.Normal, 1e-9) || result.Depth <= 0 {
		t.Errorf("the estimate must stay usable: %+v", result)
	}
}

func BenchmarkEPA_Boxes(b *testing.B) {
	boxA := createBoxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	boxB := createBoxBody(mgl64.Vec3{0.3, 1.8, -0.2}, mgl64.Vec3{1, 1, 1})
	simplex := &gjk.Simplex{}

	for i := 0; i < b.N; i++ {
		gjk.GJK(boxA, boxB, simplex, 1e-3, gjk.DefaultMaxIterations)
		_, _ = EPA(boxA, boxB, simplex, 1e-3, DefaultMaxIterations)
	}
}
