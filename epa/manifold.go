package epa

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"

	"github.com/akmonengine/rigid/actor"
)

// MaxManifoldPoints bounds the number of points in a contact surface.
const MaxManifoldPoints = 4

// GenerateManifold merges the contact features of two shapes into one contact surface
// using Sutherland-Hodgman clipping.
//
// Algorithm:
//  1. The feature with more points (face > edge > vertex) is the reference, the other
//     one is incident
//  2. The incident feature is clipped against the side planes of the reference
//  3. Each clipped point gets its own penetration, measured along the normal from the
//     reference feature
//  4. Points separated by more than epsilon are dropped and at most four are kept
//
// The normal points from A toward B and depth is the penetration of the whole contact.
// Either surface may be nil when the query only produced a feature for one shape.
func GenerateManifold(surfA, surfB *actor.ContactSurface, normal mgl64.Vec3, depth, epsilon float64) *actor.ContactSurface {
	featureA := positions(surfA)
	featureB := positions(surfB)
	if len(featureA) == 0 && len(featureB) == 0 {
		return nil
	}

	result := &actor.ContactSurface{Normal: normal, Depth: depth}

	if len(featureA) == 0 || len(featureB) == 0 {
		single := append(featureA, featureB...)
		for _, p := range single {
			result.Points = append(result.Points, actor.ContactPoint{Position: p, Penetration: depth})
		}
		result.Points = reduceTo4Points(dedupe(result.Points, epsilon), normal)
		return result
	}

	// A is the reference on ties.
	reference, incident := featureA, featureB
	referenceIsA := true
	if len(featureB) > len(featureA) {
		reference, incident = featureB, featureA
		referenceIsA = false
	}

	if len(reference) == 1 {
		// Two single points: vertex against vertex or smooth against smooth.
		result.Points = []actor.ContactPoint{{
			Position:    reference[0].Add(incident[0]).Mul(0.5),
			Penetration: depth,
		}}
		return result
	}

	if len(reference) == 2 && len(incident) == 2 {
		if p, ok := crossingEdges(reference, incident); ok {
			result.Points = []actor.ContactPoint{{Position: p, Penetration: depth}}
			return result
		}
	}

	reference = orderAroundCenter(reference, normal)
	incident = orderAroundCenter(incident, normal)

	level := 0.0
	for _, r := range reference {
		level += r.Dot(normal)
	}
	level /= float64(len(reference))

	clipped := clipIncidentAgainstReference(incident, reference, normal)
	for _, p := range clipped {
		penetration := level - p.Dot(normal)
		if !referenceIsA {
			penetration = p.Dot(normal) - level
		}
		if penetration < -epsilon-1e-9 {
			continue
		}
		result.Points = append(result.Points, actor.ContactPoint{Position: p, Penetration: penetration})
	}

	// Fallback when clipping removed everything
	if len(result.Points) == 0 {
		result.Points = []actor.ContactPoint{{
			Position:    computeCenter(featureA).Add(computeCenter(featureB)).Mul(0.5),
			Penetration: depth,
		}}
		return result
	}

	result.Points = reduceTo4Points(dedupe(result.Points, epsilon), normal)
	return result
}

func positions(surface *actor.ContactSurface) []mgl64.Vec3 {
	if surface == nil {
		return nil
	}
	return lo.Map(surface.Points, func(p actor.ContactPoint, _ int) mgl64.Vec3 {
		return p.Position
	})
}

// crossingEdges returns the midpoint of the closest points of two non-parallel
// segments.
func crossingEdges(e1, e2 []mgl64.Vec3) (mgl64.Vec3, bool) {
	d1 := e1[1].Sub(e1[0])
	d2 := e2[1].Sub(e2[0])
	r := e1[0].Sub(e2[0])

	a := d1.Dot(d1)
	e := d2.Dot(d2)
	b := d1.Dot(d2)
	denom := a*e - b*b
	if a < 1e-18 || e < 1e-18 || denom < 1e-6*a*e {
		return mgl64.Vec3{}, false
	}

	c := d1.Dot(r)
	f := d2.Dot(r)
	s := mgl64.Clamp((b*f-c*e)/denom, 0, 1)
	t := mgl64.Clamp((b*s+f)/e, 0, 1)
	s = mgl64.Clamp((b*t-c)/a, 0, 1)

	p1 := e1[0].Add(d1.Mul(s))
	p2 := e2[0].Add(d2.Mul(t))
	return p1.Add(p2).Mul(0.5), true
}

// orderAroundCenter sorts a feature counter-clockwise around its center, seen from the
// tip of normal. Segments and single points are returned unchanged.
func orderAroundCenter(points []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	if len(points) < 3 {
		return points
	}

	center := computeCenter(points)
	tangent1, tangent2 := getTangentBasis(normal)

	ordered := make([]mgl64.Vec3, len(points))
	copy(ordered, points)
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := ordered[i].Sub(center), ordered[j].Sub(center)
		return math.Atan2(di.Dot(tangent2), di.Dot(tangent1)) < math.Atan2(dj.Dot(tangent2), dj.Dot(tangent1))
	})

	return ordered
}

// clipIncidentAgainstReference performs Sutherland-Hodgman polygon clipping.
//
// A polygonal reference clips the incident feature against the plane through each of its
// edges, perpendicular to the contact. A segment reference clips against the planes
// through its end points, along the segment.
func clipIncidentAgainstReference(incident, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	if len(reference) == 2 {
		axis := reference[1].Sub(reference[0])
		output := clipPolygonAgainstPlane(incident, reference[0], axis)
		return clipPolygonAgainstPlane(output, reference[1], axis.Mul(-1))
	}

	output := incident
	center := computeCenter(reference)

	for i := 0; i < len(reference); i++ {
		if len(output) == 0 {
			break
		}

		v1 := reference[i]
		v2 := reference[(i+1)%len(reference)]

		clipNormal := v2.Sub(v1).Cross(normal)
		if clipNormal.LenSqr() < 1e-18 {
			continue
		}
		// Verify that the normal points inward
		if center.Sub(v1).Dot(clipNormal) < 0 {
			clipNormal = clipNormal.Mul(-1)
		}

		output = clipPolygonAgainstPlane(output, v1, clipNormal.Normalize())
	}

	return output
}

// clipPolygonAgainstPlane implements Sutherland-Hodgman for a single plane.
// Points on the side planeNormal points to are kept.
func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	const tolerance = 1e-6

	if len(polygon) == 0 {
		return polygon
	}
	if len(polygon) == 1 {
		if polygon[0].Sub(planePoint).Dot(planeNormal) >= -tolerance {
			return polygon
		}
		return nil
	}

	var output []mgl64.Vec3
	for i := 0; i < len(polygon); i++ {
		current := polygon[i]
		next := polygon[(i+1)%len(polygon)]

		currentDist := current.Sub(planePoint).Dot(planeNormal)
		nextDist := next.Sub(planePoint).Dot(planeNormal)

		if currentDist >= -tolerance {
			output = append(output, current)
			if nextDist < -tolerance {
				output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
			}
		} else if nextDist >= -tolerance {
			output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
		}
	}

	return output
}

// lineIntersectPlane calculates the intersection between a line segment and a plane
func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	denom := dir.Dot(planeNormal)
	if math.Abs(denom) < 1e-10 {
		return p1
	}

	t := -p1.Sub(planePoint).Dot(planeNormal) / denom
	t = math.Max(0, math.Min(1, t))

	return p1.Add(dir.Mul(t))
}

// computeCenter calculates the centroid of a set of points
func computeCenter(points []mgl64.Vec3) mgl64.Vec3 {
	if len(points) == 0 {
		return mgl64.Vec3{}
	}

	var sum mgl64.Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

// dedupe merges points closer than epsilon, keeping the deeper one.
func dedupe(points []actor.ContactPoint, epsilon float64) []actor.ContactPoint {
	result := make([]actor.ContactPoint, 0, len(points))
outer:
	for _, p := range points {
		for i := range result {
			if result[i].Position.Sub(p.Position).Len() <= epsilon {
				if p.Penetration > result[i].Penetration {
					result[i] = p
				}
				continue outer
			}
		}
		result = append(result, p)
	}
	return result
}

func getTangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	tangent1 := mgl64.Vec3{1, 0, 0}
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}

// reduceTo4Points keeps the extreme points along two tangent axes, in their original
// order.
func reduceTo4Points(points []actor.ContactPoint, normal mgl64.Vec3) []actor.ContactPoint {
	if len(points) <= MaxManifoldPoints {
		return points
	}

	tangent1, tangent2 := getTangentBasis(normal)

	minX, maxX, minY, maxY := 0, 0, 0, 0
	minXval, maxXval := math.Inf(1), math.Inf(-1)
	minYval, maxYval := math.Inf(1), math.Inf(-1)

	for i, p := range points {
		x := p.Position.Dot(tangent1)
		y := p.Position.Dot(tangent2)

		if x < minXval {
			minXval, minX = x, i
		}
		if x > maxXval {
			maxXval, maxX = x, i
		}
		if y < minYval {
			minYval, minY = y, i
		}
		if y > maxYval {
			maxYval, maxY = y, i
		}
	}

	indices := lo.Uniq([]int{minX, maxX, minY, maxY})
	sort.Ints(indices)

	return lo.Map(indices, func(i int, _ int) actor.ContactPoint {
		return points[i]
	})
}
