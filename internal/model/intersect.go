package model

import "slices"

// Overlap tests use exact 64-bit integer arithmetic. Midpoint tests double
// every coordinate, so coordinates must stay within ±2^29 fixed-point units
// (about ±5368 real units) for the products to fit.

// orientation classifies the turn p→q→r: 0 for collinear, 1 for clockwise
// and 2 for counter-clockwise in a y-up frame.
func orientation(p, q, r Point) int {
	v := (int64(q.Y)-int64(p.Y))*(int64(r.X)-int64(q.X)) - (int64(q.X)-int64(p.X))*(int64(r.Y)-int64(q.Y))
	switch {
	case v == 0:
		return 0
	case v > 0:
		return 1
	default:
		return 2
	}
}

// cross returns the z component of (a-o)×(b-o).
func cross(o, a, b Point) int64 {
	return (int64(a.X)-int64(o.X))*(int64(b.Y)-int64(o.Y)) - (int64(a.Y)-int64(o.Y))*(int64(b.X)-int64(o.X))
}

func sign(v int64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// segmentsIntersect reports whether two non-parallel segments meet,
// endpoints included. Parallel and degenerate segments never intersect.
func segmentsIntersect(e1, e2 Line) bool {
	rx, ry := int64(e1.Dx()), int64(e1.Dy())
	sx, sy := int64(e2.Dx()), int64(e2.Dy())
	d := rx*sy - ry*sx
	if d == 0 {
		return false
	}
	qx, qy := int64(e2.P1.X)-int64(e1.P1.X), int64(e2.P1.Y)-int64(e1.P1.Y)
	t := qx*sy - qy*sx
	u := qx*ry - qy*rx
	if d < 0 {
		d, t, u = -d, -t, -u
	}
	return t >= 0 && t <= d && u >= 0 && u <= d
}

// properlyCross reports whether the interiors of two segments cross at a
// single point that is not an endpoint of either.
func properlyCross(e1, e2 Line) bool {
	o1 := sign(cross(e1.P1, e1.P2, e2.P1))
	o2 := sign(cross(e1.P1, e1.P2, e2.P2))
	o3 := sign(cross(e2.P1, e2.P2, e1.P1))
	o4 := sign(cross(e2.P1, e2.P2, e1.P2))
	return o1*o2 < 0 && o3*o4 < 0
}

// onSegment reports whether p lies on the closed segment a-b.
func onSegment(p, a, b Point) bool {
	if cross(a, b, p) != 0 {
		return false
	}
	return p.X >= min(a.X, b.X) && p.X <= max(a.X, b.X) &&
		p.Y >= min(a.Y, b.Y) && p.Y <= max(a.Y, b.Y)
}

// ringEdges returns the boundary of pts as a closed ring. A missing closing
// edge is added.
func ringEdges(pts []Point) []Line {
	n := len(pts)
	if n < 2 {
		return nil
	}
	edges := make([]Line, 0, n)
	for i := 0; i+1 < n; i++ {
		if pts[i] != pts[i+1] {
			edges = append(edges, Line{P1: pts[i], P2: pts[i+1]})
		}
	}
	if pts[n-1] != pts[0] {
		edges = append(edges, Line{P1: pts[n-1], P2: pts[0]})
	}
	return edges
}

const (
	outside  = -1
	boundary = 0
	inside   = 1
)

// locate classifies p against the ring described by edges, which must be in
// the same coordinate space as p.
func locate(p Point, edges []Line) int {
	in := false
	px, py := int64(p.X), int64(p.Y)
	for _, e := range edges {
		if onSegment(p, e.P1, e.P2) {
			return boundary
		}
		a, b := e.P1, e.P2
		if (int64(a.Y) > py) == (int64(b.Y) > py) {
			continue
		}
		dy := int64(b.Y) - int64(a.Y)
		lhs := (px - int64(a.X)) * dy
		rhs := (py - int64(a.Y)) * (int64(b.X) - int64(a.X))
		if (dy > 0 && lhs < rhs) || (dy < 0 && lhs > rhs) {
			in = !in
		}
	}
	if in {
		return inside
	}
	return outside
}

func doubled(edges []Line) []Line {
	out := make([]Line, len(edges))
	for i, e := range edges {
		out[i] = Line{P1: Point{X: 2 * e.P1.X, Y: 2 * e.P1.Y}, P2: Point{X: 2 * e.P2.X, Y: 2 * e.P2.Y}}
	}
	return out
}

// classifyBoundary splits every edge of a at the vertices of b lying on it
// and locates the midpoint of every piece against b. It reports whether a
// piece lies strictly inside b and whether every piece lies on b's boundary.
func classifyBoundary(a []Line, b []Line, bPoints []Point) (anyInside, allOnBoundary bool) {
	b2 := doubled(b)
	allOnBoundary = true
	for _, e := range a {
		dx, dy := int64(e.Dx()), int64(e.Dy())
		param := func(p Point) int64 {
			return (int64(p.X)-int64(e.P1.X))*dx + (int64(p.Y)-int64(e.P1.Y))*dy
		}
		cuts := []Point{e.P1, e.P2}
		for _, v := range bPoints {
			if v != e.P1 && v != e.P2 && onSegment(v, e.P1, e.P2) {
				cuts = append(cuts, v)
			}
		}
		slices.SortFunc(cuts, func(p, q Point) int {
			return sign(param(p) - param(q))
		})
		cuts = slices.Compact(cuts)
		for i := 0; i+1 < len(cuts); i++ {
			mid := Point{X: cuts[i].X + cuts[i+1].X, Y: cuts[i].Y + cuts[i+1].Y}
			switch locate(mid, b2) {
			case inside:
				return true, false
			case outside:
				allOnBoundary = false
			}
		}
	}
	return false, allOnBoundary
}

// Overlaps reports whether the interiors of p and other share a region of
// positive area. Touching along edges or at vertices is not an overlap, and
// a polygon with zero area never overlaps anything. Both polygons are
// treated as closed rings.
func (p Polygon) Overlaps(other Polygon) bool {
	if _, ok := p.BoundingRect().Intersect(other.BoundingRect()); !ok {
		return false
	}
	if p.metrics().signedArea == 0 || other.metrics().signedArea == 0 {
		return false
	}
	ea, eb := ringEdges(p.points), ringEdges(other.points)
	for _, e1 := range ea {
		for _, e2 := range eb {
			if properlyCross(e1, e2) {
				return true
			}
		}
	}
	aIn, aOnB := classifyBoundary(ea, eb, other.points)
	if aIn || aOnB {
		return true
	}
	bIn, bOnA := classifyBoundary(eb, ea, p.points)
	return bIn || bOnA
}

// Contains reports whether pt lies inside p or on its boundary.
func (p Polygon) Contains(pt Point) bool {
	return locate(pt, ringEdges(p.points)) != outside
}
