package model

import (
	"cmp"
	"fmt"
	"math/big"
	"slices"
	"strings"
)

// DefaultName is the name given to polygons created without one.
const DefaultName = "<default>"

// Polygon is a named chain of fixed-point vertices. A polygon is closed when
// its first and last vertex are equal.
//
// Vertices are derived from a real-valued base shape and an accumulated
// rigid transform, so Invert restores the base exactly. Mutators never write
// into shared storage, which makes a plain assignment an independent copy.
type Polygon struct {
	name   string
	points []Point
	base   []PointF
	tf     *Affine // nil is the identity

	deferred bool // metrics are not recomputed on mutation
	fresh    bool // m matches points
	m        metrics
}

type metrics struct {
	edges          []Line
	signedArea     int64
	centroid       Point
	simple         bool
	innerDistances []int32
}

// NewPolygon returns a polygon with the given name and vertices.
func NewPolygon(name string, pts ...Point) Polygon {
	p := newPolygon(name, pts)
	p.recompute()
	return p
}

func newPolygon(name string, pts []Point) Polygon {
	p := Polygon{name: name}
	p.points = slices.Clone(pts)
	p.base = make([]PointF, len(pts))
	for i, pt := range pts {
		p.base[i] = PointF{X: float64(pt.X), Y: float64(pt.Y)}
	}
	return p
}

// NewClosedPolygon is NewPolygon followed by EnsureClosed(true).
func NewClosedPolygon(name string, pts ...Point) Polygon {
	p := newPolygon(name, pts)
	p.SetUpdateMetrics(false)
	p.EnsureClosed(true)
	p.SetUpdateMetrics(true)
	return p
}

// Name returns the polygon name.
func (p Polygon) Name() string {
	if p.name == "" {
		return DefaultName
	}
	return p.name
}

// SetName renames the polygon.
func (p *Polygon) SetName(name string) { p.name = name }

// Len returns the number of vertices, including a closing duplicate.
func (p Polygon) Len() int { return len(p.points) }

// IsEmpty reports whether the polygon has no vertices.
func (p Polygon) IsEmpty() bool { return len(p.points) == 0 }

// At returns vertex i.
func (p Polygon) At(i int) Point { return p.points[i] }

// First returns the first vertex. It panics on an empty polygon.
func (p Polygon) First() Point { return p.points[0] }

// Last returns the last vertex. It panics on an empty polygon.
func (p Polygon) Last() Point { return p.points[len(p.points)-1] }

// Points returns a copy of the vertices.
func (p Polygon) Points() []Point { return slices.Clone(p.points) }

// Transform returns the accumulated transform.
func (p Polygon) Transform() Affine {
	if p.tf == nil {
		return Identity()
	}
	return *p.tf
}

// IsClosed reports whether the first vertex equals the last one. An empty
// polygon is closed.
func (p Polygon) IsClosed() bool {
	n := len(p.points)
	return n == 0 || (n > 2 && p.points[0] == p.points[n-1])
}

// Append adds vertices to the end of the chain.
func (p *Polygon) Append(pts ...Point) {
	points := slices.Clip(p.points)
	base := slices.Clip(p.base)
	for _, pt := range pts {
		points = append(points, pt)
		base = append(base, p.toBase(pt))
	}
	p.points, p.base = points, base
	p.changed()
}

// Insert places pt before vertex i.
func (p *Polygon) Insert(i int, pt Point) {
	p.points = slices.Insert(slices.Clip(p.points), i, pt)
	p.base = slices.Insert(slices.Clip(p.base), i, p.toBase(pt))
	p.changed()
}

// Replace sets vertex i to pt.
func (p *Polygon) Replace(i int, pt Point) {
	points := slices.Clone(p.points)
	base := slices.Clone(p.base)
	points[i] = pt
	base[i] = p.toBase(pt)
	p.points, p.base = points, base
	p.changed()
}

// Remove deletes vertex i.
func (p *Polygon) Remove(i int) {
	p.points = slices.Delete(slices.Clone(p.points), i, i+1)
	p.base = slices.Delete(slices.Clone(p.base), i, i+1)
	p.changed()
}

// RemoveLast deletes the last vertex of a non-empty polygon.
func (p *Polygon) RemoveLast() {
	if len(p.points) == 0 {
		return
	}
	p.points = p.points[:len(p.points)-1:len(p.points)-1]
	p.base = p.base[:len(p.base)-1 : len(p.base)-1]
	p.changed()
}

// EnsureClosed appends the first vertex when closed is true and the polygon
// is open, or drops the closing vertex when closed is false.
func (p *Polygon) EnsureClosed(closed bool) {
	if closed {
		if !p.IsClosed() && len(p.points) > 0 {
			p.points = append(slices.Clip(p.points), p.points[0])
			p.base = append(slices.Clip(p.base), p.base[0])
		}
	} else if p.IsClosed() && len(p.points) > 1 {
		p.points = p.points[: len(p.points)-1 : len(p.points)-1]
		p.base = p.base[: len(p.base)-1 : len(p.base)-1]
	}
	p.changed()
}

// SetUpdateMetrics toggles eager metric recomputation. Turning it back on
// recomputes immediately. Metric getters stay correct while it is off but
// pay the computation on every call.
func (p *Polygon) SetUpdateMetrics(update bool) {
	p.deferred = !update
	if update {
		p.recompute()
	}
}

// Recompute forces metric recomputation regardless of SetUpdateMetrics.
func (p *Polygon) Recompute() {
	p.m = computeMetrics(p.points, p.IsClosed())
	p.fresh = true
}

func (p *Polygon) changed() {
	p.fresh = false
	p.recompute()
}

func (p *Polygon) recompute() {
	if p.deferred {
		return
	}
	p.Recompute()
}

func (p Polygon) metrics() metrics {
	if p.fresh {
		return p.m
	}
	return computeMetrics(p.points, p.IsClosed())
}

// toBase maps a vertex given in current coordinates back into the base
// shape.
func (p Polygon) toBase(pt Point) PointF {
	f := PointF{X: float64(pt.X), Y: float64(pt.Y)}
	if p.tf == nil {
		return f
	}
	inv, ok := p.tf.Inverse()
	if !ok {
		logger.Info("transform is not invertible", "name", p.Name())
		return f
	}
	return inv.Apply(f)
}

// Edges returns the segments between consecutive vertices.
func (p Polygon) Edges() []Line { return slices.Clone(p.metrics().edges) }

// InnerDistances returns the sorted set of non-zero horizontal and vertical
// distances between consecutive vertices.
func (p Polygon) InnerDistances() []int32 { return slices.Clone(p.metrics().innerDistances) }

// IsSimple reports whether no two edges cross. Edges that meet only where
// one ends and the other begins are not counted as crossing.
func (p Polygon) IsSimple() bool { return p.metrics().simple }

// SignedArea returns the shoelace area in fixed-point units. Its sign
// depends on the vertex orientation.
func (p Polygon) SignedArea() int64 {
	p.warnUnlessClosedAndSimple()
	return p.metrics().signedArea
}

// Area returns the absolute shoelace area in fixed-point units. A unit
// square has area Precision.
func (p Polygon) Area() int64 {
	p.warnUnlessClosedAndSimple()
	a := p.metrics().signedArea
	if a < 0 {
		return -a
	}
	return a
}

// Centroid returns the area centroid, or the origin when the signed area is
// zero.
func (p Polygon) Centroid() Point {
	p.warnUnlessClosedAndSimple()
	return p.metrics().centroid
}

func (p Polygon) warnUnlessClosedAndSimple() {
	if !p.IsSimple() {
		logger.V(1).Info("shape is not simple", "name", p.Name())
	}
	if !p.IsClosed() {
		logger.Info("shape is not closed", "name", p.Name())
	}
}

// BoundingRect returns the smallest rectangle containing every vertex.
func (p Polygon) BoundingRect() Rect { return boundingRect(p.points) }

// Position returns the top-left corner of the bounding rectangle.
func (p Polygon) Position() Point { return p.BoundingRect().Min }

// applyTransform composes t onto the accumulated transform and re-derives
// the vertices from the base shape.
func (p *Polygon) applyTransform(t Affine) {
	next := p.Transform().Then(t)
	p.setTransform(next)
}

func (p *Polygon) setTransform(t Affine) {
	if t.IsIdentity() {
		p.tf = nil
	} else {
		p.tf = &t
	}
	points := make([]Point, len(p.base))
	for i, b := range p.base {
		points[i] = roundPoint(t.Apply(b))
	}
	p.points = points
	p.changed()
}

// Translate moves every vertex by (dx, dy).
func (p *Polygon) Translate(dx, dy int32) {
	p.applyTransform(Translation(float64(dx), float64(dy)))
}

// Rotate turns the polygon by angle radians about center.
func (p *Polygon) Rotate(center Point, angle float64) {
	p.applyTransform(Rotation(center, angle))
}

// Scale scales the polygon about the origin.
func (p *Polygon) Scale(sx, sy float64) {
	p.applyTransform(Scaling(sx, sy))
}

// MoveTo translates the polygon so that its bounding rectangle starts at
// (x, y).
func (p *Polygon) MoveTo(x, y int32) {
	pos := p.Position()
	p.Translate(x-pos.X, y-pos.Y)
}

// Normalize moves the polygon to the origin.
func (p *Polygon) Normalize() { p.MoveTo(0, 0) }

// Invert undoes every transform applied so far.
func (p *Polygon) Invert() { p.setTransform(Identity()) }

// Translated returns a translated copy.
func (p Polygon) Translated(dx, dy int32) Polygon {
	p.Translate(dx, dy)
	return p
}

// Rotated returns a rotated copy.
func (p Polygon) Rotated(center Point, angle float64) Polygon {
	p.Rotate(center, angle)
	return p
}

// Scaled returns a scaled copy.
func (p Polygon) Scaled(sx, sy float64) Polygon {
	p.Scale(sx, sy)
	return p
}

// MovedTo returns a copy moved to (x, y).
func (p Polygon) MovedTo(x, y int32) Polygon {
	p.MoveTo(x, y)
	return p
}

// Normalized returns a copy moved to the origin.
func (p Polygon) Normalized() Polygon {
	p.Normalize()
	return p
}

// Inverted returns a copy with every transform undone.
func (p Polygon) Inverted() Polygon {
	p.Invert()
	return p
}

// IsCongruent reports whether both polygons coincide once their transforms
// are undone. This only detects congruence produced by transform chains
// applied to the same base shape.
func (p Polygon) IsCongruent(other Polygon) bool {
	return p.Inverted().Equal(other.Inverted())
}

// Equal reports whether both polygons have the same name and the same
// vertices. Transform history is ignored.
func (p Polygon) Equal(other Polygon) bool {
	return p.Name() == other.Name() && slices.Equal(p.points, other.points)
}

func (p Polygon) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[", p.Name())
	for i, pt := range p.points {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "(%d,%d)", pt.X, pt.Y)
	}
	b.WriteString("]")
	return b.String()
}

func computeMetrics(pts []Point, closed bool) metrics {
	m := metrics{simple: true}
	n := len(pts)
	if n > 1 {
		m.edges = make([]Line, 0, n-1)
	}
	var sum int64
	cx, cy := new(big.Int), new(big.Int)
	z, term := new(big.Int), new(big.Int)
	distances := make(map[int32]struct{})
	for i := 0; i+1 < n; i++ {
		a, b := pts[i], pts[i+1]
		m.edges = append(m.edges, Line{P1: a, P2: b})
		x1, y1, x2, y2 := int64(a.X), int64(a.Y), int64(b.X), int64(b.Y)
		zi := x1*y2 - x2*y1
		sum += zi
		z.SetInt64(zi)
		cx.Add(cx, term.Mul(term.SetInt64(x1+x2), z))
		cy.Add(cy, term.Mul(term.SetInt64(y1+y2), z))
		if d := abs32(b.X - a.X); d > 0 {
			distances[d] = struct{}{}
		}
		if d := abs32(b.Y - a.Y); d > 0 {
			distances[d] = struct{}{}
		}
	}
	half := sum / 2
	if half != 0 {
		div := new(big.Int).Mul(big.NewInt(half), big.NewInt(6))
		cx.Quo(cx, div)
		cy.Quo(cy, div)
	}
	m.centroid = Point{X: int32(cx.Int64()), Y: int32(cy.Int64())}
	// z carries Precision twice.
	m.signedArea = half / Precision

	m.innerDistances = make([]int32, 0, len(distances))
	for d := range distances {
		m.innerDistances = append(m.innerDistances, d)
	}
	slices.Sort(m.innerDistances)

	chain := m.edges
	if !closed && n > 1 {
		chain = append(slices.Clip(chain), Line{P1: pts[n-1], P2: pts[0]})
	}
	m.simple = chainIsSimple(chain)
	return m
}

// chainIsSimple tests every pair of edges for a bounded crossing.
// Parallel pairs and pairs joined end to start are skipped.
func chainIsSimple(edges []Line) bool {
	for i := range edges {
		for j := i + 1; j < len(edges); j++ {
			e1, e2 := edges[i], edges[j]
			if e1.P2 == e2.P1 || e1.P1 == e2.P2 {
				continue
			}
			if segmentsIntersect(e1, e2) {
				return false
			}
		}
	}
	return true
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Unique groups polygons by name.
type Unique struct {
	Names   []string       // in first-seen order
	Shapes  []Polygon      // first polygon seen for each name
	Amounts map[string]int // occurrences per name
}

// ReduceToUnique groups shapes by name, keeping the first polygon seen for
// each name.
func ReduceToUnique(shapes []Polygon) Unique {
	u := Unique{Amounts: make(map[string]int)}
	for _, s := range shapes {
		name := s.Name()
		if _, seen := u.Amounts[name]; !seen {
			u.Names = append(u.Names, name)
			u.Shapes = append(u.Shapes, s)
		}
		u.Amounts[name]++
	}
	return u
}

// Comparators for slices.SortStableFunc.
var (
	BySize           = func(a, b Polygon) int { return cmp.Compare(a.Len(), b.Len()) }
	BySignedArea     = func(a, b Polygon) int { return cmp.Compare(a.SignedArea(), b.SignedArea()) }
	BySignedAreaDesc = func(a, b Polygon) int { return cmp.Compare(b.SignedArea(), a.SignedArea()) }
	ByArea           = func(a, b Polygon) int { return cmp.Compare(a.Area(), b.Area()) }
	ByAreaDescending = func(a, b Polygon) int { return cmp.Compare(b.Area(), a.Area()) }
)
