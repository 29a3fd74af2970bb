package model

// Point is a 2D coordinate in fixed-point units.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// PointF is a real-valued 2D coordinate. It is used for transform bases and
// for continuous segment tests.
type PointF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is a segment between two fixed-point coordinates.
type Line struct {
	P1 Point `json:"p1"`
	P2 Point `json:"p2"`
}

// Dx returns the horizontal extent of the line.
func (l Line) Dx() int32 { return l.P2.X - l.P1.X }

// Dy returns the vertical extent of the line.
func (l Line) Dy() int32 { return l.P2.Y - l.P1.Y }

// Rect is an axis-aligned rectangle spanned by its inclusive corners.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// NewRect returns the rectangle with top-left corner (x, y) and the given size.
func NewRect(x, y, w, h int32) Rect {
	return Rect{Min: Point{X: x, Y: y}, Max: Point{X: x + w, Y: y + h}}
}

// Width returns Max.X - Min.X.
func (r Rect) Width() int32 { return r.Max.X - r.Min.X }

// Height returns Max.Y - Min.Y.
func (r Rect) Height() int32 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: int32((int64(r.Min.X) + int64(r.Max.X)) / 2), Y: int32((int64(r.Min.Y) + int64(r.Max.Y)) / 2)}
}

// Contains reports whether o lies entirely within r. Shared borders count as
// contained.
func (r Rect) Contains(o Rect) bool {
	return o.Min.X >= r.Min.X && o.Min.Y >= r.Min.Y && o.Max.X <= r.Max.X && o.Max.Y <= r.Max.Y
}

// Intersect returns the overlapping region of r and o and whether that
// region has a positive area.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	in := Rect{
		Min: Point{X: max(r.Min.X, o.Min.X), Y: max(r.Min.Y, o.Min.Y)},
		Max: Point{X: min(r.Max.X, o.Max.X), Y: min(r.Max.Y, o.Max.Y)},
	}
	return in, in.Max.X > in.Min.X && in.Max.Y > in.Min.Y
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Min: Point{X: min(r.Min.X, o.Min.X), Y: min(r.Min.Y, o.Min.Y)},
		Max: Point{X: max(r.Max.X, o.Max.X), Y: max(r.Max.Y, o.Max.Y)},
	}
}

// boundingRect returns the bounding rectangle of pts. An empty slice yields
// the zero Rect.
func boundingRect(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}
