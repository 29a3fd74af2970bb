package model

import (
	"sort"

	"github.com/google/uuid"
)

// Offcut is a free rectangular strip of a container beyond every placed
// shape, large enough to be reused as a smaller container.
type Offcut struct {
	ID    string `json:"id"`
	Sheet int    `json:"sheet"` // index in the result
	Rect  Rect   `json:"rect"`
}

// Area returns the strip area in the same unit as Polygon.Area.
func (o Offcut) Area() int64 {
	return int64(o.Rect.Width()) * int64(o.Rect.Height()) / Precision
}

// Container returns an empty container of the offcut's size.
func (o Offcut) Container() Container {
	return NewContainer(o.Rect.Width(), o.Rect.Height())
}

// DetectOffcuts returns the strip right of the placed shapes and the strip
// above them, each kept only when both sides are at least minSide. An empty
// container is one offcut.
func DetectOffcuts(c Container, sheet int, minSide int32) []Offcut {
	usable := func(r Rect) bool { return r.Width() >= minSide && r.Height() >= minSide }

	if c.IsEmpty() {
		if b := c.Bounds(); usable(b) {
			return []Offcut{{ID: newOffcutID(), Sheet: sheet, Rect: b}}
		}
		return nil
	}

	used := c.ShapesBoundingRect()
	right := max(used.Max.X, 0)
	top := max(used.Max.Y, 0)

	var offcuts []Offcut
	if r := (Rect{Min: Point{X: right, Y: 0}, Max: Point{X: c.width, Y: c.height}}); usable(r) {
		offcuts = append(offcuts, Offcut{ID: newOffcutID(), Sheet: sheet, Rect: r})
	}
	// Only up to the right edge of the shapes, so the strips never overlap.
	if r := (Rect{Min: Point{X: 0, Y: top}, Max: Point{X: min(right, c.width), Y: c.height}}); usable(r) {
		offcuts = append(offcuts, Offcut{ID: newOffcutID(), Sheet: sheet, Rect: r})
	}

	sort.Slice(offcuts, func(i, j int) bool { return offcuts[i].Area() > offcuts[j].Area() })
	return offcuts
}

// DetectAllOffcuts finds offcuts on every container of a result.
func DetectAllOffcuts(result PackingResult, minSide int32) []Offcut {
	var all []Offcut
	for i, c := range result.Sheets {
		all = append(all, DetectOffcuts(c, i, minSide)...)
	}
	return all
}

// TotalOffcutArea sums the offcut areas.
func TotalOffcutArea(offcuts []Offcut) int64 {
	var total int64
	for _, o := range offcuts {
		total += o.Area()
	}
	return total
}

func newOffcutID() string { return uuid.New().String()[:8] }
