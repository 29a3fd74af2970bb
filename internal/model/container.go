package model

import (
	"fmt"
	"slices"
)

// Container is a rectangular sheet spanning (0,0) to (Width,Height) that
// holds placed polygons.
type Container struct {
	width  int32
	height int32
	shapes []Polygon
}

// NewContainer returns an empty container of the given fixed-point size.
func NewContainer(width, height int32) Container {
	return Container{width: width, height: height}
}

// DefaultContainer returns an empty 1×1 container.
func DefaultContainer() Container {
	return NewContainer(Precise(1), Precise(1))
}

// Width returns the container width.
func (c Container) Width() int32 { return c.width }

// Height returns the container height.
func (c Container) Height() int32 { return c.height }

// Bounds returns the container rectangle.
func (c Container) Bounds() Rect { return NewRect(0, 0, c.width, c.height) }

// Len returns the number of placed shapes.
func (c Container) Len() int { return len(c.shapes) }

// IsEmpty reports whether nothing is placed.
func (c Container) IsEmpty() bool { return len(c.shapes) == 0 }

// Shapes returns the placed shapes in placement order.
func (c Container) Shapes() []Polygon { return slices.Clone(c.shapes) }

// Shape returns placed shape i.
func (c Container) Shape(i int) Polygon { return c.shapes[i] }

// Append places a copy of shape without validating it.
func (c *Container) Append(shapes ...Polygon) {
	c.shapes = append(slices.Clip(c.shapes), shapes...)
}

// Remove deletes placed shape i.
func (c *Container) Remove(i int) {
	c.shapes = slices.Delete(slices.Clone(c.shapes), i, i+1)
}

// RemoveLast deletes the most recently placed shape.
func (c *Container) RemoveLast() {
	if n := len(c.shapes); n > 0 {
		c.shapes = c.shapes[: n-1 : n-1]
	}
}

// Area returns width×height in the same unit as Polygon.Area.
func (c Container) Area() int64 {
	return int64(c.width) * int64(c.height) / Precision
}

// ShapesArea returns the summed area of the placed shapes.
func (c Container) ShapesArea() int64 {
	var a int64
	for _, s := range c.shapes {
		a += s.Area()
	}
	return a
}

// AvailableSpace returns the area not covered by placed shapes.
func (c Container) AvailableSpace() int64 { return c.Area() - c.ShapesArea() }

// Utilization returns the covered fraction of the container area.
func (c Container) Utilization() float64 {
	a := c.Area()
	if a == 0 {
		return 0
	}
	return float64(c.ShapesArea()) / float64(a)
}

// Density returns the placed area divided by the area of the convex hull of
// all placed vertices.
func (c Container) Density() float64 {
	h := c.ShapesHull().Area()
	if h == 0 {
		return 0
	}
	return float64(c.ShapesArea()) / float64(h)
}

// ShapesBoundingRect returns the union of the placed shapes' bounding
// rectangles, or the zero Rect when nothing is placed.
func (c Container) ShapesBoundingRect() Rect {
	if len(c.shapes) == 0 {
		return Rect{}
	}
	r := c.shapes[0].BoundingRect()
	for _, s := range c.shapes[1:] {
		r = r.Union(s.BoundingRect())
	}
	return r
}

// ShapesHull returns the convex hull of every placed vertex.
func (c Container) ShapesHull() Polygon {
	var pts []Point
	for _, s := range c.shapes {
		pts = append(pts, s.points...)
	}
	return ConvexHullOf(DefaultName, pts)
}

// Validate returns nil when every shape lies within the bounds and no two
// shapes overlap.
func (c Container) Validate() error {
	bounds := c.Bounds()
	for i := len(c.shapes) - 1; i >= 0; i-- {
		s := c.shapes[i]
		if !bounds.Contains(s.BoundingRect()) {
			return fmt.Errorf("%w: shape %d (%s) exceeds the %dx%d bounds", ErrInvalidContainer, i, s.Name(), c.width, c.height)
		}
		for j := i - 1; j >= 0; j-- {
			if s.Overlaps(c.shapes[j]) {
				return fmt.Errorf("%w: shape %d (%s) overlaps shape %d (%s)", ErrInvalidContainer, i, s.Name(), j, c.shapes[j].Name())
			}
		}
	}
	return nil
}

// IsValid reports whether Validate succeeds.
func (c Container) IsValid() bool { return c.Validate() == nil }

// MayPlace reports whether shape could be appended without invalidating the
// container. The container itself is not modified.
func (c Container) MayPlace(shape Polygon) bool {
	bounds := c.Bounds()
	if !bounds.Contains(shape.BoundingRect()) {
		return false
	}
	c.Append(shape)
	return c.IsValid()
}

// Equal reports whether both containers have the same size and pairwise
// equal shapes.
func (c Container) Equal(other Container) bool {
	return c.width == other.width && c.height == other.height &&
		slices.EqualFunc(c.shapes, other.shapes, Polygon.Equal)
}
