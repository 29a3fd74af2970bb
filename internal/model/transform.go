package model

import "math"

// Affine is a 2D affine transform. A point (x, y) maps to
//
//	x' = M11*x + M21*y + Dx
//	y' = M12*x + M22*y + Dy
//
// which is the convention of a y-down raster coordinate system: a positive
// rotation angle turns clockwise on screen.
type Affine struct {
	M11, M12 float64
	M21, M22 float64
	Dx, Dy   float64
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{M11: 1, M22: 1}
}

// Translation returns a transform that shifts points by (dx, dy).
func Translation(dx, dy float64) Affine {
	return Affine{M11: 1, M22: 1, Dx: dx, Dy: dy}
}

// Scaling returns a transform that scales about the origin.
func Scaling(sx, sy float64) Affine {
	return Affine{M11: sx, M22: sy}
}

// Rotation returns a transform that rotates by angle radians about center.
func Rotation(center Point, angle float64) Affine {
	sin, cos := math.Sincos(angle)
	cx, cy := float64(center.X), float64(center.Y)
	r := Affine{M11: cos, M12: sin, M21: -sin, M22: cos}
	return Translation(-cx, -cy).Then(r).Then(Translation(cx, cy))
}

// IsIdentity reports whether a leaves every point unchanged.
func (a Affine) IsIdentity() bool {
	return a == Identity()
}

// Then returns the transform that applies a first and b second.
func (a Affine) Then(b Affine) Affine {
	return Affine{
		M11: a.M11*b.M11 + a.M12*b.M21,
		M12: a.M11*b.M12 + a.M12*b.M22,
		M21: a.M21*b.M11 + a.M22*b.M21,
		M22: a.M21*b.M12 + a.M22*b.M22,
		Dx:  a.Dx*b.M11 + a.Dy*b.M21 + b.Dx,
		Dy:  a.Dx*b.M12 + a.Dy*b.M22 + b.Dy,
	}
}

// Inverse returns the inverse transform. A singular transform (for example
// a zero scale) yields the identity and false.
func (a Affine) Inverse() (Affine, bool) {
	det := a.M11*a.M22 - a.M12*a.M21
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Identity(), false
	}
	inv := Affine{
		M11: a.M22 / det,
		M12: -a.M12 / det,
		M21: -a.M21 / det,
		M22: a.M11 / det,
	}
	inv.Dx = -(a.Dx*inv.M11 + a.Dy*inv.M21)
	inv.Dy = -(a.Dx*inv.M12 + a.Dy*inv.M22)
	return inv, true
}

// Apply maps a real point through the transform.
func (a Affine) Apply(p PointF) PointF {
	return PointF{
		X: a.M11*p.X + a.M21*p.Y + a.Dx,
		Y: a.M12*p.X + a.M22*p.Y + a.Dy,
	}
}

// Map maps a fixed-point coordinate and rounds the result to the nearest
// fixed-point coordinate.
func (a Affine) Map(p Point) Point {
	return roundPoint(a.Apply(PointF{X: float64(p.X), Y: float64(p.Y)}))
}
