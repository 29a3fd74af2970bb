package model

import "math"

// Precision is the scale factor between real coordinates and fixed-point
// integers. Five decimal places are representable exactly.
const Precision = 100000

// Precise converts a real value to fixed-point, truncating toward zero.
func Precise(r float64) int32 {
	return int32(r * Precision)
}

// PreciseLong is the 64-bit variant of Precise used for areas.
func PreciseLong(r float64) int64 {
	return int64(r * Precision)
}

// Rounded converts a fixed-point value back to a real value.
func Rounded(i int32) float64 {
	return float64(i) / Precision
}

// RoundedLong is the 64-bit variant of Rounded.
func RoundedLong(i int64) float64 {
	return float64(i) / Precision
}

// P builds a fixed-point Point from real coordinates.
func P(x, y float64) Point {
	return Point{X: Precise(x), Y: Precise(y)}
}

// PointPrecise converts a real point to fixed-point.
func PointPrecise(p PointF) Point {
	return Point{X: Precise(p.X), Y: Precise(p.Y)}
}

// PointRounded converts a fixed-point point to real coordinates.
func PointRounded(p Point) PointF {
	return PointF{X: Rounded(p.X), Y: Rounded(p.Y)}
}

// roundPoint maps a real point onto the nearest fixed-point coordinate.
func roundPoint(p PointF) Point {
	return Point{X: int32(math.Round(p.X)), Y: int32(math.Round(p.Y))}
}

// GCD returns the greatest common divisor of two non-negative integers
// using the binary (Stein) algorithm.
func GCD(a, b int32) int32 {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	var shift uint
	for ; (a|b)&1 == 0; shift++ {
		a >>= 1
		b >>= 1
	}
	for a&1 == 0 {
		a >>= 1
	}
	for b != 0 {
		for b&1 == 0 {
			b >>= 1
		}
		if a > b {
			a, b = b, a
		}
		b -= a
	}
	return a << shift
}

// GCDAll returns the greatest common divisor of all values. An empty slice
// yields 0.
func GCDAll(xs []int32) int32 {
	if len(xs) == 0 {
		logger.Info("gcd of empty list")
		return 0
	}
	g := xs[0]
	for _, x := range xs[1:] {
		g = GCD(g, x)
	}
	return g
}

// LinesAngle returns the angle in radians between the directions of two
// lines, or 0 when it is undefined.
func LinesAngle(l1, l2 Line) float64 {
	dx1, dy1 := float64(l1.Dx()), float64(l1.Dy())
	dx2, dy2 := float64(l2.Dx()), float64(l2.Dy())
	len1 := math.Sqrt(dx1*dx1 + dy1*dy1)
	len2 := math.Sqrt(dx2*dx2 + dy2*dy2)
	cos := (dx1*dx2 + dy1*dy2) / (len1 * len2)
	if cos >= -1 && cos <= 1 {
		return math.Acos(cos)
	}
	return 0
}

// AngleTo returns the counter-clockwise angle in radians from the direction
// of l1 to the direction of l2, in [0, 2π).
func AngleTo(l1, l2 Line) float64 {
	a := math.Atan2(float64(l2.Dy()), float64(l2.Dx())) - math.Atan2(float64(l1.Dy()), float64(l1.Dx()))
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}
