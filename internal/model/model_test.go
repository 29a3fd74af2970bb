package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreciseTruncates(t *testing.T) {
	assert.Equal(t, int32(100000), Precise(1))
	assert.Equal(t, int32(150000), Precise(1.5))
	assert.Equal(t, int32(99), Precise(0.000999))
	assert.Equal(t, int32(-250000), Precise(-2.5))
	assert.InDelta(t, 1.25, Rounded(125000), 1e-12)
	assert.Equal(t, Point{X: 50000, Y: -100000}, P(0.5, -1))
}

func TestGCD(t *testing.T) {
	tests := []struct {
		a, b, want int32
	}{
		{0, 0, 0},
		{0, 7, 7},
		{12, 0, 12},
		{12, 18, 6},
		{17, 5, 1},
		{100000, 25000, 25000},
		{1 << 20, 1 << 12, 1 << 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GCD(tt.a, tt.b), "GCD(%d, %d)", tt.a, tt.b)
	}
}

func TestGCDAll(t *testing.T) {
	assert.Equal(t, int32(0), GCDAll(nil))
	assert.Equal(t, int32(10000), GCDAll([]int32{30000, 50000, 10000}))
	assert.Equal(t, int32(9), GCDAll([]int32{9}))
}

func TestLinesAngle(t *testing.T) {
	h := Line{P1: P(0, 0), P2: P(1, 0)}
	v := Line{P1: P(0, 0), P2: P(0, 1)}

	assert.InDelta(t, math.Pi/2, LinesAngle(h, v), 1e-9)
	assert.InDelta(t, 0, LinesAngle(h, h), 1e-9)
	assert.Equal(t, 0.0, LinesAngle(h, Line{}), "zero-length lines have no angle")
}

func TestRect(t *testing.T) {
	r := NewRect(0, 0, 10, 10)

	assert.Equal(t, int32(10), r.Width())
	assert.Equal(t, Point{X: 5, Y: 5}, r.Center())
	assert.True(t, r.Contains(NewRect(0, 0, 10, 10)), "shared borders are contained")
	assert.False(t, r.Contains(NewRect(-1, 0, 5, 5)))

	in, ok := r.Intersect(NewRect(5, 5, 10, 10))
	assert.True(t, ok)
	assert.Equal(t, NewRect(5, 5, 5, 5), in)

	_, ok = r.Intersect(NewRect(10, 0, 5, 5))
	assert.False(t, ok, "touching rectangles have no positive-area intersection")

	assert.Equal(t, NewRect(-2, 0, 12, 10), r.Union(NewRect(-2, 3, 1, 1)))
}

func TestAffineInverse(t *testing.T) {
	a := Rotation(P(1, 2), 0.7).Then(Translation(300, -40)).Then(Scaling(2, 0.5))
	inv, ok := a.Inverse()
	assert.True(t, ok)

	p := PointF{X: 12345, Y: -6789}
	back := inv.Apply(a.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-6)
	assert.InDelta(t, p.Y, back.Y, 1e-6)

	_, ok = Scaling(0, 1).Inverse()
	assert.False(t, ok)
}

func TestRotationConvention(t *testing.T) {
	// A quarter turn maps +x onto +y.
	got := Rotation(Point{}, math.Pi/2).Map(Point{X: 100000})
	assert.Equal(t, Point{X: 0, Y: 100000}, got)
}

func TestAngleTo(t *testing.T) {
	right := Line{P1: P(0, 0), P2: P(1, 0)}
	up := Line{P1: P(0, 0), P2: P(0, 1)}
	down := Line{P1: P(0, 0), P2: P(0, -1)}

	assert.InDelta(t, math.Pi/2, AngleTo(right, up), 1e-9)
	assert.InDelta(t, 3*math.Pi/2, AngleTo(right, down), 1e-9)
	assert.Equal(t, 0.0, AngleTo(right, right))
}
