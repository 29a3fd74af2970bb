package gcode

import (
	"fmt"
	"math"

	"github.com/piwi3910/bakery/internal/model"
)

// Conflict is a pair of shapes on one container whose outlines are closer
// than the tool diameter, so the offset toolpaths would cut into each other.
type Conflict struct {
	Sheet    int     `json:"sheet"`
	First    int     `json:"first"`
	Second   int     `json:"second"`
	Names    string  `json:"names"`
	Distance float64 `json:"distance"`
}

// CheckClearance reports every pair of shapes that the cutter cannot pass
// between. Distances are in machine units.
func CheckClearance(result model.PackingResult, s Settings) []Conflict {
	if s.ToolDiameter <= 0 {
		return nil
	}

	var conflicts []Conflict
	for si, sheet := range result.Sheets {
		shapes := sheet.Shapes()
		outlines := make([][]model.PointF, len(shapes))
		boxes := make([]box, len(shapes))
		for i, shape := range shapes {
			outlines[i] = outline(shape, s.Scale)
			boxes[i] = boundsOf(outlines[i])
		}

		for i := range shapes {
			for j := i + 1; j < len(shapes); j++ {
				if boxes[i].gap(boxes[j]) >= s.ToolDiameter {
					continue
				}
				d := outlineDistance(outlines[i], outlines[j])
				if d < s.ToolDiameter {
					conflicts = append(conflicts, Conflict{
						Sheet:    si,
						First:    i,
						Second:   j,
						Names:    shapes[i].Name() + " / " + shapes[j].Name(),
						Distance: d,
					})
				}
			}
		}
	}
	return conflicts
}

// FormatConflictWarnings produces one human-readable line per conflict.
func FormatConflictWarnings(conflicts []Conflict, toolDiameter float64) []string {
	warnings := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		warnings = append(warnings, fmt.Sprintf(
			"sheet %d: shapes %d and %d (%s) are %.3f apart, tool needs %.3f",
			c.Sheet+1, c.First+1, c.Second+1, c.Names, c.Distance, toolDiameter))
	}
	return warnings
}

type box struct{ minX, minY, maxX, maxY float64 }

func boundsOf(pts []model.PointF) box {
	b := box{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, p := range pts {
		b.minX, b.maxX = math.Min(b.minX, p.X), math.Max(b.maxX, p.X)
		b.minY, b.maxY = math.Min(b.minY, p.Y), math.Max(b.maxY, p.Y)
	}
	return b
}

// gap is the distance between two boxes, 0 when they overlap.
func (b box) gap(o box) float64 {
	dx := math.Max(0, math.Max(o.minX-b.maxX, b.minX-o.maxX))
	dy := math.Max(0, math.Max(o.minY-b.maxY, b.minY-o.maxY))
	return math.Hypot(dx, dy)
}

// outlineDistance is the smallest distance between the edges of two
// closed outlines.
func outlineDistance(a, b []model.PointF) float64 {
	best := math.Inf(1)
	for i := range a {
		a1, a2 := a[i], a[(i+1)%len(a)]
		for j := range b {
			b1, b2 := b[j], b[(j+1)%len(b)]
			best = math.Min(best, segmentDistance(a1, a2, b1, b2))
			if best == 0 {
				return 0
			}
		}
	}
	return best
}

func segmentDistance(a1, a2, b1, b2 model.PointF) float64 {
	if segmentsCross(a1, a2, b1, b2) {
		return 0
	}
	return math.Min(
		math.Min(pointSegment(a1, b1, b2), pointSegment(a2, b1, b2)),
		math.Min(pointSegment(b1, a1, a2), pointSegment(b2, a1, a2)),
	)
}

func pointSegment(p, a, b model.PointF) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := math.Max(0, math.Min(1, ((p.X-a.X)*dx+(p.Y-a.Y)*dy)/l2))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

func segmentsCross(a1, a2, b1, b2 model.PointF) bool {
	d1 := orient(b1, b2, a1)
	d2 := orient(b1, b2, a2)
	d3 := orient(a1, a2, b1)
	d4 := orient(a1, a2, b2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func orient(a, b, c model.PointF) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
