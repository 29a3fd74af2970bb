// Package typewriter implements a greedy packing worker. Shapes are taken
// largest first and placed line by line, like characters on a page, at the
// grid position and rotation that scores best under a container metric.
package typewriter

import (
	"context"
	"math"
	"slices"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/workerkit"
)

// Metric scores a candidate container; higher is better.
type Metric func(model.Container) float64

// ConstantMetric scores every container alike, so the first position that
// fits wins.
func ConstantMetric(model.Container) float64 { return 1 }

// ConvexHullUtilization returns the placed area divided by the product of
// the convex hull's area and the area of the hull's bounding rectangle.
func ConvexHullUtilization(c model.Container) float64 {
	hull := c.ShapesHull()
	hullArea := float64(hull.Area())
	b := hull.BoundingRect()
	boundsArea := float64(b.Width()) * float64(b.Height()) / model.Precision
	if hullArea == 0 || boundsArea == 0 {
		return 0
	}
	return float64(c.ShapesArea()) / hullArea / boundsArea
}

type pass struct {
	metric    Metric
	superiors int // improvements accepted per shape before moving on
}

var passes = []pass{
	{metric: ConvexHullUtilization, superiors: 50},
	{metric: ConstantMetric, superiors: 1},
}

// Worker is the typewriter packing algorithm.
type Worker struct{}

var _ workerkit.Handler = Worker{}

// Metadata describes the typewriter worker.
func (Worker) Metadata() model.WorkerMetadata {
	return model.WorkerMetadata{
		Name:    "typewriter",
		Type:    "greedy",
		Author:  "Bakery developers",
		License: "LGPL3+",
	}
}

// BakeSheets runs every pass and returns the best complete result. Passes
// interrupted by ctx are discarded.
func (Worker) BakeSheets(ctx context.Context, job model.PackingJob, emit workerkit.Emitter) model.PackingResult {
	var outputs []model.PackingResult
	for _, p := range passes {
		if out, ok := typewrite(ctx, job, p, emit); ok {
			outputs = append(outputs, out)
		}
	}
	if len(outputs) == 0 {
		return model.PackingResult{}
	}
	slices.SortStableFunc(outputs, func(a, b model.PackingResult) int {
		switch sa, sb := a.Score(), b.Score(); {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	})
	return outputs[len(outputs)-1]
}

func typewrite(ctx context.Context, job model.PackingJob, p pass, emit workerkit.Emitter) (model.PackingResult, bool) {
	if ctx.Err() != nil {
		return model.PackingResult{}, false
	}

	unique := model.ReduceToUnique(job.Shapes)
	shapes := slices.Clone(job.Shapes)
	slices.SortStableFunc(shapes, model.ByAreaDescending)
	for i := range shapes {
		shapes[i].Normalize()
	}

	angles := Angles(job.Width, job.Height, unique.Shapes)
	resolution := Resolution(unique.Shapes, angles)

	var failed []model.Polygon
	failedNames := map[string]bool{}
	out := model.PackingResult{Sheets: []model.Container{job.EmptyContainer()}}
	for len(shapes) > 0 && ctx.Err() == nil {
		shape := shapes[0]
		shapes = shapes[1:]
		last := len(out.Sheets) - 1

		var (
			best   model.Container
			placed bool
		)
		if !failedNames[shape.Name()] {
			best, placed = place(ctx, out.Sheets[last], shape, angles, resolution, p)
		}
		if !placed {
			failed = append(failed, shape)
			failedNames[shape.Name()] = true
		} else {
			out.Sheets[last] = best
			_ = emit.Emit(out)
		}
		if out.Sheets[last].IsEmpty() {
			// The shape does not fit into an empty container.
			out.Sheets = out.Sheets[:last]
			break
		}
		if len(shapes) == 0 && len(failed) > 0 {
			out.Sheets = append(out.Sheets, job.EmptyContainer())
			_ = emit.Emit(out)
			shapes, failed = failed, nil
			clear(failedNames)
		}
	}
	if n := len(out.Sheets); n > 0 && out.Sheets[n-1].IsEmpty() {
		out.Sheets = out.Sheets[:n-1]
	}
	return out, ctx.Err() == nil
}

// place scans every angle and grid position for the best spot of shape in
// sheet.
func place(ctx context.Context, sheet model.Container, shape model.Polygon, angles []float64, resolution int32, p pass) (model.Container, bool) {
	anchor := shape.BoundingRect().Center()
	best, bestScore := sheet, -1.0
	superiors := p.superiors
	for _, angle := range angles {
		rotated := shape.Rotated(anchor, angle)
		for y := int32(0); y < sheet.Height(); y += resolution {
			for x := int32(0); x < sheet.Width(); x += resolution {
				if superiors <= 0 || ctx.Err() != nil {
					return best, bestScore >= 0
				}
				candidate := rotated.MovedTo(x, y)
				if !sheet.MayPlace(candidate) {
					continue
				}
				next := sheet
				next.Append(candidate)
				if score := p.metric(next); bestScore < 0 || score > bestScore {
					best, bestScore = next, score
					superiors--
				}
			}
		}
	}
	return best, bestScore >= 0
}

// Angles returns the candidate rotations: the angles between every pair of
// edges of the container and the shapes, rounded down to multiples of π/64,
// plus 0 and π. The result is sorted and free of duplicates.
func Angles(width, height int32, shapes []model.Polygon) []float64 {
	edges := []model.Line{
		{P1: model.Point{X: 0, Y: 0}, P2: model.Point{X: width, Y: 0}},
		{P1: model.Point{X: width, Y: 0}, P2: model.Point{X: width, Y: height}},
		{P1: model.Point{X: width, Y: height}, P2: model.Point{X: 0, Y: height}},
		{P1: model.Point{X: 0, Y: height}, P2: model.Point{X: 0, Y: 0}},
	}
	for _, s := range shapes {
		edges = append(edges, s.Edges()...)
	}

	angles := []float64{0, math.Pi}
	for i := range edges {
		for j := i; j < len(edges); j++ {
			a := model.AngleTo(edges[i], edges[j])
			a -= math.Mod(a, math.Pi/64)
			angles = append(angles, a)
		}
	}
	slices.Sort(angles)
	return slices.Compact(angles)
}

// Resolution returns the grid step: the GCD of the inner distances of every
// shape at every angle, each truncated to a multiple of Precision/10.
func Resolution(shapes []model.Polygon, angles []float64) int32 {
	const modulus = model.Precision / 10
	var distances []int32
	for _, s := range shapes {
		anchor := s.BoundingRect().Center()
		for _, a := range angles {
			for _, d := range s.Rotated(anchor, a).InnerDistances() {
				distances = append(distances, d-d%modulus)
			}
		}
	}
	slices.Sort(distances)
	distances = slices.Compact(distances)
	if r := model.GCDAll(distances); r > 0 {
		return r
	}
	return modulus
}
