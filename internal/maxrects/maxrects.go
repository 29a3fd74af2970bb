// Package maxrects implements a packing worker that places shapes by their
// bounding rectangles. Shapes are taken largest first and each container is
// filled with several rotation strategies, keeping the fullest.
package maxrects

import (
	"context"
	"math"
	"sort"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/workerkit"
)

// Config holds the packing parameters.
type Config struct {
	// Gap is the minimum spacing between bounding rectangles, in fixed
	// units.
	Gap int32
}

// strategy controls which orientation of a shape is tried first.
type strategy int

const (
	bestFit     strategy = iota // the orientation leaving less waste
	upright                     // as given, turned only when it does not fit
	quarterTurn                 // turned by 90 degrees, upright when it does not fit
)

var strategies = []strategy{bestFit, upright, quarterTurn}

// piece is a normalized shape in both orientations.
type piece struct {
	upright, turned model.Polygon
}

func newPiece(s model.Polygon) piece {
	n := s.Normalized()
	return piece{
		upright: n,
		turned:  n.Rotated(n.BoundingRect().Center(), math.Pi/2).Normalized(),
	}
}

func (p piece) area() int64 {
	b := p.upright.BoundingRect()
	return int64(b.Width()) * int64(b.Height())
}

func (p piece) square() bool {
	b := p.upright.BoundingRect()
	return b.Width() == b.Height()
}

// pack fills containers until every piece is placed or a piece fits no
// empty container. It returns the result and the pieces left over.
func pack(ctx context.Context, job model.PackingJob, config Config) (model.PackingResult, []piece) {
	pieces := make([]piece, len(job.Shapes))
	for i, s := range job.Shapes {
		pieces[i] = newPiece(s)
	}
	// Largest first.
	sort.SliceStable(pieces, func(i, j int) bool { return pieces[i].area() > pieces[j].area() })

	var result model.PackingResult
	remaining := pieces
	for len(remaining) > 0 && ctx.Err() == nil {
		sheet, left := packSheetBestStrategy(job, remaining, config)
		if sheet.IsEmpty() {
			break
		}
		result.Sheets = append(result.Sheets, sheet)
		remaining = left
	}
	return result, remaining
}

// packSheetBestStrategy tries every strategy on an empty container and keeps
// the one placing the most pieces, then the highest utilization.
func packSheetBestStrategy(job model.PackingJob, pieces []piece, config Config) (model.Container, []piece) {
	var (
		best     model.Container
		bestLeft []piece
		placed   = -1
	)
	for _, strat := range strategies {
		sheet, left := packSheet(job, pieces, strat, config)
		if sheet.Len() > placed || (sheet.Len() == placed && sheet.Utilization() > best.Utilization()) {
			best, bestLeft, placed = sheet, left, sheet.Len()
		}
	}
	return best, bestLeft
}

// packSheet places pieces into one empty container with the given strategy.
func packSheet(job model.PackingJob, pieces []piece, strat strategy, config Config) (model.Container, []piece) {
	sheet := job.EmptyContainer()
	p := newPacker(sheet.Width(), sheet.Height(), config.Gap)
	var left []piece

	for _, pc := range pieces {
		order := []model.Polygon{pc.upright, pc.turned}
		switch {
		case pc.square():
			order = order[:1]
		case strat == quarterTurn:
			order[0], order[1] = order[1], order[0]
		case strat == bestFit:
			if preferTurned(p, pc) {
				order[0], order[1] = order[1], order[0]
			}
		}

		if !place(p, &sheet, order) {
			left = append(left, pc)
		}
	}
	return sheet, left
}

// preferTurned reports whether the turned orientation fits tighter.
func preferTurned(p *packer, pc piece) bool {
	ub, tb := pc.upright.BoundingRect(), pc.turned.BoundingRect()
	_, _, uw, uok := p.find(ub.Width(), ub.Height())
	_, _, tw, tok := p.find(tb.Width(), tb.Height())
	return tok && (!uok || tw < uw)
}

// place puts the first orientation that fits into sheet.
func place(p *packer, sheet *model.Container, orientations []model.Polygon) bool {
	for _, s := range orientations {
		b := s.BoundingRect()
		x, y, _, ok := p.find(b.Width(), b.Height())
		if !ok {
			continue
		}
		candidate := s.MovedTo(x, y)
		if !sheet.MayPlace(candidate) {
			continue
		}
		p.place(x, y, b.Width(), b.Height())
		sheet.Append(candidate)
		return true
	}
	return false
}

// Worker is the maximal-rectangles packing algorithm.
type Worker struct {
	Config Config
}

var _ workerkit.Handler = Worker{}

// Metadata describes the maxrects worker.
func (Worker) Metadata() model.WorkerMetadata {
	return model.WorkerMetadata{
		Name:    "maxrects",
		Type:    "bounding-box",
		Author:  "Bakery developers",
		License: "LGPL3+",
	}
}

// BakeSheets packs job. When a shape fits no empty container the partial
// result is returned, which the orchestrator rejects as invalid.
func (w Worker) BakeSheets(ctx context.Context, job model.PackingJob, emit workerkit.Emitter) model.PackingResult {
	result, _ := pack(ctx, job, w.Config)
	return result
}
