package project

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/piwi3910/bakery/internal/model"
)

// ErrInvalidRandomParams reports inconsistent random job parameters.
var ErrInvalidRandomParams = errors.New("invalid random job parameters")

// RandomParams bounds the random job generator. All ranges are inclusive.
type RandomParams struct {
	MinSheetWidth  int     `json:"min_sheet_width"`
	MaxSheetWidth  int     `json:"max_sheet_width"`
	MinSheetHeight int     `json:"min_sheet_height"`
	MaxSheetHeight int     `json:"max_sheet_height"`
	MinShapes      int     `json:"min_shapes"` // shape types
	MaxShapes      int     `json:"max_shapes"`
	MinAmount      int     `json:"min_amount"` // copies per type
	MaxAmount      int     `json:"max_amount"`
	MinPoints      int     `json:"min_points"`
	MaxPoints      int     `json:"max_points"`
	MinScale       float64 `json:"min_scale"`
	MaxScale       float64 `json:"max_scale"`
	MinAngle       float64 `json:"min_angle"` // degrees
	MinSheets      int     `json:"min_sheets"`
	MaxSheets      int     `json:"max_sheets"`
}

// DefaultRandomParams returns the generator defaults.
func DefaultRandomParams() RandomParams {
	return RandomParams{
		MinSheetWidth:  2,
		MaxSheetWidth:  5,
		MinSheetHeight: 2,
		MaxSheetHeight: 5,
		MinShapes:      2,
		MaxShapes:      6,
		MinAmount:      5,
		MaxAmount:      15,
		MinPoints:      3,
		MaxPoints:      8,
		MinScale:       1,
		MaxScale:       3,
		MinAngle:       30,
		MinSheets:      5,
		MaxSheets:      5,
	}
}

// Validate checks that every range is ordered and usable.
func (p RandomParams) Validate() error {
	switch {
	case p.MinSheetWidth < 1 || p.MinSheetWidth > p.MaxSheetWidth:
		return fmt.Errorf("%w: sheet width range %d-%d", ErrInvalidRandomParams, p.MinSheetWidth, p.MaxSheetWidth)
	case p.MinSheetHeight < 1 || p.MinSheetHeight > p.MaxSheetHeight:
		return fmt.Errorf("%w: sheet height range %d-%d", ErrInvalidRandomParams, p.MinSheetHeight, p.MaxSheetHeight)
	case p.MinShapes < 1 || p.MinShapes > p.MaxShapes:
		return fmt.Errorf("%w: shape range %d-%d", ErrInvalidRandomParams, p.MinShapes, p.MaxShapes)
	case p.MinAmount < 1 || p.MinAmount > p.MaxAmount:
		return fmt.Errorf("%w: amount range %d-%d", ErrInvalidRandomParams, p.MinAmount, p.MaxAmount)
	case p.MinPoints < 3 || p.MinPoints > p.MaxPoints:
		return fmt.Errorf("%w: point range %d-%d", ErrInvalidRandomParams, p.MinPoints, p.MaxPoints)
	case p.MinScale <= 0 || p.MinScale > p.MaxScale:
		return fmt.Errorf("%w: scale range %g-%g", ErrInvalidRandomParams, p.MinScale, p.MaxScale)
	case p.MinAngle < 0 || p.MinAngle >= 90:
		return fmt.Errorf("%w: minimum angle %g", ErrInvalidRandomParams, p.MinAngle)
	case p.MinSheets < 1 || p.MinSheets > p.MaxSheets:
		return fmt.Errorf("%w: sheet range %d-%d", ErrInvalidRandomParams, p.MinSheets, p.MaxSheets)
	}
	return nil
}

func intBetween(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

func realBetween(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// RandomJob generates a job of random simple polygons. Every polygon
// starts at the origin, has no interior spike sharper than MinAngle and is
// scaled relative to the container. Shape types are generated until the
// total area would fill at least sheets-1 containers.
func RandomJob(params RandomParams, rng *rand.Rand) (model.PackingJob, error) {
	if err := params.Validate(); err != nil {
		return model.PackingJob{}, err
	}

	sheetWidth := realBetween(rng, float64(params.MinSheetWidth), float64(params.MaxSheetWidth))
	sheetHeight := realBetween(rng, float64(params.MinSheetHeight), float64(params.MaxSheetHeight))
	job := model.PackingJob{Width: model.Precise(sheetWidth), Height: model.Precise(sheetHeight)}

	sheets := intBetween(rng, params.MinSheets, params.MaxSheets)
	minArea := int64(sheets-1) * job.EmptyContainer().Area()

	for {
		job.Shapes = job.Shapes[:0]
		var area int64
		for types := intBetween(rng, params.MinShapes, params.MaxShapes); types > 0; {
			shape, ok := randomShape(params, rng)
			if !ok {
				continue
			}
			shape.SetName(fmt.Sprintf("Shape %d", types))
			sx := realBetween(rng, 1, sheetWidth) / realBetween(rng, params.MinScale, params.MaxScale)
			sy := realBetween(rng, 1, sheetHeight) / realBetween(rng, params.MinScale, params.MaxScale)
			shape.Scale(sx, sy)

			for range intBetween(rng, params.MinAmount, params.MaxAmount) {
				job.Shapes = append(job.Shapes, shape)
				area += shape.Area()
			}
			types--
		}
		if area >= minArea {
			return job, nil
		}
	}
}

// randomShape draws a unit-sized polygon. ok is false when the closed
// polygon is not simple, is flat or has an angle sharper than MinAngle.
func randomShape(params RandomParams, rng *rand.Rand) (model.Polygon, bool) {
	shape := model.NewPolygon("", model.Point{})
	points := intBetween(rng, params.MinPoints, params.MaxPoints)
	unit := int(model.Precise(1))
	for shape.Len() < points {
		shape.Append(model.Point{X: int32(rng.IntN(unit + 1)), Y: int32(rng.IntN(unit + 1))})
		if !shape.IsSimple() {
			shape.RemoveLast()
		}
	}
	shape.EnsureClosed(true)
	if !shape.IsSimple() || shape.Area() == 0 {
		return model.Polygon{}, false
	}

	edges := shape.Edges()
	for i := range edges {
		turn := model.AngleTo(edges[i], edges[(i+1)%len(edges)]) * 180 / math.Pi
		if d := math.Abs(turn - 180); d < params.MinAngle || d > 360-params.MinAngle {
			return model.Polygon{}, false
		}
	}
	return shape, true
}
