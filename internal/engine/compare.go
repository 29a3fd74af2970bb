package engine

import (
	"slices"
	"time"

	"github.com/maruel/natural"

	"github.com/piwi3910/bakery/internal/model"
)

// ComparisonRow holds the result and computed statistics of one worker in
// a run.
type ComparisonRow struct {
	Worker       string
	Valid        bool
	SheetsUsed   int
	ShapesPlaced int
	Score        float64
	Density      float64
	WastePercent float64
	Duration     time.Duration
	Result       model.PackingResult
}

// CompareWorkers builds one row per report for side-by-side comparison.
// Valid results come first, best score first; equal scores keep natural
// name order. Invalid results follow in name order.
func CompareWorkers(reports []WorkerReport) []ComparisonRow {
	rows := make([]ComparisonRow, 0, len(reports))

	for _, rep := range reports {
		score := rep.Result.Score()
		waste := 100.0 - score
		if len(rep.Result.Sheets) == 0 {
			waste = 0
		}

		rows = append(rows, ComparisonRow{
			Worker:       rep.Worker,
			Valid:        rep.Valid,
			SheetsUsed:   len(rep.Result.Sheets),
			ShapesPlaced: rep.Result.ShapeCount(),
			Score:        score,
			Density:      rep.Result.Density(),
			WastePercent: waste,
			Duration:     rep.Duration,
			Result:       rep.Result,
		})
	}

	slices.SortStableFunc(rows, func(a, b ComparisonRow) int {
		switch {
		case a.Valid != b.Valid:
			if a.Valid {
				return -1
			}
			return 1
		case a.Valid && a.Score != b.Score:
			if a.Score > b.Score {
				return -1
			}
			return 1
		case natural.Less(a.Worker, b.Worker):
			return -1
		case natural.Less(b.Worker, a.Worker):
			return 1
		}
		return 0
	})
	return rows
}

// Compare returns the comparison rows of the run's finished workers.
func (r *Run) Compare() []ComparisonRow {
	return CompareWorkers(r.Reports())
}
