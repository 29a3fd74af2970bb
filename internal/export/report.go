package export

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/bakery/internal/engine"
	"github.com/piwi3910/bakery/internal/model"
)

// ErrNoRows reports a run report without any worker.
var ErrNoRows = errors.New("no worker results to report")

const (
	summarySheet    = "Summary"
	placementsSheet = "Placements"
	offcutsSheet    = "Offcuts"

	// Offcuts narrower than this fraction of the smaller container side
	// are waste.
	offcutMinFraction = 10
)

var (
	summaryHeaders   = []string{"Rank", "Worker", "Valid", "Sheets", "Shapes", "Score (%)", "Density (%)", "Waste (%)", "Duration (s)"}
	placementHeaders = []string{"Worker", "Sheet", "Shape", "X", "Y", "Width", "Height", "Area", "Vertices"}
	offcutHeaders    = []string{"ID", "Sheet", "X", "Y", "Width", "Height", "Area"}
)

// ExportReport writes an xlsx workbook comparing the workers of a run.
// The Summary sheet holds one row per worker, the Placements sheet lists
// every shape placed by a valid worker.
func ExportReport(path string, job model.PackingJob, rows []engine.ComparisonRow) error {
	if len(rows) == 0 {
		return ErrNoRows
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{placementsSheet, offcutsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummary(f, job, rows, bold); err != nil {
		return err
	}
	if err := writePlacements(f, rows, bold); err != nil {
		return err
	}
	if err := writeOffcuts(f, job, rows, bold); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, job model.PackingJob, rows []engine.ComparisonRow, headerStyle int) error {
	info := [][]any{
		{"Container", fmt.Sprintf("%g x %g", model.Rounded(job.Width), model.Rounded(job.Height))},
		{"Shapes", len(job.Shapes)},
		{"Shape area", model.RoundedLong(job.Area())},
		{"Containers needed", model.EstimateContainers(job, 0).Min},
	}
	for i, r := range info {
		if err := setRow(f, summarySheet, i+1, r); err != nil {
			return err
		}
	}

	headerRow := len(info) + 2
	if err := writeHeader(f, summarySheet, headerRow, summaryHeaders, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		rank := any("")
		if row.Valid {
			rank = i + 1
		}
		values := []any{
			rank,
			row.Worker,
			row.Valid,
			row.SheetsUsed,
			row.ShapesPlaced,
			round2(row.Score),
			round2(row.Density * 100),
			round2(row.WastePercent),
			round2(row.Duration.Seconds()),
		}
		if err := setRow(f, summarySheet, headerRow+1+i, values); err != nil {
			return err
		}
	}
	return f.SetColWidth(summarySheet, "B", "B", 24)
}

func writePlacements(f *excelize.File, rows []engine.ComparisonRow, headerStyle int) error {
	if err := writeHeader(f, placementsSheet, 1, placementHeaders, headerStyle); err != nil {
		return err
	}
	line := 2
	for _, row := range rows {
		if !row.Valid {
			continue
		}
		for _, info := range CollectLabelInfos(row.Result) {
			values := []any{row.Worker, info.SheetIndex, info.Shape, info.X, info.Y, info.Width, info.Height, info.Area, info.Vertices}
			if err := setRow(f, placementsSheet, line, values); err != nil {
				return err
			}
			line++
		}
	}
	return f.SetColWidth(placementsSheet, "A", "C", 18)
}

func writeOffcuts(f *excelize.File, job model.PackingJob, rows []engine.ComparisonRow, headerStyle int) error {
	if err := writeHeader(f, offcutsSheet, 1, offcutHeaders, headerStyle); err != nil {
		return err
	}
	// Rows are sorted best first.
	if !rows[0].Valid {
		return nil
	}
	minSide := min(job.Width, job.Height) / offcutMinFraction
	offcuts := model.DetectAllOffcuts(rows[0].Result, minSide)
	for i, o := range offcuts {
		values := []any{
			o.ID,
			o.Sheet + 1,
			model.Rounded(o.Rect.Min.X),
			model.Rounded(o.Rect.Min.Y),
			model.Rounded(o.Rect.Width()),
			model.Rounded(o.Rect.Height()),
			round2(model.RoundedLong(o.Area())),
		}
		if err := setRow(f, offcutsSheet, i+2, values); err != nil {
			return err
		}
	}
	if len(offcuts) == 0 {
		return nil
	}
	total := []any{"Total", "", "", "", "", "", round2(model.RoundedLong(model.TotalOffcutArea(offcuts)))}
	return setRow(f, offcutsSheet, len(offcuts)+2, total)
}

func writeHeader(f *excelize.File, sheet string, row int, headers []string, style int) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := setRow(f, sheet, row, values); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(headers), row)
	return f.SetCellStyle(sheet, first, last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
