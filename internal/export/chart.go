package export

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/piwi3910/bakery/internal/engine"
)

// RenderScoreChart writes an HTML page with a bar chart of the valid
// workers' scores and densities.
func RenderScoreChart(w io.Writer, title string, rows []engine.ComparisonRow) error {
	var (
		names   []string
		scores  []opts.BarData
		density []opts.BarData
	)
	for _, row := range rows {
		if !row.Valid {
			continue
		}
		names = append(names, row.Worker)
		scores = append(scores, opts.BarData{Value: round2(row.Score)})
		density = append(density, opts.BarData{Value: round2(row.Density * 100)})
	}
	if len(names) == 0 {
		return ErrNoRows
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d valid workers", len(names))}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%", Min: 0, Max: 100}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("Score", scores).
		AddSeries("Density", density)
	return bar.Render(w)
}

// ExportScoreChart writes the score chart to an HTML file.
func ExportScoreChart(path, title string, rows []engine.ComparisonRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := RenderScoreChart(f, title, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
