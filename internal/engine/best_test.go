package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/bakery/internal/model"
)

// resultWithUtilization returns a one-sheet result covering frac of a 1×1
// container.
func resultWithUtilization(name string, frac float64) model.PackingResult {
	c := model.NewContainer(model.Precise(1), model.Precise(1))
	c.Append(model.NewClosedPolygon(name,
		model.P(0, 0), model.P(frac, 0), model.P(frac, 1), model.P(0, 1)))
	return model.PackingResult{Sheets: []model.Container{c}}
}

func TestFindBestOutput(t *testing.T) {
	outputs := map[string]model.PackingResult{
		"A": resultWithUtilization("a", 0.4),
		"B": resultWithUtilization("b", 0.75),
		"C": resultWithUtilization("c", 0.75),
	}
	require.InDelta(t, 40.0, outputs["A"].Score(), 1e-9)

	name, result, ok := FindBestOutput(outputs)
	require.True(t, ok)
	assert.Equal(t, "C", name, "ties resolve to the last candidate")
	assert.True(t, result.Equal(outputs["C"]))
}

func TestFindBestOutput_NaturalOrder(t *testing.T) {
	outputs := map[string]model.PackingResult{
		"worker10": resultWithUtilization("x", 0.5),
		"worker9":  resultWithUtilization("x", 0.5),
		"worker2":  resultWithUtilization("x", 0.5),
	}
	name, _, ok := FindBestOutput(outputs)
	require.True(t, ok)
	assert.Equal(t, "worker10", name)
}

func TestFindBestOutput_Empty(t *testing.T) {
	_, _, ok := FindBestOutput(nil)
	assert.False(t, ok)
}

func TestCompareWorkers(t *testing.T) {
	reports := []WorkerReport{
		{Worker: "low", Valid: true, Result: resultWithUtilization("a", 0.25)},
		{Worker: "broken", Valid: false, Result: resultWithUtilization("a", 0.9)},
		{Worker: "high", Valid: true, Result: resultWithUtilization("a", 0.5)},
		{Worker: "empty", Valid: false},
	}

	rows := CompareWorkers(reports)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"high", "low", "broken", "empty"},
		[]string{rows[0].Worker, rows[1].Worker, rows[2].Worker, rows[3].Worker})

	assert.Equal(t, 1, rows[0].SheetsUsed)
	assert.Equal(t, 1, rows[0].ShapesPlaced)
	assert.InDelta(t, 50.0, rows[0].Score, 1e-9)
	assert.InDelta(t, 50.0, rows[0].WastePercent, 1e-9)
	assert.InDelta(t, 1.0, rows[0].Density, 1e-9)
	assert.Zero(t, rows[3].WastePercent)
}
