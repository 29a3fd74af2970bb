package export

import (
	"github.com/piwi3910/bakery/internal/model"
)

// rect returns a closed rectangle polygon at (x, y) in real units.
func rect(name string, x, y, w, h float64) model.Polygon {
	return model.NewClosedPolygon(name,
		model.P(x, y), model.P(x+w, y), model.P(x+w, y+h), model.P(x, y+h))
}

// buildTestResult creates a two-sheet result on 10 x 5 containers.
func buildTestResult() model.PackingResult {
	s1 := model.NewContainer(model.Precise(10), model.Precise(5))
	s1.Append(
		rect("Side Panel", 0, 0, 4, 3),
		rect("Side Panel", 4, 0, 4, 3),
		model.NewClosedPolygon("Wedge", model.P(0, 3), model.P(6, 3), model.P(0, 5)),
	)
	s2 := model.NewContainer(model.Precise(10), model.Precise(5))
	s2.Append(rect("Back Panel", 1, 1, 8, 3))
	return model.PackingResult{Sheets: []model.Container{s1, s2}}
}
