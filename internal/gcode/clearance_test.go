package gcode

import (
	"math"
	"strings"
	"testing"

	"github.com/piwi3910/bakery/internal/model"
)

func sheetWith(shapes ...model.Polygon) model.PackingResult {
	c := model.NewContainer(model.Precise(100), model.Precise(100))
	c.Append(shapes...)
	return model.PackingResult{Sheets: []model.Container{c}}
}

func TestCheckClearance_Gap(t *testing.T) {
	s := newTestSettings() // 2 unit tool

	wide := sheetWith(square("A", 0, 0, 10), square("B", 12, 0, 10))
	if c := CheckClearance(wide, s); len(c) != 0 {
		t.Errorf("expected no conflicts for a gap equal to the tool, got %+v", c)
	}

	narrow := sheetWith(square("A", 0, 0, 10), square("B", 11, 0, 10), square("C", 50, 50, 10))
	conflicts := CheckClearance(narrow, s)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", conflicts)
	}
	c := conflicts[0]
	if c.Sheet != 0 || c.First != 0 || c.Second != 1 || c.Names != "A / B" {
		t.Errorf("unexpected conflict %+v", c)
	}
	if math.Abs(c.Distance-1) > 1e-9 {
		t.Errorf("distance = %f, want 1", c.Distance)
	}
}

func TestCheckClearance_Touching(t *testing.T) {
	tri := model.NewClosedPolygon("T", model.P(10, 0), model.P(20, 0), model.P(10, 10))
	conflicts := CheckClearance(sheetWith(square("A", 0, 0, 10), tri), newTestSettings())
	if len(conflicts) != 1 || conflicts[0].Distance != 0 {
		t.Errorf("expected a zero-distance conflict, got %+v", conflicts)
	}
}

func TestCheckClearance_Diagonal(t *testing.T) {
	// Corners 1 apart on each axis: sqrt(2) < 2.
	conflicts := CheckClearance(sheetWith(square("A", 0, 0, 10), square("B", 11, 11, 10)), newTestSettings())
	if len(conflicts) != 1 || math.Abs(conflicts[0].Distance-math.Sqrt2) > 1e-9 {
		t.Errorf("expected diagonal conflict at sqrt(2), got %+v", conflicts)
	}
}

func TestCheckClearance_Scale(t *testing.T) {
	s := newTestSettings()
	s.Scale = 10
	// A 1 unit gap is 10 machine units, clear of a 2 unit tool.
	if c := CheckClearance(sheetWith(square("A", 0, 0, 10), square("B", 11, 0, 10)), s); len(c) != 0 {
		t.Errorf("expected no conflicts after scaling, got %+v", c)
	}
}

func TestCheckClearance_NoTool(t *testing.T) {
	s := newTestSettings()
	s.ToolDiameter = 0
	if c := CheckClearance(sheetWith(square("A", 0, 0, 10), square("B", 10, 0, 10)), s); c != nil {
		t.Errorf("expected nil without a tool, got %+v", c)
	}
}

func TestFormatConflictWarnings(t *testing.T) {
	warnings := FormatConflictWarnings([]Conflict{{Sheet: 1, First: 0, Second: 2, Names: "A / C", Distance: 0.5}}, 2)
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	for _, want := range []string{"sheet 2", "shapes 1 and 3", "A / C", "0.500", "2.000"} {
		if !strings.Contains(warnings[0], want) {
			t.Errorf("warning %q missing %q", warnings[0], want)
		}
	}
}
