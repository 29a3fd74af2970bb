package gcode

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piwi3910/bakery/internal/model"
)

func square(name string, x, y, size float64) model.Polygon {
	return model.NewClosedPolygon(name,
		model.P(x, y), model.P(x+size, y), model.P(x+size, y+size), model.P(x, y+size))
}

func newTestSettings() Settings {
	s := DefaultSettings()
	s.ToolDiameter = 2
	s.CutDepth = 6
	s.PassDepth = 3
	s.FeedRate = 1000
	s.PlungeRate = 300
	s.SpindleSpeed = 12000
	return s
}

func newTestSheet() model.Container {
	c := model.NewContainer(model.Precise(100), model.Precise(50))
	c.Append(square("Panel", 10, 10, 10))
	return c
}

func newTestGenerator(t *testing.T, s Settings) *Generator {
	t.Helper()
	g, err := New(s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestNew_InvalidSettings(t *testing.T) {
	for name, mutate := range map[string]func(*Settings){
		"negative tool": func(s *Settings) { s.ToolDiameter = -1 },
		"zero depth":    func(s *Settings) { s.CutDepth = 0 },
		"zero pass":     func(s *Settings) { s.PassDepth = 0 },
		"zero feed":     func(s *Settings) { s.FeedRate = 0 },
		"zero scale":    func(s *Settings) { s.Scale = 0 },
		"decimals":      func(s *Settings) { s.DecimalPlaces = 9 },
	} {
		s := newTestSettings()
		mutate(&s)
		if _, err := New(s); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestGenerateSheet_Structure(t *testing.T) {
	code := newTestGenerator(t, newTestSettings()).GenerateSheet(newTestSheet(), 1)

	for _, want := range []string{"G21\n", "G90\n", "M3 S12000\n", "M5\n", "M30\n", "(Shape 1: Panel [10.000 x 10.000])"} {
		if !strings.Contains(code, want) {
			t.Errorf("expected %q in output", want)
		}
	}
	if got := strings.Count(code, "(Pass "); got != 2 {
		t.Errorf("expected 2 passes, got %d", got)
	}
	if !strings.HasSuffix(code, "M30\n") {
		t.Error("program should end with M30")
	}
}

func TestGenerateSheet_NoSpindle(t *testing.T) {
	s := newTestSettings()
	s.SpindleSpeed = 0
	code := newTestGenerator(t, s).GenerateSheet(newTestSheet(), 1)
	if strings.Contains(code, "M3") || strings.Contains(code, "M5") {
		t.Error("spindle commands emitted without a spindle speed")
	}
}

func TestGenerateSheet_OffsetPath(t *testing.T) {
	moves, err := Parse(newTestGenerator(t, newTestSettings()).GenerateSheet(newTestSheet(), 1))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var minX, minY, maxX, maxY = math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)
	for _, m := range moves {
		if m.Kind != Cut {
			continue
		}
		minX, maxX = math.Min(minX, m.To.X), math.Max(maxX, m.To.X)
		minY, maxY = math.Min(minY, m.To.Y), math.Max(maxY, m.To.Y)
	}
	// The 10 x 10 square at (10, 10) cut with a 2 unit tool.
	for name, got := range map[string][2]float64{
		"minX": {minX, 9}, "minY": {minY, 9}, "maxX": {maxX, 21}, "maxY": {maxY, 21},
	} {
		if math.Abs(got[0]-got[1]) > 1e-3 {
			t.Errorf("%s = %f, want %f", name, got[0], got[1])
		}
	}
}

func TestOffsetOutline_Clockwise(t *testing.T) {
	cw := []model.PointF{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}}
	out := offsetOutline(cw, 1)
	if out[0].X != -1 || out[0].Y != -1 {
		t.Errorf("clockwise corner offset to %+v, want (-1, -1)", out[0])
	}
	if out[2].X != 5 || out[2].Y != 5 {
		t.Errorf("clockwise corner offset to %+v, want (5, 5)", out[2])
	}
}

func TestOffsetOutline_ZeroDistance(t *testing.T) {
	pts := []model.PointF{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	if out := offsetOutline(pts, 0); &out[0] != &pts[0] {
		t.Error("zero offset should return the outline unchanged")
	}
}

func TestGenerateSheet_Scale(t *testing.T) {
	s := newTestSettings()
	s.Scale = 10
	s.ToolDiameter = 0
	code := newTestGenerator(t, s).GenerateSheet(newTestSheet(), 1)
	if !strings.Contains(code, "G1 X200.000 Y200.000") {
		t.Error("expected scaled corner at (200, 200)")
	}
	if !strings.Contains(code, "(Stock: 1000.000 x 500.000)") {
		t.Error("expected scaled stock size")
	}
}

func TestGenerateAll(t *testing.T) {
	result := model.PackingResult{Sheets: []model.Container{newTestSheet(), newTestSheet()}}
	codes := newTestGenerator(t, newTestSettings()).GenerateAll(result)
	if len(codes) != 2 {
		t.Fatalf("expected 2 programs, got %d", len(codes))
	}
	if !strings.Contains(codes[1], "sheet 2") {
		t.Error("second program should be labelled sheet 2")
	}
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nc")
	g := newTestGenerator(t, newTestSettings())

	if _, err := g.Export(model.PackingResult{}, dir, "bakery"); err == nil {
		t.Error("expected error for empty result")
	}

	result := model.PackingResult{Sheets: []model.Container{newTestSheet(), newTestSheet()}}
	paths, err := g.Export(result, dir, "bakery")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[1]) != "bakery-2.nc" {
		t.Fatalf("unexpected paths %v", paths)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "M30") {
		t.Error("exported file is not a complete program")
	}
}

func TestFormat(t *testing.T) {
	g := &Generator{Settings: Settings{DecimalPlaces: 2}}
	if got := g.format(math.Copysign(0, -1)); got != "0.00" {
		t.Errorf("format(-0) = %q", got)
	}
	if got := g.format(-2.5); got != "-2.50" {
		t.Errorf("format(-2.5) = %q", got)
	}
}

func TestSummarizeAll(t *testing.T) {
	result := model.PackingResult{Sheets: []model.Container{newTestSheet()}}
	sums, err := newTestGenerator(t, newTestSettings()).SummarizeAll(result)
	if err != nil {
		t.Fatalf("SummarizeAll: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(sums))
	}
	s := sums[0]
	if s.Plunges != 2 {
		t.Errorf("plunges = %d, want 2", s.Plunges)
	}
	if s.CutsBelowTop != 8 {
		t.Errorf("cuts below top = %d, want 8", s.CutsBelowTop)
	}
	// Two passes around a 12 x 12 path, plunging 8 and then 11 from safe Z.
	if math.Abs(s.CutLength-115) > 1e-6 {
		t.Errorf("cut length = %f, want 115", s.CutLength)
	}
	if s.MinZ != -6 {
		t.Errorf("min Z = %f, want -6", s.MinZ)
	}
}
