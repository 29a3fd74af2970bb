package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/bakery/internal/model"
)

func TestExportLabels_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.pdf")

	if err := ExportLabels(path, buildTestResult()); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("output file not found: %v", err)
	}
	if info.Size() == 0 {
		t.Error("output file is empty")
	}
}

func TestExportLabels_EmptyResult(t *testing.T) {
	err := ExportLabels(filepath.Join(t.TempDir(), "labels.pdf"), model.PackingResult{})
	if !errors.Is(err, ErrNoSheets) {
		t.Errorf("expected ErrNoSheets, got %v", err)
	}
}

func TestExportLabels_NoShapes(t *testing.T) {
	result := model.PackingResult{Sheets: []model.Container{model.NewContainer(model.Precise(2), model.Precise(2))}}

	err := ExportLabels(filepath.Join(t.TempDir(), "labels.pdf"), result)
	if !errors.Is(err, ErrNoShapes) {
		t.Errorf("expected ErrNoShapes, got %v", err)
	}
}

func TestCollectLabelInfos(t *testing.T) {
	labels := CollectLabelInfos(buildTestResult())
	if len(labels) != 4 {
		t.Fatalf("expected 4 labels, got %d", len(labels))
	}

	first := labels[0]
	if first.Shape != "Side Panel" || first.SheetIndex != 1 || first.Index != 0 {
		t.Errorf("unexpected first label: %+v", first)
	}
	if first.Width != 4 || first.Height != 3 || first.Area != 12 {
		t.Errorf("expected 4 x 3 with area 12, got %v x %v area %v", first.Width, first.Height, first.Area)
	}
	if first.Vertices != 4 {
		t.Errorf("expected 4 vertices, got %d", first.Vertices)
	}

	wedge := labels[2]
	if wedge.Vertices != 3 || wedge.Area != 6 {
		t.Errorf("expected triangle of area 6, got %+v", wedge)
	}

	last := labels[3]
	if last.SheetIndex != 2 || last.X != 1 || last.Y != 1 {
		t.Errorf("unexpected last label: %+v", last)
	}
}

func TestLabelInfo_JSONRoundTrip(t *testing.T) {
	info := LabelInfo{Shape: "Top", SheetIndex: 1, Index: 2, X: 1.5, Y: 2, Width: 3, Height: 4, Area: 12, Vertices: 4}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded LabelInfo
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded != info {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, info)
	}
}

func TestExportLabels_ManyShapes(t *testing.T) {
	sheet := model.NewContainer(model.Precise(50), model.Precise(50))
	for i := range 45 {
		x, y := float64(i%9)*5, float64(i/9)*5
		sheet.Append(rect(fmt.Sprintf("A rather long shape name number %d", i), x, y, 4, 4))
	}

	path := filepath.Join(t.TempDir(), "labels.pdf")
	if err := ExportLabels(path, model.PackingResult{Sheets: []model.Container{sheet}}); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}
}
