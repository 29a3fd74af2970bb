package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/bakery/internal/model"
)

func TestExportPDF_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test_output.pdf")

	if err := ExportPDF(path, "typewriter", buildTestResult()); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("output file not found: %v", err)
	}
	if info.Size() == 0 {
		t.Error("output file is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		t.Error("output does not start with the PDF header")
	}
}

func TestExportPDF_EmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")

	err := ExportPDF(path, "typewriter", model.PackingResult{})
	if !errors.Is(err, ErrNoSheets) {
		t.Fatalf("expected ErrNoSheets, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("no file should be written for an empty result")
	}
}

func TestExportPDF_EmptySheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.pdf")

	result := model.PackingResult{Sheets: []model.Container{model.NewContainer(model.Precise(3), model.Precise(2))}}
	if err := ExportPDF(path, "none", result); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
}

func TestExportPDF_ManyShapes(t *testing.T) {
	sheet := model.NewContainer(model.Precise(20), model.Precise(20))
	for i := range 40 {
		x, y := float64(i%10)*2, float64(i/10)*2
		sheet.Append(rect(fmt.Sprintf("Tile %d", i%7), x, y, 1.5, 1.5))
	}
	result := model.PackingResult{Sheets: []model.Container{sheet, sheet, sheet}}

	path := filepath.Join(t.TempDir(), "many.pdf")
	if err := ExportPDF(path, "genetic", result); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
}

func TestColorFor_Stable(t *testing.T) {
	if colorFor("Side Panel") != colorFor("Side Panel") {
		t.Error("equal names should map to the same color")
	}
}

func TestLabelFontSize(t *testing.T) {
	tests := []struct {
		w, h float64
		want float64
	}{
		{50, 50, 8},
		{30, 25, 7},
		{10, 15, 6},
	}
	for _, tt := range tests {
		got := labelFontSize(tt.w, tt.h)
		if got != tt.want {
			t.Errorf("labelFontSize(%v, %v) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}
