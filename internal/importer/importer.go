// Package importer reads job shapes from CSV and Excel shape tables, DXF
// drawings and SVG files. It supports automatic delimiter detection,
// flexible column mapping, and case-insensitive header recognition.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/bakery/internal/model"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Shapes   []model.ShapeSpec
	Width    float64 // container size when the source defines one, else 0
	Height   float64
	Errors   []string
	Warnings []string
}

// Job expands the imported shapes into a job for containers of the given
// size.
func (r ImportResult) Job(width, height float64) model.PackingJob {
	return model.JobTemplate{Width: width, Height: height, Shapes: r.Shapes}.ToJob()
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	Name   int
	Amount int
	Points int
	Width  int // rectangles without a points column
	Height int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"name":   {"name", "label", "shape", "shape name", "part", "description", "desc", "item"},
	"amount": {"amount", "quantity", "qty", "count", "num", "copies", "pcs", "pieces"},
	"points": {"points", "outline", "vertices", "coordinates", "coords", "polygon"},
	"width":  {"width", "w", "length", "len"},
	"height": {"height", "h", "depth", "d"},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		// Prefer delimiters with higher consistency and more columns
		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// It performs case-insensitive matching against known aliases for each column role.
// Returns the mapping and true if a header was detected, or the positional
// mapping name, amount, points and false if no header was found.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{Name: -1, Amount: -1, Points: -1, Width: -1, Height: -1}
	roles := map[string]*int{
		"name":   &mapping.Name,
		"amount": &mapping.Amount,
		"points": &mapping.Points,
		"width":  &mapping.Width,
		"height": &mapping.Height,
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized == alias {
					isHeader = true
					if idx := roles[role]; *idx == -1 {
						*idx = i
					}
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{Name: 0, Amount: 1, Points: 2, Width: -1, Height: -1}, false
	}
	return mapping, true
}

// ParsePoints parses "x,y" pairs separated by whitespace or semicolons.
func ParsePoints(s string) ([]model.PointF, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	pts := make([]model.PointF, 0, len(fields))
	for _, f := range fields {
		xs, ys, ok := strings.Cut(f, ",")
		if !ok {
			return nil, fmt.Errorf("point %q is not an x,y pair", f)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x in %q", f)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid y in %q", f)
		}
		pts = append(pts, model.PointF{X: x, Y: y})
	}
	return pts, nil
}

// rectanglePoints returns the corners of a w×h rectangle at the origin.
func rectanglePoints(w, h float64) []model.PointF {
	return []model.PointF{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}

// getCell safely retrieves a cell value from a row by column index.
// Returns empty string if the index is out of range or negative.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow extracts a shape from a row using the given column mapping.
// Returns the shape and any error message.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, shapeCount int) (model.ShapeSpec, string) {
	name := getCell(row, mapping.Name)
	if name == "" {
		name = fmt.Sprintf("Shape %d", shapeCount+1)
	}

	amountStr := getCell(row, mapping.Amount)
	if amountStr == "" {
		return model.ShapeSpec{}, fmt.Sprintf("%s: Missing amount value", rowLabel)
	}
	amount, err := strconv.Atoi(amountStr)
	if err != nil {
		return model.ShapeSpec{}, fmt.Sprintf("%s: Invalid amount '%s'", rowLabel, amountStr)
	}
	if amount <= 0 {
		return model.ShapeSpec{}, fmt.Sprintf("%s: Amount must be positive", rowLabel)
	}

	var pts []model.PointF
	if pointsStr := getCell(row, mapping.Points); pointsStr != "" {
		pts, err = ParsePoints(pointsStr)
		if err != nil {
			return model.ShapeSpec{}, fmt.Sprintf("%s: %v", rowLabel, err)
		}
	} else {
		w, werr := strconv.ParseFloat(getCell(row, mapping.Width), 64)
		h, herr := strconv.ParseFloat(getCell(row, mapping.Height), 64)
		if werr != nil || herr != nil {
			return model.ShapeSpec{}, fmt.Sprintf("%s: Missing points or width and height", rowLabel)
		}
		if w <= 0 || h <= 0 {
			return model.ShapeSpec{}, fmt.Sprintf("%s: Width and height must be positive", rowLabel)
		}
		pts = rectanglePoints(w, h)
	}
	if len(pts) < 3 {
		return model.ShapeSpec{}, fmt.Sprintf("%s: A shape needs at least 3 points", rowLabel)
	}

	return model.ShapeSpec{Name: name, Amount: amount, Points: pts}, ""
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportCSV imports shapes from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
// Supports comma, semicolon, tab, and pipe delimiters.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", result.Warnings)
}

// ImportCSVFromReader imports shapes from a CSV reader with a specific delimiter.
// This is useful for testing or when the delimiter is already known.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", nil)
}

// ImportExcel imports shapes from an Excel (.xlsx) file.
// Reads the first sheet and auto-detects column mapping from headers.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "Sheet is empty")
		return result
	}

	return importFromRows(rows, "Row", nil)
}

// importFromRows is the shared import logic for both CSV and Excel data.
// It detects headers, maps columns, and parses each row into a shape.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		var missing []string
		if mapping.Amount == -1 {
			missing = append(missing, "Amount")
		}
		if mapping.Points == -1 && (mapping.Width == -1 || mapping.Height == -1) {
			missing = append(missing, "Points")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 2 {
		// Unrecognized header: the amount column is not numeric
		if _, err := strconv.Atoi(strings.TrimSpace(rows[0][1])); err != nil {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	seen := map[string]bool{}
	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		shape, errMsg := parseRow(row, mapping, rowLabel, len(result.Shapes))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if seen[shape.Name] {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: Duplicate shape name '%s'", rowLabel, shape.Name))
			continue
		}
		seen[shape.Name] = true
		result.Shapes = append(result.Shapes, shape)
	}

	return result
}

// ImportFile imports shapes from path, choosing the reader by file
// extension: .csv, .xlsx, .dxf or .svg.
func ImportFile(path string) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return ImportCSV(path)
	case ".xlsx", ".xlsm":
		return ImportExcel(path)
	case ".dxf":
		return ImportDXF(path)
	case ".svg":
		return ImportSVG(path)
	}
	return ImportResult{Errors: []string{fmt.Sprintf("Unsupported file type '%s'", filepath.Ext(path))}}
}
