// Package export renders packing results to PDF reports, QR-coded shape
// labels, PNG previews, xlsx run reports and HTML score charts.
package export

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/bakery/internal/model"
)

// ErrNoSheets reports a result without any container to render.
var ErrNoSheets = errors.New("no sheets to export")

// shapeColor represents an RGB fill color for a placed shape.
type shapeColor struct {
	R, G, B int
}

// shapeColors is the fill palette for placed shapes.
var shapeColors = []shapeColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// colorFor picks the palette entry of a shape name. Equal names always get
// the same color.
func colorFor(name string) shapeColor {
	h := fnv.New32a()
	h.Write([]byte(name))
	return shapeColors[h.Sum32()%uint32(len(shapeColors))]
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	statsHeight  = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// ExportPDF generates a PDF document of a worker's result. Each sheet is
// rendered on its own page with the placed polygons, followed by a summary
// page with overall statistics.
func ExportPDF(path, worker string, result model.PackingResult) error {
	if len(result.Sheets) == 0 {
		return ErrNoSheets
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for i, sheet := range result.Sheets {
		pdf.AddPage()
		renderSheetPage(pdf, sheet, i+1)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, worker, result)

	return pdf.OutputFileAndClose(path)
}

// renderSheetPage draws a single container on the current PDF page.
func renderSheetPage(pdf *fpdf.Fpdf, sheet model.Container, sheetNum int) {
	width, height := model.Rounded(sheet.Width()), model.Rounded(sheet.Height())

	// Title
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Sheet %d (%g x %g)", sheetNum, width, height)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	// Stats line
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Shapes: %d | Used area: %.3f | Total area: %.3f | Utilization: %.1f%% | Density: %.1f%%",
		sheet.Len(), model.RoundedLong(sheet.ShapesArea()), model.RoundedLong(sheet.Area()),
		sheet.Utilization()*100, sheet.Density()*100)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - statsHeight

	// Scale the container to fit the drawing area
	scale := math.Min(drawWidth/width, drawHeight/height)
	canvasW := width * scale
	canvasH := height * scale

	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	// Container background
	pdf.SetFillColor(240, 240, 240)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	for _, shape := range sheet.Shapes() {
		drawShape(pdf, shape, scale, offsetX, offsetY)
	}

	drawDimensionAnnotations(pdf, width, height, offsetX, offsetY, canvasW, canvasH)
	drawShapesLegend(pdf, sheet, offsetY+canvasH+5)
}

// drawShape fills a placed polygon and labels it when its bounding box is
// large enough.
func drawShape(pdf *fpdf.Fpdf, shape model.Polygon, scale, offsetX, offsetY float64) {
	pts := make([]fpdf.PointType, 0, shape.Len())
	for _, p := range shape.Points() {
		pts = append(pts, fpdf.PointType{
			X: offsetX + model.Rounded(p.X)*scale,
			Y: offsetY + model.Rounded(p.Y)*scale,
		})
	}
	if len(pts) < 3 {
		return
	}

	col := colorFor(shape.Name())
	pdf.SetFillColor(col.R, col.G, col.B)
	pdf.SetDrawColor(30, 30, 30)
	pdf.SetLineWidth(0.3)
	pdf.Polygon(pts, "FD")

	bounds := shape.BoundingRect()
	bw := model.Rounded(bounds.Width()) * scale
	bh := model.Rounded(bounds.Height()) * scale
	if bw <= 15 || bh <= 8 {
		return
	}
	pdf.SetFont("Helvetica", "", labelFontSize(bw, bh))
	pdf.SetTextColor(0, 0, 0)
	label := shape.Name()
	labelW := pdf.GetStringWidth(label)
	if labelW >= bw-2 {
		return
	}
	c := shape.Centroid()
	cx := offsetX + model.Rounded(c.X)*scale
	cy := offsetY + model.Rounded(c.Y)*scale
	pdf.SetXY(cx-labelW/2, cy-2)
	pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
}

// drawDimensionAnnotations adds width and height labels outside the container rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, width, height, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	// Width annotation (below the container)
	widthLabel := fmt.Sprintf("%g", width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	// Height annotation (to the left of the container, rotated)
	heightLabel := fmt.Sprintf("%g", height)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawShapesLegend renders the shape names with their counts below the container.
func drawShapesLegend(pdf *fpdf.Fpdf, sheet model.Container, startY float64) {
	if sheet.IsEmpty() {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Shapes placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	u := model.ReduceToUnique(sheet.Shapes())
	for _, name := range u.Names {
		col := colorFor(name)
		label := fmt.Sprintf("%s x%d", name, u.Amounts[name])
		labelW := pdf.GetStringWidth(label) + 6

		// Wrap to next line if needed
		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final summary page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, worker string, result model.PackingResult) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Packing Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	summaryItems := []struct {
		label string
		value string
	}{
		{"Worker", worker},
		{"Total Sheets Used", fmt.Sprintf("%d", len(result.Sheets))},
		{"Score", fmt.Sprintf("%.1f%%", result.Score())},
		{"Density", fmt.Sprintf("%.1f%%", result.Density()*100)},
		{"Total Shapes Placed", fmt.Sprintf("%d", result.ShapeCount())},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Sheet Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{20, 50, 30, 40, 40, 60}
	headers := []string{"Sheet", "Dimensions", "Shapes", "Utilization", "Density", "Used / Total Area"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, sheet := range result.Sheets {
		// Continue the table on a new page when it runs off this one
		if y > pageHeight-marginBottom-10 {
			pdf.AddPage()
			y = marginTop
		}
		xPos = marginLeft
		rowData := []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%g x %g", model.Rounded(sheet.Width()), model.Rounded(sheet.Height())),
			fmt.Sprintf("%d", sheet.Len()),
			fmt.Sprintf("%.1f%%", sheet.Utilization()*100),
			fmt.Sprintf("%.1f%%", sheet.Density()*100),
			fmt.Sprintf("%.3f / %.3f", model.RoundedLong(sheet.ShapesArea()), model.RoundedLong(sheet.Area())),
		}

		// Alternate row background
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	// Footer
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by Bakery - polygon nesting", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// labelFontSize returns an appropriate font size based on the rectangle dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
