package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/bakery/internal/model"
)

// ErrNoShapes reports a result whose sheets hold no shapes.
var ErrNoShapes = errors.New("no shapes placed to generate labels for")

// LabelInfo holds the data encoded into each shape label's QR code.
// Coordinates are real units.
type LabelInfo struct {
	Shape      string  `json:"shape"`
	SheetIndex int     `json:"sheet"`
	Index      int     `json:"index"` // position within the sheet
	X          float64 `json:"x"`     // bounding box origin
	Y          float64 `json:"y"`
	Width      float64 `json:"width"` // bounding box size
	Height     float64 `json:"height"`
	Area       float64 `json:"area"`
	Vertices   int     `json:"vertices"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportLabels generates a PDF of QR-coded labels for all placed shapes.
// Each label contains the shape name, its bounding box and a QR code
// encoding the LabelInfo as JSON. Labels are laid out on a standard label
// sheet format (Avery 5160 / 3 columns x 10 rows on US Letter).
func ExportLabels(path string, result model.PackingResult) error {
	if len(result.Sheets) == 0 {
		return ErrNoSheets
	}

	labels := CollectLabelInfos(result)
	if len(labels) == 0 {
		return ErrNoShapes
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.Shape, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info LabelInfo) error {
	// Light border for cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%d_%d", info.SheetIndex, info.Index)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	// QR code on the right side of the label
	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)

	name := info.Shape
	if pdf.GetStringWidth(name) > textW {
		for len(name) > 0 && pdf.GetStringWidth(name+"...") > textW {
			name = name[:len(name)-1]
		}
		name += "..."
	}
	pdf.CellFormat(textW, 4.5, name, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	dims := fmt.Sprintf("%g x %g, %d vertices", info.Width, info.Height, info.Vertices)
	pdf.CellFormat(textW, 3.5, dims, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	sheetInfo := fmt.Sprintf("Sheet %d #%d @ (%g, %g)", info.SheetIndex, info.Index+1, info.X, info.Y)
	pdf.CellFormat(textW, 3, sheetInfo, "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)

	return nil
}

// CollectLabelInfos extracts label information from a result for use in
// testing or alternative export formats.
func CollectLabelInfos(result model.PackingResult) []LabelInfo {
	var labels []LabelInfo
	for sheetIdx, sheet := range result.Sheets {
		for i, shape := range sheet.Shapes() {
			b := shape.BoundingRect()
			labels = append(labels, LabelInfo{
				Shape:      shape.Name(),
				SheetIndex: sheetIdx + 1,
				Index:      i,
				X:          model.Rounded(b.Min.X),
				Y:          model.Rounded(b.Min.Y),
				Width:      model.Rounded(b.Width()),
				Height:     model.Rounded(b.Height()),
				Area:       model.RoundedLong(shape.Area()),
				Vertices:   openLen(shape),
			})
		}
	}
	return labels
}

// openLen returns the number of distinct vertices of a shape.
func openLen(p model.Polygon) int {
	if p.Len() > 0 && p.IsClosed() {
		return p.Len() - 1
	}
	return p.Len()
}
