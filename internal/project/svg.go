package project

import (
	"encoding/xml"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/piwi3910/bakery/internal/model"
)

// svgScale is the number of SVG user units per real unit of the document
// size.
const svgScale = 100.0

type svgDoc struct {
	XMLName  xml.Name     `xml:"svg"`
	Xmlns    string       `xml:"xmlns,attr"`
	Width    string       `xml:"width,attr"`
	Height   string       `xml:"height,attr"`
	ViewBox  string       `xml:"viewBox,attr"`
	Polygons []svgPolygon `xml:"polygon"`
}

type svgPolygon struct {
	Name   string `xml:"id,attr,omitempty"`
	Points string `xml:"points,attr"`
	Style  string `xml:"style,attr"`
}

// ShapeColor returns a stable fill colour for a shape name as #rrggbb.
func ShapeColor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	v := h.Sum32()
	return fmt.Sprintf("#%02x%02x%02x", byte(v>>16)%255, byte(v>>8)%255, byte(v)%255)
}

// WriteSheetSVG renders one container as an SVG document.
func WriteSheetSVG(w io.Writer, sheet model.Container) error {
	width := model.Rounded(sheet.Width())
	height := model.Rounded(sheet.Height())
	doc := svgDoc{
		Xmlns:   "http://www.w3.org/2000/svg",
		Width:   formatReal(width * svgScale),
		Height:  formatReal(height * svgScale),
		ViewBox: fmt.Sprintf("0 0 %s %s", formatReal(width), formatReal(height)),
	}
	for _, shape := range sheet.Shapes() {
		var pts strings.Builder
		for _, p := range shape.Points() {
			fmt.Fprintf(&pts, "%s,%s ", formatReal(model.Rounded(p.X)), formatReal(model.Rounded(p.Y)))
		}
		doc.Polygons = append(doc.Polygons, svgPolygon{
			Name:   shape.Name(),
			Points: strings.TrimSpace(pts.String()),
			Style:  fmt.Sprintf("fill:%s;stroke:#000;stroke-width:0.01", ShapeColor(shape.Name())),
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ExportSVG writes one SVG file per sheet of result into dir, named
// prefix-1.svg, prefix-2.svg and so on. dir is created if needed.
func ExportSVG(result model.PackingResult, dir, prefix string) error {
	if len(result.Sheets) == 0 {
		return ErrNoSheets
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i, sheet := range result.Sheets {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.svg", prefix, i+1))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := WriteSheetSVG(f, sheet); err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
