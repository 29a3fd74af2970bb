package importer

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/piwi3910/bakery/internal/model"
)

// ellipseSegments is the number of edges approximating circles and
// ellipses.
const ellipseSegments = 64

// ImportSVG imports shapes from an SVG file. rect, circle, ellipse and
// polygon elements become shapes with an amount of 1; the root width and
// height become the container size. line and polyline elements are open and
// skipped with a warning.
func ImportSVG(path string) ImportResult {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open SVG file: %v", err)}}
	}
	defer f.Close()
	return ImportSVGFromReader(f)
}

// ImportSVGFromReader imports shapes from SVG data.
func ImportSVGFromReader(r io.Reader) ImportResult {
	result := ImportResult{}
	dec := xml.NewDecoder(r)
	counter := 0

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Invalid SVG file: %v", err))
			return result
		}
		el, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		attrs := map[string]string{}
		for _, a := range el.Attr {
			attrs[a.Name.Local] = a.Value
		}

		var (
			name string
			pts  []model.PointF
		)
		switch el.Name.Local {
		case "svg":
			result.Width = svgLength(attrs["width"])
			result.Height = svgLength(attrs["height"])
			continue
		case "line", "polyline":
			result.Warnings = append(result.Warnings, fmt.Sprintf("Skipped open %s element", el.Name.Local))
			continue
		case "rect":
			x, y := svgLength(attrs["x"]), svgLength(attrs["y"])
			w, h := svgLength(attrs["width"]), svgLength(attrs["height"])
			if w < 0 || h < 0 {
				result.Errors = append(result.Errors, "rect width and height must not be negative")
				continue
			}
			if w == 0 || h == 0 {
				continue
			}
			name = fmt.Sprintf("rect-%d", counter)
			pts = []model.PointF{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}
		case "circle", "ellipse":
			cx, cy := svgLength(attrs["cx"]), svgLength(attrs["cy"])
			rx, ry := svgLength(attrs["r"]), svgLength(attrs["r"])
			if el.Name.Local == "ellipse" {
				rx, ry = svgLength(attrs["rx"]), svgLength(attrs["ry"])
			}
			if rx <= 0 || ry <= 0 {
				result.Errors = append(result.Errors, fmt.Sprintf("%s radius must be a positive number", el.Name.Local))
				continue
			}
			name = fmt.Sprintf("ellipse-%d", counter)
			pts = ellipsePoints(cx, cy, rx, ry, ellipseSegments)
		case "polygon":
			raw, ok := attrs["points"]
			if !ok {
				result.Errors = append(result.Errors, "polygon is missing points attribute")
				continue
			}
			pts, err = parseSVGPoints(raw)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Error while parsing polygon points: %v", err))
				continue
			}
			if len(pts) < 3 {
				result.Warnings = append(result.Warnings, "Skipped polygon with fewer than 3 points")
				continue
			}
			name = fmt.Sprintf("polygon-%d", counter)
		default:
			continue
		}
		counter++
		result.Shapes = append(result.Shapes, model.ShapeSpec{Name: name, Amount: 1, Points: pts})
	}

	if len(result.Shapes) == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, "No shapes found in SVG file")
	}
	return result
}

// svgLength parses a length attribute. Missing or unparsable values are 0;
// a px suffix is ignored.
func svgLength(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseSVGPoints parses an SVG points list. Coordinates are separated by
// commas and/or whitespace.
func parseSVGPoints(s string) ([]model.PointF, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields)%2 != 0 {
		return nil, errors.New("missing coordinate")
	}
	pts := make([]model.PointF, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, err
		}
		pts = append(pts, model.PointF{X: x, Y: y})
	}
	return pts, nil
}

func ellipsePoints(cx, cy, rx, ry float64, n int) []model.PointF {
	pts := make([]model.PointF, n)
	for i := range n {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = model.PointF{X: cx + rx*math.Cos(a), Y: cy + ry*math.Sin(a)}
	}
	return pts
}
