// Package gcode turns packing results into contour-cutting toolpaths, one
// program per container, and checks that the cutter fits between placed
// shapes.
package gcode

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/piwi3910/bakery/internal/model"
)

// ErrInvalidSettings reports settings that cannot produce a toolpath.
var ErrInvalidSettings = errors.New("invalid cutting settings")

// Settings describes the cutter and machine. Lengths are machine units;
// Scale converts job units to machine units.
type Settings struct {
	ToolDiameter  float64 `json:"tool_diameter"`
	CutDepth      float64 `json:"cut_depth"`
	PassDepth     float64 `json:"pass_depth"`
	SafeZ         float64 `json:"safe_z"`
	FeedRate      float64 `json:"feed_rate"`
	PlungeRate    float64 `json:"plunge_rate"`
	SpindleSpeed  float64 `json:"spindle_speed"`
	Scale         float64 `json:"scale"`
	DecimalPlaces int     `json:"decimal_places"`
}

// DefaultSettings returns settings for a 6mm end mill cutting 18mm stock
// in three passes, with one job unit per millimetre.
func DefaultSettings() Settings {
	return Settings{
		ToolDiameter:  6,
		CutDepth:      18,
		PassDepth:     6,
		SafeZ:         5,
		FeedRate:      1500,
		PlungeRate:    500,
		SpindleSpeed:  18000,
		Scale:         1,
		DecimalPlaces: 3,
	}
}

// Validate checks that every length and rate is usable.
func (s Settings) Validate() error {
	switch {
	case s.ToolDiameter < 0:
		return fmt.Errorf("%w: negative tool diameter", ErrInvalidSettings)
	case s.CutDepth <= 0 || s.PassDepth <= 0:
		return fmt.Errorf("%w: cut and pass depth must be positive", ErrInvalidSettings)
	case s.FeedRate <= 0 || s.PlungeRate <= 0:
		return fmt.Errorf("%w: feed and plunge rate must be positive", ErrInvalidSettings)
	case s.Scale <= 0:
		return fmt.Errorf("%w: scale must be positive", ErrInvalidSettings)
	case s.DecimalPlaces < 0 || s.DecimalPlaces > 6:
		return fmt.Errorf("%w: decimal places out of range 0-6", ErrInvalidSettings)
	}
	return nil
}

// Passes returns the number of depth passes per contour.
func (s Settings) Passes() int {
	return int(math.Ceil(s.CutDepth / s.PassDepth))
}

// Generator produces G-code from packed containers.
type Generator struct {
	Settings Settings
}

// New returns a Generator, or an error when the settings are invalid.
func New(settings Settings) (*Generator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Generator{Settings: settings}, nil
}

// GenerateSheet produces the program cutting every shape of one container.
func (g *Generator) GenerateSheet(sheet model.Container, sheetIndex int) string {
	var b strings.Builder

	g.writeHeader(&b, sheet, sheetIndex)
	for i, shape := range sheet.Shapes() {
		g.writeShape(&b, shape, i+1)
	}
	g.writeFooter(&b)
	return b.String()
}

// GenerateAll produces one program per container.
func (g *Generator) GenerateAll(result model.PackingResult) []string {
	codes := make([]string, 0, len(result.Sheets))
	for i, sheet := range result.Sheets {
		codes = append(codes, g.GenerateSheet(sheet, i+1))
	}
	return codes
}

// SummarizeAll parses every generated program back into moves and returns
// one Summary per container.
func (g *Generator) SummarizeAll(result model.PackingResult) ([]Summary, error) {
	codes := g.GenerateAll(result)
	sums := make([]Summary, 0, len(codes))
	for i, code := range codes {
		moves, err := Parse(code)
		if err != nil {
			return nil, fmt.Errorf("sheet %d: %w", i+1, err)
		}
		sums = append(sums, Summarize(moves))
	}
	return sums, nil
}

// Export writes one prefix-N.nc file per container to dir and returns the
// written paths.
func (g *Generator) Export(result model.PackingResult, dir, prefix string) ([]string, error) {
	if len(result.Sheets) == 0 {
		return nil, errors.New("no sheets to cut")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	var paths []string
	for i, code := range g.GenerateAll(result) {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.nc", prefix, i+1))
		if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (g *Generator) writeHeader(b *strings.Builder, sheet model.Container, idx int) {
	s := g.Settings
	w, h := model.Rounded(sheet.Width())*s.Scale, model.Rounded(sheet.Height())*s.Scale

	b.WriteString(g.comment(fmt.Sprintf("Bakery contour program, sheet %d", idx)))
	b.WriteString(g.comment(fmt.Sprintf("Stock: %s x %s", g.format(w), g.format(h))))
	b.WriteString(g.comment(fmt.Sprintf("Shapes: %d, utilization: %.1f%%", sheet.Len(), sheet.Utilization()*100)))
	b.WriteString(g.comment(fmt.Sprintf("Tool: %s, feed: %.0f, plunge: %.0f", g.format(s.ToolDiameter), s.FeedRate, s.PlungeRate)))
	b.WriteString(g.comment(fmt.Sprintf("Depth: %s in %d passes", g.format(s.CutDepth), s.Passes())))
	b.WriteString("\n")

	b.WriteString("G21\n") // millimetres
	b.WriteString("G90\n") // absolute positioning
	b.WriteString("G17\n") // XY plane
	if s.SpindleSpeed > 0 {
		fmt.Fprintf(b, "M3 S%.0f\n", s.SpindleSpeed)
	}
	fmt.Fprintf(b, "G0 Z%s\n", g.format(s.SafeZ))
	fmt.Fprintf(b, "G0 X%s Y%s\n", g.format(0), g.format(0))
	b.WriteString("\n")
}

func (g *Generator) writeFooter(b *strings.Builder) {
	b.WriteString(g.comment("Job complete"))
	fmt.Fprintf(b, "G0 Z%s\n", g.format(g.Settings.SafeZ))
	b.WriteString("G0 X0 Y0\n")
	if g.Settings.SpindleSpeed > 0 {
		b.WriteString("M5\n")
	}
	b.WriteString("M30\n")
}

// writeShape cuts the outline of one shape, offset outward by the tool
// radius, in depth passes.
func (g *Generator) writeShape(b *strings.Builder, shape model.Polygon, num int) {
	s := g.Settings
	bounds := shape.BoundingRect()
	b.WriteString(g.comment(fmt.Sprintf("Shape %d: %s (%s x %s)", num, shape.Name(),
		g.format(model.Rounded(bounds.Width())*s.Scale), g.format(model.Rounded(bounds.Height())*s.Scale))))

	path := offsetOutline(outline(shape, s.Scale), s.ToolDiameter/2)
	if len(path) < 3 {
		b.WriteString(g.comment("Outline has fewer than 3 points, skipped"))
		return
	}

	passes := s.Passes()
	for pass := 1; pass <= passes; pass++ {
		depth := math.Min(float64(pass)*s.PassDepth, s.CutDepth)
		b.WriteString(g.comment(fmt.Sprintf("Pass %d/%d, depth %s", pass, passes, g.format(depth))))

		fmt.Fprintf(b, "G0 X%s Y%s\n", g.format(path[0].X), g.format(path[0].Y))
		fmt.Fprintf(b, "G1 Z%s F%s\n", g.format(-depth), g.format(s.PlungeRate))
		for i := 1; i < len(path); i++ {
			fmt.Fprintf(b, "G1 X%s Y%s F%s\n", g.format(path[i].X), g.format(path[i].Y), g.format(s.FeedRate))
		}
		fmt.Fprintf(b, "G1 X%s Y%s F%s\n", g.format(path[0].X), g.format(path[0].Y), g.format(s.FeedRate))
		fmt.Fprintf(b, "G0 Z%s\n", g.format(s.SafeZ))
	}
	b.WriteString("\n")
}

// outline returns the open vertex list of a shape in machine units.
func outline(shape model.Polygon, scale float64) []model.PointF {
	pts := shape.Points()
	if shape.IsClosed() && len(pts) > 0 {
		pts = pts[:len(pts)-1]
	}
	out := make([]model.PointF, len(pts))
	for i, p := range pts {
		out[i] = model.PointF{X: model.Rounded(p.X) * scale, Y: model.Rounded(p.Y) * scale}
	}
	return out
}

const minMiter = 0.1

// offsetOutline moves every edge outward by dist and joins neighbouring
// edges with a miter. The outward side is derived from the winding.
func offsetOutline(pts []model.PointF, dist float64) []model.PointF {
	n := len(pts)
	if n < 3 || dist == 0 {
		return pts
	}

	// Right-hand normals point outward for counter-clockwise outlines.
	side := 1.0
	if signedArea(pts) < 0 {
		side = -1
	}

	out := make([]model.PointF, n)
	for i := range n {
		prev, curr, next := pts[(i-1+n)%n], pts[i], pts[(i+1)%n]

		n1x, n1y := normalize(curr.Y-prev.Y, prev.X-curr.X)
		n2x, n2y := normalize(next.Y-curr.Y, curr.X-next.X)

		// Miter join, limited for spikes sharper than about 25 degrees.
		k := dist / math.Max(1+n1x*n2x+n1y*n2y, minMiter)
		out[i] = model.PointF{X: curr.X + side*(n1x+n2x)*k, Y: curr.Y + side*(n1y+n2y)*k}
	}
	return out
}

func signedArea(pts []model.PointF) float64 {
	var a float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// comment wraps text in G-code comment syntax.
func (g *Generator) comment(text string) string {
	return "(" + strings.NewReplacer("(", "[", ")", "]").Replace(text) + ")\n"
}

// format formats a coordinate with the configured decimal places.
func (g *Generator) format(v float64) string {
	if v == 0 {
		v = 0 // no negative zero
	}
	return fmt.Sprintf("%.*f", g.Settings.DecimalPlaces, v)
}

// normalize returns a unit vector in the given direction.
func normalize(x, y float64) (float64, float64) {
	length := math.Hypot(x, y)
	if length < 1e-9 {
		return 0, 0
	}
	return x / length, y / length
}
