package export

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"

	"github.com/piwi3910/bakery/internal/model"
)

// DefaultPixelsPerUnit is the PNG scale used when none is given.
const DefaultPixelsPerUnit = 100.0

// maxImageSide caps the longer image side so huge containers stay renderable.
const maxImageSide = 8192

var (
	backgroundColor = color.NRGBA{R: 240, G: 240, B: 240, A: 255}
	outlineColor    = color.NRGBA{R: 30, G: 30, B: 30, A: 255}
)

// RenderSheet rasterizes one container. Shapes are filled with the same
// per-name colors as the PDF export and outlined in dark gray.
func RenderSheet(sheet model.Container, pixelsPerUnit float64) *image.NRGBA {
	if pixelsPerUnit <= 0 {
		pixelsPerUnit = DefaultPixelsPerUnit
	}
	w := model.Rounded(sheet.Width()) * pixelsPerUnit
	h := model.Rounded(sheet.Height()) * pixelsPerUnit
	if m := math.Max(w, h); m > maxImageSide {
		pixelsPerUnit *= maxImageSide / m
		w, h = w*maxImageSide/m, h*maxImageSide/m
	}
	iw, ih := max(1, int(math.Ceil(w))), max(1, int(math.Ceil(h)))

	dst := imaging.New(iw, ih, backgroundColor)
	z := vector.NewRasterizer(iw, ih)

	for _, shape := range sheet.Shapes() {
		pts := pixelPoints(shape, pixelsPerUnit)
		if len(pts) < 3 {
			continue
		}
		c := colorFor(shape.Name())
		fill := color.NRGBA{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B), A: 255}

		z.Reset(iw, ih)
		z.MoveTo(pts[0][0], pts[0][1])
		for _, p := range pts[1:] {
			z.LineTo(p[0], p[1])
		}
		z.ClosePath()
		z.Draw(dst, dst.Bounds(), image.NewUniform(fill), image.Point{})

		z.Reset(iw, ih)
		for i := range pts {
			strokeEdge(z, pts[i], pts[(i+1)%len(pts)], 0.5)
		}
		z.Draw(dst, dst.Bounds(), image.NewUniform(outlineColor), image.Point{})
	}
	return dst
}

// pixelPoints maps a shape's open outline to image coordinates.
func pixelPoints(shape model.Polygon, pixelsPerUnit float64) [][2]float32 {
	n := openLen(shape)
	pts := make([][2]float32, 0, n)
	for i := range n {
		p := shape.At(i)
		pts = append(pts, [2]float32{
			float32(model.Rounded(p.X) * pixelsPerUnit),
			float32(model.Rounded(p.Y) * pixelsPerUnit),
		})
	}
	return pts
}

// strokeEdge adds the quad of a line segment with half width hw to the
// rasterizer's path.
func strokeEdge(z *vector.Rasterizer, a, b [2]float32, hw float32) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw
	z.MoveTo(a[0]+nx, a[1]+ny)
	z.LineTo(b[0]+nx, b[1]+ny)
	z.LineTo(b[0]-nx, b[1]-ny)
	z.LineTo(a[0]-nx, a[1]-ny)
	z.ClosePath()
}

// Thumbnail renders a container scaled to fit within maxW x maxH pixels.
func Thumbnail(sheet model.Container, maxW, maxH int) *image.NRGBA {
	return imaging.Fit(RenderSheet(sheet, DefaultPixelsPerUnit), maxW, maxH, imaging.Lanczos)
}

// WriteThumbnail encodes a container as PNG scaled to fit within maxW x maxH
// pixels.
func WriteThumbnail(w io.Writer, sheet model.Container, maxW, maxH int) error {
	return imaging.Encode(w, Thumbnail(sheet, maxW, maxH), imaging.PNG)
}

// WritePNG encodes a rendered container as PNG.
func WritePNG(w io.Writer, sheet model.Container, pixelsPerUnit float64) error {
	return imaging.Encode(w, RenderSheet(sheet, pixelsPerUnit), imaging.PNG)
}

// ExportPNG writes every container of a result to dir as prefix-N.png and
// returns the written paths.
func ExportPNG(result model.PackingResult, dir, prefix string, pixelsPerUnit float64) ([]string, error) {
	if len(result.Sheets) == 0 {
		return nil, ErrNoSheets
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(result.Sheets))
	for i, sheet := range result.Sheets {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.png", prefix, i+1))
		if err := imaging.Save(RenderSheet(sheet, pixelsPerUnit), path); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
