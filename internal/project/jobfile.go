package project

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/piwi3910/bakery/internal/model"
)

var (
	// ErrInvalidJobFile reports a job file that cannot be decoded.
	ErrInvalidJobFile = errors.New("invalid job file")
	// ErrNoSheets reports a result without any container.
	ErrNoSheets = errors.New("result has no sheets")
)

// DefaultSVGPrefix is the file name prefix of SVG sheet exports.
const DefaultSVGPrefix = "bakery"

// jobScanner reads whitespace-separated tokens while still allowing a whole
// line to be read as a shape name.
type jobScanner struct {
	lines []string
	line  int
	col   int
}

func newJobScanner(r io.Reader) (*jobScanner, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &jobScanner{lines: lines}, nil
}

func (s *jobScanner) token() (string, bool) {
	for s.line < len(s.lines) {
		rest := s.lines[s.line][s.col:]
		trimmed := strings.TrimLeft(rest, " \t")
		if trimmed == "" {
			s.line++
			s.col = 0
			continue
		}
		start := s.col + len(rest) - len(trimmed)
		end := strings.IndexAny(trimmed, " \t")
		if end < 0 {
			end = len(trimmed)
		}
		s.col = start + end
		return trimmed[:end], true
	}
	return "", false
}

// name returns the rest of the current line, skipping empty lines.
func (s *jobScanner) name() (string, bool) {
	for s.line < len(s.lines) {
		rest := s.lines[s.line][s.col:]
		s.line++
		s.col = 0
		if rest != "" {
			return rest, true
		}
	}
	return "", false
}

func (s *jobScanner) float(what string) (float64, error) {
	tok, ok := s.token()
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidJobFile, what)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: could not convert %s %q", ErrInvalidJobFile, what, tok)
	}
	return v, nil
}

func (s *jobScanner) count(what string) (int, error) {
	tok, ok := s.token()
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidJobFile, what)
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: could not convert %s %q", ErrInvalidJobFile, what, tok)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative %s", ErrInvalidJobFile, what)
	}
	return v, nil
}

// DecodeJob reads a job in the plain-text job format: container width and
// height, the number of shape types, then for each type its name on a line
// of its own, the number of copies, the number of points and the points as
// real "x y" pairs. Every shape is closed on load.
func DecodeJob(r io.Reader) (model.PackingJob, error) {
	s, err := newJobScanner(r)
	if err != nil {
		return model.PackingJob{}, fmt.Errorf("failed to read job: %w", err)
	}

	w, err := s.float("width")
	if err != nil {
		return model.PackingJob{}, err
	}
	h, err := s.float("height")
	if err != nil {
		return model.PackingJob{}, err
	}
	types, err := s.count("number of shape types")
	if err != nil {
		return model.PackingJob{}, err
	}

	job := model.PackingJob{Width: model.Precise(w), Height: model.Precise(h)}
	seen := make(map[string]bool, types)
	for range types {
		name, ok := s.name()
		if !ok {
			return model.PackingJob{}, fmt.Errorf("%w: could not find name", ErrInvalidJobFile)
		}
		if seen[name] {
			return model.PackingJob{}, fmt.Errorf("%w: name %q found twice", ErrInvalidJobFile, name)
		}
		seen[name] = true

		amount, err := s.count("number of shapes")
		if err != nil {
			return model.PackingJob{}, err
		}
		n, err := s.count("number of points")
		if err != nil {
			return model.PackingJob{}, err
		}
		pts := make([]model.Point, 0, n+1)
		for range n {
			x, err := s.float("x")
			if err != nil {
				return model.PackingJob{}, err
			}
			y, err := s.float("y")
			if err != nil {
				return model.PackingJob{}, err
			}
			pts = append(pts, model.P(x, y))
		}
		shape := model.NewClosedPolygon(name, pts...)
		for range amount {
			job.Shapes = append(job.Shapes, shape)
		}
	}
	return job, nil
}

// LoadJob decodes the job file at path.
func LoadJob(path string) (model.PackingJob, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.PackingJob{}, err
	}
	defer f.Close()
	job, err := DecodeJob(f)
	if err != nil {
		return model.PackingJob{}, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}

func formatReal(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatPoint(p model.Point) string {
	return formatReal(model.Rounded(p.X)) + " " + formatReal(model.Rounded(p.Y))
}

// EncodeJob writes job in the plain-text job format. Shapes are grouped by
// name; the first shape of each name is written with its count.
func EncodeJob(w io.Writer, job model.PackingJob) error {
	bw := bufio.NewWriter(w)
	u := model.ReduceToUnique(job.Shapes)
	fmt.Fprintf(bw, "%s\n%s\n%d\n", formatReal(model.Rounded(job.Width)), formatReal(model.Rounded(job.Height)), len(u.Shapes))
	for i, shape := range u.Shapes {
		shape.EnsureClosed(false)
		fmt.Fprintf(bw, "%s\n%d\n%d\n", u.Names[i], u.Amounts[u.Names[i]], shape.Len())
		for _, p := range shape.Points() {
			fmt.Fprintln(bw, formatPoint(p))
		}
	}
	return bw.Flush()
}

// SaveJob writes job to path in the plain-text job format.
func SaveJob(path string, job model.PackingJob) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeJob(f, job); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeResult writes result in the plain-text results format: the mean
// utilization in whole percent, the number of sheets, then for each sheet
// its 1-based number followed by every placed shape's name and points. The
// closing point of closed shapes is omitted.
func EncodeResult(w io.Writer, result model.PackingResult) error {
	if len(result.Sheets) == 0 {
		return ErrNoSheets
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%d\n", int(result.Score()), len(result.Sheets))
	for i, sheet := range result.Sheets {
		fmt.Fprintf(bw, "%d\n", i+1)
		for _, shape := range sheet.Shapes() {
			fmt.Fprintln(bw, shape.Name())
			n := shape.Len()
			if shape.IsClosed() {
				n--
			}
			for k := range n {
				fmt.Fprintln(bw, formatPoint(shape.At(k)))
			}
		}
	}
	return bw.Flush()
}

// SaveToDirectory creates dir if needed, writes the results file into it
// and, with svg set, one SVG file per sheet.
func SaveToDirectory(result model.PackingResult, dir, resultsFile string, svg bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %q: %w", dir, err)
	}

	path := filepath.Join(dir, resultsFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save results file %q: %w", path, err)
	}
	if err := EncodeResult(f, result); err != nil {
		f.Close()
		return fmt.Errorf("failed to save results file %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if svg {
		if err := ExportSVG(result, dir, DefaultSVGPrefix); err != nil {
			return fmt.Errorf("failed to save SVG files to %q: %w", dir, err)
		}
	}
	return nil
}
