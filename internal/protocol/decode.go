package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/piwi3910/bakery/internal/model"
)

// ErrCorruptData is wrapped by every decoding error. A value returned
// together with an error must not be used.
var ErrCorruptData = errors.New("corrupt data")

const maxTokenSize = 1 << 20

// Decoder reads protocol values from a whitespace-separated token stream.
type Decoder struct {
	s *bufio.Scanner
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxTokenSize)
	s.Split(bufio.ScanWords)
	return &Decoder{s: s}
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptData, fmt.Sprintf(format, args...))
}

func (d *Decoder) next() (string, error) {
	if d.s.Scan() {
		return d.s.Text(), nil
	}
	if err := d.s.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	return "", corrupt("unexpected end of input")
}

func (d *Decoder) expect(want string) error {
	tok, err := d.next()
	if err != nil {
		return err
	}
	if tok != want {
		return corrupt("expected %q, got %q", want, tok)
	}
	return nil
}

// integer reads a strictly formatted 32-bit integer.
func (d *Decoder) integer() (int32, error) {
	tok, err := d.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, corrupt("invalid integer %q", tok)
	}
	return int32(v), nil
}

func (d *Decoder) count() (int, error) {
	v, err := d.integer()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, corrupt("negative count %d", v)
	}
	return int(v), nil
}

// coord reads a coordinate. Real numbers are accepted and truncated.
func (d *Decoder) coord() (int32, error) {
	tok, err := d.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, corrupt("invalid coordinate %q", tok)
	}
	return int32(v), nil
}

func (d *Decoder) text() (string, error) {
	if err := d.expect(textBegin); err != nil {
		return "", err
	}
	var words []string
	for {
		tok, err := d.next()
		if err != nil {
			return "", err
		}
		if tok == textEnd {
			break
		}
		if tok == textBegin {
			return "", corrupt("nested %s", textBegin)
		}
		words = append(words, tok)
	}
	if len(words) == 0 {
		return "", corrupt("empty text")
	}
	return strings.Join(words, " "), nil
}

// Polygon reads a polygon and closes it.
func (d *Decoder) Polygon() (model.Polygon, error) {
	if err := d.expect(shapeBegin); err != nil {
		return model.Polygon{}, err
	}
	name, err := d.text()
	if err != nil {
		return model.Polygon{}, err
	}
	n, err := d.count()
	if err != nil {
		return model.Polygon{}, err
	}
	pts := make([]model.Point, 0, n)
	for range n {
		x, err := d.coord()
		if err != nil {
			return model.Polygon{}, err
		}
		y, err := d.coord()
		if err != nil {
			return model.Polygon{}, err
		}
		pts = append(pts, model.Point{X: x, Y: y})
	}
	if err := d.expect(shapeEnd); err != nil {
		return model.Polygon{}, err
	}
	return model.NewClosedPolygon(name, pts...), nil
}

// Container reads a container and its shapes.
func (d *Decoder) Container() (model.Container, error) {
	if err := d.expect(sheetBegin); err != nil {
		return model.Container{}, err
	}
	w, err := d.integer()
	if err != nil {
		return model.Container{}, err
	}
	h, err := d.integer()
	if err != nil {
		return model.Container{}, err
	}
	n, err := d.count()
	if err != nil {
		return model.Container{}, err
	}
	c := model.NewContainer(w, h)
	for range n {
		p, err := d.Polygon()
		if err != nil {
			return model.Container{}, err
		}
		c.Append(p)
	}
	if err := d.expect(sheetEnd); err != nil {
		return model.Container{}, err
	}
	return c, nil
}

// Job reads a packing job. The announced precision must match Precision.
func (d *Decoder) Job() (model.PackingJob, error) {
	var job model.PackingJob
	if err := d.expect(inputBegin); err != nil {
		return job, err
	}
	precision, err := d.integer()
	if err != nil {
		return job, err
	}
	if precision != Precision {
		return job, corrupt("precision %d, want %d", precision, Precision)
	}
	if job.Width, err = d.integer(); err != nil {
		return job, err
	}
	if job.Height, err = d.integer(); err != nil {
		return job, err
	}
	n, err := d.count()
	if err != nil {
		return job, err
	}
	if err := d.expect(shapeListBegin); err != nil {
		return job, err
	}
	job.Shapes = make([]model.Polygon, 0, n)
	for range n {
		p, err := d.Polygon()
		if err != nil {
			return job, err
		}
		job.Shapes = append(job.Shapes, p)
	}
	if err := d.expect(shapeListEnd); err != nil {
		return job, err
	}
	return job, d.expect(inputEnd)
}

// Result reads a packing result.
func (d *Decoder) Result() (model.PackingResult, error) {
	var r model.PackingResult
	if err := d.expect(outputBegin); err != nil {
		return r, err
	}
	n, err := d.count()
	if err != nil {
		return r, err
	}
	if err := d.expect(sheetListBegin); err != nil {
		return r, err
	}
	r.Sheets = make([]model.Container, 0, n)
	for range n {
		c, err := d.Container()
		if err != nil {
			return r, err
		}
		r.Sheets = append(r.Sheets, c)
	}
	if err := d.expect(sheetListEnd); err != nil {
		return r, err
	}
	return r, d.expect(outputEnd)
}

// Metadata reads worker metadata.
func (d *Decoder) Metadata() (model.WorkerMetadata, error) {
	var m model.WorkerMetadata
	if err := d.expect(metadataBegin); err != nil {
		return m, err
	}
	var err error
	for _, field := range []*string{&m.Name, &m.Type, &m.Author, &m.License} {
		if *field, err = d.text(); err != nil {
			return m, err
		}
	}
	return m, d.expect(metadataEnd)
}

// UnmarshalPolygon decodes a polygon from s.
func UnmarshalPolygon(s string) (model.Polygon, error) {
	return NewDecoder(strings.NewReader(s)).Polygon()
}

// UnmarshalContainer decodes a container from s.
func UnmarshalContainer(s string) (model.Container, error) {
	return NewDecoder(strings.NewReader(s)).Container()
}

// UnmarshalJob decodes a packing job from s.
func UnmarshalJob(s string) (model.PackingJob, error) {
	return NewDecoder(strings.NewReader(s)).Job()
}

// UnmarshalResult decodes a packing result from s.
func UnmarshalResult(s string) (model.PackingResult, error) {
	return NewDecoder(strings.NewReader(s)).Result()
}

// UnmarshalMetadata decodes worker metadata from s.
func UnmarshalMetadata(s string) (model.WorkerMetadata, error) {
	return NewDecoder(strings.NewReader(s)).Metadata()
}
