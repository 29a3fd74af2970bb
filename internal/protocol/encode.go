// Package protocol implements the line-oriented text protocol spoken
// between the orchestrator and packing workers.
//
// Every token is written followed by a single space. Decoders split on any
// whitespace, so a value may be spread over several lines.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/piwi3910/bakery/internal/model"
)

// Precision is the fixed-point scale announced in every job.
const Precision = model.Precision

const (
	textBegin      = "text_begin"
	textEnd        = "text_end"
	shapeBegin     = "shape_begin"
	shapeEnd       = "shape_end"
	sheetBegin     = "sheet_begin"
	sheetEnd       = "sheet_end"
	inputBegin     = "plugininput_begin"
	inputEnd       = "plugininput_end"
	shapeListBegin = "shapelist_begin"
	shapeListEnd   = "shapelist_end"
	outputBegin    = "pluginoutput_begin"
	outputEnd      = "pluginoutput_end"
	sheetListBegin = "sheetlist_begin"
	sheetListEnd   = "sheetlist_end"
	metadataBegin  = "pluginmetadata_begin"
	metadataEnd    = "pluginmetadata_end"
)

// ErrInvalidText is returned when a text value cannot be encoded.
var ErrInvalidText = errors.New("invalid text")

// Encoder writes protocol values to an underlying writer. The first write
// error is sticky and returned by every later call.
type Encoder struct {
	w   *bufio.Writer
	err error
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

func (e *Encoder) token(s string) {
	if e.err != nil {
		return
	}
	if _, err := e.w.WriteString(s); err != nil {
		e.err = err
		return
	}
	e.err = e.w.WriteByte(' ')
}

func (e *Encoder) number(v int64) { e.token(strconv.FormatInt(v, 10)) }

func (e *Encoder) text(s string) {
	if e.err != nil {
		return
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		e.err = fmt.Errorf("%w: empty text", ErrInvalidText)
		return
	}
	for _, w := range words {
		if w == textBegin || w == textEnd {
			e.err = fmt.Errorf("%w: %q contains a reserved word", ErrInvalidText, s)
			return
		}
	}
	e.token(textBegin)
	for _, w := range words {
		e.token(w)
	}
	e.token(textEnd)
}

func (e *Encoder) polygon(p model.Polygon) {
	n := p.Len()
	if p.IsClosed() && n > 0 {
		n--
	}
	e.token(shapeBegin)
	e.text(p.Name())
	e.number(int64(n))
	for i := range n {
		pt := p.At(i)
		e.number(int64(pt.X))
		e.number(int64(pt.Y))
	}
	e.token(shapeEnd)
}

func (e *Encoder) container(c model.Container) {
	e.token(sheetBegin)
	e.number(int64(c.Width()))
	e.number(int64(c.Height()))
	e.number(int64(c.Len()))
	for i := range c.Len() {
		e.polygon(c.Shape(i))
	}
	e.token(sheetEnd)
}

func (e *Encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	e.err = e.w.Flush()
	return e.err
}

// Polygon writes a polygon. A closed polygon is written without its closing
// vertex.
func (e *Encoder) Polygon(p model.Polygon) error {
	e.polygon(p)
	return e.flush()
}

// Container writes a container and its shapes.
func (e *Encoder) Container(c model.Container) error {
	e.container(c)
	return e.flush()
}

// Job writes a packing job.
func (e *Encoder) Job(job model.PackingJob) error {
	e.token(inputBegin)
	e.number(Precision)
	e.number(int64(job.Width))
	e.number(int64(job.Height))
	e.number(int64(len(job.Shapes)))
	e.token(shapeListBegin)
	for _, s := range job.Shapes {
		e.polygon(s)
	}
	e.token(shapeListEnd)
	e.token(inputEnd)
	return e.flush()
}

// Result writes a packing result.
func (e *Encoder) Result(r model.PackingResult) error {
	e.token(outputBegin)
	e.number(int64(len(r.Sheets)))
	e.token(sheetListBegin)
	for _, c := range r.Sheets {
		e.container(c)
	}
	e.token(sheetListEnd)
	e.token(outputEnd)
	return e.flush()
}

// Metadata writes worker metadata.
func (e *Encoder) Metadata(m model.WorkerMetadata) error {
	e.token(metadataBegin)
	e.text(m.Name)
	e.text(m.Type)
	e.text(m.Author)
	e.text(m.License)
	e.token(metadataEnd)
	return e.flush()
}

func marshal(f func(*Encoder) error) (string, error) {
	var b strings.Builder
	if err := f(NewEncoder(&b)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// MarshalPolygon returns the wire form of p.
func MarshalPolygon(p model.Polygon) (string, error) {
	return marshal(func(e *Encoder) error { return e.Polygon(p) })
}

// MarshalContainer returns the wire form of c.
func MarshalContainer(c model.Container) (string, error) {
	return marshal(func(e *Encoder) error { return e.Container(c) })
}

// MarshalJob returns the wire form of job.
func MarshalJob(job model.PackingJob) (string, error) {
	return marshal(func(e *Encoder) error { return e.Job(job) })
}

// MarshalResult returns the wire form of r.
func MarshalResult(r model.PackingResult) (string, error) {
	return marshal(func(e *Encoder) error { return e.Result(r) })
}

// MarshalMetadata returns the wire form of m.
func MarshalMetadata(m model.WorkerMetadata) (string, error) {
	return marshal(func(e *Encoder) error { return e.Metadata(m) })
}
