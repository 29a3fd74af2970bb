package gcode

import (
	"bufio"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MoveKind classifies a parsed G0/G1 command.
type MoveKind int

const (
	Rapid   MoveKind = iota // G0 in XY or down
	Cut                     // G1 with XY motion
	Plunge                  // G1 straight down
	Retract                 // any straight move up
)

func (k MoveKind) String() string {
	switch k {
	case Rapid:
		return "rapid"
	case Cut:
		return "cut"
	case Plunge:
		return "plunge"
	case Retract:
		return "retract"
	}
	return fmt.Sprintf("MoveKind(%d)", int(k))
}

// Vec is a machine position.
type Vec struct{ X, Y, Z float64 }

// Move is one linear motion of the tool.
type Move struct {
	Kind     MoveKind
	From, To Vec
	Feed     float64
	Line     int
}

// Length returns the travelled distance.
func (m Move) Length() float64 {
	return math.Sqrt(sq(m.To.X-m.From.X) + sq(m.To.Y-m.From.Y) + sq(m.To.Z-m.From.Z))
}

var wordRe = regexp.MustCompile(`([GXYZF])\s*(-?\d*\.?\d+)`)

// Parse reads the linear moves of a program in absolute coordinates.
// Comments in parentheses or after ';' are ignored, as are commands other
// than G0 and G1. A malformed coordinate is an error.
func Parse(code string) ([]Move, error) {
	var (
		moves []Move
		pos   Vec
		feed  float64
		modal = -1
	)

	sc := bufio.NewScanner(strings.NewReader(code))
	for n := 1; sc.Scan(); n++ {
		line := strings.ToUpper(stripComments(sc.Text()))
		if line == "" {
			continue
		}

		next, g := pos, modal
		for _, w := range wordRe.FindAllStringSubmatch(line, -1) {
			v, err := strconv.ParseFloat(w[2], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s word %q: %w", n, w[1], w[2], err)
			}
			switch w[1] {
			case "G":
				g = int(v)
			case "X":
				next.X = v
			case "Y":
				next.Y = v
			case "Z":
				next.Z = v
			case "F":
				feed = v
			}
		}
		if g != 0 && g != 1 {
			modal = g
			continue
		}
		modal = g
		if next == pos {
			continue
		}

		moves = append(moves, Move{Kind: classify(g == 0, pos, next), From: pos, To: next, Feed: feed, Line: n})
		pos = next
	}
	return moves, sc.Err()
}

func stripComments(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	for {
		i := strings.IndexByte(line, '(')
		if i < 0 {
			break
		}
		j := strings.IndexByte(line[i:], ')')
		if j < 0 {
			line = line[:i]
			break
		}
		line = line[:i] + line[i+j+1:]
	}
	return strings.TrimSpace(line)
}

func classify(rapid bool, from, to Vec) MoveKind {
	const eps = 1e-6
	flat := math.Abs(to.X-from.X) < eps && math.Abs(to.Y-from.Y) < eps
	dz := to.Z - from.Z

	switch {
	case dz > eps && flat:
		return Retract
	case rapid:
		return Rapid
	case dz < -eps && flat:
		return Plunge
	default:
		return Cut
	}
}

// Summary aggregates the moves of a program.
type Summary struct {
	Moves        int
	Plunges      int
	CutLength    float64
	RapidLength  float64
	MinZ         float64
	MaxX, MaxY   float64
	CutTimeMin   float64 // at the programmed feed rates
	CutsBelowTop int     // cutting moves below Z=0
}

// Summarize aggregates moves into travel totals.
func Summarize(moves []Move) Summary {
	var s Summary
	s.Moves = len(moves)
	for _, m := range moves {
		l := m.Length()
		switch m.Kind {
		case Rapid, Retract:
			s.RapidLength += l
		case Plunge:
			s.Plunges++
			s.CutLength += l
		case Cut:
			s.CutLength += l
			if m.To.Z < 0 {
				s.CutsBelowTop++
			}
		}
		if m.Kind != Rapid && m.Kind != Retract && m.Feed > 0 {
			s.CutTimeMin += l / m.Feed
		}
		s.MinZ = math.Min(s.MinZ, m.To.Z)
		s.MaxX = math.Max(s.MaxX, m.To.X)
		s.MaxY = math.Max(s.MaxY, m.To.Y)
	}
	return s
}

func sq(v float64) float64 { return v * v }
