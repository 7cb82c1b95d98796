// Package stroke holds the vector content of one letter page.
//
// A page is an ordered sequence of strokes. A stroke is the run of segments
// captured between a pointer going down and coming back up: it opens with a
// [Dot] at the touch-down point and continues with [Line] segments. Append
// order is paint order, so nothing in this package ever reorders segments.
//
// The [Model] enforces the begin/add/end protocol and keeps in-progress
// strokes out of the exported sequence.
package stroke

import (
	"fmt"
	"math"
)

// Kind discriminates the two segment variants.
type Kind uint8

const (
	// Dot is a filled square of half-width [DotHalfWidth] centred on (X, Y).
	Dot Kind = iota + 1
	// Line is a stroke of width [LineWidth] from (FromX, FromY) to (X, Y).
	Line
)

// Geometry and cost constants shared by every renderer.
const (
	DotHalfWidth = 1.5
	LineWidth    = 3.0
	DotCost      = 1.0
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case Dot:
		return "dot"
	case Line:
		return "line"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a wire name back to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "dot":
		return Dot, true
	case "line":
		return Line, true
	}
	return 0, false
}

// Segment is one atomic paintable unit. FromX and FromY are meaningful only
// for [Line] segments. Time is the capture time in milliseconds and is used
// for nothing but display; replay runs at a fixed cadence.
type Segment struct {
	Kind   Kind
	X, Y   float64
	FromX  float64
	FromY  float64
	Colour Colour
	Time   int64
}

// NewDot returns a dot segment.
func NewDot(c Colour, x, y float64, t int64) Segment {
	return Segment{Kind: Dot, X: x, Y: y, Colour: c, Time: t}
}

// NewLine returns a line segment.
func NewLine(c Colour, fromX, fromY, x, y float64, t int64) Segment {
	return Segment{Kind: Line, X: x, Y: y, FromX: fromX, FromY: fromY, Colour: c, Time: t}
}

// Cost returns the ink the segment consumes: [DotCost] for a dot and the
// Euclidean length for a line.
func (s Segment) Cost() float64 {
	if s.Kind == Line {
		return Distance(s.FromX, s.FromY, s.X, s.Y)
	}
	return DotCost
}

// Distance returns the Euclidean distance between two points in page
// coordinates.
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// Stroke is a committed, ordered run of segments.
type Stroke []Segment

// Clone returns a deep copy of strokes.
func Clone(strokes []Stroke) []Stroke {
	if strokes == nil {
		return nil
	}
	out := make([]Stroke, len(strokes))
	for i, s := range strokes {
		out[i] = make(Stroke, len(s))
		copy(out[i], s)
	}
	return out
}

// Equal reports whether two stroke sequences hold the same segments in the
// same order. Nil and empty sequences are equal.
func Equal(a, b []Stroke) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// Count returns the total number of segments across strokes.
func Count(strokes []Stroke) int {
	n := 0
	for _, s := range strokes {
		n += len(s)
	}
	return n
}
