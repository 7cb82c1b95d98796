package stroke

import (
	"time"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
)

// Model is the stroke store of a single page. It keeps the committed
// strokes plus at most one open stroke, and rejects out-of-protocol calls
// with an INVALID_STATE error.
//
// A Model is owned by one event loop and is not safe for concurrent use.
type Model struct {
	strokes []Stroke
	open    Stroke
	isOpen  bool
	now     func() time.Time
}

// Option configures a Model.
type Option func(*Model)

// WithClock sets the time source used to stamp new segments.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// NewModel returns an empty model.
func NewModel(opts ...Option) *Model {
	m := &Model{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BeginStroke opens a new stroke buffer.
func (m *Model) BeginStroke() error {
	if m.isOpen {
		return perrors.New(perrors.ErrCodeInvalidState, "begin stroke: a stroke is already open")
	}
	m.open = Stroke{}
	m.isOpen = true
	return nil
}

// AddDot appends a dot to the open stroke and returns it for painting.
func (m *Model) AddDot(c Colour, x, y float64) (Segment, error) {
	if !m.isOpen {
		return Segment{}, perrors.New(perrors.ErrCodeInvalidState, "add dot: no open stroke")
	}
	seg := NewDot(c, x, y, m.now().UnixMilli())
	m.open = append(m.open, seg)
	return seg, nil
}

// AddLine appends a line to the open stroke and returns it for painting.
func (m *Model) AddLine(c Colour, fromX, fromY, x, y float64) (Segment, error) {
	if !m.isOpen {
		return Segment{}, perrors.New(perrors.ErrCodeInvalidState, "add line: no open stroke")
	}
	seg := NewLine(c, fromX, fromY, x, y, m.now().UnixMilli())
	m.open = append(m.open, seg)
	return seg, nil
}

// EndStroke commits the open stroke, even when it holds no segments.
func (m *Model) EndStroke() error {
	if !m.isOpen {
		return perrors.New(perrors.ErrCodeInvalidState, "end stroke: no open stroke")
	}
	m.strokes = append(m.strokes, m.open)
	m.open = nil
	m.isOpen = false
	return nil
}

// Open reports whether a stroke is in progress.
func (m *Model) Open() bool {
	return m.isOpen
}

// Strokes returns a copy of the committed strokes. The open stroke is never
// included.
func (m *Model) Strokes() []Stroke {
	return Clone(m.strokes)
}

// Len returns the number of committed strokes.
func (m *Model) Len() int {
	return len(m.strokes)
}

// Import replaces the committed strokes wholesale. It does not repaint
// anything and leaves an open stroke untouched.
func (m *Model) Import(strokes []Stroke) {
	m.strokes = Clone(strokes)
}

// Clear empties the committed strokes.
func (m *Model) Clear() {
	m.strokes = nil
}
