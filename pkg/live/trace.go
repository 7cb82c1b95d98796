package live

import (
	"encoding/json"
	"fmt"
	"io"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// Event is one recorded input on the compose screen. Traces of events
// reproduce a drawing session offline:
//
//	{"type": "colour", "colour": "hsl(200, 80%, 40%)"}
//	{"type": "down", "x": 12, "y": 30}
//	{"type": "move", "x": 20, "y": 31}
//	{"type": "up", "x": 24, "y": 35}
//	{"type": "page", "page": 1}
//	{"type": "clear", "page": 0}
type Event struct {
	Type   string  `json:"type"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Colour string  `json:"colour,omitempty"`
	Page   int     `json:"page,omitempty"`
}

// Event types.
const (
	EventDown   = "down"
	EventMove   = "move"
	EventUp     = "up"
	EventColour = "colour"
	EventPage   = "page"
	EventClear  = "clear"
)

// TraceStats summarises an applied trace.
type TraceStats struct {
	Events   int
	Accepted int // samples that produced a segment
	Rejected int // down/move/up samples dropped for lack of ink or duplicates
}

// Apply feeds one event to the editor. It reports whether the event drew a
// segment.
func (e *Editor) Apply(ev Event) (bool, error) {
	switch ev.Type {
	case EventDown:
		return e.PointerDown(ev.X, ev.Y)
	case EventMove:
		return e.PointerMove(ev.X, ev.Y)
	case EventUp:
		return e.PointerUp(ev.X, ev.Y)
	case EventColour:
		c, err := stroke.ParseColour(ev.Colour)
		if err != nil {
			return false, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "colour event")
		}
		e.SetColour(c)
		return false, nil
	case EventPage:
		return false, e.Turn(ev.Page)
	case EventClear:
		return false, e.Clear(ev.Page)
	}
	return false, perrors.New(perrors.ErrCodeInvalidInput, "unknown event type %q", ev.Type)
}

// ApplyTrace reads a stream of JSON events from r and applies them in order.
// The first failing event stops the trace; its position is part of the
// error.
func (e *Editor) ApplyTrace(r io.Reader) (TraceStats, error) {
	var stats TraceStats
	dec := json.NewDecoder(r)
	for dec.More() {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			return stats, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "trace event %d", stats.Events+1)
		}
		stats.Events++
		drew, err := e.Apply(ev)
		if err != nil {
			return stats, fmt.Errorf("trace event %d: %w", stats.Events, err)
		}
		switch {
		case drew:
			stats.Accepted++
		case ev.Type == EventDown || ev.Type == EventMove:
			stats.Rejected++
		}
	}
	return stats, nil
}
