// Package paint turns segments into pixels.
//
// Everything that can be drawn on implements [Surface]. The live editor, the
// replay player and the server rasterizer all paint through the same
// [Canvas], so a letter painted instantly on a client and one rasterized on
// the server agree pixel for pixel.
//
// A [Broadcast] fans one paint call out to several surfaces, which is how
// the editor keeps its drawing surface and its thumbnail preview in step.
package paint

import (
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// Surface receives paint operations in paint order.
type Surface interface {
	// Clear resets the surface to its blank state.
	Clear()
	// Paint draws one segment on top of everything painted so far.
	Paint(seg stroke.Segment)
}

// PaintAll clears s and paints every segment of strokes in order.
func PaintAll(s Surface, strokes []stroke.Stroke) {
	s.Clear()
	for _, st := range strokes {
		for _, seg := range st {
			s.Paint(seg)
		}
	}
}

// Broadcast is a Surface that forwards every call to its targets in
// registration order.
//
// Targets must be comparable (typically pointers) for [Broadcast.Remove].
// A Broadcast is owned by one event loop and is not safe for concurrent use.
type Broadcast struct {
	targets []Surface
}

// NewBroadcast returns a broadcast over targets.
func NewBroadcast(targets ...Surface) *Broadcast {
	b := &Broadcast{}
	for _, t := range targets {
		b.Add(t)
	}
	return b
}

// Add registers a target. Nil targets are ignored.
func (b *Broadcast) Add(s Surface) {
	if s != nil {
		b.targets = append(b.targets, s)
	}
}

// Remove unregisters the first occurrence of s.
func (b *Broadcast) Remove(s Surface) {
	for i, t := range b.targets {
		if t == s {
			b.targets = append(b.targets[:i], b.targets[i+1:]...)
			return
		}
	}
}

// Len returns the number of targets.
func (b *Broadcast) Len() int {
	return len(b.targets)
}

// Clear clears every target.
func (b *Broadcast) Clear() {
	for _, t := range b.targets {
		t.Clear()
	}
}

// Paint paints seg on every target.
func (b *Broadcast) Paint(seg stroke.Segment) {
	for _, t := range b.targets {
		t.Paint(seg)
	}
}

// Op is one call recorded by a [Recorder].
type Op struct {
	Clear   bool
	Segment stroke.Segment
}

// Recorder is a Surface that remembers the calls it received.
type Recorder struct {
	Ops []Op
}

// Clear records a clear.
func (r *Recorder) Clear() {
	r.Ops = append(r.Ops, Op{Clear: true})
}

// Paint records a segment.
func (r *Recorder) Paint(seg stroke.Segment) {
	r.Ops = append(r.Ops, Op{Segment: seg})
}

// Painted returns the segments painted since the last clear.
func (r *Recorder) Painted() []stroke.Segment {
	var out []stroke.Segment
	for _, op := range r.Ops {
		if op.Clear {
			out = out[:0]
			continue
		}
		out = append(out, op.Segment)
	}
	return out
}

var (
	_ Surface = (*Broadcast)(nil)
	_ Surface = (*Recorder)(nil)
	_ Surface = (*Canvas)(nil)
)
