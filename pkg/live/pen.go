// Package live turns pointer input into ink-charged strokes and paints them
// as they are drawn.
//
// A [Pen] is the two-state (idle, drawing) machine behind the drawing area:
// pointer down charges a dot and opens a stroke, pointer moves charge and
// append lines, pointer up closes the stroke. Every segment the pen accepts
// is painted on its surface immediately, which is usually a
// [paint.Broadcast] feeding both the drawing canvas and the thumbnail.
//
// An [Editor] wires a pen to a [letter.Composer], two canvases and a replay
// player, and exposes the operations of the compose screen.
package live

import (
	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/paint"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// Pen captures pointer input for a composer.
//
// Running out of ink is not an error: the rejected sample is dropped and the
// pen methods report false.
type Pen struct {
	composer *letter.Composer
	surface  paint.Surface
	colour   stroke.Colour

	sheet        *letter.Sheet // non-nil while drawing
	lastX, lastY float64
}

// NewPen returns an idle black pen drawing into the composer's current page.
func NewPen(c *letter.Composer, s paint.Surface) *Pen {
	return &Pen{composer: c, surface: s, colour: stroke.Black}
}

// SetColour changes the colour of subsequent segments.
func (p *Pen) SetColour(c stroke.Colour) {
	p.colour = c
}

// Colour returns the current drawing colour.
func (p *Pen) Colour() stroke.Colour {
	return p.colour
}

// Drawing reports whether a stroke is in progress.
func (p *Pen) Drawing() bool {
	return p.sheet != nil
}

// Down starts a stroke at (x, y) with a dot. A pen already drawing ignores
// the call.
func (p *Pen) Down(x, y float64) (bool, error) {
	if p.Drawing() {
		return false, nil
	}
	sheet := p.composer.Current()
	model := sheet.Model()
	if model.Open() {
		return false, perrors.New(perrors.ErrCodeInvalidState, "pen down: page %d already has an open stroke", sheet.Index())
	}
	if !sheet.Charge(stroke.DotCost) {
		return false, nil
	}
	if err := model.BeginStroke(); err != nil {
		return false, err
	}
	seg, err := model.AddDot(p.colour, x, y)
	if err != nil {
		return false, err
	}
	p.surface.Paint(seg)

	p.sheet = sheet
	p.lastX, p.lastY = x, y
	return true, nil
}

// Move extends the stroke to (x, y). Samples at the last accepted position
// add nothing. When the ink cannot cover the line the sample is dropped and
// the last position is kept, so the next accepted sample joins up with the
// stroke.
func (p *Pen) Move(x, y float64) (bool, error) {
	if !p.Drawing() || (x == p.lastX && y == p.lastY) {
		return false, nil
	}
	if !p.sheet.Charge(stroke.Distance(p.lastX, p.lastY, x, y)) {
		return false, nil
	}
	seg, err := p.sheet.Model().AddLine(p.colour, p.lastX, p.lastY, x, y)
	if err != nil {
		return false, err
	}
	p.surface.Paint(seg)

	p.lastX, p.lastY = x, y
	return true, nil
}

// Up moves to (x, y) and ends the stroke.
func (p *Pen) Up(x, y float64) (bool, error) {
	if !p.Drawing() {
		return false, nil
	}
	drew, err := p.Move(x, y)
	if err != nil {
		return false, err
	}
	if err := p.sheet.Model().EndStroke(); err != nil {
		return drew, err
	}
	p.sheet = nil
	return drew, nil
}
