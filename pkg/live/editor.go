package live

import (
	"image"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/paint"
	"github.com/matzehuels/pictoswap/pkg/replay"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// Editor is the compose screen: a composer, a pen, the drawing canvas and a
// preview thumbnail kept in step through a [paint.Broadcast].
//
// The editor is driven by a single event loop and is not safe for
// concurrent use. Timed previews call back from the player's scheduler, so
// front ends running on [replay.RealTime] must hop back onto their loop
// before touching the editor; a [replay.Manual] scheduler advanced from the
// loop avoids that entirely.
type Editor struct {
	composer *letter.Composer
	pen      *Pen
	live     *paint.Canvas
	preview  *paint.Canvas
	surfaces *paint.Broadcast
	player   *replay.Player
	playback *replay.Playback
	logger   *log.Logger
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithPlayer sets the player used for timed previews.
func WithPlayer(p *replay.Player) EditorOption {
	return func(e *Editor) {
		if p != nil {
			e.player = p
		}
	}
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) EditorOption {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSurface registers an extra surface that mirrors the live canvas.
func WithSurface(s paint.Surface) EditorOption {
	return func(e *Editor) { e.surfaces.Add(s) }
}

// NewEditor opens the compose screen for c. bg is painted beneath the
// strokes of both canvases and may be nil.
func NewEditor(c *letter.Composer, bg image.Image, opts ...EditorOption) *Editor {
	e := &Editor{
		composer: c,
		live:     paint.NewCanvas(letter.PageWidth, letter.PageHeight, paint.WithBackground(bg)),
		preview:  paint.NewCanvas(letter.PageWidth, letter.PageHeight, paint.WithBackground(bg)),
		player:   replay.New(),
		logger:   log.Default(),
	}
	e.surfaces = paint.NewBroadcast(e.live, e.preview)
	for _, opt := range opts {
		opt(e)
	}
	e.pen = NewPen(c, e.surfaces)
	e.repaint()
	return e
}

// Composer returns the composition session.
func (e *Editor) Composer() *letter.Composer { return e.composer }

// Pen returns the pen.
func (e *Editor) Pen() *Pen { return e.pen }

// Live returns the drawing canvas.
func (e *Editor) Live() *paint.Canvas { return e.live }

// Preview returns the thumbnail canvas.
func (e *Editor) Preview() *paint.Canvas { return e.preview }

// AddSurface registers another surface that receives every live paint.
func (e *Editor) AddSurface(s paint.Surface) { e.surfaces.Add(s) }

// RemoveSurface unregisters a surface added with AddSurface.
func (e *Editor) RemoveSurface(s paint.Surface) { e.surfaces.Remove(s) }

// SetColour changes the pen colour.
func (e *Editor) SetColour(c stroke.Colour) {
	e.pen.SetColour(c)
}

// PointerDown starts a stroke. A running preview is snapped to its final
// frame first so the thumbnail keeps up with the drawing.
func (e *Editor) PointerDown(x, y float64) (bool, error) {
	if !e.pen.Drawing() && e.Previewing() {
		e.stopPreview()
	}
	return e.pen.Down(x, y)
}

// PointerMove extends the current stroke.
func (e *Editor) PointerMove(x, y float64) (bool, error) {
	return e.pen.Move(x, y)
}

// PointerUp ends the current stroke.
func (e *Editor) PointerUp(x, y float64) (bool, error) {
	return e.pen.Up(x, y)
}

// Turn switches to page i and repaints every surface with its strokes.
func (e *Editor) Turn(i int) error {
	if e.pen.Drawing() {
		return perrors.New(perrors.ErrCodeInvalidState, "turn to page %d while drawing", i)
	}
	if _, err := e.composer.Turn(i); err != nil {
		return err
	}
	e.cancelPreview()
	e.repaint()
	e.logger.Debug("turned page", "page", i+1, "of", letter.PageCount)
	return nil
}

// Clear erases page i and refunds its ink. Surfaces are cleared when i is
// the page on screen.
func (e *Editor) Clear(i int) error {
	if e.pen.Drawing() && i == e.composer.CurrentIndex() {
		return perrors.New(perrors.ErrCodeInvalidState, "clear page %d while drawing", i)
	}
	sheet, err := e.composer.Sheet(i)
	if err != nil {
		return err
	}
	refund := sheet.Usage()
	if err := e.composer.Clear(i); err != nil {
		return err
	}
	if i == e.composer.CurrentIndex() {
		e.cancelPreview()
		e.surfaces.Clear()
	}
	e.logger.Debug("cleared page", "page", i+1, "refund", refund, "ink", e.composer.Ink().Remaining())
	return nil
}

// TogglePreview starts a timed replay of the current page on the thumbnail,
// or, when one is already running, stops it and shows the finished page. It
// reports whether a replay is now running. done is called if the replay
// finishes on its own.
func (e *Editor) TogglePreview(done func()) bool {
	if e.Previewing() {
		e.stopPreview()
		return false
	}
	strokes := e.composer.Current().Model().Strokes()
	e.playback = e.player.Timed(e.preview, strokes, done)
	return e.playback.Active()
}

// Previewing reports whether a timed preview is running.
func (e *Editor) Previewing() bool {
	return e.playback != nil && e.playback.Active()
}

// Save finalises the letter. A letter on which nothing was ever drawn is
// refused with INVALID_STATE; the compose screen exits instead of saving.
func (e *Editor) Save() (letter.Document, error) {
	if e.pen.Drawing() {
		return letter.Document{}, perrors.New(perrors.ErrCodeInvalidState, "save while drawing")
	}
	blank := true
	for i := 0; i < letter.PageCount; i++ {
		s, _ := e.composer.Sheet(i)
		if !s.Empty() {
			blank = false
			break
		}
	}
	if blank {
		return letter.Document{}, perrors.New(perrors.ErrCodeInvalidState, "nothing has been drawn")
	}
	doc, err := e.composer.Document()
	if err != nil {
		return letter.Document{}, err
	}
	e.logger.Debug("saved letter", "pages", len(doc.NonEmpty()), "ink", doc.InkUsage())
	return doc, nil
}

func (e *Editor) cancelPreview() {
	if e.playback != nil {
		e.playback.Cancel()
		e.playback = nil
	}
}

func (e *Editor) stopPreview() {
	e.cancelPreview()
	replay.Instant(e.preview, e.composer.Current().Model().Strokes())
}

func (e *Editor) repaint() {
	replay.Instant(e.surfaces, e.composer.Current().Model().Strokes())
}
