package live

import (
	"bytes"
	"strings"
	"testing"
	"time"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/paint"
	"github.com/matzehuels/pictoswap/pkg/raster"
	"github.com/matzehuels/pictoswap/pkg/replay"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

func newPen(max float64) (*Pen, *letter.Composer, *paint.Recorder) {
	c := letter.NewComposer(letter.DefaultBackground, letter.WithInk(max))
	r := &paint.Recorder{}
	return NewPen(c, r), c, r
}

func TestPenStroke(t *testing.T) {
	p, c, r := newPen(100)

	mustDraw(t)(p.Down(0, 0))
	if !p.Drawing() {
		t.Fatal("Drawing() = false after Down")
	}
	mustDraw(t)(p.Move(3, 4))
	mustDraw(t)(p.Up(3, 8))
	if p.Drawing() {
		t.Fatal("Drawing() = true after Up")
	}

	strokes := c.Current().Model().Strokes()
	if len(strokes) != 1 || len(strokes[0]) != 3 {
		t.Fatalf("strokes = %+v, want one stroke of 3 segments", strokes)
	}
	if got := c.Current().Usage(); got != 10 {
		t.Errorf("Usage() = %v, want 1 + 5 + 4", got)
	}
	if got := c.Ink().Remaining(); got != 90 {
		t.Errorf("Remaining() = %v, want 90", got)
	}
	if got := len(r.Painted()); got != 3 {
		t.Errorf("painted = %d, want 3", got)
	}
}

func TestPenSuppressesDuplicateSamples(t *testing.T) {
	p, c, r := newPen(100)
	mustDraw(t)(p.Down(5, 5))

	drew, err := p.Move(5, 5)
	if err != nil || drew {
		t.Errorf("Move to the same point = (%v, %v), want (false, nil)", drew, err)
	}
	drew, err = p.Up(5, 5)
	if err != nil || drew {
		t.Errorf("Up at the same point = (%v, %v), want (false, nil)", drew, err)
	}

	strokes := c.Current().Model().Strokes()
	if len(strokes) != 1 || len(strokes[0]) != 1 {
		t.Errorf("strokes = %+v, want a single dot", strokes)
	}
	if got := c.Ink().Remaining(); got != 99 {
		t.Errorf("Remaining() = %v, want 99", got)
	}
	if got := len(r.Ops); got != 1 {
		t.Errorf("surface ops = %d, want 1", got)
	}
}

func TestPenInkExhaustion(t *testing.T) {
	p, c, _ := newPen(10)

	mustDraw(t)(p.Down(0, 0))
	if drew, err := p.Move(12, 0); err != nil || drew {
		t.Fatalf("Move beyond the ink = (%v, %v), want (false, nil)", drew, err)
	}
	if got := c.Ink().Remaining(); got != 9 {
		t.Errorf("Remaining() = %v, want 9", got)
	}
	// The rejected sample did not move the pen.
	mustDraw(t)(p.Move(0, 9))
	if got := c.Ink().Remaining(); got != 0 {
		t.Errorf("Remaining() = %v, want 0", got)
	}
	if _, err := p.Up(0, 9); err != nil {
		t.Fatal(err)
	}

	if drew, err := p.Down(1, 1); err != nil || drew {
		t.Errorf("Down with no ink = (%v, %v), want (false, nil)", drew, err)
	}
	if p.Drawing() {
		t.Error("pen started drawing without ink")
	}
	segs := c.Current().Model().Strokes()[0]
	if len(segs) != 2 || segs[1].FromX != 0 || segs[1].FromY != 0 {
		t.Errorf("segments = %+v, want dot then line from the origin", segs)
	}
}

func TestPenDownWhileDrawing(t *testing.T) {
	p, c, _ := newPen(100)
	mustDraw(t)(p.Down(1, 1))
	if drew, err := p.Down(50, 50); err != nil || drew {
		t.Errorf("second Down = (%v, %v), want (false, nil)", drew, err)
	}
	if got := c.Ink().Remaining(); got != 99 {
		t.Errorf("Remaining() = %v, want 99", got)
	}
}

func TestPenIdleMoveAndUp(t *testing.T) {
	p, c, r := newPen(100)
	if drew, err := p.Move(3, 3); err != nil || drew {
		t.Errorf("idle Move = (%v, %v)", drew, err)
	}
	if drew, err := p.Up(3, 3); err != nil || drew {
		t.Errorf("idle Up = (%v, %v)", drew, err)
	}
	if c.Ink().Remaining() != 100 || len(r.Ops) != 0 {
		t.Error("idle pen changed state")
	}
}

// mustDraw fails the test unless a pen call accepted its sample.
func mustDraw(t *testing.T) func(drew bool, err error) {
	return func(drew bool, err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		if !drew {
			t.Fatal("sample was rejected")
		}
	}
}

func scribble(t *testing.T, e *Editor) {
	t.Helper()
	e.SetColour(stroke.HSL(200, 0.8, 0.4))
	mustDraw(t)(e.PointerDown(10.5, 20.25))
	mustDraw(t)(e.PointerMove(40, 30.7))
	mustDraw(t)(e.PointerMove(80.2, 90))
	mustDraw(t)(e.PointerUp(300, 160))
	e.SetColour(stroke.White)
	mustDraw(t)(e.PointerDown(150, 80))
	mustDraw(t)(e.PointerUp(150, 100))
}

func TestEditorMatchesRasterizer(t *testing.T) {
	bg := raster.Stationery()
	e := NewEditor(letter.NewComposer(""), bg)
	scribble(t, e)
	if err := e.Turn(2); err != nil {
		t.Fatal(err)
	}
	mustDraw(t)(e.PointerDown(0, 0))
	mustDraw(t)(e.PointerUp(307, 167))
	if err := e.Turn(0); err != nil {
		t.Fatal(err)
	}

	doc, err := e.Save()
	if err != nil {
		t.Fatal(err)
	}
	pages := raster.Render(doc, bg)
	if len(pages) != 2 {
		t.Fatalf("rendered %d pages, want 2", len(pages))
	}
	if !bytes.Equal(e.Live().Image().Pix, pages[0].Pix) {
		t.Error("live canvas differs from the rasterized page 0")
	}
	if !bytes.Equal(e.Preview().Image().Pix, pages[0].Pix) {
		t.Error("preview canvas differs from the rasterized page 0")
	}

	if err := e.Turn(2); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(e.Live().Image().Pix, pages[1].Pix) {
		t.Error("live canvas differs from the rasterized page 2")
	}
}

func TestEditorClear(t *testing.T) {
	rec := &paint.Recorder{}
	e := NewEditor(letter.NewComposer("", letter.WithInk(1000)), nil, WithSurface(rec))
	scribble(t, e)

	if err := e.Clear(0); err != nil {
		t.Fatal(err)
	}
	if got := e.Composer().Ink().Remaining(); got != 1000 {
		t.Errorf("Remaining() = %v, want 1000", got)
	}
	if got := len(rec.Painted()); got != 0 {
		t.Errorf("painted after clear = %d, want 0", got)
	}
	blank := paint.NewCanvas(letter.PageWidth, letter.PageHeight)
	if !bytes.Equal(e.Live().Image().Pix, blank.Image().Pix) {
		t.Error("live canvas not blank after clear")
	}

	// The page was drawn on once, so saving is still allowed.
	if _, err := e.Save(); err != nil {
		t.Errorf("Save after clear: %v", err)
	}
}

func TestEditorSaveBlank(t *testing.T) {
	e := NewEditor(letter.NewComposer(""), nil)
	if _, err := e.Save(); !perrors.Is(err, perrors.ErrCodeInvalidState) {
		t.Errorf("Save error = %v, want %s", err, perrors.ErrCodeInvalidState)
	}
}

func TestEditorRefusesWhileDrawing(t *testing.T) {
	e := NewEditor(letter.NewComposer(""), nil)
	mustDraw(t)(e.PointerDown(1, 1))

	if err := e.Turn(1); !perrors.Is(err, perrors.ErrCodeInvalidState) {
		t.Errorf("Turn error = %v, want %s", err, perrors.ErrCodeInvalidState)
	}
	if err := e.Clear(0); !perrors.Is(err, perrors.ErrCodeInvalidState) {
		t.Errorf("Clear error = %v, want %s", err, perrors.ErrCodeInvalidState)
	}
	if _, err := e.Save(); !perrors.Is(err, perrors.ErrCodeInvalidState) {
		t.Errorf("Save error = %v, want %s", err, perrors.ErrCodeInvalidState)
	}
}

func TestEditorPreview(t *testing.T) {
	m := replay.NewManual()
	e := NewEditor(letter.NewComposer(""), nil, WithPlayer(replay.New(replay.WithScheduler(m))))
	scribble(t, e)
	final := append([]byte(nil), e.Preview().Image().Pix...)

	done := 0
	if !e.TogglePreview(func() { done++ }) {
		t.Fatal("TogglePreview did not start a replay")
	}
	if bytes.Equal(e.Preview().Image().Pix, final) {
		t.Error("preview shows the finished page right after starting")
	}

	// Toggling again snaps to the finished page without completing.
	if e.TogglePreview(nil) {
		t.Error("second TogglePreview reported a running replay")
	}
	if !bytes.Equal(e.Preview().Image().Pix, final) {
		t.Error("preview not snapped to the finished page")
	}
	m.Advance(time.Second)
	if done != 0 {
		t.Errorf("done called %d times after stop, want 0", done)
	}

	e.TogglePreview(func() { done++ })
	m.Advance(time.Second)
	if done != 1 || e.Previewing() {
		t.Errorf("done = %d, Previewing() = %v after the replay ran out", done, e.Previewing())
	}
	if !bytes.Equal(e.Preview().Image().Pix, final) {
		t.Error("finished replay differs from the live drawing")
	}
}

func TestApplyTrace(t *testing.T) {
	trace := `
{"type": "colour", "colour": "hsl(10, 90%, 50%)"}
{"type": "down", "x": 10, "y": 10}
{"type": "move", "x": 10, "y": 10}
{"type": "move", "x": 20, "y": 10}
{"type": "up", "x": 20, "y": 20}
{"type": "page", "page": 1}
{"type": "down", "x": 5, "y": 5}
{"type": "up", "x": 5, "y": 5}
`
	e := NewEditor(letter.NewComposer(""), nil)
	stats, err := e.ApplyTrace(strings.NewReader(trace))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Events != 8 || stats.Accepted != 4 || stats.Rejected != 1 {
		t.Errorf("stats = %+v, want 8 events, 4 accepted, 1 rejected", stats)
	}
	doc, err := e.Save()
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.NonEmpty(); len(got) != 2 {
		t.Errorf("NonEmpty() = %v, want pages 0 and 1", got)
	}
	if got := doc.Pages[0].Strokes[0][0].Colour; got != stroke.HSL(10, 0.9, 0.5) {
		t.Errorf("colour = %v", got)
	}

	_, err = e.ApplyTrace(strings.NewReader(`{"type": "wave"}`))
	if !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("unknown event error = %v, want %s", err, perrors.ErrCodeInvalidInput)
	}
}
