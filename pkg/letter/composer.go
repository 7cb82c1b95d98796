package letter

import (
	"time"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/ink"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// Composer is one composition session: [PageCount] sheets drawing from a
// single shared ink pool, with each sheet recording what it spent so that
// clearing it can pay the ink back.
//
// A Composer is driven by one event loop and is not safe for concurrent use.
type Composer struct {
	background string
	ink        *ink.Meter
	sheets     []*Sheet
	current    int
	hasContent bool
}

// Sheet is a page under composition.
type Sheet struct {
	index int
	model *stroke.Model
	usage float64
	empty bool
	owner *Composer
}

// ComposerOption configures a Composer.
type ComposerOption func(*composerConfig)

type composerConfig struct {
	maxInk float64
	now    func() time.Time
}

// WithInk sets the capacity of the shared ink pool.
func WithInk(max float64) ComposerOption {
	return func(c *composerConfig) { c.maxInk = max }
}

// WithClock sets the time source used to stamp segments.
func WithClock(now func() time.Time) ComposerOption {
	return func(c *composerConfig) { c.now = now }
}

// NewComposer starts a session with blank pages and a full ink pool.
func NewComposer(background string, opts ...ComposerOption) *Composer {
	cfg := composerConfig{maxInk: ink.DefaultMax, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if background == "" {
		background = DefaultBackground
	}

	c := &Composer{
		background: background,
		ink:        ink.New(cfg.maxInk),
		sheets:     make([]*Sheet, PageCount),
	}
	for i := range c.sheets {
		c.sheets[i] = &Sheet{
			index: i,
			model: stroke.NewModel(stroke.WithClock(cfg.now)),
			empty: true,
			owner: c,
		}
	}
	return c
}

// Background returns the background key of the letter being composed.
func (c *Composer) Background() string {
	return c.background
}

// SetBackground changes the stationery.
func (c *Composer) SetBackground(key string) {
	if key != "" {
		c.background = key
	}
}

// Ink returns the shared ink pool.
func (c *Composer) Ink() *ink.Meter {
	return c.ink
}

// Sheet returns the sheet at index i.
func (c *Composer) Sheet(i int) (*Sheet, error) {
	if i < 0 || i >= len(c.sheets) {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "page %d out of range [0, %d)", i, len(c.sheets))
	}
	return c.sheets[i], nil
}

// Current returns the sheet being drawn on.
func (c *Composer) Current() *Sheet {
	return c.sheets[c.current]
}

// CurrentIndex returns the index of the sheet being drawn on.
func (c *Composer) CurrentIndex() int {
	return c.current
}

// Turn makes page i current. Turning while a stroke is open would orphan
// it, so it is refused.
func (c *Composer) Turn(i int) (*Sheet, error) {
	s, err := c.Sheet(i)
	if err != nil {
		return nil, err
	}
	if c.Current().model.Open() {
		return nil, perrors.New(perrors.ErrCodeInvalidState, "turn to page %d: stroke still open on page %d", i, c.current)
	}
	c.current = i
	return s, nil
}

// Clear erases page i: its strokes are dropped, its usage is refunded to
// the shared pool and reset to zero. The session loses its has-content
// state only when no other page still holds ink.
func (c *Composer) Clear(i int) error {
	s, err := c.Sheet(i)
	if err != nil {
		return err
	}
	if s.model.Open() {
		return perrors.New(perrors.ErrCodeInvalidState, "clear page %d: stroke still open", i)
	}
	s.model.Clear()
	c.ink.Add(s.usage)
	s.usage = 0

	for _, other := range c.sheets {
		if other.usage != 0 {
			return nil
		}
	}
	c.hasContent = false
	return nil
}

// HasContent reports whether anything has been drawn since the session
// started or was last cleared down to nothing.
func (c *Composer) HasContent() bool {
	return c.hasContent
}

// Load replaces the session content with doc, charging its recorded usage
// against the ink pool.
func (c *Composer) Load(doc Document) error {
	if len(doc.Pages) != len(c.sheets) {
		return perrors.New(perrors.ErrCodeInvalidInput, "load: document has %d pages, want %d", len(doc.Pages), len(c.sheets))
	}
	for _, s := range c.sheets {
		if s.model.Open() {
			return perrors.New(perrors.ErrCodeInvalidState, "load: stroke still open on page %d", s.index)
		}
	}

	c.ink.Reset()
	if !c.ink.Subtract(doc.InkUsage()) {
		return perrors.New(perrors.ErrCodeInvalidInput, "load: document uses %.1f ink, pool holds %.1f", doc.InkUsage(), c.ink.Max())
	}

	c.hasContent = false
	for i, p := range doc.Pages {
		s := c.sheets[i]
		s.model.Import(p.Strokes)
		s.usage = p.InkUsage
		s.empty = p.IsEmpty() && p.InkUsage == 0
		if !s.empty {
			c.hasContent = true
		}
	}
	c.SetBackground(doc.Background)
	return nil
}

// Document finalises the session into an immutable snapshot.
func (c *Composer) Document() (Document, error) {
	doc := Document{Background: c.background, Pages: make([]Page, len(c.sheets))}
	for i, s := range c.sheets {
		if s.model.Open() {
			return Document{}, perrors.New(perrors.ErrCodeInvalidState, "finalise: stroke still open on page %d", i)
		}
		doc.Pages[i] = Page{Strokes: s.model.Strokes(), InkUsage: s.usage}
	}
	return doc, nil
}

// Index returns the page index of the sheet.
func (s *Sheet) Index() int {
	return s.index
}

// Model returns the stroke model of the sheet.
func (s *Sheet) Model() *stroke.Model {
	return s.model
}

// Usage returns the ink this sheet has consumed since it was last cleared.
func (s *Sheet) Usage() float64 {
	return s.usage
}

// Empty reports whether the sheet has never accepted a segment.
func (s *Sheet) Empty() bool {
	return s.empty
}

// Charge pays cost from the shared pool on behalf of this sheet. It returns
// false, changing nothing, when the pool cannot cover the cost.
func (s *Sheet) Charge(cost float64) bool {
	if !s.owner.ink.Subtract(cost) {
		return false
	}
	s.usage += cost
	s.empty = false
	s.owner.hasContent = true
	return true
}
