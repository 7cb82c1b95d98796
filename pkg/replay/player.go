// Package replay re-paints a stroke history, either all at once or as an
// animation paced by a [Scheduler].
//
// Timed playback runs at a fixed cadence. Capture timestamps are ignored so
// that the length of a replay depends only on how much was drawn, never on
// how slowly it was drawn. A longer pause marks each pen lift between
// strokes:
//
//	p := replay.New()
//	pb := p.Timed(canvas, strokes, func() { fmt.Println("done") })
//	// ...
//	pb.Cancel()
//
// Cancellation is a flag checked before and after each paint: once
// [Playback.Cancel] returns, nothing beyond the segment in flight is painted
// and the completion callback never runs. Surfaces may cancel from Paint.
package replay

import (
	"sync"
	"time"

	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/paint"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// Default pacing.
const (
	DefaultSegmentDelay = 10 * time.Millisecond
	DefaultPenLift      = 50 * time.Millisecond
	DefaultPageGap      = time.Second
)

// Player paces replays.
type Player struct {
	sched        Scheduler
	segmentDelay time.Duration
	penLift      time.Duration
	pageGap      time.Duration
	onPage       func(page, total int)
}

// Option configures a Player.
type Option func(*Player)

// WithScheduler sets the clock playback runs on. The default is [RealTime].
func WithScheduler(s Scheduler) Option {
	return func(p *Player) {
		if s != nil {
			p.sched = s
		}
	}
}

// WithSegmentDelay sets the pause between segments of one stroke.
func WithSegmentDelay(d time.Duration) Option {
	return func(p *Player) { p.segmentDelay = d }
}

// WithPenLift sets the pause between strokes.
func WithPenLift(d time.Duration) Option {
	return func(p *Player) { p.penLift = d }
}

// WithPageGap sets the pause between pages of a letter.
func WithPageGap(d time.Duration) Option {
	return func(p *Player) { p.pageGap = d }
}

// OnPage registers a hook called whenever letter playback starts a page.
// page is the index into the document; total is the number of pages that
// will play. The hook may cancel the playback.
func OnPage(fn func(page, total int)) Option {
	return func(p *Player) { p.onPage = fn }
}

// New returns a player with the default pacing on the real clock.
func New(opts ...Option) *Player {
	p := &Player{
		sched:        RealTime,
		segmentDelay: DefaultSegmentDelay,
		penLift:      DefaultPenLift,
		pageGap:      DefaultPageGap,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Instant clears s and paints every segment synchronously.
func Instant(s paint.Surface, strokes []stroke.Stroke) {
	paint.PaintAll(s, strokes)
}

// Timed clears s and starts an animated replay of strokes. The first segment
// is painted before Timed returns. done is called exactly once when the last
// segment has been painted, unless the playback is cancelled first.
//
// With no strokes, or when the first stroke is empty, done is called
// immediately and nothing is painted. Empty strokes further on are skipped.
func (p *Player) Timed(s paint.Surface, strokes []stroke.Stroke, done func()) *Playback {
	s.Clear()
	return p.start(s, p.plan(strokes, 0, 0), done)
}

// Letter plays every non-empty page of doc in order on s, pausing for the
// page gap between pages and clearing s before each. done is called once
// after the last page finishes.
func (p *Player) Letter(s paint.Surface, doc letter.Document, done func()) *Playback {
	var pages [][]step
	for _, i := range doc.NonEmpty() {
		if steps := p.plan(doc.Pages[i].Strokes, i, p.pageGap); len(steps) > 0 {
			pages = append(pages, steps)
		}
	}

	var steps []step
	for n, page := range pages {
		page[0].clear = true
		page[0].total = len(pages)
		if n == 0 {
			page[0].delay = 0
		}
		steps = append(steps, page...)
	}

	s.Clear()
	return p.start(s, steps, done)
}

// step is one scheduled paint.
type step struct {
	delay time.Duration // wait before this step
	clear bool          // clear the surface first; starts a page
	page  int
	total int
	seg   stroke.Segment
}

// plan flattens strokes into paced steps. first is the delay before the
// first step.
func (p *Player) plan(strokes []stroke.Stroke, page int, first time.Duration) []step {
	if len(strokes) == 0 || len(strokes[0]) == 0 {
		return nil
	}
	var steps []step
	for i, st := range strokes {
		for j, seg := range st {
			d := p.segmentDelay
			switch {
			case len(steps) == 0:
				d = first
			case j == 0 && i > 0:
				d = p.penLift
			}
			steps = append(steps, step{delay: d, page: page, seg: seg})
		}
	}
	return steps
}

func (p *Player) start(s paint.Surface, steps []step, done func()) *Playback {
	pb := &Playback{
		player:  p,
		surface: s,
		steps:   steps,
		done:    done,
	}
	if len(steps) == 0 {
		pb.state = finished
		if done != nil {
			done()
		}
		return pb
	}
	pb.advance()
	return pb
}

type state int

const (
	playing state = iota
	finished
	cancelled
)

// Playback is a running timed replay.
type Playback struct {
	player  *Player
	surface paint.Surface
	steps   []step
	done    func()

	mu      sync.Mutex
	state   state
	next    int
	painted int
	timer   Timer
}

func (pb *Playback) advance() {
	pb.mu.Lock()
	if pb.state != playing {
		pb.mu.Unlock()
		return
	}
	st := pb.steps[pb.next]
	pb.next++
	pb.painted++
	pb.timer = nil
	pb.mu.Unlock()

	// Surfaces and hooks run unlocked so they may cancel the playback.
	if st.clear {
		pb.surface.Clear()
		if pb.player.onPage != nil {
			pb.player.onPage(st.page, st.total)
		}
	}
	pb.surface.Paint(st.seg)

	pb.mu.Lock()
	if pb.state != playing {
		pb.mu.Unlock()
		return
	}
	if pb.next == len(pb.steps) {
		pb.state = finished
		pb.mu.Unlock()
		if pb.done != nil {
			pb.done()
		}
		return
	}
	pb.timer = pb.player.sched.AfterFunc(pb.steps[pb.next].delay, pb.advance)
	pb.mu.Unlock()
}

// Cancel stops the playback. At most the segment already being painted
// lands after Cancel returns, and the completion callback is never called.
// Cancel may be called from a surface or an OnPage hook. Cancelling a finished playback
// does nothing.
func (pb *Playback) Cancel() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.state != playing {
		return
	}
	pb.state = cancelled
	if pb.timer != nil {
		pb.timer.Stop()
		pb.timer = nil
	}
}

// Finished reports whether the playback ran to completion.
func (pb *Playback) Finished() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.state == finished
}

// Active reports whether the playback is still running.
func (pb *Playback) Active() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.state == playing
}

// Painted returns the number of segments painted so far.
func (pb *Playback) Painted() int {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.painted
}

// Total returns the number of segments the playback paints when it runs to
// completion.
func (pb *Playback) Total() int {
	return len(pb.steps)
}

// Duration returns the scheduled length of the playback from the first
// paint to the last.
func (pb *Playback) Duration() time.Duration {
	var d time.Duration
	for _, st := range pb.steps {
		d += st.delay
	}
	return d
}
