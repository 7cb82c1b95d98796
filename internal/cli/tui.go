package cli

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/paint"
	"github.com/matzehuels/pictoswap/pkg/replay"
)

// frameInterval is how far the playback clock moves per frame.
const frameInterval = 16 * time.Millisecond

var playHelpStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// PlayModel - Animated letter replay
// =============================================================================

// frameMsg advances the playback clock by one frame.
type frameMsg struct{}

// playModel replays a letter in the terminal. Playback runs on a manual
// scheduler advanced from Update, so every paint happens on the bubbletea
// loop.
type playModel struct {
	doc    letter.Document
	canvas *paint.Canvas
	sched  *replay.Manual
	player *replay.Player
	pb     *replay.Playback
	scale  int

	page, total int
	done        bool
	ticking     bool
}

// newPlayModel prepares a replay of doc on bg. scale is the number of pixels
// folded into one terminal column.
func newPlayModel(doc letter.Document, bg image.Image, scale int, opts ...replay.Option) *playModel {
	if scale < 1 {
		scale = 1
	}
	m := &playModel{
		doc:    doc,
		canvas: paint.NewCanvas(letter.PageWidth, letter.PageHeight, paint.WithBackground(bg)),
		sched:  replay.NewManual(),
		scale:  scale,
	}
	opts = append(opts,
		replay.WithScheduler(m.sched),
		replay.OnPage(func(page, total int) {
			m.page = page
			m.total = total
		}),
	)
	m.player = replay.New(opts...)
	return m
}

func (m *playModel) start() {
	m.done = false
	m.pb = m.player.Letter(m.canvas, m.doc, func() { m.done = true })
}

func (m *playModel) tick() tea.Cmd {
	if m.done {
		m.ticking = false
		return nil
	}
	m.ticking = true
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m *playModel) Init() tea.Cmd {
	m.start()
	return m.tick()
}

func (m *playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.sched.Advance(frameInterval)
		return m, m.tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.pb.Cancel()
			return m, tea.Quit
		case " ", "enter":
			for m.sched.Next() {
			}
		case "r":
			m.pb.Cancel()
			m.start()
			if !m.ticking {
				return m, m.tick()
			}
		}
	}
	return m, nil
}

func (m *playModel) View() string {
	var b strings.Builder

	header := "Blank letter"
	if m.total > 0 {
		header = fmt.Sprintf("Page %d of %d", m.page+1, letter.PageCount)
		if m.done {
			header += " · done"
		}
	}
	b.WriteString(StyleTitle.Render(header))
	b.WriteString("\n")
	b.WriteString(halfBlocks(m.canvas.Image(), m.scale))
	b.WriteString(playHelpStyle.Render("space skip  r replay  q quit"))
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

// halfBlocks draws img with one "▀" per two sampled rows: the foreground
// is the upper pixel and the background the lower one.
func halfBlocks(img *image.RGBA, scale int) string {
	bounds := img.Bounds()
	var b strings.Builder
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 2 * scale {
		for x := bounds.Min.X; x < bounds.Max.X; x += scale {
			top := img.RGBAAt(x, y)
			bottom := top
			if y+scale < bounds.Max.Y {
				bottom = img.RGBAAt(x, y+scale)
			}
			b.WriteString(lipgloss.NewStyle().
				Foreground(hexColor(top)).
				Background(hexColor(bottom)).
				Render("▀"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func hexColor(c color.RGBA) lipgloss.Color {
	const digits = "0123456789abcdef"
	buf := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{c.R, c.G, c.B} {
		buf[1+2*i] = digits[v>>4]
		buf[2+2*i] = digits[v&0x0f]
	}
	return lipgloss.Color(string(buf))
}
