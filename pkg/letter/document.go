package letter

import (
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// Fixed letter geometry shared by the live surface and the rasterizer.
const (
	PageCount  = 4
	PageWidth  = 308
	PageHeight = 168

	// DefaultBackground is the stationery a new letter starts on.
	DefaultBackground = "green-letter.png"
)

// Page is the serialisable content of one page: its committed strokes in
// paint order and the ink those strokes consumed.
type Page struct {
	Strokes  []stroke.Stroke
	InkUsage float64
}

// IsEmpty reports whether the page has nothing to paint.
func (p Page) IsEmpty() bool {
	return len(p.Strokes) == 0
}

// Document is a finished letter. A Document is a value: accessors and the
// codec return copies, and nothing downstream of composition mutates it.
type Document struct {
	Background string
	Pages      []Page
}

// New returns a blank document of [PageCount] pages.
func New(background string) Document {
	if background == "" {
		background = DefaultBackground
	}
	return Document{Background: background, Pages: make([]Page, PageCount)}
}

// NonEmpty returns the indices of pages that have strokes, in document
// order. Position i in the result is the preview index of that page.
func (d Document) NonEmpty() []int {
	var idx []int
	for i, p := range d.Pages {
		if !p.IsEmpty() {
			idx = append(idx, i)
		}
	}
	return idx
}

// InkUsage returns the total ink spent across all pages.
func (d Document) InkUsage() float64 {
	var total float64
	for _, p := range d.Pages {
		total += p.InkUsage
	}
	return total
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := Document{Background: d.Background}
	if d.Pages != nil {
		out.Pages = make([]Page, len(d.Pages))
		for i, p := range d.Pages {
			out.Pages[i] = Page{Strokes: stroke.Clone(p.Strokes), InkUsage: p.InkUsage}
		}
	}
	return out
}

// Equal reports structural equality, including stroke and segment order.
func (d Document) Equal(o Document) bool {
	if d.Background != o.Background || len(d.Pages) != len(o.Pages) {
		return false
	}
	for i := range d.Pages {
		if d.Pages[i].InkUsage != o.Pages[i].InkUsage {
			return false
		}
		if !stroke.Equal(d.Pages[i].Strokes, o.Pages[i].Strokes) {
			return false
		}
	}
	return true
}
