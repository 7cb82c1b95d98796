package letter

import (
	"bytes"
	"encoding/json"
	"fmt"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// wireDocument is the canonical JSON shape of a letter.
type wireDocument struct {
	Background   *string           `json:"background"`
	Pages        [][][]wireSegment `json:"pages"`
	PageInkUsage []float64         `json:"pageInkUsage"`
}

// wireSegment uses pointers so that a missing field can be told apart from
// a zero value.
type wireSegment struct {
	Type   *string  `json:"type"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	FromX  *float64 `json:"from_x,omitempty"`
	FromY  *float64 `json:"from_y,omitempty"`
	Colour *string  `json:"colour"`
	Time   *int64   `json:"time"`
}

// Encode serialises d into its canonical wire form. Empty pages and strokes
// are written as empty arrays, never null.
func Encode(d Document) ([]byte, error) {
	background := d.Background
	w := wireDocument{
		Background:   &background,
		Pages:        make([][][]wireSegment, len(d.Pages)),
		PageInkUsage: make([]float64, len(d.Pages)),
	}
	for i, p := range d.Pages {
		w.PageInkUsage[i] = p.InkUsage
		strokes := make([][]wireSegment, len(p.Strokes))
		for j, s := range p.Strokes {
			segs := make([]wireSegment, len(s))
			for k, seg := range s {
				segs[k] = encodeSegment(seg)
			}
			strokes[j] = segs
		}
		w.Pages[i] = strokes
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode letter: %w", err)
	}
	return data, nil
}

func encodeSegment(s stroke.Segment) wireSegment {
	typ := s.Kind.String()
	x, y, t := s.X, s.Y, s.Time
	colour := s.Colour.String()
	w := wireSegment{Type: &typ, X: &x, Y: &y, Colour: &colour, Time: &t}
	if s.Kind == stroke.Line {
		fx, fy := s.FromX, s.FromY
		w.FromX, w.FromY = &fx, &fy
	}
	return w
}

// Decode parses a wire-form letter. Any defect aborts the whole document
// with a MALFORMED_DOCUMENT error: a partial letter would shift page
// indices and preview names.
func Decode(data []byte) (Document, error) {
	var w wireDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&w); err != nil {
		return Document{}, perrors.Wrap(perrors.ErrCodeMalformedDocument, err, "invalid letter JSON")
	}
	if dec.More() {
		return Document{}, perrors.New(perrors.ErrCodeMalformedDocument, "trailing data after letter")
	}
	return fromWire(w)
}

func fromWire(w wireDocument) (Document, error) {
	if w.Background == nil || *w.Background == "" {
		return Document{}, malformed("missing background")
	}
	if w.Pages == nil {
		return Document{}, malformed("missing pages")
	}
	if len(w.Pages) != PageCount {
		return Document{}, malformed("letter has %d pages, want %d", len(w.Pages), PageCount)
	}
	if w.PageInkUsage == nil {
		return Document{}, malformed("missing pageInkUsage")
	}
	if len(w.PageInkUsage) != len(w.Pages) {
		return Document{}, malformed("pageInkUsage has %d entries for %d pages", len(w.PageInkUsage), len(w.Pages))
	}

	d := Document{Background: *w.Background, Pages: make([]Page, len(w.Pages))}
	for i, wp := range w.Pages {
		if w.PageInkUsage[i] < 0 {
			return Document{}, malformed("page %d: negative ink usage", i)
		}
		p := Page{InkUsage: w.PageInkUsage[i], Strokes: make([]stroke.Stroke, len(wp))}
		for j, ws := range wp {
			s := make(stroke.Stroke, len(ws))
			for k, wseg := range ws {
				seg, err := decodeSegment(wseg)
				if err != nil {
					return Document{}, perrors.Wrap(perrors.ErrCodeMalformedDocument, err, "page %d stroke %d segment %d", i, j, k)
				}
				s[k] = seg
			}
			p.Strokes[j] = s
		}
		d.Pages[i] = p
	}
	return d, nil
}

func decodeSegment(w wireSegment) (stroke.Segment, error) {
	if w.Type == nil {
		return stroke.Segment{}, fmt.Errorf("missing type")
	}
	kind, ok := stroke.ParseKind(*w.Type)
	if !ok {
		return stroke.Segment{}, fmt.Errorf("unknown segment type %q", *w.Type)
	}
	switch {
	case w.X == nil:
		return stroke.Segment{}, fmt.Errorf("missing x")
	case w.Y == nil:
		return stroke.Segment{}, fmt.Errorf("missing y")
	case w.Colour == nil:
		return stroke.Segment{}, fmt.Errorf("missing colour")
	case w.Time == nil:
		return stroke.Segment{}, fmt.Errorf("missing time")
	}
	colour, err := stroke.ParseColour(*w.Colour)
	if err != nil {
		return stroke.Segment{}, err
	}

	if kind == stroke.Dot {
		return stroke.NewDot(colour, *w.X, *w.Y, *w.Time), nil
	}
	if w.FromX == nil || w.FromY == nil {
		return stroke.Segment{}, fmt.Errorf("line missing from_x/from_y")
	}
	return stroke.NewLine(colour, *w.FromX, *w.FromY, *w.X, *w.Y, *w.Time), nil
}

func malformed(format string, args ...any) error {
	return perrors.New(perrors.ErrCodeMalformedDocument, format, args...)
}
