// Package raster renders letters to page images on the server.
//
// Rendering is deterministic and shares its geometry with the live editor
// through [paint.Canvas]: a letter rasterized here matches, pixel for pixel,
// the same letter replayed instantly on a client with the same background.
//
// Empty pages are skipped and the remaining ones renumbered from zero, so a
// letter drawn on pages 1 and 3 yields two images named with
// [PreviewName] as "{id}-0.png" and "{id}-1.png".
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/paint"
)

// Render paints every non-empty page of doc on top of bg. bg may be nil for
// a transparent page. Each call uses its own palette, so nothing carries
// over between letters.
func Render(doc letter.Document, bg image.Image) []*image.RGBA {
	palette := paint.NewPalette()
	var out []*image.RGBA
	for _, i := range doc.NonEmpty() {
		c := paint.NewCanvas(letter.PageWidth, letter.PageHeight,
			paint.WithBackground(bg), paint.WithPalette(palette))
		paint.PaintAll(c, doc.Pages[i].Strokes)
		out = append(out, c.Image())
	}
	return out
}

// Renderer resolves letter backgrounds before rendering.
type Renderer struct {
	Backgrounds Registry
}

// NewRenderer returns a renderer over backgrounds. A nil registry serves
// only the built-in stationery.
func NewRenderer(backgrounds Registry) *Renderer {
	if backgrounds == nil {
		backgrounds = DefaultRegistry()
	}
	return &Renderer{Backgrounds: backgrounds}
}

// RenderLetter renders doc. An unknown or undecodable background fails the
// whole letter with DECODE_ERROR before any page is painted.
func (r *Renderer) RenderLetter(doc letter.Document) ([]*image.RGBA, error) {
	bg, err := r.Backgrounds.Lookup(doc.Background)
	if err != nil {
		if perrors.Is(err, perrors.ErrCodeDecode) {
			return nil, err
		}
		return nil, perrors.Wrap(perrors.ErrCodeDecode, err, "background %q", doc.Background)
	}
	return Render(doc, bg), nil
}

// RenderPNG renders doc and encodes every page.
func (r *Renderer) RenderPNG(doc letter.Document) ([][]byte, error) {
	pages, err := r.RenderLetter(doc)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(pages))
	for i, img := range pages {
		data, err := EncodePNG(img)
		if err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i, err)
		}
		out[i] = data
	}
	return out, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PreviewName returns the file name of the i-th rendered page of a letter.
func PreviewName(letterID string, i int) string {
	return fmt.Sprintf("%s-%d.png", letterID, i)
}
