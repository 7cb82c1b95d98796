package paint

import (
	"image/color"

	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// Palette memoises colour resolution for one render. Create a fresh Palette
// per document so that nothing carries over between letters.
type Palette struct {
	cache map[stroke.Colour]color.RGBA
}

// NewPalette returns an empty palette.
func NewPalette() *Palette {
	return &Palette{cache: make(map[stroke.Colour]color.RGBA)}
}

// Resolve returns the pixel colour for c.
func (p *Palette) Resolve(c stroke.Colour) color.RGBA {
	if rgba, ok := p.cache[c]; ok {
		return rgba
	}
	rgba := c.RGBA()
	p.cache[c] = rgba
	return rgba
}

// Len returns the number of distinct colours resolved so far.
func (p *Palette) Len() int {
	return len(p.cache)
}
