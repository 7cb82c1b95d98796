package stroke

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Colour is the paint colour of a segment. It is a closed variant: either
// one of the named colours [Black] and [White], or an HSL triple built with
// [HSL]. The zero value is hsl(0, 0%, 0%).
//
// Saturation and lightness are held as percentages so that the textual wire
// form round-trips exactly.
type Colour struct {
	name string
	h    float64
	s    float64
	l    float64
}

// Named colours.
var (
	Black = Colour{name: "black"}
	White = Colour{name: "white"}
)

// HSL returns an HSL colour. Hue is in degrees and is wrapped into [0, 360);
// saturation and lightness are fractions clamped to [0, 1]. The
// percentages are rounded to nine decimals, so HSL(0, 0.07, 0.29) prints as
// hsl(0, 7%, 29%).
func HSL(h, s, l float64) Colour {
	return hslPercent(h, percent(s), percent(l))
}

func percent(frac float64) float64 {
	const scale = 1e9
	return math.Round(frac*100*scale) / scale
}

func hslPercent(h, s, l float64) Colour {
	h, s, l = finite(h), finite(s), finite(l)
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h == 0 {
		h = 0 // drop negative zero
	}
	return Colour{h: h, s: clamp(s, 0, 100), l: clamp(l, 0, 100)}
}

// Named reports whether c is [Black] or [White].
func (c Colour) Named() bool {
	return c.name != ""
}

// HSL returns the hue in degrees and the saturation and lightness as
// fractions. Named colours report their HSL equivalent.
func (c Colour) HSL() (h, s, l float64) {
	switch c.name {
	case "black":
		return 0, 0, 0
	case "white":
		return 0, 0, 1
	}
	return c.h, c.s / 100, c.l / 100
}

// String returns the CSS token used on the wire: "black", "white" or
// "hsl(H, S%, L%)".
func (c Colour) String() string {
	if c.name != "" {
		return c.name
	}
	return "hsl(" + formatFloat(c.h) + ", " + formatFloat(c.s) + "%, " + formatFloat(c.l) + "%)"
}

// RGBA resolves c to an opaque pixel colour. HSL channels are converted with
// the sector formula and floored, so hsl(0, 100%, 50%) is exactly
// (255, 0, 0).
func (c Colour) RGBA() color.RGBA {
	switch c.name {
	case "black":
		return color.RGBA{A: 0xff}
	case "white":
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}

	h, s, l := c.h, c.s/100, c.l/100
	chroma := (1 - math.Abs(2*l-1)) * s
	x := chroma * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - chroma/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = chroma, x, 0
	case h < 120:
		r, g, b = x, chroma, 0
	case h < 180:
		r, g, b = 0, chroma, x
	case h < 240:
		r, g, b = 0, x, chroma
	case h < 300:
		r, g, b = x, 0, chroma
	default:
		r, g, b = chroma, 0, x
	}

	return color.RGBA{
		R: channel(r + m),
		G: channel(g + m),
		B: channel(b + m),
		A: 0xff,
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Colour) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Colour) UnmarshalText(text []byte) error {
	parsed, err := ParseColour(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColour parses a CSS colour token as produced by the colour picker:
// "black", "white" or "hsl(H, S%, L%)". Whitespace around the components is
// ignored and the percent signs are optional.
func ParseColour(s string) (Colour, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "black":
		return Black, nil
	case "white":
		return White, nil
	}

	if !strings.HasPrefix(s, "hsl(") || !strings.HasSuffix(s, ")") {
		return Colour{}, fmt.Errorf("unsupported colour %q", s)
	}
	parts := strings.Split(s[len("hsl("):len(s)-1], ",")
	if len(parts) != 3 {
		return Colour{}, fmt.Errorf("colour %q: want 3 components, got %d", s, len(parts))
	}

	var v [3]float64
	for i, p := range parts {
		p = strings.TrimSuffix(strings.TrimSpace(p), "%")
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Colour{}, fmt.Errorf("colour %q: bad component %q", s, parts[i])
		}
		v[i] = f
	}
	return hslPercent(v[0], v[1], v[2]), nil
}

func channel(v float64) uint8 {
	return uint8(clamp(math.Floor(v*255), 0, 255))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
