package paint

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// coordLimit bounds coordinates before integer conversion. Anything beyond
// it is far off-canvas and is clipped away regardless.
const coordLimit = 1 << 20

// Canvas is a raster Surface backed by an *image.RGBA.
//
// Geometry follows the letter format exactly:
//   - a dot fills the square int(x-1.5)..int(x+1.5) on both axes, inclusive
//   - a line joins the truncated endpoints with a solid stroke of width 3
//     that covers both endpoint pixels
//
// Painting is not antialiased, so every pixel is either untouched or
// exactly the segment colour. Coordinates outside the canvas are clipped.
type Canvas struct {
	img        *image.RGBA
	background image.Image
	palette    *Palette

	z    *vector.Rasterizer
	mask *image.Alpha
}

// CanvasOption configures a Canvas.
type CanvasOption func(*Canvas)

// WithBackground sets the image copied onto the canvas on every clear,
// aligned at the top-left corner.
func WithBackground(bg image.Image) CanvasOption {
	return func(c *Canvas) { c.background = bg }
}

// WithPalette shares a colour palette between canvases of the same render.
func WithPalette(p *Palette) CanvasOption {
	return func(c *Canvas) {
		if p != nil {
			c.palette = p
		}
	}
}

// NewCanvas returns a cleared canvas of the given size.
func NewCanvas(width, height int, opts ...CanvasOption) *Canvas {
	c := &Canvas{
		img:     image.NewRGBA(image.Rect(0, 0, width, height)),
		palette: NewPalette(),
		z:       vector.NewRasterizer(0, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Clear()
	return c
}

// Image returns the backing image. It is shared, not copied.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Clear resets the canvas to its background, or to transparent when it has
// none.
func (c *Canvas) Clear() {
	b := c.img.Bounds()
	if c.background == nil {
		draw.Draw(c.img, b, image.Transparent, image.Point{}, draw.Src)
		return
	}
	draw.Draw(c.img, b, c.background, c.background.Bounds().Min, draw.Src)
}

// Paint draws one segment.
func (c *Canvas) Paint(seg stroke.Segment) {
	col := c.palette.Resolve(seg.Colour)
	switch seg.Kind {
	case stroke.Dot:
		c.fillRect(
			truncate(seg.X-stroke.DotHalfWidth), truncate(seg.Y-stroke.DotHalfWidth),
			truncate(seg.X+stroke.DotHalfWidth), truncate(seg.Y+stroke.DotHalfWidth),
			col,
		)
	case stroke.Line:
		c.line(truncate(seg.FromX), truncate(seg.FromY), truncate(seg.X), truncate(seg.Y), col)
	}
}

// fillRect fills the inclusive rectangle (x0, y0)-(x1, y1).
func (c *Canvas) fillRect(x0, y0, x1, y1 int, col color.RGBA) {
	r := image.Rect(x0, y0, x1+1, y1+1).Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
}

type point struct{ x, y float64 }

func (c *Canvas) line(x0, y0, x1, y1 int, col color.RGBA) {
	if x0 == x1 && y0 == y1 {
		half := int(stroke.LineWidth) / 2
		c.fillRect(x0-half, y0-half, x1+half, y1+half, col)
		return
	}

	// Work in pixel centres and extend half a pixel past both ends so the
	// endpoint pixels are covered.
	ax, ay := float64(x0)+0.5, float64(y0)+0.5
	bx, by := float64(x1)+0.5, float64(y1)+0.5
	dx, dy := bx-ax, by-ay
	length := math.Hypot(dx, dy)
	ux, uy := dx/length, dy/length
	ax, ay = ax-ux*0.5, ay-uy*0.5
	bx, by = bx+ux*0.5, by+uy*0.5
	nx, ny := -uy*stroke.LineWidth/2, ux*stroke.LineWidth/2

	poly := []point{
		{ax + nx, ay + ny},
		{bx + nx, by + ny},
		{bx - nx, by - ny},
		{ax - nx, ay - ny},
	}
	bounds := c.img.Bounds()
	poly = clip(poly, float64(bounds.Min.X), float64(bounds.Min.Y), float64(bounds.Max.X), float64(bounds.Max.Y))
	if len(poly) < 3 {
		return
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range poly {
		minX, minY = math.Min(minX, p.x), math.Min(minY, p.y)
		maxX, maxY = math.Max(maxX, p.x), math.Max(maxY, p.y)
	}
	box := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY))).Intersect(bounds)
	if box.Empty() {
		return
	}

	w, h := box.Dx(), box.Dy()
	c.z.Reset(w, h)
	c.z.DrawOp = draw.Src
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	c.z.MoveTo(float32(poly[0].x-ox), float32(poly[0].y-oy))
	for _, p := range poly[1:] {
		c.z.LineTo(float32(p.x-ox), float32(p.y-oy))
	}
	c.z.ClosePath()

	if c.mask == nil || c.mask.Bounds().Dx() < w || c.mask.Bounds().Dy() < h {
		c.mask = image.NewAlpha(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	}
	area := image.Rect(0, 0, w, h)
	c.z.Draw(c.mask, area, image.Opaque, image.Point{})

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if c.mask.AlphaAt(x, y).A >= 0x80 {
				c.img.SetRGBA(box.Min.X+x, box.Min.Y+y, col)
			}
		}
	}
}

// clip clips a convex polygon to the rectangle [x0, x1] x [y0, y1]
// (Sutherland-Hodgman).
func clip(poly []point, x0, y0, x1, y1 float64) []point {
	edges := []struct {
		inside func(p point) bool
		cross  func(a, b point) point
	}{
		{func(p point) bool { return p.x >= x0 }, func(a, b point) point { return atX(a, b, x0) }},
		{func(p point) bool { return p.x <= x1 }, func(a, b point) point { return atX(a, b, x1) }},
		{func(p point) bool { return p.y >= y0 }, func(a, b point) point { return atY(a, b, y0) }},
		{func(p point) bool { return p.y <= y1 }, func(a, b point) point { return atY(a, b, y1) }},
	}
	for _, e := range edges {
		if len(poly) == 0 {
			return nil
		}
		var out []point
		prev := poly[len(poly)-1]
		for _, cur := range poly {
			switch {
			case e.inside(cur) && e.inside(prev):
				out = append(out, cur)
			case e.inside(cur):
				out = append(out, e.cross(prev, cur), cur)
			case e.inside(prev):
				out = append(out, e.cross(prev, cur))
			}
			prev = cur
		}
		poly = out
	}
	return poly
}

func atX(a, b point, x float64) point {
	t := (x - a.x) / (b.x - a.x)
	return point{x, a.y + t*(b.y-a.y)}
}

func atY(a, b point, y float64) point {
	t := (y - a.y) / (b.y - a.y)
	return point{a.x + t*(b.x-a.x), y}
}

// truncate converts a page coordinate to a pixel index, rounding toward
// zero.
func truncate(v float64) int {
	switch {
	case math.IsNaN(v):
		return -coordLimit
	case v > coordLimit:
		return coordLimit
	case v < -coordLimit:
		return -coordLimit
	}
	return int(v)
}
