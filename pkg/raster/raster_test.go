package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

func docWith(pages map[int][]stroke.Stroke) letter.Document {
	doc := letter.New(letter.DefaultBackground)
	for i, s := range pages {
		doc.Pages[i].Strokes = s
	}
	return doc
}

func TestRenderSkipsEmptyPages(t *testing.T) {
	doc := docWith(map[int][]stroke.Stroke{
		1: {{stroke.NewDot(stroke.Black, 10, 10, 0)}},
		3: {{stroke.NewDot(stroke.White, 50, 50, 0)}},
	})

	pages := Render(doc, Stationery())
	if len(pages) != 2 {
		t.Fatalf("Render returned %d pages, want 2", len(pages))
	}
	if got := pages[0].RGBAAt(10, 10); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("page 0 pixel = %v, want black from source page 1", got)
	}
	if got := pages[1].RGBAAt(50, 50); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("page 1 pixel = %v, want white from source page 3", got)
	}
	for i, p := range pages {
		if b := p.Bounds(); b.Dx() != letter.PageWidth || b.Dy() != letter.PageHeight {
			t.Errorf("page %d bounds = %v", i, b)
		}
	}

	names := []string{PreviewName("abc", 0), PreviewName("abc", 1)}
	if names[0] != "abc-0.png" || names[1] != "abc-1.png" {
		t.Errorf("names = %v", names)
	}
}

func TestRenderBlankLetter(t *testing.T) {
	if got := Render(letter.New(""), nil); len(got) != 0 {
		t.Errorf("Render(blank) = %d pages, want 0", len(got))
	}
}

func TestRenderCopiesBackground(t *testing.T) {
	bg := Stationery()
	doc := docWith(map[int][]stroke.Stroke{0: {{stroke.NewDot(stroke.Black, 100, 100, 0)}}})
	page := Render(doc, bg)[0]

	if got, want := page.RGBAAt(200, 5), bg.RGBAAt(200, 5); got != want {
		t.Errorf("untouched pixel = %v, want background %v", got, want)
	}
	if got := bg.RGBAAt(100, 100); got == (color.RGBA{0, 0, 0, 255}) {
		t.Error("Render painted onto the shared background")
	}
}

func TestRenderIsIndependentAcrossLetters(t *testing.T) {
	a := docWith(map[int][]stroke.Stroke{0: {{stroke.NewDot(stroke.HSL(0, 1, 0.5), 20, 20, 0)}}})
	b := docWith(map[int][]stroke.Stroke{0: {{stroke.NewDot(stroke.HSL(240, 1, 0.5), 20, 20, 0)}}})

	alone := Render(b, nil)[0]
	Render(a, nil)
	after := Render(b, nil)[0]

	if !bytes.Equal(alone.Pix, after.Pix) {
		t.Error("rendering another letter first changed the output")
	}
	if got := after.RGBAAt(20, 20); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("pixel = %v, want blue", got)
	}
}

func TestRenderLetterUnknownBackground(t *testing.T) {
	doc := docWith(map[int][]stroke.Stroke{0: {{stroke.NewDot(stroke.Black, 1, 1, 0)}}})
	doc.Background = "missing.png"

	tests := []struct {
		name string
		reg  Registry
	}{
		{"map", DefaultRegistry()},
		{"dir", NewDirRegistry(t.TempDir())},
		{"chain", Chain{NewDirRegistry(t.TempDir()), DefaultRegistry()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRenderer(tt.reg).RenderLetter(doc)
			if !perrors.Is(err, perrors.ErrCodeDecode) {
				t.Errorf("RenderLetter error = %v, want %s", err, perrors.ErrCodeDecode)
			}
		})
	}
}

func TestDirRegistry(t *testing.T) {
	dir := t.TempDir()
	data, err := EncodePNG(Stationery())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "paper.png"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewDirRegistry(dir)
	first, err := reg.Lookup("paper.png")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "paper.png")); err != nil {
		t.Fatal(err)
	}
	second, err := reg.Lookup("paper.png")
	if err != nil {
		t.Fatalf("Lookup after removal: %v", err)
	}
	if first != second {
		t.Error("second Lookup did not return the cached image")
	}

	for _, key := range []string{"broken.png", "../paper.png", ""} {
		if _, err := reg.Lookup(key); !perrors.Is(err, perrors.ErrCodeDecode) {
			t.Errorf("Lookup(%q) error = %v, want %s", key, err, perrors.ErrCodeDecode)
		}
	}
}

func TestRenderPNG(t *testing.T) {
	doc := docWith(map[int][]stroke.Stroke{2: {{stroke.NewDot(stroke.Black, 5, 5, 0), stroke.NewLine(stroke.Black, 5, 5, 40, 30, 0)}}})
	pngs, err := NewRenderer(nil).RenderPNG(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(pngs) != 1 {
		t.Fatalf("RenderPNG returned %d images, want 1", len(pngs))
	}
	img, err := png.Decode(bytes.NewReader(pngs[0]))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	want := Render(doc, Stationery())[0]
	if !samePixels(img, want) {
		t.Error("decoded PNG differs from the rendered page")
	}
}

func samePixels(a image.Image, b *image.RGBA) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	for y := b.Rect.Min.Y; y < b.Rect.Max.Y; y++ {
		for x := b.Rect.Min.X; x < b.Rect.Max.X; x++ {
			if color.RGBAModel.Convert(a.At(x, y)) != b.RGBAAt(x, y) {
				return false
			}
		}
	}
	return true
}
