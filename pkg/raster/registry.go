package raster

import (
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/letter"
)

// Registry resolves background keys to decoded images. Implementations must
// be safe for concurrent use; the returned images are treated as read-only.
type Registry interface {
	Lookup(key string) (image.Image, error)
}

// MapRegistry serves backgrounds held in memory.
type MapRegistry map[string]image.Image

// Lookup returns the image registered under key.
func (m MapRegistry) Lookup(key string) (image.Image, error) {
	img, ok := m[key]
	if !ok {
		return nil, perrors.New(perrors.ErrCodeDecode, "unknown background %q", key)
	}
	return img, nil
}

// DirRegistry serves PNG or JPEG backgrounds from a directory. Each file is
// decoded once and kept in memory afterwards.
type DirRegistry struct {
	dir string

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewDirRegistry returns a registry reading from dir.
func NewDirRegistry(dir string) *DirRegistry {
	return &DirRegistry{dir: dir, cache: make(map[string]image.Image)}
}

// Dir returns the directory the registry reads from.
func (r *DirRegistry) Dir() string {
	return r.dir
}

// Lookup decodes the background file named key.
func (r *DirRegistry) Lookup(key string) (image.Image, error) {
	if err := perrors.ValidateBackgroundKey(key); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeDecode, err, "background %q", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.cache[key]; ok {
		return img, nil
	}

	f, err := os.Open(filepath.Join(r.dir, key))
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeDecode, err, "open background %q", key)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeDecode, err, "decode background %q", key)
	}
	r.cache[key] = img
	return img, nil
}

// Chain tries each registry in turn and returns the first image found.
type Chain []Registry

// Lookup returns the first successful lookup, or the last error.
func (c Chain) Lookup(key string) (image.Image, error) {
	err := error(perrors.New(perrors.ErrCodeDecode, "unknown background %q", key))
	for _, r := range c {
		if r == nil {
			continue
		}
		img, lerr := r.Lookup(key)
		if lerr == nil {
			return img, nil
		}
		err = lerr
	}
	return nil, err
}

// DefaultRegistry serves the built-in stationery under
// [letter.DefaultBackground].
func DefaultRegistry() MapRegistry {
	return MapRegistry{letter.DefaultBackground: Stationery()}
}

// Stationery draws the default letter paper: pale green with ruled lines
// every 21 pixels and a margin on the left.
func Stationery() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, letter.PageWidth, letter.PageHeight))
	paper := color.RGBA{0xe4, 0xf5, 0xd4, 0xff}
	rule := color.RGBA{0xa9, 0xd6, 0x8c, 0xff}
	margin := color.RGBA{0xe8, 0x9c, 0x9c, 0xff}

	draw.Draw(img, img.Bounds(), image.NewUniform(paper), image.Point{}, draw.Src)
	for y := 20; y < letter.PageHeight; y += 21 {
		draw.Draw(img, image.Rect(0, y, letter.PageWidth, y+1), image.NewUniform(rule), image.Point{}, draw.Src)
	}
	draw.Draw(img, image.Rect(18, 0, 19, letter.PageHeight), image.NewUniform(margin), image.Point{}, draw.Src)
	return img
}
