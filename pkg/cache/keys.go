package cache

import "fmt"

// Keyer derives cache keys.
type Keyer interface {
	// RenderKey names the cached PNG of one rendered page of a letter.
	RenderKey(docHash string, page int, opts RenderKeyOpts) string
	// PageCountKey names the cached number of rendered pages of a letter.
	PageCountKey(docHash string, opts RenderKeyOpts) string
	// PreviewKey names a published preview image.
	PreviewKey(name string) string
}

// RenderKeyOpts are the settings that change rendered output.
type RenderKeyOpts struct {
	Background string `json:"background"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// RenderKey hashes the letter hash, page and settings.
func (DefaultKeyer) RenderKey(docHash string, page int, opts RenderKeyOpts) string {
	return hashKey("render", docHash, page, opts)
}

// PageCountKey hashes the letter hash and settings.
func (DefaultKeyer) PageCountKey(docHash string, opts RenderKeyOpts) string {
	return hashKey("pages", docHash, opts)
}

// PreviewKey prefixes the preview file name.
func (DefaultKeyer) PreviewKey(name string) string {
	return fmt.Sprintf("preview:%s", name)
}

// ScopedKeyer wraps a Keyer with a prefix, giving each deployment sharing
// one Redis its own namespace.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// RenderKey returns the prefixed render key.
func (k *ScopedKeyer) RenderKey(docHash string, page int, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(docHash, page, opts)
}

// PageCountKey returns the prefixed page count key.
func (k *ScopedKeyer) PageCountKey(docHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.PageCountKey(docHash, opts)
}

// PreviewKey returns the prefixed preview key.
func (k *ScopedKeyer) PreviewKey(name string) string {
	return k.prefix + k.inner.PreviewKey(name)
}
