// Package preview stores the published page images of letters, named
// "{letter_id}-{i}.png".
//
// [DirStore] writes them to a directory a web server can serve directly.
// [CacheStore] keeps them in any [cache.Cache], typically Redis, so several
// API instances can serve the same previews.
package preview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/pictoswap/pkg/cache"
	perrors "github.com/matzehuels/pictoswap/pkg/errors"
)

// Store holds preview images.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	// Get fails with NOT_FOUND when no image has the name.
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// DirStore keeps previews as files in one directory.
type DirStore struct {
	dir string
}

// NewDirStore creates dir if needed and returns a store over it.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the preview directory.
func (s *DirStore) Dir() string {
	return s.dir
}

// Put writes the image atomically.
func (s *DirStore) Put(ctx context.Context, name string, data []byte) error {
	if _, err := perrors.ValidatePreviewName(name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".preview-*")
	if err != nil {
		return cache.Retryable(err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return cache.Retryable(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return cache.Retryable(err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

// Get reads an image.
func (s *DirStore) Get(ctx context.Context, name string) ([]byte, error) {
	if _, err := perrors.ValidatePreviewName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, perrors.New(perrors.ErrCodeNotFound, "preview %s not found", name)
	}
	return data, err
}

// Delete removes an image. Removing a missing image is not an error.
func (s *DirStore) Delete(ctx context.Context, name string) error {
	if _, err := perrors.ValidatePreviewName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// CacheStore keeps previews in a cache under [cache.Keyer.PreviewKey].
type CacheStore struct {
	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
}

// NewCacheStore returns a store over c. A nil keyer uses the default; a
// zero ttl uses [cache.TTLPreview].
func NewCacheStore(c cache.Cache, keyer cache.Keyer, ttl time.Duration) *CacheStore {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if ttl == 0 {
		ttl = cache.TTLPreview
	}
	return &CacheStore{cache: c, keyer: keyer, ttl: ttl}
}

// Put stores the image.
func (s *CacheStore) Put(ctx context.Context, name string, data []byte) error {
	if _, err := perrors.ValidatePreviewName(name); err != nil {
		return err
	}
	return s.cache.Set(ctx, s.keyer.PreviewKey(name), data, s.ttl)
}

// Get loads an image.
func (s *CacheStore) Get(ctx context.Context, name string) ([]byte, error) {
	if _, err := perrors.ValidatePreviewName(name); err != nil {
		return nil, err
	}
	data, hit, err := s.cache.Get(ctx, s.keyer.PreviewKey(name))
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, perrors.New(perrors.ErrCodeNotFound, "preview %s not found", name)
	}
	return data, nil
}

// Delete removes an image.
func (s *CacheStore) Delete(ctx context.Context, name string) error {
	if _, err := perrors.ValidatePreviewName(name); err != nil {
		return err
	}
	return s.cache.Delete(ctx, s.keyer.PreviewKey(name))
}

var (
	_ Store = (*DirStore)(nil)
	_ Store = (*CacheStore)(nil)
)
