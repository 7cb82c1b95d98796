package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pictoswap/pkg/cache"
	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/observability"
	"github.com/matzehuels/pictoswap/pkg/preview"
	"github.com/matzehuels/pictoswap/pkg/raster"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner keeps no per-letter state. Multiple goroutines can safely use
// the same Runner.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Renderer *raster.Renderer
	Previews preview.Store
	Logger   *log.Logger

	RetryAttempts int
	RetryDelay    time.Duration
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
// If renderer is nil, only the built-in stationery is available.
// previews may be nil for a runner that only renders.
func NewRunner(c cache.Cache, keyer cache.Keyer, renderer *raster.Renderer, previews preview.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if renderer == nil {
		renderer = raster.NewRenderer(nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:         c,
		Keyer:         keyer,
		Renderer:      renderer,
		Previews:      previews,
		Logger:        logger,
		RetryAttempts: DefaultRetryAttempts,
		RetryDelay:    DefaultRetryDelay,
	}
}

// Execute renders doc and publishes its pages under letterID.
func (r *Runner) Execute(ctx context.Context, letterID string, doc letter.Document) (*Result, error) {
	if err := perrors.ValidateIdentifier("letter id", letterID); err != nil {
		return nil, err
	}
	hash, err := docHash(doc)
	if err != nil {
		return nil, err
	}
	result := &Result{LetterID: letterID, Hash: hash}

	renderStart := time.Now()
	pages, hit, err := r.RenderWithCacheInfo(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Pages = pages
	result.CacheHit = hit
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered letter",
		"letter", letterID,
		"pages", len(pages),
		"cached", hit,
		"duration", result.Stats.RenderTime)

	publishStart := time.Now()
	names, err := r.Publish(ctx, letterID, pages)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	result.Names = names
	result.Stats.PublishTime = time.Since(publishStart)

	r.Logger.Debug("published previews",
		"letter", letterID,
		"names", names,
		"duration", result.Stats.PublishTime)

	return result, nil
}

// RenderWithCacheInfo renders doc to PNGs, one per non-empty page, and
// reports whether they came from the cache. A failed render, such as an
// unknown background, leaves the cache untouched.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, doc letter.Document) ([][]byte, bool, error) {
	hash, err := docHash(doc)
	if err != nil {
		return nil, false, err
	}
	opts := cache.RenderKeyOpts{Background: doc.Background, Width: letter.PageWidth, Height: letter.PageHeight}

	if pages, ok := r.cached(ctx, hash, opts); ok {
		observability.Cache().OnCacheHit(ctx, "render")
		return pages, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "render")

	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, len(doc.NonEmpty()))
	pages, err := r.Renderer.RenderPNG(doc)
	observability.Pipeline().OnRenderComplete(ctx, len(pages), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for i, data := range pages {
		if err := r.Cache.Set(ctx, r.Keyer.RenderKey(hash, i, opts), data, cache.TTLRender); err != nil {
			r.Logger.Debug("cache write failed", "err", err)
			return pages, false, nil
		}
		observability.Cache().OnCacheSet(ctx, "render", len(data))
	}
	// The count goes last so a reader never sees it without its pages.
	count := []byte(strconv.Itoa(len(pages)))
	if err := r.Cache.Set(ctx, r.Keyer.PageCountKey(hash, opts), count, cache.TTLRender); err != nil {
		r.Logger.Debug("cache write failed", "err", err)
	}
	return pages, false, nil
}

// Render is a convenience wrapper that discards the cache hit info.
func (r *Runner) Render(ctx context.Context, doc letter.Document) ([][]byte, error) {
	pages, _, err := r.RenderWithCacheInfo(ctx, doc)
	return pages, err
}

func (r *Runner) cached(ctx context.Context, hash string, opts cache.RenderKeyOpts) ([][]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, r.Keyer.PageCountKey(hash, opts))
	if err != nil || !hit {
		return nil, false
	}
	n, err := strconv.Atoi(string(data))
	if err != nil || n < 0 || n > letter.PageCount {
		return nil, false
	}
	pages := make([][]byte, n)
	for i := range pages {
		data, hit, err := r.Cache.Get(ctx, r.Keyer.RenderKey(hash, i, opts))
		if err != nil || !hit {
			return nil, false
		}
		pages[i] = data
	}
	return pages, true
}

// Publish writes pngs to the preview store as "{letterID}-{i}.png" and
// returns the names written. Transient store failures are retried.
func (r *Runner) Publish(ctx context.Context, letterID string, pngs [][]byte) ([]string, error) {
	if r.Previews == nil {
		return nil, perrors.New(perrors.ErrCodeInternal, "no preview store configured")
	}
	if err := perrors.ValidateIdentifier("letter id", letterID); err != nil {
		return nil, err
	}

	start := time.Now()
	names := make([]string, 0, len(pngs))
	var err error
	for i, data := range pngs {
		name := raster.PreviewName(letterID, i)
		err = cache.Retry(ctx, r.RetryAttempts, r.RetryDelay, func() error {
			return r.Previews.Put(ctx, name, data)
		})
		if err != nil {
			err = fmt.Errorf("write %s: %w", name, err)
			break
		}
		names = append(names, name)
	}
	observability.Pipeline().OnPublish(ctx, letterID, len(names), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// RenderBatch renders docs concurrently, at most limit at a time, and
// returns their pages in input order. The first failure cancels the rest.
func (r *Runner) RenderBatch(ctx context.Context, docs []letter.Document, limit int) ([][][]byte, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	out := make([][][]byte, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pages, err := r.Render(ctx, doc)
			if err != nil {
				return fmt.Errorf("letter %d: %w", i, err)
			}
			out[i] = pages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func docHash(doc letter.Document) (string, error) {
	data, err := letter.Encode(doc)
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}
