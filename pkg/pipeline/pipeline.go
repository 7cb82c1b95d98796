// Package pipeline turns saved letters into published preview images.
//
// It is the one place where rendering meets caching, storage and retries,
// shared by the CLI and the API server:
//
//  1. Render: rasterize the non-empty pages of a letter to PNG, keyed in the
//     cache by a hash of the encoded letter
//  2. Publish: write the images as "{letter_id}-{i}.png" to a preview store,
//     retrying transient failures
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, raster.NewRenderer(nil), previews, logger)
//	result, err := runner.Execute(ctx, letterID, doc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Names)
//
// Rendering many letters at once, for a backfill or a batch export:
//
//	pngs, err := runner.RenderBatch(ctx, docs, 4)
package pipeline

import (
	"time"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultRetryAttempts is how often a preview write is attempted.
	DefaultRetryAttempts = 3

	// DefaultRetryDelay is the first pause between attempts; it doubles.
	DefaultRetryDelay = time.Second

	// DefaultBatchLimit bounds concurrent renders in RenderBatch.
	DefaultBatchLimit = 4
)

// =============================================================================
// Result Types
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// LetterID is the id the previews were published under.
	LetterID string

	// Hash is the SHA-256 of the encoded letter.
	Hash string

	// Pages holds one PNG per non-empty page, in page order.
	Pages [][]byte

	// Names holds the preview file name of each entry in Pages.
	Names []string

	// Stats contains timing information.
	Stats Stats

	// CacheHit reports whether the pages came from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	RenderTime  time.Duration
	PublishTime time.Duration
}
