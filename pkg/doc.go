// Package pkg provides the core libraries for pictoswap picture letters.
//
// # Overview
//
// A letter is four fixed-size pages of hand-drawn strokes on a stationery
// background. Drawing spends ink from a budget shared by the whole letter.
// Finished letters are stored as vector strokes, rasterized into one preview
// image per drawn page and replayed stroke by stroke. The pkg directory is
// organized into these areas:
//
//  1. [stroke], [ink], [letter] - the data model and the composition session
//  2. [paint], [live], [replay] - painting, pointer input and animated playback
//  3. [raster], [pipeline] - background lookup, rendering and publishing
//  4. [cache], [preview], [store] - render caches, preview images and letter storage
//  5. [session], [errors], [observability], [buildinfo] - cross-cutting concerns
//
// # Architecture
//
// The typical data flow for a new letter:
//
//	pointer events
//	      ↓
//	 [live] package (pen state machine, ink charging, live canvas)
//	      ↓
//	 [letter] package (composer → Document → JSON)
//	      ↓
//	 [pipeline] package (cache lookup, [raster] render, PNG encode)
//	      ↓
//	 [preview] store ("{id}-{i}.png") and [store] (letters and deliveries)
//
// # Quick Start
//
// Render a letter file to preview images:
//
//	doc, err := letter.ImportJSON("letter.json")
//	if err != nil {
//	    return err
//	}
//	previews, _ := preview.NewDirStore("out")
//	runner := pipeline.NewRunner(nil, nil, nil, previews, nil)
//	defer runner.Close()
//	result, err := runner.Execute(ctx, "hello", doc)
//
// Replay a letter on any [paint.Surface]:
//
//	canvas := paint.NewCanvas(letter.PageWidth, letter.PageHeight)
//	pb := replay.New().Letter(canvas, doc, func() { fmt.Println("done") })
//	defer pb.Cancel()
//
// # Error Handling
//
// Library packages return [errors.Error] values carrying a code such as
// MALFORMED_DOCUMENT or NOT_FOUND. The HTTP server maps codes to status
// codes; callers use [errors.Is] to branch on them.
//
// [stroke]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/stroke
// [ink]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/ink
// [letter]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/letter
// [paint]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/paint
// [live]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/live
// [replay]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/replay
// [raster]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/raster
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/cache
// [preview]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/preview
// [store]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/store
// [session]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/session
// [errors]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/buildinfo
// [paint.Surface]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/paint#Surface
// [errors.Error]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/errors#Error
// [errors.Is]: https://pkg.go.dev/github.com/matzehuels/pictoswap/pkg/errors#Is
package pkg
