package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/pictoswap/pkg/cache"
	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/preview"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

func sampleDoc(x float64) letter.Document {
	doc := letter.New(letter.DefaultBackground)
	doc.Pages[0].Strokes = []stroke.Stroke{{stroke.NewDot(stroke.Black, x, 10, 0)}}
	doc.Pages[0].InkUsage = 1
	doc.Pages[2].Strokes = []stroke.Stroke{{
		stroke.NewDot(stroke.HSL(30, 1, 0.5), 5, 5, 0),
		stroke.NewLine(stroke.HSL(30, 1, 0.5), 5, 5, 60, 40, 0),
	}}
	doc.Pages[2].InkUsage = 66
	return doc
}

func newRunner(t *testing.T, previews preview.Store) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil, previews, nil)
	r.RetryDelay = time.Millisecond
	return r
}

func TestRenderCaches(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t, nil)
	doc := sampleDoc(10)

	first, hit, err := r.RenderWithCacheInfo(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("first render reported a cache hit")
	}
	if len(first) != 2 {
		t.Fatalf("rendered %d pages, want 2", len(first))
	}
	for i, data := range first {
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			t.Errorf("page %d is not a PNG: %v", i, err)
		}
	}

	second, hit, err := r.RenderWithCacheInfo(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("second render missed the cache")
	}
	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Errorf("cached page %d differs", i)
		}
	}

	if _, hit, _ := r.RenderWithCacheInfo(ctx, sampleDoc(11)); hit {
		t.Error("different letter hit the cache")
	}
}

func TestRenderUnknownBackground(t *testing.T) {
	r := newRunner(t, nil)
	doc := sampleDoc(10)
	doc.Background = "nope.png"

	if _, err := r.Render(context.Background(), doc); !perrors.Is(err, perrors.ErrCodeDecode) {
		t.Errorf("Render error = %v, want %s", err, perrors.ErrCodeDecode)
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	previews, err := preview.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := newRunner(t, previews)

	result, err := r.Execute(ctx, "f47ac10b-58cc-4372-a567-0e02b2c3d479", sampleDoc(10))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"f47ac10b-58cc-4372-a567-0e02b2c3d479-0.png", "f47ac10b-58cc-4372-a567-0e02b2c3d479-1.png"}
	if len(result.Names) != len(want) {
		t.Fatalf("Names = %v, want %v", result.Names, want)
	}
	for i, name := range want {
		if result.Names[i] != name {
			t.Errorf("Names[%d] = %q, want %q", i, result.Names[i], name)
		}
		data, err := previews.Get(ctx, name)
		if err != nil {
			t.Errorf("Get(%s): %v", name, err)
			continue
		}
		if !bytes.Equal(data, result.Pages[i]) {
			t.Errorf("published %s differs from the rendered page", name)
		}
	}
	if result.Hash == "" {
		t.Error("Hash is empty")
	}
}

func TestExecuteDecodeErrorPublishesNothing(t *testing.T) {
	ctx := context.Background()
	previews := &flakyStore{}
	r := newRunner(t, previews)
	doc := sampleDoc(10)
	doc.Background = "nope.png"

	if _, err := r.Execute(ctx, "abc", doc); !perrors.Is(err, perrors.ErrCodeDecode) {
		t.Errorf("Execute error = %v, want %s", err, perrors.ErrCodeDecode)
	}
	if previews.puts != 0 {
		t.Errorf("store received %d writes, want 0", previews.puts)
	}
}

func TestPublishRetries(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		err      error
		wantErr  bool
		wantPuts int
	}{
		{"transient", 2, cache.Retryable(cache.ErrUnavailable), false, 4},
		{"persistent", 10, cache.Retryable(cache.ErrUnavailable), true, 3},
		{"fatal", 1, errors.New("disk full"), true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &flakyStore{failures: tt.failures, err: tt.err}
			r := newRunner(t, store)

			_, err := r.Publish(context.Background(), "abc", [][]byte{[]byte("a"), []byte("b")})
			if (err != nil) != tt.wantErr {
				t.Errorf("Publish error = %v, wantErr %v", err, tt.wantErr)
			}
			if store.puts != tt.wantPuts {
				t.Errorf("puts = %d, want %d", store.puts, tt.wantPuts)
			}
		})
	}
}

func TestPublishWithoutStore(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil, nil)
	if _, err := r.Publish(context.Background(), "abc", nil); !perrors.Is(err, perrors.ErrCodeInternal) {
		t.Errorf("Publish error = %v, want %s", err, perrors.ErrCodeInternal)
	}
}

func TestRenderBatch(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t, nil)
	docs := []letter.Document{sampleDoc(10), letter.New(""), sampleDoc(30), sampleDoc(40)}

	out, err := r.RenderBatch(ctx, docs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(docs) {
		t.Fatalf("RenderBatch returned %d results, want %d", len(out), len(docs))
	}
	for i, doc := range docs {
		want, err := r.Render(ctx, doc)
		if err != nil {
			t.Fatal(err)
		}
		if len(out[i]) != len(want) {
			t.Errorf("letter %d: %d pages, want %d", i, len(out[i]), len(want))
		}
	}

	bad := sampleDoc(10)
	bad.Background = "nope.png"
	if _, err := r.RenderBatch(ctx, []letter.Document{sampleDoc(10), bad}, 0); !perrors.Is(err, perrors.ErrCodeDecode) {
		t.Errorf("RenderBatch error = %v, want %s", err, perrors.ErrCodeDecode)
	}
}

// flakyStore fails the first failures writes with err.
type flakyStore struct {
	mu       sync.Mutex
	failures int
	err      error
	puts     int
	data     map[string][]byte
}

func (s *flakyStore) Put(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.puts <= s.failures {
		return s.err
	}
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.data[name] = data
	return nil
}

func (s *flakyStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[name]
	if !ok {
		return nil, perrors.New(perrors.ErrCodeNotFound, "%s", name)
	}
	return data, nil
}

func (s *flakyStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}
