package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/pipeline"
	"github.com/matzehuels/pictoswap/pkg/preview"
	"github.com/matzehuels/pictoswap/pkg/session"
	"github.com/matzehuels/pictoswap/pkg/store"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

type testServer struct {
	*httptest.Server
	t *testing.T
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	previews, err := preview.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(nil, nil, nil, previews, logger)
	runner.RetryDelay = time.Millisecond
	opts.Logger = logger
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	opts.Now = func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	srv := New(store.NewMemory(), runner, session.NewSigner([]byte("test-key"), 0), opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, t: t}
}

func (ts *testServer) do(method, path, user string, body any) (int, map[string]json.RawMessage) {
	ts.t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		ts.t.Fatal(err)
	}
	if user != "" {
		req.Header.Set(DefaultUserHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		ts.t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func sampleLetter(t *testing.T) json.RawMessage {
	t.Helper()
	doc := letter.New(letter.DefaultBackground)
	doc.Pages[0].Strokes = []stroke.Stroke{{
		stroke.NewDot(stroke.Black, 20, 20, 0),
		stroke.NewLine(stroke.Black, 20, 20, 80, 40, 10),
	}}
	doc.Pages[0].InkUsage = 64.2
	doc.Pages[3].Strokes = []stroke.Stroke{{stroke.NewDot(stroke.HSL(200, 0.5, 0.5), 100, 100, 0)}}
	doc.Pages[3].InkUsage = 1
	data, err := letter.Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func field[T any](t *testing.T, body map[string]json.RawMessage, key string) T {
	t.Helper()
	var v T
	raw, ok := body[key]
	if !ok {
		t.Fatalf("response lacks %q: %v", key, body)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("field %q: %v", key, err)
	}
	return v
}

func TestLetterLifecycle(t *testing.T) {
	ts := newTestServer(t, Options{})

	status, body := ts.do("POST", "/api/letters", "alice", map[string]any{"letter": sampleLetter(t)})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body %v", status, body)
	}
	if string(body["error"]) != "null" {
		t.Errorf("error = %s, want null", body["error"])
	}
	id := field[string](t, body, "letter_id")
	previews := field[[]string](t, body, "previews")
	if len(previews) != 2 || previews[1] != id+"-1.png" {
		t.Errorf("previews = %v, want two pages", previews)
	}

	status, body = ts.do("POST", "/api/letters/"+id+"/send", "alice", map[string]any{"recipients": []string{"bob"}})
	if status != http.StatusOK {
		t.Fatalf("send status = %d, body %v", status, body)
	}

	status, body = ts.do("GET", "/api/letters", "bob", nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	letters := field[[]letterView](t, body, "letters")
	if len(letters) != 1 || letters[0].ID != id || letters[0].Read || letters[0].Author != "alice" {
		t.Fatalf("letters = %+v", letters)
	}
	code := letters[0].AuthCode

	status, body = ts.do("GET", "/api/letters/"+id, "bob", nil)
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	view := field[letterView](t, body, "letter")
	if view.Read || view.Own || len(view.Previews) != 2 {
		t.Errorf("letter = %+v", view)
	}
	content := field[json.RawMessage](t, body, "content")
	if _, err := letter.Decode(content); err != nil {
		t.Errorf("content does not decode: %v", err)
	}

	resp, err := http.Get(ts.URL + "/previews/" + id + "-0.png?auth=" + url.QueryEscape(code))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("preview status = %d, type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != letter.PageWidth || b.Dy() != letter.PageHeight {
		t.Errorf("preview size = %v", b)
	}
}

func TestCreateErrors(t *testing.T) {
	ts := newTestServer(t, Options{})
	unknownBG := strings.Replace(string(sampleLetter(t)), letter.DefaultBackground, "nope.png", 1)

	tests := []struct {
		name   string
		user   string
		body   any
		status int
	}{
		{"anonymous", "", map[string]any{"letter": sampleLetter(t)}, http.StatusUnauthorized},
		{"missing letter", "alice", map[string]any{}, http.StatusBadRequest},
		{"malformed", "alice", map[string]any{"letter": map[string]any{"pages": []any{}}}, http.StatusBadRequest},
		{"blank", "alice", map[string]any{"letter": mustEncode(t, letter.New(letter.DefaultBackground))}, http.StatusBadRequest},
		{"unknown background", "alice", map[string]any{"letter": json.RawMessage(unknownBG)}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ts.do("POST", "/api/letters", tt.user, tt.body)
			if status != tt.status {
				t.Errorf("status = %d, want %d (body %v)", status, tt.status, body)
			}
			if string(body["error"]) == "null" {
				t.Error("error field is null on failure")
			}
		})
	}

	_, body := ts.do("GET", "/api/letters", "alice", nil)
	if letters := field[[]letterView](t, body, "letters"); len(letters) != 0 {
		t.Errorf("failed uploads stored %d letters", len(letters))
	}
}

func mustEncode(t *testing.T, doc letter.Document) json.RawMessage {
	t.Helper()
	data, err := letter.Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestAccessControl(t *testing.T) {
	ts := newTestServer(t, Options{})
	_, body := ts.do("POST", "/api/letters", "alice", map[string]any{"letter": sampleLetter(t)})
	id := field[string](t, body, "letter_id")

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		status int
	}{
		{"read by stranger", "GET", "/api/letters/" + id, "mallory", nil, http.StatusForbidden},
		{"read unknown", "GET", "/api/letters/missing", "alice", nil, http.StatusNotFound},
		{"send by stranger", "POST", "/api/letters/" + id + "/send", "mallory", map[string]any{"recipients": []string{"mallory"}}, http.StatusForbidden},
		{"send to nobody", "POST", "/api/letters/" + id + "/send", "alice", map[string]any{"recipients": []string{}}, http.StatusBadRequest},
		{"bad user header", "GET", "/api/letters", "../root", nil, http.StatusBadRequest},
		{"unknown route", "GET", "/api/nothing", "alice", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, body := ts.do(tt.method, tt.path, tt.user, tt.body); status != tt.status {
				t.Errorf("status = %d, want %d (body %v)", status, tt.status, body)
			}
		})
	}
}

func TestPreviewAuth(t *testing.T) {
	ts := newTestServer(t, Options{})
	_, body := ts.do("POST", "/api/letters", "alice", map[string]any{"letter": sampleLetter(t)})
	id := field[string](t, body, "letter_id")
	other := session.NewSigner([]byte("other-key"), 0)
	forged, _ := other.Sign("alice", id)
	good, _ := session.NewSigner([]byte("test-key"), 0).Sign("alice", id)
	wrongLetter, _ := session.NewSigner([]byte("test-key"), 0).Sign("alice", "another")

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"no code", "/previews/" + id + "-0.png", http.StatusUnauthorized},
		{"forged", "/previews/" + id + "-0.png?auth=" + forged, http.StatusUnauthorized},
		{"other letter", "/previews/" + id + "-0.png?auth=" + wrongLetter, http.StatusForbidden},
		{"bad name", "/previews/" + id + "-x.png?auth=" + good, http.StatusBadRequest},
		{"missing page", "/previews/" + id + "-3.png?auth=" + good, http.StatusNotFound},
		{"ok", "/previews/" + id + "-0.png?auth=" + good, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestAllowAnonymous(t *testing.T) {
	ts := newTestServer(t, Options{AllowAnonymous: true})
	status, body := ts.do("POST", "/api/letters", "", map[string]any{"letter": sampleLetter(t)})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body %v", status, body)
	}
	_, body = ts.do("GET", "/api/letters", "", nil)
	letters := field[[]letterView](t, body, "letters")
	if len(letters) != 1 || letters[0].Author != session.Local().UserID || !letters[0].Own {
		t.Errorf("letters = %+v", letters)
	}
}

func TestBodyLimit(t *testing.T) {
	ts := newTestServer(t, Options{MaxBodyBytes: 64})
	status, _ := ts.do("POST", "/api/letters", "alice", map[string]any{"letter": sampleLetter(t)})
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", status, http.StatusBadRequest)
	}
}
