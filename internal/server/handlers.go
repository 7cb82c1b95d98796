package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/ink"
	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/raster"
	"github.com/matzehuels/pictoswap/pkg/session"
	"github.com/matzehuels/pictoswap/pkg/store"
)

type letterView struct {
	store.Summary
	AuthCode string   `json:"auth_code"`
	Previews []string `json:"previews,omitempty"`
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return perrors.New(perrors.ErrCodeInvalidInput, "request body exceeds %d bytes", tooBig.Limit)
		}
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := session.Require(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req struct {
		Letter json.RawMessage `json:"letter"`
	}
	if err := s.decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.Letter) == 0 || string(req.Letter) == "null" {
		s.fail(w, r, perrors.New(perrors.ErrCodeMalformedDocument, "missing letter"))
		return
	}
	doc, err := letter.Decode(req.Letter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(doc.NonEmpty()) == 0 {
		s.fail(w, r, perrors.New(perrors.ErrCodeInvalidInput, "letter is blank"))
		return
	}
	if used := doc.InkUsage(); used > ink.DefaultMax {
		s.fail(w, r, perrors.New(perrors.ErrCodeInvalidInput, "letter uses %.0f ink, more than %d", used, ink.DefaultMax))
		return
	}

	// Render before storing so an unknown background leaves no letter behind.
	pngs, err := s.runner.Render(ctx, doc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payload, err := letter.Encode(doc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.store.Create(ctx, sess.UserID, payload, s.opts.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	names, err := s.runner.Publish(ctx, id, pngs)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info("letter created", "letter", id, "author", sess.UserID, "pages", len(names))
	writeJSON(w, http.StatusCreated, envelope{"letter_id": id, "previews": names})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := session.Require(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summaries, err := s.store.List(ctx, sess.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	letters := make([]letterView, len(summaries))
	for i, sum := range summaries {
		code, err := s.signer.Sign(sess.UserID, sum.ID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		letters[i] = letterView{Summary: sum, AuthCode: code}
	}
	writeJSON(w, http.StatusOK, envelope{"letters": letters})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := session.Require(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	l, err := s.store.Get(ctx, sess.UserID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	doc, err := letter.Decode(l.Payload)
	if err != nil {
		s.fail(w, r, perrors.Wrap(perrors.ErrCodeInternal, err, "stored letter %s", id))
		return
	}
	code, err := s.signer.Sign(sess.UserID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	previews := make([]string, len(doc.NonEmpty()))
	for i := range previews {
		previews[i] = raster.PreviewName(id, i)
	}
	writeJSON(w, http.StatusOK, envelope{
		"letter":  letterView{Summary: l.Summary, AuthCode: code, Previews: previews},
		"content": json.RawMessage(l.Payload),
	})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := session.Require(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req struct {
		Recipients []string `json:"recipients"`
	}
	if err := s.decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.Recipients) == 0 {
		s.fail(w, r, perrors.New(perrors.ErrCodeInvalidInput, "no recipients"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.Send(ctx, sess.UserID, id, req.Recipients, s.opts.Now()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("letter sent", "letter", id, "recipients", len(req.Recipients))
	writeJSON(w, http.StatusOK, envelope{})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id, err := perrors.ValidatePreviewName(name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.signer.Verify(r.URL.Query().Get("auth"), id); err != nil {
		s.fail(w, r, err)
		return
	}
	if s.runner.Previews == nil {
		s.fail(w, r, perrors.New(perrors.ErrCodeInternal, "no preview store configured"))
		return
	}
	data, err := s.runner.Previews.Get(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
