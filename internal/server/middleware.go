package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/session"
)

// identify resolves the user header into a session.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(s.opts.UserHeader))
		var sess *session.Session
		switch {
		case user != "":
			sess = &session.Session{UserID: user, Username: user}
		case s.opts.AllowAnonymous:
			sess = session.Local()
		default:
			s.fail(w, r, perrors.New(perrors.ErrCodeUnauthorized, "not signed in"))
			return
		}
		if err := sess.Validate(); err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}
