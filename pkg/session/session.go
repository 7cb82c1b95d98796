// Package session carries the identity of the user behind a request and
// signs the codes that let a user fetch a letter's preview images.
//
// # Identity
//
// The server resolves the caller once, at the edge, and passes it down in
// the request context:
//
//	ctx = session.WithSession(ctx, &session.Session{UserID: "u1", Username: "alice"})
//	...
//	sess, ok := session.FromContext(ctx)
//
// Authentication itself happens in front of pictoswap. [Local] returns the
// identity used by the CLI and by servers started without one.
//
// # Preview codes
//
// Preview images are served as plain files, so the list endpoint hands out
// one code per letter. A [Signer] issues HS256 JSON Web Tokens whose subject
// is the user and whose "letter" claim names the letter:
//
//	signer := session.NewSigner(key, 0)
//	code, _ := signer.Sign("u1", letterID)
//	user, err := signer.Verify(code, letterID)
package session

import (
	"context"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
)

// Session identifies the user behind a request.
type Session struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Validate checks that the session names a usable user id.
func (s *Session) Validate() error {
	if s == nil {
		return perrors.New(perrors.ErrCodeUnauthorized, "no session")
	}
	return perrors.ValidateIdentifier("user id", s.UserID)
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

// Require returns the session in ctx or an UNAUTHORIZED error.
func Require(ctx context.Context) (*Session, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return nil, perrors.New(perrors.ErrCodeUnauthorized, "not signed in")
	}
	return s, nil
}

// Local returns the identity used when no authentication is configured.
func Local() *Session {
	return &Session{UserID: "local", Username: "Local User"}
}
