package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
)

const letterClaim = "letter"

// Signer issues and checks preview codes.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner returns a signer using key. Codes expire after ttl; a zero ttl
// issues codes that never expire.
func NewSigner(key []byte, ttl time.Duration) *Signer {
	return &Signer{key: key, ttl: ttl, now: time.Now}
}

// Sign returns a code that lets userID fetch the previews of letterID.
func (s *Signer) Sign(userID, letterID string) (string, error) {
	if len(s.key) == 0 {
		return "", perrors.New(perrors.ErrCodeInternal, "signer has no key")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"sub":       userID,
		letterClaim: letterID,
		"iat":       now.Unix(),
	}
	if s.ttl > 0 {
		claims["exp"] = now.Add(s.ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Verify checks that code was issued for letterID and returns the user it
// was issued to.
func (s *Signer) Verify(code, letterID string) (string, error) {
	if code == "" {
		return "", perrors.New(perrors.ErrCodeUnauthorized, "missing auth code")
	}
	token, err := jwt.Parse(code, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", perrors.Wrap(perrors.ErrCodeUnauthorized, err, "auth code expired")
		}
		return "", perrors.Wrap(perrors.ErrCodeUnauthorized, err, "invalid auth code")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", perrors.New(perrors.ErrCodeUnauthorized, "invalid auth code")
	}
	if got, _ := claims[letterClaim].(string); got != letterID {
		return "", perrors.New(perrors.ErrCodeForbidden, "auth code is for another letter")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", perrors.New(perrors.ErrCodeUnauthorized, "auth code has no subject")
	}
	return sub, nil
}
