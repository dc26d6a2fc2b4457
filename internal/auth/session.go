package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource yields the current bearer token, if any. Implementations are
// expected to read whatever credential store the host application uses.
type TokenSource interface {
	Token() (string, bool)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func() (string, bool)

func (f TokenSourceFunc) Token() (string, bool) {
	return f()
}

// StaticToken returns a source that always yields the given token.
// An empty token reads as absent.
func StaticToken(token string) TokenSource {
	trimmed := strings.TrimSpace(token)
	return TokenSourceFunc(func() (string, bool) {
		return trimmed, trimmed != ""
	})
}

// Session answers whether a usable credential exists right now. The engine
// never verifies signatures; the backend does that. It only needs to know
// whether sending the token is worth attempting.
type Session struct {
	source TokenSource
	now    func() time.Time
}

type SessionOption func(*Session)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSession(source TokenSource, opts ...SessionOption) *Session {
	session := &Session{source: source, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(session)
		}
	}
	return session
}

// BearerToken returns the current token when it is present and not expired.
func (s *Session) BearerToken() (string, bool) {
	if s == nil || s.source == nil {
		return "", false
	}
	token, ok := s.source.Token()
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	if s.isExpired(token) {
		return "", false
	}
	return token, true
}

// Authenticated reports whether a valid (non-expired) credential exists.
func (s *Session) Authenticated() bool {
	_, ok := s.BearerToken()
	return ok
}

// isExpired inspects the exp claim without verifying the signature. A token
// that cannot be parsed is treated as expired, which routes the caller onto
// the anonymous path instead of burning a doomed request.
func (s *Session) isExpired(tokenString string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return true
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	if expiry == nil {
		return false
	}
	return !expiry.After(s.now())
}
