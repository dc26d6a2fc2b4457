package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, expiresAt *time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user-1"}
	if expiresAt != nil {
		claims["exp"] = jwt.NewNumericDate(*expiresAt)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestBearerTokenAbsent(t *testing.T) {
	t.Parallel()

	session := NewSession(StaticToken(""))
	if _, ok := session.BearerToken(); ok {
		t.Fatalf("empty token should read as absent")
	}
	if session.Authenticated() {
		t.Fatalf("empty token should not authenticate")
	}
}

func TestBearerTokenValid(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(time.Hour)
	token := mintToken(t, &expiry)

	session := NewSession(StaticToken(token), WithClock(func() time.Time { return now }))
	got, ok := session.BearerToken()
	if !ok {
		t.Fatalf("expected valid token")
	}
	if got != token {
		t.Fatalf("unexpected token returned")
	}
}

func TestBearerTokenExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(-time.Minute)
	token := mintToken(t, &expiry)

	session := NewSession(StaticToken(token), WithClock(func() time.Time { return now }))
	if session.Authenticated() {
		t.Fatalf("expired token should not authenticate")
	}
}

func TestBearerTokenWithoutExpiry(t *testing.T) {
	t.Parallel()

	token := mintToken(t, nil)
	session := NewSession(StaticToken(token))
	if !session.Authenticated() {
		t.Fatalf("token without exp claim should authenticate")
	}
}

func TestBearerTokenGarbage(t *testing.T) {
	t.Parallel()

	session := NewSession(StaticToken("not-a-jwt"))
	if session.Authenticated() {
		t.Fatalf("unparsable token should read as expired")
	}
}
