// Package auth exposes the authentication collaborator the engine needs:
// the current account id, if any, and whether the session is still
// active. The engine treats "no account id" as local-only mode for that
// moment, never as an error; the host application owns login UI and
// token refresh.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/parlo-app/parlo/internal/store"
)

// Common authentication errors.
var (
	// ErrInvalidToken indicates the token format is invalid or the
	// signature doesn't match.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("authentication token has expired")
)

// Authenticator reports the account the engine is acting for.
type Authenticator interface {
	// UserID returns the current account id, or ok=false when no
	// authenticated session exists.
	UserID() (id string, ok bool)

	// SessionActive reports whether the current session is usable for
	// remote calls.
	SessionActive() bool
}

// TokenAuthenticator derives the account identity from a host-supplied
// JWT access token signed with HMAC-SHA256. Expiry of the token is the
// end of the session; the host replaces the token on refresh.
type TokenAuthenticator struct {
	signingKey []byte
	clock      store.Clock
	logger     *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewTokenAuthenticator creates an authenticator with no active session.
// A nil clock uses the system clock; a nil logger uses the default.
func NewTokenAuthenticator(signingKey []byte, clock store.Clock, logger *slog.Logger) *TokenAuthenticator {
	if clock == nil {
		clock = store.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenAuthenticator{
		signingKey: signingKey,
		clock:      clock,
		logger:     logger.With(slog.String("component", "token_authenticator")),
	}
}

// Ensure TokenAuthenticator implements the Authenticator interface.
var _ Authenticator = (*TokenAuthenticator)(nil)

// SetToken installs a new access token, replacing any previous one.
func (a *TokenAuthenticator) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

// ClearToken drops the current token, returning to local-only mode.
func (a *TokenAuthenticator) ClearToken() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
}

// UserID implements Authenticator.UserID. An absent, malformed, or
// expired token yields ok=false; parsing problems are logged at debug
// level only because local-only operation is an expected mode.
func (a *TokenAuthenticator) UserID() (string, bool) {
	a.mu.RLock()
	token := a.token
	a.mu.RUnlock()

	if token == "" {
		return "", false
	}

	subject, err := a.validate(token)
	if err != nil {
		a.logger.Debug("token validation failed, operating local-only", "error", err)
		return "", false
	}
	return subject, true
}

// SessionActive implements Authenticator.SessionActive.
func (a *TokenAuthenticator) SessionActive() bool {
	_, ok := a.UserID()
	return ok
}

// validate parses the token and returns its subject claim.
func (a *TokenAuthenticator) validate(tokenString string) (string, error) {
	now := a.clock.Now()

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return a.signingKey, nil
		},
		parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
