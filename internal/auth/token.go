// Package auth provides signed, time-limited session tokens.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxAge is how long a token stays valid after issue.
const DefaultMaxAge = time.Hour

// TokenService signs and verifies bearer tokens that embed a session id.
// Tokens are URL-safe: base64url(session_id).issued_unix.base64url(hmac).
type TokenService struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// Option configures the service.
type Option func(*TokenService)

// WithMaxAge overrides the default token lifetime.
func WithMaxAge(maxAge time.Duration) Option {
	return func(s *TokenService) {
		s.maxAge = maxAge
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a token service keyed by the given secret.
func NewTokenService(secret string, opts ...Option) *TokenService {
	s := &TokenService{
		secret: []byte(secret),
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate returns a signed token for the session id.
func (s *TokenService) Generate(sessionID string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(sessionID)) +
		"." + strconv.FormatInt(s.now().Unix(), 10)
	return payload + "." + s.sign(payload)
}

// Verify checks the signature and age and returns the embedded session id,
// or false for any malformed, tampered, or expired token.
func (s *TokenService) Verify(token string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", false
	}
	payload := parts[0] + "." + parts[1]

	expected := s.sign(payload)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(parts[2])) != 1 {
		return "", false
	}

	issued, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", false
	}
	if s.now().Sub(time.Unix(issued, 0)) > s.maxAge {
		return "", false
	}

	sessionID, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", false
	}
	return string(sessionID), true
}

func (s *TokenService) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ExtractBearer pulls the bearer token from the Authorization header.
func ExtractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
