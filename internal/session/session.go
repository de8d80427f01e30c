// Package session holds the administrator's bearer token for the HR API.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/attendly/hrdesk/internal/config"
	"github.com/attendly/hrdesk/internal/logging"
)

var (
	ErrNoToken   = errors.New("session: not signed in")
	ErrExpired   = errors.New("session: token expired")
	ErrMalformed = errors.New("session: malformed token")
)

// Claims are read from the token without verifying the signature; the
// backend verifies every request.
type Claims struct {
	Name string `json:"name"`
	Org  string `json:"org"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes a JWT's claims without checking its signature.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}

// Session is safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	token  string
	claims *Claims
	store  *FileStore
	now    func() time.Time
	log    *logging.Logger
}

type Option func(*Session)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session. In local mode a previously saved token is
// restored; an expired or unreadable one is discarded.
func New(cfg config.SessionConfig, opts ...Option) (*Session, error) {
	s := &Session{now: time.Now, log: logging.L().With("component", "session")}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.Mode != config.SessionLocal {
		return s, nil
	}
	s.store = NewFileStore(cfg.Path)
	tok, err := s.store.Load()
	if err != nil {
		s.log.Warnw("discarding unreadable session file", "path", cfg.Path, "err", err)
		return s, s.store.Clear()
	}
	if tok == "" {
		return s, nil
	}
	if _, err := s.SignIn(tok); err != nil {
		s.log.Infow("stored session not restored", "err", err)
		return s, s.store.Clear()
	}
	return s, nil
}

// SignIn validates and installs a token, persisting it in local mode.
func (s *Session) SignIn(token string) (*Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	claims, err := ParseClaims(token)
	if err != nil {
		return nil, err
	}
	if s.expired(claims) {
		return nil, ErrExpired
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(token, s.now().UTC().Format(time.RFC3339)); err != nil {
			return claims, fmt.Errorf("persist session: %w", err)
		}
	}
	s.log.Infow("signed in", "subject", claims.Subject, "org", claims.Org)
	return claims, nil
}

func (s *Session) SignOut() error {
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	s.mu.Unlock()
	if s.store != nil {
		return s.store.Clear()
	}
	return nil
}

// Token returns the bearer token for the next request.
func (s *Session) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	if s.expired(s.claims) {
		return "", ErrExpired
	}
	return s.token, nil
}

// Claims returns a copy of the current claims.
func (s *Session) Claims() (Claims, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return Claims{}, false
	}
	return *s.claims, true
}

// Persistent reports whether the token survives restarts.
func (s *Session) Persistent() bool { return s.store != nil }

func (s *Session) expired(c *Claims) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return !s.now().Before(c.ExpiresAt.Time)
}
