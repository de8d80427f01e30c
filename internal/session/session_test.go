package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/attendly/hrdesk/internal/config"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := Claims{
		Name: "Priya Raman",
		Org:  "org-42",
		Role: "hr_admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "emp-7",
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(fixedNow.Add(-time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return tok
}

func clock() time.Time { return fixedNow }

func TestParseClaims(t *testing.T) {
	c, err := ParseClaims(signToken(t, fixedNow.Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, "emp-7", c.Subject)
	require.Equal(t, "org-42", c.Org)
	require.Equal(t, "Priya Raman", c.Name)

	_, err = ParseClaims("not-a-jwt")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestMemorySessionToken(t *testing.T) {
	s, err := New(config.SessionConfig{Mode: config.SessionMemory}, WithClock(clock))
	require.NoError(t, err)
	require.False(t, s.Persistent())

	_, err = s.Token(context.Background())
	require.ErrorIs(t, err, ErrNoToken)

	tok := signToken(t, fixedNow.Add(time.Hour))
	_, err = s.SignIn("Bearer " + tok)
	require.NoError(t, err)

	got, err := s.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, tok, got)

	claims, ok := s.Claims()
	require.True(t, ok)
	require.Equal(t, "org-42", claims.Org)

	require.NoError(t, s.SignOut())
	_, err = s.Token(context.Background())
	require.ErrorIs(t, err, ErrNoToken)
}

func TestExpiredTokenRejected(t *testing.T) {
	now := fixedNow
	s, err := New(config.SessionConfig{Mode: config.SessionMemory}, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	_, err = s.SignIn(signToken(t, fixedNow.Add(-time.Minute)))
	require.ErrorIs(t, err, ErrExpired)

	_, err = s.SignIn(signToken(t, fixedNow.Add(time.Minute)))
	require.NoError(t, err)
	now = fixedNow.Add(2 * time.Minute)
	_, err = s.Token(context.Background())
	require.ErrorIs(t, err, ErrExpired)
}

func TestLocalSessionPersists(t *testing.T) {
	t.Setenv("USER", "hr-admin")
	path := filepath.Join(t.TempDir(), "hrdesk", "session.json")
	cfg := config.SessionConfig{Mode: config.SessionLocal, Path: path}

	s, err := New(cfg, WithClock(clock))
	require.NoError(t, err)
	require.True(t, s.Persistent())
	tok := signToken(t, fixedNow.Add(time.Hour))
	_, err = s.SignIn(tok)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), tok), "token stored in plain text")

	restored, err := New(cfg, WithClock(clock))
	require.NoError(t, err)
	got, err := restored.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, tok, got)

	require.NoError(t, restored.SignOut())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestLocalSessionDropsExpiredToken(t *testing.T) {
	t.Setenv("USER", "hr-admin")
	path := filepath.Join(t.TempDir(), "session.json")
	cfg := config.SessionConfig{Mode: config.SessionLocal, Path: path}

	require.NoError(t, NewFileStore(path).Save(signToken(t, fixedNow.Add(-time.Hour)), "earlier"))

	s, err := New(cfg, WithClock(clock))
	require.NoError(t, err)
	_, err = s.Token(context.Background())
	require.ErrorIs(t, err, ErrNoToken)
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
