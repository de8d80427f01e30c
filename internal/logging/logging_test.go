package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		dev  bool
		want string
	}{
		{"debug", false, "debug"},
		{" WARN ", false, "warn"},
		{"warning", false, "warn"},
		{"error", true, "error"},
		{"", false, "info"},
		{"", true, "debug"},
		{"chatty", false, "info"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ParseLevel(tc.in, tc.dev).String(), "input %q dev=%v", tc.in, tc.dev)
	}
}

func TestLFallsBackToNoop(t *testing.T) {
	require.NotNil(t, L())
	require.NotNil(t, L().With("component", "test"))

	var nilLogger *Logger
	require.Same(t, noopLogger, nilLogger.With("k", "v"))
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "hrdesk.log")
	cleanup, err := Init(Options{Path: path, Level: "debug"})
	require.NoError(t, err)

	L().Debugw("backdrop skipped", "backdrop", "b-1")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "backdrop skipped"), "log file: %s", data)
	require.Same(t, noopLogger, L())

	SetLevel(zap.InfoLevel)
}
