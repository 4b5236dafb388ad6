package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLogFormat(t *testing.T) {
	format, err := parseLogFormat("console")
	require.NoError(t, err)
	assert.Equal(t, logFormatConsole, format)

	_, err = parseLogFormat("xml")
	require.ErrorContains(t, err, "invalid log format")
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(logOptions{Level: "warn", Format: logFormatJSON})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	verbose, err := newLogger(logOptions{Level: "error", Format: logFormatJSON, Verbose: true})
	require.NoError(t, err)
	assert.True(t, verbose.Core().Enabled(zap.DebugLevel), "verbose overrides the level")

	_, err = newLogger(logOptions{Level: "loud", Format: logFormatJSON})
	require.ErrorContains(t, err, "invalid log level")
}

func TestSessionFromContext(t *testing.T) {
	assert.False(t, reportsToTerminal(t.Context()))
	assert.Panics(t, func() { loggerFrom(t.Context()) })

	ctx := withSession(t.Context(), &session{logger: zap.NewNop(), interactive: true})
	assert.True(t, reportsToTerminal(ctx))
	assert.NotNil(t, loggerFrom(ctx))
}

func TestStdoutIsInteractive(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	devNull, err := os.Open(os.DevNull)
	require.NoError(t, err)
	t.Cleanup(func() { _ = devNull.Close() })

	assert.False(t, stdoutIsInteractive(env(nil), devNull.Fd()), "not a terminal")
	assert.False(t, stdoutIsInteractive(env(map[string]string{"CI": "true"}), devNull.Fd()))
	assert.False(t, stdoutIsInteractive(env(map[string]string{"TERM": "dumb"}), devNull.Fd()))
}

func TestBuildInfoString(t *testing.T) {
	bi := buildInfo{Version: "v1.2.0", GoVersion: "go1.25.0", Commit: "abc123", Dirty: true, BuildTime: "2026-01-02T03:04:05Z"}
	lines := strings.Split(bi.String(), "\n")
	assert.Equal(t, []string{
		"untar v1.2.0 built with go1.25.0",
		"commit abc123 with local changes",
		"committed at 2026-01-02T03:04:05Z",
	}, lines)

	assert.Equal(t, "untar devel", buildInfo{Version: "devel"}.String())
}
