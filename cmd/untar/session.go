package main

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// session is the per-invocation state shared by every subcommand.
type session struct {
	logger      *zap.Logger
	interactive bool
}

func (s *session) close() {
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}

type sessionKey struct{}

func withSession(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func sessionFrom(ctx context.Context) *session {
	s, _ := ctx.Value(sessionKey{}).(*session)
	return s
}

// loggerFrom panics outside of a command action.
func loggerFrom(ctx context.Context) *zap.Logger {
	s := sessionFrom(ctx)
	if s == nil || s.logger == nil {
		panic("untar: no session logger in context")
	}
	return s.logger
}

// reportsToTerminal decides the default report format.
func reportsToTerminal(ctx context.Context) bool {
	s := sessionFrom(ctx)
	return s != nil && s.interactive
}

// stdoutIsInteractive is false under CI or a dumb terminal, even on a tty.
func stdoutIsInteractive(getenv func(string) string, fd uintptr) bool {
	if getenv("CI") != "" || getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(fd))
}
