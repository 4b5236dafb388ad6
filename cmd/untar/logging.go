package main

import (
	"fmt"

	"go.uber.org/zap"
)

type logFormat string

const (
	logFormatJSON    logFormat = "json"
	logFormatConsole logFormat = "console"
)

func parseLogFormat(s string) (logFormat, error) {
	switch f := logFormat(s); f {
	case logFormatJSON, logFormatConsole:
		return f, nil
	default:
		return "", fmt.Errorf("invalid log format %q, expected json or console", s)
	}
}

type logOptions struct {
	Level   string
	Format  logFormat
	Verbose bool
}

// newLogger writes to stderr only. Stdout carries reports, and in worker
// mode the message stream read by the parent.
func newLogger(opts logOptions) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if opts.Verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		level, err := zap.ParseAtomicLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %s: %w", opts.Level, err)
		}
		cfg.Level = level
		cfg.Encoding = string(opts.Format)
		if opts.Format == logFormatConsole {
			cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		}
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Named("untar"), nil
}
