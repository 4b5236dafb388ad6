package untar

import (
	"github.com/infracollect/untar/pkg/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DiagnosticSink receives worker log lines. It never influences the outcome
// of an extraction.
type DiagnosticSink interface {
	Log(level protocol.Level, text string)
}

// ZapDiagnostics writes worker log lines to a zap logger.
type ZapDiagnostics struct {
	logger *zap.Logger
}

func NewZapDiagnostics(logger *zap.Logger) *ZapDiagnostics {
	return &ZapDiagnostics{logger: logger}
}

func (d *ZapDiagnostics) Log(level protocol.Level, text string) {
	if ce := d.logger.Check(zapLevel(level), "worker: "+text); ce != nil {
		ce.Write()
	}
}

func zapLevel(level protocol.Level) zapcore.Level {
	switch level {
	case protocol.LevelDebug:
		return zapcore.DebugLevel
	case protocol.LevelWarn:
		return zapcore.WarnLevel
	case protocol.LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
