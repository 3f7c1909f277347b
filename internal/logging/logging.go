// Package logging builds the structured logger shared by every workflow.
//
// Logs are JSON lines on stderr so stdout carries only the run report.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger writing to w at the named level
// (debug, info, warn or error). A nil w means stderr.
func New(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		lvl,
	)
	return zap.New(core), nil
}

// ParseLevel maps a level name to a zap level. Empty means warn.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "", "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.WarnLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// FailureLogger records failed units at debug level. Individual failures are
// only counted in the summary, so they stay out of the default output.
type FailureLogger struct {
	logger *zap.Logger
}

// NewFailureLogger tags every entry with the operation name.
func NewFailureLogger(logger *zap.Logger, operation string) *FailureLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailureLogger{logger: logger.With(zap.String("operation", operation))}
}

func (f *FailureLogger) LogFailure(err error) {
	f.logger.Debug("unit failed", zap.Error(err))
}
