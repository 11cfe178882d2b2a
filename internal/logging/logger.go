// Package logging builds the application logger. The terminal belongs to the
// panel, so everything goes to a rotating log file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"permitdesk/internal/config"
)

// New creates a JSON file logger from the log settings.
// verbose forces debug level regardless of the configured level.
func New(settings config.LogSettings, verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if settings.Level != "" {
		if err := level.UnmarshalText([]byte(settings.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", settings.Level, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	if settings.File == "" {
		return zap.NewNop(), nil
	}
	if dir := filepath.Dir(settings.File); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	rotator := &lumberjack.Logger{
		Filename:   settings.File,
		MaxSize:    settings.MaxSizeMB,
		MaxBackups: settings.MaxBackups,
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core, zap.AddCaller()), nil
}
