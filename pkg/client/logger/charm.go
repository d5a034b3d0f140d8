package logger

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Level is a textual log level as it appears in configuration and flags.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

func (l Level) toCharm() charmlog.Level {
	switch l {
	case DebugLevel:
		return charmlog.DebugLevel
	case InfoLevel:
		return charmlog.InfoLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// CharmConfig configures a CharmLogger.
type CharmConfig struct {
	Level      Level
	Output     io.Writer
	JSON       bool
	TimeFormat string
}

// CharmLogger adapts a charmbracelet logger to the Logger interface.
type CharmLogger struct {
	logger *charmlog.Logger
}

// NewCharmLogger creates a CharmLogger. A nil Output writes to stderr.
func NewCharmLogger(cfg CharmConfig) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = "15:04:05"
	}

	l := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Level:           cfg.Level.toCharm(),
	})
	if cfg.JSON {
		l.SetFormatter(charmlog.JSONFormatter)
	} else {
		l.SetFormatter(charmlog.TextFormatter)
	}
	return &CharmLogger{logger: l}
}

func (l *CharmLogger) Debug(msg string)                  { l.logger.Debug(msg) }
func (l *CharmLogger) Info(msg string)                   { l.logger.Info(msg) }
func (l *CharmLogger) Warn(msg string)                   { l.logger.Warn(msg) }
func (l *CharmLogger) Error(msg string)                  { l.logger.Error(msg) }
func (l *CharmLogger) Debugf(format string, args ...any) { l.logger.Debugf(format, args...) }
func (l *CharmLogger) Infof(format string, args ...any)  { l.logger.Infof(format, args...) }
func (l *CharmLogger) Warnf(format string, args ...any)  { l.logger.Warnf(format, args...) }
func (l *CharmLogger) Errorf(format string, args ...any) { l.logger.Errorf(format, args...) }

func (l *CharmLogger) WithFields(fields ...Field) Logger {
	keyvals := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		keyvals = append(keyvals, f.Key, f.Value)
	}
	return &CharmLogger{logger: l.logger.With(keyvals...)}
}
