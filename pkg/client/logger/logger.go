// Package logger defines the structured logging surface shared by the client,
// its middleware and the query normalizer.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// Logger interface defines the logging functionality required by the client.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	WithFields(fields ...Field) Logger
}

// Field creators.
func String(key string, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err returns an "error" field holding err's message.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// NoOpLogger is a logger that does nothing, used as a default when no logger is provided.
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(_ string)              {}
func (l *NoOpLogger) Info(_ string)               {}
func (l *NoOpLogger) Warn(_ string)               {}
func (l *NoOpLogger) Error(_ string)              {}
func (l *NoOpLogger) Debugf(_ string, _ ...any)   {}
func (l *NoOpLogger) Infof(_ string, _ ...any)    {}
func (l *NoOpLogger) Warnf(_ string, _ ...any)    {}
func (l *NoOpLogger) Errorf(_ string, _ ...any)   {}
func (l *NoOpLogger) WithFields(_ ...Field) Logger { return l }

// BasicLogger uses the standard library log package for logging.
type BasicLogger struct {
	logger *log.Logger
	fields []Field
}

// NewBasicLogger creates a new BasicLogger that writes to stdout.
func NewBasicLogger() Logger {
	return NewBasicLoggerTo(os.Stdout)
}

// NewBasicLoggerTo creates a new BasicLogger that writes to w.
func NewBasicLoggerTo(w io.Writer) Logger {
	return &BasicLogger{
		logger: log.New(w, "", log.LstdFlags),
		fields: []Field{},
	}
}

func (l *BasicLogger) log(level, msg string) {
	if len(l.fields) > 0 {
		fieldStrings := make([]string, len(l.fields))
		for i, f := range l.fields {
			fieldStrings[i] = fmt.Sprintf("%s=%v", f.Key, f.Value)
		}
		l.logger.Printf("%s: %s | %s", level, msg, strings.Join(fieldStrings, " "))
	} else {
		l.logger.Printf("%s: %s", level, msg)
	}
}

func (l *BasicLogger) logf(level, format string, args ...any) {
	l.log(level, fmt.Sprintf(format, args...))
}

func (l *BasicLogger) Debug(msg string)                  { l.log("DEBUG", msg) }
func (l *BasicLogger) Info(msg string)                   { l.log("INFO", msg) }
func (l *BasicLogger) Warn(msg string)                   { l.log("WARN", msg) }
func (l *BasicLogger) Error(msg string)                  { l.log("ERROR", msg) }
func (l *BasicLogger) Debugf(format string, args ...any) { l.logf("DEBUG", format, args...) }
func (l *BasicLogger) Infof(format string, args ...any)  { l.logf("INFO", format, args...) }
func (l *BasicLogger) Warnf(format string, args ...any)  { l.logf("WARN", format, args...) }
func (l *BasicLogger) Errorf(format string, args ...any) { l.logf("ERROR", format, args...) }

func (l *BasicLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &BasicLogger{
		logger: l.logger,
		fields: merged,
	}
}
