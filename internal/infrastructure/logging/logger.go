// Package logging adapts github.com/rs/zerolog to the ports.Logger
// contract used throughout the module.
package logging

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kranzdev/streampipe/internal/ports"
)

// Options configures the zerolog adapter.
type Options struct {
	Writer    io.Writer
	Level     string
	Console   bool
	Component string
	Fields    map[string]interface{}
}

// Logger implements ports.Logger using zerolog.
type Logger struct {
	logger zerolog.Logger
	fields []interface{}
}

// New creates a Logger adapter with the supplied options.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}
	if opts.Console {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	base := zerolog.New(writer).Level(level).With().Timestamp().Logger()

	fields := make([]interface{}, 0, len(opts.Fields)*2+2)
	if opts.Component != "" {
		fields = append(fields, "component", opts.Component)
	}
	for _, k := range sortedKeys(opts.Fields) {
		fields = append(fields, k, opts.Fields[k])
	}

	return &Logger{logger: base, fields: fields}, nil
}

// Debug emits a debug log entry.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.DebugLevel, msg, fields...)
}

// Info emits an info log entry.
func (l *Logger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.InfoLevel, msg, fields...)
}

// Warn emits a warning log entry.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.WarnLevel, msg, fields...)
}

// Error emits an error log entry.
func (l *Logger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.ErrorLevel, msg, fields...)
}

// With derives a new logger with persistent fields appended.
func (l *Logger) With(fields ...interface{}) ports.Logger {
	if l == nil {
		return &Logger{}
	}
	next := make([]interface{}, len(l.fields))
	copy(next, l.fields)
	next = append(next, fields...)
	return &Logger{logger: l.logger, fields: next}
}

func (l *Logger) log(ctx context.Context, level zerolog.Level, msg string, fields ...interface{}) {
	if l == nil {
		return
	}
	ev := l.logger.WithLevel(level)
	applyPairs(ev, l.fields)
	applyPairs(ev, fields)
	if id := ports.GetCorrelationID(ctx); id != "" {
		ev = ev.Str("correlation_id", id)
	}
	ev.Msg(msg)
}

func applyPairs(ev *zerolog.Event, pairs []interface{}) {
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok || key == "" {
			continue
		}
		ev.Interface(key, pairs[i+1])
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ ports.Logger = (*Logger)(nil)
