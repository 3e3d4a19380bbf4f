package ports

import (
	"context"

	"github.com/kranzdev/streampipe/internal/ids"
)

// Logger defines the structured logging contract every layer of this
// module depends on. All log calls are key/value pairs, must be safe for
// concurrent use, and automatically enrich entries with a correlation ID
// when present in context. Common fields include:
//   - correlation_id (generated at CLI entry point)
//   - component (controller, step, pipeline, remoterpc, ...)
//   - instance_id / controller_id / step_id for trace correlation
//   - duration_ms for timed operations
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, msg string, fields ...interface{})
	Error(ctx context.Context, msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

type correlationIDKey struct{}

// WithCorrelationID attaches the provided correlation ID to the context so
// downstream layers can emit correlated logs and metrics.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// GetCorrelationID extracts a correlation ID from context. It returns an
// empty string when none has been set — callers should treat that as
// "uncorrelated".
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GenerateCorrelationID produces a new correlation identifier suitable for
// log correlation. CLI entry points invoke this once per command.
func GenerateCorrelationID() string {
	return ids.New("corr")
}
