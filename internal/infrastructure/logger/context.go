package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

// Context keys. The logger stored under LoggerKey is never pre-enriched with
// the request id or operation; FromContext and L add them on read, so each
// field appears once per entry.
const (
	LoggerKey    contextKey = "logger"
	RequestIDKey contextKey = "request_id"
	OperationKey contextKey = "operation" // e.g. "sale.create", "ledger.post"
)

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithRequestID tags ctx with the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithOperation tags ctx with the operation a handler is serving.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

func stored(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(LoggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// FromContext returns the stored logger with the request id, operation and
// trace ids of ctx attached, or a no-op logger when none is stored.
func FromContext(ctx context.Context) *zap.Logger {
	return enrich(ctx, stored(ctx))
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func GetOperation(ctx context.Context) string {
	op, _ := ctx.Value(OperationKey).(string)
	return op
}

func enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	fields := make([]zap.Field, 0, 4)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if op := GetOperation(ctx); op != "" {
		fields = append(fields, zap.String("operation", op))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// ContextLogger resolves context fields when an entry is written, so a
// logger taken before the span or operation was set still picks them up.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L logs through the logger stored in ctx.
//
//	logger.L(ctx).Info("Sale created", zap.Int64("bell_number", n))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: stored(ctx)}
}

// WithLogger is L with an explicit base logger.
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: logger}
}

func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.Base().With(fields...)}
}

// Base is the logger without context fields.
func (cl *ContextLogger) Base() *zap.Logger {
	if cl.logger == nil {
		return zap.NewNop()
	}
	return cl.logger
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.Zap().Debug(msg, fields...) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.Zap().Info(msg, fields...) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.Zap().Warn(msg, fields...) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.Zap().Error(msg, fields...) }

// Zap returns the base logger with context fields attached.
func (cl *ContextLogger) Zap() *zap.Logger {
	return enrich(cl.ctx, cl.Base())
}
