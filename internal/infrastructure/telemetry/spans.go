package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer behind every business span.
const TracerName = "shopcore"

// Span attribute keys. Metric attributes use the typed keys in instruments.go.
const (
	SpanAttrAccountID   = "account_id"
	SpanAttrPostingType = "posting_type"
	SpanAttrAmount      = "amount"
	SpanAttrCurrency    = "currency"

	SpanAttrSaleID     = "sale_id"
	SpanAttrBellNumber = "bell_number"
	SpanAttrCustomerID = "customer_id"
	SpanAttrItemsCount = "items_count"
	SpanAttrProductID  = "product_id"
)

// StartSpan starts an internal span on the global tracer. kv is read as
// alternating key, value pairs; see SetAttributes.
func StartSpan(ctx context.Context, name string, kv ...any) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindInternal)}
	if attrs := pairsToAttributes(kv); len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// StartServiceSpan names the span "<service>.<method>", e.g. "ledger.post".
func StartServiceSpan(ctx context.Context, service, method string, kv ...any) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, kv...)
}

// SetAttributes sets alternating key, value pairs on span. Non-string keys
// and a trailing key without a value are skipped. Nil spans are ignored.
func SetAttributes(span trace.Span, kv ...any) {
	if span == nil {
		return
	}
	span.SetAttributes(pairsToAttributes(kv)...)
}

// AddEvent is SetAttributes for a named span event.
func AddEvent(span trace.Span, name string, kv ...any) {
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(pairsToAttributes(kv)...))
}

// RecordError records err as an exception event and marks the span failed.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func pairsToAttributes(kv []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			attrs = append(attrs, attributeOf(key, kv[i+1]))
		}
	}
	return attrs
}

// attributeOf maps uuid.UUID and decimal.Decimal through fmt.Stringer, so
// both land as strings.
func attributeOf(key string, v any) attribute.KeyValue {
	switch v := v.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
