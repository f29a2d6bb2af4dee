package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// TracerProvider overrides the global provider
	TracerProvider trace.TracerProvider
}

// Tracing returns the otelgin server-span middleware. The span is named
// "METHOD route_pattern", e.g. "POST /api/v1/sales".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanAttributes enriches the server span with the request id and the bounded
// context of the route, and marks 4xx/5xx responses as errors. It must run
// after Tracing and RequestID.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if domain, ok := domainOf(resourceOf(c.FullPath())); ok {
			span.SetAttributes(attribute.String("domain", domain))
		}

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if code, ok := c.Get(errorCodeKey); ok {
			span.SetAttributes(attribute.String("error.code", code.(string)))
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// errorCodeKey holds the envelope error code a handler answered with
const errorCodeKey = "error_code"

// SetErrorCode records the error code of the response for SpanAttributes
func SetErrorCode(c *gin.Context, code string) {
	c.Set(errorCodeKey, code)
}
