package middleware

import (
	"context"
	"time"

	"github.com/erp/shopcore/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
)

type httpMetrics struct {
	requests  *telemetry.Counter
	latency   *telemetry.Histogram
	reqBytes  *telemetry.Histogram
	respBytes *telemetry.Histogram
	inFlight  metric.Int64UpDownCounter
}

var sizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	var (
		m    httpMetrics
		errs error
	)
	histogram := func(dst **telemetry.Histogram, opts telemetry.HistogramOpts) {
		h, err := telemetry.NewHistogram(meter, opts)
		*dst, errs = h, multierr.Append(errs, err)
	}

	requests, err := telemetry.NewCounter(meter, "http_server_request_total", "Total number of HTTP requests", "{request}")
	m.requests, errs = requests, multierr.Append(errs, err)

	histogram(&m.latency, telemetry.HistogramOpts{
		Name: "http_server_request_duration_seconds", Description: "HTTP request latency distribution in seconds",
		Unit: "s", Boundaries: telemetry.HTTPDurationBuckets,
	})
	histogram(&m.reqBytes, telemetry.HistogramOpts{
		Name: "http_server_request_size_bytes", Description: "HTTP request body size distribution in bytes",
		Unit: "By", Boundaries: sizeBuckets,
	})
	histogram(&m.respBytes, telemetry.HistogramOpts{
		Name: "http_server_response_size_bytes", Description: "HTTP response body size distribution in bytes",
		Unit: "By", Boundaries: sizeBuckets,
	})

	m.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"))
	errs = multierr.Append(errs, err)

	if errs != nil {
		return nil, errs
	}
	return &m, nil
}

// HTTPMetrics collects request count, latency, sizes and in-flight requests.
// Nil exporters or exporters with metrics off yield a pass-through middleware.
func HTTPMetrics(exp *telemetry.Exporters) gin.HandlerFunc {
	if !exp.MetricsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(exp.Meter("http.server"))
}

// HTTPMetricsWithMeter is HTTPMetrics over an existing meter
func HTTPMetricsWithMeter(meter metric.Meter) gin.HandlerFunc {
	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		requestSize := c.Request.ContentLength

		metrics.inFlight.Add(ctx, 1)
		c.Next()
		metrics.inFlight.Add(ctx, -1)

		metrics.record(ctx, c.Request.Method, routePattern(c), c.Writer.Status(),
			time.Since(start), requestSize, c.Writer.Size())
	}
}

func (m *httpMetrics) record(ctx context.Context, method, route string, status int, d time.Duration, reqSize int64, respSize int) {
	base := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(method),
		telemetry.AttrHTTPRoute.String(route),
	}
	m.requests.Inc(ctx, append(base, telemetry.AttrHTTPStatusCode.Int(status))...)
	m.latency.RecordDuration(ctx, d, base...)
	if reqSize > 0 {
		m.reqBytes.Record(ctx, float64(reqSize), base...)
	}
	if respSize > 0 {
		m.respBytes.Record(ctx, float64(respSize), base...)
	}
}

// routePattern keeps metric cardinality bounded: the matched pattern, never the raw path
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

func passThrough(c *gin.Context) {
	c.Next()
}
