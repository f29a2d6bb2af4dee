// Package telemetry wires OpenTelemetry traces, metrics and logs, Pyroscope
// profiling, and the span/metric helpers the services record through.
package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultMetricsInterval = 60 * time.Second

// ExportConfig selects the OTLP signals that leave the process. All signals
// share one collector endpoint and one service resource.
type ExportConfig struct {
	CollectorEndpoint string
	Insecure          bool
	ServiceName       string
	ServiceVersion    string

	Traces        bool
	SamplingRatio float64

	Metrics         bool
	MetricsInterval time.Duration

	Logs bool
}

// Exporters owns the SDK providers of the enabled signals and installs them
// as the OTel globals. A disabled signal leaves the global no-op in place.
type Exporters struct {
	cfg ExportConfig
	log *zap.Logger

	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider

	spanProfiles atomic.Bool
}

// NewExporters dials nothing up front: the gRPC exporters connect lazily, so a
// missing collector surfaces as export errors, not a startup failure.
func NewExporters(ctx context.Context, cfg ExportConfig, log *zap.Logger) (*Exporters, error) {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Exporters{cfg: cfg, log: log}
	if !cfg.Traces && !cfg.Metrics && !cfg.Logs {
		log.Info("Telemetry export disabled")
		return e, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(versionOrDev(cfg.ServiceVersion)),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	if cfg.Traces {
		if err := e.startTraces(ctx, res); err != nil {
			return nil, err
		}
	}
	if cfg.Metrics {
		if err := e.startMetrics(ctx, res); err != nil {
			_ = e.Shutdown(ctx)
			return nil, err
		}
	}
	if cfg.Logs {
		if err := e.startLogs(ctx, res); err != nil {
			_ = e.Shutdown(ctx)
			return nil, err
		}
	}

	log.Info("Telemetry export started",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.String("service_name", cfg.ServiceName),
		zap.Bool("traces", cfg.Traces),
		zap.Bool("metrics", cfg.Metrics),
		zap.Bool("logs", cfg.Logs),
	)
	return e, nil
}

func (e *Exporters) startTraces(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(e.cfg.CollectorEndpoint)}
	if e.cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("trace exporter: %w", err)
	}
	e.traces = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(e.cfg.SamplingRatio))),
	)
	otel.SetTracerProvider(e.traces)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

func (e *Exporters) startMetrics(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(e.cfg.CollectorEndpoint)}
	if e.cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("metric exporter: %w", err)
	}
	interval := e.cfg.MetricsInterval
	if interval <= 0 {
		interval = defaultMetricsInterval
	}
	e.metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(e.metrics)
	return nil
}

func (e *Exporters) startLogs(ctx context.Context, res *resource.Resource) error {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(e.cfg.CollectorEndpoint)}
	if e.cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("log exporter: %w", err)
	}
	e.logs = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
	)
	global.SetLoggerProvider(e.logs)
	return nil
}

func (e *Exporters) TracesEnabled() bool  { return e != nil && e.traces != nil }
func (e *Exporters) MetricsEnabled() bool { return e != nil && e.metrics != nil }
func (e *Exporters) LogsEnabled() bool    { return e != nil && e.logs != nil }

// Tracer falls back to the global provider when traces are off.
func (e *Exporters) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if !e.TracesEnabled() {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return e.traces.Tracer(name, opts...)
}

// Meter falls back to the global provider when metrics are off.
func (e *Exporters) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if !e.MetricsEnabled() {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return e.metrics.Meter(name, opts...)
}

// EnableSpanProfiles makes the global tracer stamp span ids into pprof labels
// so Pyroscope CPU samples link back to traces. Start the profiler first.
// It reports whether span profiles are on after the call.
func (e *Exporters) EnableSpanProfiles() bool {
	if !e.TracesEnabled() {
		return false
	}
	if e.spanProfiles.CompareAndSwap(false, true) {
		otel.SetTracerProvider(otelpyroscope.NewTracerProvider(e.traces))
		e.log.Info("Span profiles enabled")
	}
	return true
}

func (e *Exporters) SpanProfilesEnabled() bool {
	return e != nil && e.spanProfiles.Load()
}

// ZapCore returns a core that forwards entries at or above level to the OTLP
// log exporter, or a nop core when logs are off.
func (e *Exporters) ZapCore(level zapcore.Level) zapcore.Core {
	if !e.LogsEnabled() {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(e.cfg.ServiceName, otelzap.WithLoggerProvider(e.logs))
	filtered, err := zapcore.NewIncreaseLevelCore(core, level)
	if err != nil {
		return core
	}
	return filtered
}

// BridgeLogger tees base into the OTLP log core. With logs off it returns a
// logger over base alone.
func (e *Exporters) BridgeLogger(base zapcore.Core, level zapcore.Level, opts ...zap.Option) *zap.Logger {
	if !e.LogsEnabled() {
		return zap.New(base, opts...)
	}
	return zap.New(zapcore.NewTee(base, e.ZapCore(level)), opts...)
}

// ForceFlush exports everything buffered in the enabled providers.
func (e *Exporters) ForceFlush(ctx context.Context) error {
	var err error
	if e.traces != nil {
		err = multierr.Append(err, e.traces.ForceFlush(ctx))
	}
	if e.metrics != nil {
		err = multierr.Append(err, e.metrics.ForceFlush(ctx))
	}
	if e.logs != nil {
		err = multierr.Append(err, e.logs.ForceFlush(ctx))
	}
	return err
}

// Shutdown flushes and stops providers in reverse start order. Logs go last so
// shutdown messages from the other providers are still exported.
func (e *Exporters) Shutdown(ctx context.Context) error {
	var err error
	if e.metrics != nil {
		err = multierr.Append(err, wrapShutdown("metrics", e.metrics.Shutdown(ctx)))
		e.metrics = nil
	}
	if e.traces != nil {
		err = multierr.Append(err, wrapShutdown("traces", e.traces.Shutdown(ctx)))
		e.traces = nil
	}
	if e.logs != nil {
		err = multierr.Append(err, wrapShutdown("logs", e.logs.Shutdown(ctx)))
		e.logs = nil
	}
	return err
}

func wrapShutdown(signal string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("shutdown %s provider: %w", signal, err)
}

func versionOrDev(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}
