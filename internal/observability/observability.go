// Package observability wires structured logging and OpenTelemetry
// tracing/metrics for the server and CLI. Traces are exported to stdout
// and metrics are exposed through the Prometheus registry; periodic
// stdout metric dumps are optional. This is enough to see span/metric
// shapes locally without standing up a collector.
package observability

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Providers holds the tracer and meter providers created by Setup, so
// the caller can flush/shutdown them together.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
}

// Setup configures slog, the global W3C trace-context propagator, and
// SDK-backed tracer/meter providers. serviceName tags every emitted
// span and metric. The Prometheus registry is always wired in so
// /metrics can scrape it; pass stdoutMetrics=true to additionally emit
// periodic human-readable metric dumps to stdout, for local debugging
// sessions without a scraper. The stdout trace exporter is always
// attached so spans are visible in server logs even without a collector.
func Setup(ctx context.Context, serviceName string, logLevel string, stdoutMetrics bool) (*Providers, error) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	})))

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, err
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, err
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}
	meterOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	}
	if stdoutMetrics {
		stdoutReader, err := StdoutMetricReader()
		if err != nil {
			return nil, err
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(stdoutReader))
	}
	meterProvider := sdkmetric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(meterProvider)

	return &Providers{Tracer: tracerProvider, Meter: meterProvider}, nil
}

// Shutdown flushes and stops both providers. Call it once at process
// exit, after the server has stopped accepting new requests.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if err := p.Tracer.Shutdown(ctx); err != nil {
		return err
	}
	return p.Meter.Shutdown(ctx)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StdoutMetricReader builds a periodic reader that dumps metrics to
// stdout, for local debugging sessions that want human-readable output
// instead of scraping /metrics. Setup wires this in when stdoutMetrics
// is true.
func StdoutMetricReader() (sdkmetric.Reader, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(exporter), nil
}
