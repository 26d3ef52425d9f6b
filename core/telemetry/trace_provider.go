package telemetry

import (
	"context"
	"fmt"

	"github.com/anoideaopen/proxymanager/core/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of proxy spans.
const TracerName = "github.com/anoideaopen/proxymanager"

// Tracer returns the proxy tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// InstallTraceProvider installs a global trace provider based on the http otlp
// exporter. Without an endpoint a noop provider is installed. The returned
// function flushes and stops the exporter.
func InstallTraceProvider(settings config.TracingConfig) (func(context.Context) error, error) {
	var tracerProvider trace.TracerProvider = trace.NewNoopTracerProvider()
	shutdown := func(context.Context) error { return nil }

	defer func() {
		otel.SetTracerProvider(tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	}()

	if len(settings.Endpoint) == 0 {
		return shutdown, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(settings.Endpoint)}
	if settings.CACerts != "" {
		tlsCfg, err := tlsConfig(settings.CACerts)
		if err != nil {
			return shutdown, err
		}
		opts = append(opts, otlptracehttp.WithTLSClientConfig(tlsCfg))
	} else {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(opts...))
	if err != nil {
		return shutdown, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	serviceName := settings.ServiceName
	if serviceName == "" {
		serviceName = config.DefaultServiceName
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName)))
	if err != nil {
		return shutdown, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r))
	tracerProvider = provider

	return provider.Shutdown, nil
}
