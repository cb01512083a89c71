package otel

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/version"
)

// Init builds an OTLP tracer provider, installs it globally and returns a
// Handle whose Shutdown flushes pending spans.
func Init(ctx context.Context, cfg Config) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("otel: failed to build resource: %w", err)
	}
	exporter, err := newExporter(ctx, cfg.Protocol, resolveEndpoint(cfg), cfg.Insecure)
	if err != nil {
		return nil, fmt.Errorf("otel: failed to create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Handle{
		Tracer:   tp.Tracer(ServiceName),
		Shutdown: tp.Shutdown,
	}, nil
}

// resolveEndpoint prefers the configured endpoint, then
// OTEL_EXPORTER_OTLP_ENDPOINT, then the local collector for the protocol.
func resolveEndpoint(cfg Config) string {
	if cfg.Endpoint != "" {
		return cfg.Endpoint
	}
	if env := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); env != "" {
		return env
	}
	if cfg.Protocol == ProtocolGRPC {
		return "localhost:4317"
	}
	return "http://localhost:4318"
}

func newResource(cfg Config) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = ServiceName
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
		semconv.ServiceVersion(version.BuildVersion()),
		semconv.TelemetrySDKLanguageGo,
		semconv.TelemetrySDKVersion(otel.Version()),
	}

	keys := make([]string, 0, len(cfg.Attributes))
	for k := range cfg.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, cfg.Attributes[k]))
	}
	return resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
}

// newExporter passes host:port endpoints through WithEndpoint and full URLs
// through WithEndpointURL.
func newExporter(ctx context.Context, protocol, endpoint string, insecure bool) (sdktrace.SpanExporter, error) {
	if protocol == ProtocolGRPC {
		opt := otlptracegrpc.WithEndpoint(endpoint)
		if hasScheme(endpoint) {
			opt = otlptracegrpc.WithEndpointURL(endpoint)
		}
		opts := []otlptracegrpc.Option{opt}
		if insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}

	opt := otlptracehttp.WithEndpoint(endpoint)
	if hasScheme(endpoint) {
		opt = otlptracehttp.WithEndpointURL(endpoint)
	}
	opts := []otlptracehttp.Option{opt}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func hasScheme(endpoint string) bool {
	return strings.Contains(endpoint, "://")
}

// InitWithProvider wraps an existing provider, typically a test recorder.
func InitWithProvider(tp trace.TracerProvider) *Handle {
	return &Handle{
		Tracer:   tp.Tracer(ServiceName),
		Shutdown: func(context.Context) error { return nil },
	}
}
