package tracing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName is the name of the tracer handed to the purger.
const InstrumentationName = "ofn-hq/truncator"

// Config contains configuration for span export.
type Config struct {
	// Enabled turns on span export. When false Tracer returns a noop tracer.
	Enabled bool

	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	Endpoint string

	// Insecure disables TLS to the collector.
	Insecure bool

	// SampleRatio is the fraction of purge runs traced, between 0 and 1.
	SampleRatio float64

	// ServiceName is reported as service.name.
	ServiceName string

	// ServiceVersion is reported as service.version.
	ServiceVersion string

	// Timeout bounds each export call.
	Timeout time.Duration
}

// Tracer owns the tracer provider of the process.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	enabled  bool
}

// New creates a Tracer. With tracing disabled it returns a noop tracer and
// installs nothing globally.
//
// The tracer must be shut down to flush pending spans:
//
//	defer tracer.Shutdown(context.Background())
func New(ctx context.Context, cfg *Config) (*Tracer, error) {
	if cfg == nil {
		return nil, errors.New("tracing config is nil")
	}

	if !cfg.Enabled {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer(InstrumentationName)}, nil
	}

	if cfg.Endpoint == "" {
		return nil, errors.New("tracing endpoint is required")
	}

	sampler, err := newSampler(cfg.SampleRatio)
	if err != nil {
		return nil, err
	}

	exporter, err := newOTLPExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return NewWithExporter(cfg, exporter, sampler), nil
}

// NewWithExporter creates an enabled Tracer exporting to the given exporter.
// A nil sampler samples every run.
func NewWithExporter(cfg *Config, exporter sdktrace.SpanExporter, sampler sdktrace.Sampler) *Tracer {
	if sampler == nil {
		sampler = sdktrace.AlwaysSample()
	}

	res := resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(InstrumentationName),
		enabled:  true,
	}
}

// Tracer returns the tracer to start spans with.
func (t *Tracer) Tracer() trace.Tracer {
	return t.tracer
}

// Enabled reports whether spans are exported.
func (t *Tracer) Enabled() bool {
	return t.enabled
}

// Shutdown flushes pending spans and stops the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.enabled || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

func newSampler(ratio float64) (sdktrace.Sampler, error) {
	switch {
	case ratio < 0 || ratio > 1:
		return nil, fmt.Errorf("sample ratio must be between 0 and 1, got %g", ratio)
	case ratio == 1:
		return sdktrace.AlwaysSample(), nil
	case ratio == 0:
		return sdktrace.NeverSample(), nil
	default:
		return sdktrace.TraceIDRatioBased(ratio), nil
	}
}

func newOTLPExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}

	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}
