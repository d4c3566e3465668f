// Package telemetry installs the OpenTelemetry tracer provider used to trace
// upstream gateway exchanges.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

const (
	// ExporterNone disables tracing.
	ExporterNone = "none"

	// ExporterStdout pretty-prints finished spans.
	ExporterStdout = "stdout"
)

var (
	// ErrNilContext is returned when Init is called with a nil context.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an unsupported TraceExporter value.
	ErrUnknownExporter = errors.New("unknown trace exporter")
)

// Config controls telemetry behavior.
type Config struct {
	// ServiceName identifies this service in traces.
	ServiceName string

	// ServiceVersion is the version string for this service.
	ServiceVersion string

	// Environment identifies the deployment environment.
	Environment string

	// TraceExporter selects the trace exporter: "stdout" or "none".
	TraceExporter string

	// Writer receives stdout spans. Defaults to os.Stderr so spans never mix
	// with command output.
	Writer io.Writer
}

// DefaultConfig returns the defaults used by `sakhi serve`.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "sakhi-proxy",
		ServiceVersion: "dev",
		Environment:    "development",
		TraceExporter:  ExporterNone,
	}
}

// Init installs a global tracer provider for cfg and returns the function
// that flushes and stops it. With the "none" exporter the global no-op
// provider is left in place and shutdown does nothing.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	noop := func(context.Context) error { return nil }

	switch cfg.TraceExporter {
	case "", ExporterNone:
		return noop, nil
	case ExporterStdout:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, cfg.TraceExporter)
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
