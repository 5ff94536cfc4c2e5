package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	serviceName     = "cf-ddns"
	defaultEndpoint = "localhost:4317"
)

// Exporter names accepted in OTEL_EXPORTER
const (
	ExporterNone    = "none"
	ExporterConsole = "console"
	ExporterOTLP    = "otlp"
	ExporterBoth    = "both"
)

// Options select where spans go. Empty fields are read from the environment.
type Options struct {
	// Exporter is none, console, otlp or both (OTEL_EXPORTER)
	Exporter string
	// Endpoint is the OTLP gRPC endpoint (OTEL_ENDPOINT)
	Endpoint string
	// Console receives pretty-printed spans; defaults to stderr so stdout stays free
	Console io.Writer
	Version string
}

// Setup initializes OpenTelemetry and installs the global tracer provider.
// With exporter "none" spans are still created but never exported.
func Setup(ctx context.Context, opts Options) (func(context.Context) error, error) {
	if opts.Exporter == "" {
		opts.Exporter = os.Getenv("OTEL_EXPORTER")
	}
	if opts.Exporter == "" {
		opts.Exporter = ExporterNone
	}
	if opts.Endpoint == "" {
		opts.Endpoint = os.Getenv("OTEL_ENDPOINT")
	}
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}
	if opts.Console == nil {
		opts.Console = os.Stderr
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(opts.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporters []sdktrace.SpanExporter
	switch opts.Exporter {
	case ExporterNone:
	case ExporterConsole:
		exp, err := consoleExporter(opts.Console)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, exp)
	case ExporterOTLP:
		exp, err := otlpExporter(ctx, opts.Endpoint)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, exp)
	case ExporterBoth:
		console, err := consoleExporter(opts.Console)
		if err != nil {
			return nil, err
		}
		otlp, err := otlpExporter(ctx, opts.Endpoint)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, console, otlp)
	default:
		return nil, fmt.Errorf("invalid OTEL_EXPORTER %q (want none, console, otlp or both)", opts.Exporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
	)
	for _, exporter := range exporters {
		tp.RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))
	}

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func consoleExporter(w io.Writer) (sdktrace.SpanExporter, error) {
	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create console exporter: %w", err)
	}
	return exp, nil
}

func otlpExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		// TODO: add a TLS option once a collector outside localhost needs it
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exp, nil
}
