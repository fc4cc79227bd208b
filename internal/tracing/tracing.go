// Package tracing configures OpenTelemetry for scraper runs.
package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/pfrederiksen/show-scraper"

// Span attribute keys
var (
	AttrRunID    = attribute.Key("scraper.run.id")
	AttrRule     = attribute.Key("scraper.rule")
	AttrEvents   = attribute.Key("scraper.events")
	AttrSkipped  = attribute.Key("scraper.events.skipped")
	AttrURL      = attribute.Key("scraper.url")
	AttrWorker   = attribute.Key("scraper.worker")
	AttrRescued  = attribute.Key("scraper.rescued")
	AttrBackend  = attribute.Key("scraper.browser.backend")
	AttrSinkKey  = attribute.Key("scraper.sink.key")
	AttrSinkSize = attribute.Key("scraper.sink.bytes")
)

// Provider wraps the SDK tracer provider so callers can flush on exit.
type Provider struct {
	provider *sdktrace.TracerProvider
}

// Setup installs a global tracer provider. When enabled is false a noop
// provider is installed and the returned Provider's Shutdown does nothing.
func Setup(enabled bool, w io.Writer, version string) (*Provider, error) {
	if !enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "show-scraper"),
		attribute.String("service.version", version),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return &Provider{provider: provider}, nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// Tracer returns the scraper tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Start starts a span named name.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records err on the span in ctx.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	trace.SpanFromContext(ctx).RecordError(err)
}
