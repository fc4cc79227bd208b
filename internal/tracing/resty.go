package tracing

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentResty wraps every request of client in a span.
func InstrumentResty(client *resty.Client) {
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx, _ := Tracer().Start(req.Context(), "http "+req.Method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(AttrURL.String(req.URL)),
		)
		req.SetContext(ctx)
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		span := trace.SpanFromContext(res.Request.Context())
		defer span.End()

		span.SetAttributes(
			attribute.Int("http.status_code", res.StatusCode()),
			attribute.Int64("http.response_size", res.Size()),
		)
		if res.IsError() {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", res.StatusCode()))
		}
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		span := trace.SpanFromContext(req.Context())
		defer span.End()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	})
}
