package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "solmeet/pkg/domain-errors"
)

const instrumentationName = "solmeet/claim"

// OTelTracer exports claim spans through OpenTelemetry.
type OTelTracer struct {
	tracer trace.Tracer
}

type OTelOption func(*OTelTracer)

func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) { o.tracer = t }
}

// NewOTel uses the global provider unless a tracer is injected.
func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{tracer: otel.Tracer(instrumentationName)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(otelAttrs(attrs)...),
	)
	return ctx, otelSpan{span}
}

type otelSpan struct {
	span trace.Span
}

// End closes the span. Claim rejections are expected answers and only get an
// event; everything else, ledger unavailability included, marks the span failed.
func (s otelSpan) End(err error) {
	switch {
	case err == nil:
		s.span.SetStatus(codes.Ok, "")
	case isRejection(err):
		s.span.AddEvent("claim.rejected", trace.WithAttributes(
			attribute.String("reason", string(dErrors.CodeOf(err))),
		))
	default:
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	s.span.End()
}

func isRejection(err error) bool {
	code := dErrors.CodeOf(err)
	return code.IsClaimRejection() && code != dErrors.CodeLedgerUnavailable
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(otelAttrs(attrs)...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(otelAttrs(attrs)...))
}

func otelAttrs(attrs []Attribute) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case bool:
			out = append(out, attribute.Bool(a.Key, v))
		case int:
			out = append(out, attribute.Int(a.Key, v))
		case int64:
			out = append(out, attribute.Int64(a.Key, v))
		case float64:
			out = append(out, attribute.Float64(a.Key, v))
		}
	}
	return out
}

var _ Tracer = (*OTelTracer)(nil)
