// Package tracer adapts OpenTelemetry to a small span API so services do not
// import otel directly.
package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span)
}

// Span is ended exactly once, with the operation's error (nil on success).
type Span interface {
	End(err error)
	SetAttributes(attrs ...attribute.KeyValue)
}

type OTelTracer struct {
	tracer trace.Tracer
}

type Option func(*OTelTracer)

// WithTracer injects a preconfigured OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *OTelTracer) {
		o.tracer = t
	}
}

// New uses the global provider under the given instrumentation name unless
// WithTracer is supplied. Without an installed provider spans are no-ops.
func New(name string, opts ...Option) *OTelTracer {
	t := &OTelTracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(name)
	}
	return t
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

func (s *otelSpan) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// Noop returns a tracer whose spans record nothing.
func Noop() Tracer {
	return noopTracer{}
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error)                           {}
func (noopSpan) SetAttributes(...attribute.KeyValue) {}
