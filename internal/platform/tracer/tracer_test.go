package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestOTelTracerWithNoopProvider(t *testing.T) {
	tr := New("unearthify/test", WithTracer(noop.NewTracerProvider().Tracer("t")))

	ctx, span := tr.Start(context.Background(), "catalog.create", attribute.String("kind", "artists"))
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() {
		span.SetAttributes(attribute.Int("count", 1))
		span.End(errors.New("boom"))
	})
}

func TestNoop(t *testing.T) {
	ctx := context.WithValue(context.Background(), struct{}{}, "v")
	got, span := Noop().Start(ctx, "x")
	assert.Equal(t, ctx, got)
	span.End(nil)
}
