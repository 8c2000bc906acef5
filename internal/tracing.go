// Package internal provides the tracing helper shared by the
// providers package, mirroring how go-libp2p-kad-dht wraps its own
// public entry points in a span before doing any work.
package internal

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/libp2p/go-libp2p-providers")

// StartSpan starts a span named "ProviderRegistry.<name>" and returns
// the derived context alongside it. Callers are expected to
// `defer span.End()`.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ProviderRegistry."+name, opts...)
}
