// Package tracing exposes named-span tracing to the rest of the service.
// Spans are grouped into a closed set of categories, each bound to its
// own tracer handle at construction time.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Category identifies the subsystem a span belongs to.
type Category int

const (
	App Category = iota
	Cache
	Database
	Messaging
)

// Tracer starts spans on behalf of callers. Tracing never affects the
// traced operation's outcome: the error returned by Trace is always the
// one produced by fn.
type Tracer struct {
	tracers [4]trace.Tracer
}

// New binds each category to a tracer from tp. A nil provider falls back
// to the process-global one, which is a no-op unless an SDK is installed.
func New(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Tracer{
		tracers: [...]trace.Tracer{
			App:       tp.Tracer("url-shortener/app"),
			Cache:     tp.Tracer("url-shortener/cache"),
			Database:  tp.Tracer("url-shortener/database"),
			Messaging: tp.Tracer("url-shortener/messaging"),
		},
	}
}

// Trace runs fn inside a span named spanName under the category's tracer,
// recording failure or success on the span.
func (t *Tracer) Trace(ctx context.Context, spanName string, cat Category, fn func(ctx context.Context) error) error {
	ctx, span := t.tracers[cat].Start(ctx, spanName)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
