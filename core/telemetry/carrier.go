package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Inject packs the span context of ctx into a map that can travel inside a
// serialized proxy.
func Inject(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}

	return carrier
}

// Extract restores a span context packed by Inject.
func Extract(ctx context.Context, packed map[string]string) context.Context {
	if len(packed) == 0 {
		return ctx
	}

	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(packed))
}
