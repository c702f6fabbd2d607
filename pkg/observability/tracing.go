package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ajitpratap0/nebula-migrate"

// Tracer returns the tracer used by the engine and connectors
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span with the given attributes
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span, sets its status and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// ConnectorAttributes returns the standard attributes for a connector call
func ConnectorAttributes(connectorType, connectorName, object string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("connector.type", connectorType),
		attribute.String("connector.name", connectorName),
	}
	if object != "" {
		attrs = append(attrs, attribute.String("connector.object", object))
	}
	return attrs
}
