package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError records err on the span and marks it failed.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}

// SetOutcome marks the span ok and tags it with a terminal outcome such as an execution status.
func SetOutcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("careflow.outcome", outcome))
	span.SetStatus(codes.Ok, outcome)
}
