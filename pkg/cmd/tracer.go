// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"

	"github.com/dukex/careflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/trace"
)

// NewTracer returns the OTLP tracer when enabled and a no-op tracer otherwise.
//
// nolint:ireturn
func NewTracer(ctx context.Context, enabled bool, serviceName string) (trace.Tracer, otelhelper.ShutdownFunc, error) {
	if !enabled {
		return otelhelper.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	tracer, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	return tracer, shutdown, nil
}
