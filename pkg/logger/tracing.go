package logger

import (
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InitTracing installs an SDK tracer provider as the otel global so spans
// carry real trace/span ids for FromCtx. No exporter is attached; callers
// Shutdown the provider on exit.
func InitTracing(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp
}
