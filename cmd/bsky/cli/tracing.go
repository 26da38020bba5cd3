// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/bureau-foundation/atproto/lib/version"
)

// tracingShutdownTimeout bounds the final span flush when a command
// exits.
const tracingShutdownTimeout = 5 * time.Second

// startTracing returns a tracer provider that batches XRPC call spans
// to an OTLP/HTTP collector. endpoint is the full URL, including the
// /v1/traces path.
func startTracing(ctx context.Context, endpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, err
	}
	serviceResource, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("bsky"),
			semconv.ServiceVersion(version.Short()),
		),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(serviceResource),
	), nil
}

// stopTracing flushes and shuts down provider. A nil provider is a
// no-op. Export failures are logged, never returned: a missing
// collector must not fail the command.
func stopTracing(provider *sdktrace.TracerProvider, logger *slog.Logger) {
	if provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
	defer cancel()
	if err := provider.Shutdown(ctx); err != nil {
		logger.Warn("flushing trace spans failed", "error", err)
	}
}
