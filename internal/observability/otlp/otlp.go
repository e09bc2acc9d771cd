// Package otlp builds the OTLP exporters that ship traces and metrics to the collector.
package otlp

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Transport string

const (
	GRPC Transport = "grpc"
	HTTP Transport = "http"
)

// Endpoint is the collector address. An empty Address lets the exporter
// fall back to the OTEL_EXPORTER_OTLP_* environment or its own default.
type Endpoint struct {
	Address  string
	Protocol string
}

// Transport resolves Protocol. Empty means gRPC.
func (e Endpoint) Transport() (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(e.Protocol)) {
	case "", "grpc", "grpc/protobuf":
		return GRPC, nil
	case "http", "http/protobuf":
		return HTTP, nil
	default:
		return "", fmt.Errorf("unsupported OTLP protocol %q", e.Protocol)
	}
}

// TraceExporter dials the collector without TLS.
func TraceExporter(ctx context.Context, e Endpoint) (sdktrace.SpanExporter, error) {
	transport, err := e.Transport()
	if err != nil {
		return nil, err
	}
	if transport == HTTP {
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if e.Address != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(e.Address))
		}
		return otlptracehttp.New(ctx, opts...)
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
	if e.Address != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(e.Address))
	}
	return otlptracegrpc.New(ctx, opts...)
}

// MetricExporter dials the collector without TLS.
func MetricExporter(ctx context.Context, e Endpoint) (sdkmetric.Exporter, error) {
	transport, err := e.Transport()
	if err != nil {
		return nil, err
	}
	if transport == HTTP {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if e.Address != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(e.Address))
		}
		return otlpmetrichttp.New(ctx, opts...)
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
	if e.Address != "" {
		opts = append(opts, otlpmetricgrpc.WithEndpoint(e.Address))
	}
	return otlpmetricgrpc.New(ctx, opts...)
}
