package observability

import (
	"github.com/smallbiznis/fieldbook/internal/observability/logger"
	"github.com/smallbiznis/fieldbook/internal/observability/metrics"
	"github.com/smallbiznis/fieldbook/internal/observability/otlp"
	"github.com/smallbiznis/fieldbook/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewDocumentMetrics,
		metrics.NewHTTPMetrics,
		metrics.NewSchedulerMetrics,
	),
	// The tracer provider installs the global propagator; nothing else asks for it.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

// Logger keeps callers and error stacks in debug setups only.
func (c Config) Logger() logger.Config {
	debug := c.Debug()
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               debug,
		IncludeCaller:       true,
		IncludeStackOnError: debug,
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:        c.OtelEnabled,
		ServiceName:    c.ServiceName,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Exporter:       c.exporter(),
		SamplingRatio:  c.OtelSamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:     c.OtelEnabled,
		ServiceName: c.ServiceName,
		Environment: c.Environment,
		Exporter:    c.exporter(),
	}
}

func (c Config) exporter() otlp.Endpoint {
	return otlp.Endpoint{Address: c.OtelExporterEndpoint, Protocol: c.OtelExporterProtocol}
}
