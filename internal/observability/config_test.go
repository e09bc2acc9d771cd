package observability

import (
	"testing"

	"github.com/smallbiznis/fieldbook/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigMapsTelemetry(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppVersion:  "1.2.0",
		Environment: "production",
		Telemetry: config.TelemetryConfig{
			LogLevel:      "warn",
			LogFormat:     "console",
			OtelEnabled:   true,
			OTLPEndpoint:  "collector:4317",
			OTLPProtocol:  "grpc",
			SamplingRatio: 3,
		},
	})

	assert.Equal(t, "fieldbook", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{Environment: "development"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "DEBUG"}.Debug())
	assert.False(t, Config{Environment: "staging", LogLevel: "info"}.Debug())
}

func TestComponentConfigs(t *testing.T) {
	cfg := Config{
		ServiceName:          "fieldbook",
		Environment:          "local",
		OtelEnabled:          true,
		OtelExporterEndpoint: "collector:4318",
		OtelExporterProtocol: "http",
		OtelSamplingRatio:    0.5,
	}

	logCfg := cfg.Logger()
	assert.True(t, logCfg.Debug)
	assert.True(t, logCfg.IncludeStackOnError)

	traceCfg := cfg.Tracing()
	assert.True(t, traceCfg.Enabled)
	assert.Equal(t, "collector:4318", traceCfg.Exporter.Address)
	assert.Equal(t, 0.5, traceCfg.SamplingRatio)

	assert.Equal(t, traceCfg.Exporter, cfg.Metrics().Exporter)
}
