package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/fieldbook/internal/observability/otlp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// exportInterval is how often OTLP metrics are pushed.
const exportInterval = 10 * time.Second

// Config configures the metrics provider.
type Config struct {
	Enabled     bool
	ServiceName string
	Environment string
	Exporter    otlp.Endpoint
}

// Metrics holds the OTLP-exported business instruments. Request and job
// metrics are scraped by Prometheus instead.
type Metrics struct {
	invoicedAmount metric.Float64Counter
	deliveries     metric.Int64Counter
}

// NewProvider installs the global meter provider. A disabled config installs
// a no-op provider so instruments can always be created.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := otlp.MetricExporter(context.Background(), cfg.Exporter)
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.StopHook(provider.Shutdown))
	}
	if log != nil {
		log.Info("metrics initialized", zap.String("endpoint", cfg.Exporter.Address))
	}
	return provider, nil
}

// New configures the business instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "fieldbook"
	}
	meter := provider.Meter(name)

	invoicedAmount, err := meter.Float64Counter("fieldbook_invoiced_amount_total",
		metric.WithDescription("Invoice totals issued, by source document type."))
	if err != nil {
		return nil, err
	}
	deliveries, err := meter.Int64Counter("fieldbook_document_deliveries_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		invoicedAmount: invoicedAmount,
		deliveries:     deliveries,
	}, nil
}

// RecordInvoiced adds an invoice total. sourceType is "direct" for invoices created by hand.
func (m *Metrics) RecordInvoiced(ctx context.Context, sourceType string, amount float64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source_type", strings.TrimSpace(sourceType)))
	m.invoicedAmount.Add(ctx, amount, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordDelivery(ctx context.Context, documentType, channel, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("document_type", strings.TrimSpace(documentType)),
		attribute.String("channel", strings.TrimSpace(channel)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.deliveries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"document_type": {},
	"source_type":   {},
	"channel":       {},
	"outcome":       {},
	"status_code":   {},
	"route":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
