package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// DocumentMetrics tracks document lifecycle signals in Prometheus.
type DocumentMetrics struct {
	created          *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	conversions      *prometheus.CounterVec
	conversionErrors *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
	overdueMarked    prometheus.Counter
}

// NewDocumentMetrics registers document metrics on the default registerer.
func NewDocumentMetrics(cfg Config) *DocumentMetrics {
	return newDocumentMetrics(prometheus.DefaultRegisterer, cfg)
}

func newDocumentMetrics(registerer prometheus.Registerer, cfg Config) *DocumentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := labels(cfg)

	m := &DocumentMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fieldbook_documents_created_total",
			Help:        "Documents created by type.",
			ConstLabels: constLabels,
		}, []string{"document_type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fieldbook_document_transitions_total",
			Help:        "Accepted status transitions by type.",
			ConstLabels: constLabels,
		}, []string{"document_type", "from", "to"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fieldbook_conversions_total",
			Help:        "Invoices generated from other documents.",
			ConstLabels: constLabels,
		}, []string{"source_type"}),
		conversionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fieldbook_conversion_errors_total",
			Help:        "Rejected conversions by reason.",
			ConstLabels: constLabels,
		}, []string{"source_type", "reason"}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fieldbook_delivery_failures_total",
			Help:        "Failed PDF renders or email sends.",
			ConstLabels: constLabels,
		}, []string{"document_type", "stage"}),
		overdueMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "fieldbook_invoices_marked_overdue_total",
			Help:        "Invoices moved to overdue by the sweep.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.created,
		m.transitions,
		m.conversions,
		m.conversionErrors,
		m.deliveryFailures,
		m.overdueMarked,
	)
	return m
}

func (m *DocumentMetrics) IncCreated(documentType string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(documentType).Inc()
}

func (m *DocumentMetrics) IncTransition(documentType, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(documentType, from, to).Inc()
}

func (m *DocumentMetrics) IncConversion(sourceType string) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(sourceType).Inc()
}

// IncConversionError records a rejected conversion. reason must be a low-cardinality code.
func (m *DocumentMetrics) IncConversionError(sourceType, reason string) {
	if m == nil {
		return
	}
	m.conversionErrors.WithLabelValues(sourceType, reason).Inc()
}

func (m *DocumentMetrics) IncDeliveryFailure(documentType, stage string) {
	if m == nil {
		return
	}
	m.deliveryFailures.WithLabelValues(documentType, stage).Inc()
}

func (m *DocumentMetrics) AddOverdue(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.overdueMarked.Add(float64(n))
}

// ErrorReason reduces an error to its leading sentinel code, e.g. "already_converted".
func ErrorReason(err error) string {
	if err == nil {
		return ""
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	reason := err.Error()
	if idx := strings.IndexAny(reason, " :"); idx > 0 {
		reason = reason[:idx]
	}
	if len(reason) > 40 {
		return "unknown"
	}
	return reason
}

func labels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "fieldbook"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}
