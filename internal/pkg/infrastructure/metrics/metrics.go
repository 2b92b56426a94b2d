package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "asset_telemetry_"

	resultValid   = "valid"
	resultInvalid = "invalid"

	kindError   = "error"
	kindWarning = "warning"
)

// Metrics is nil safe, a nil *Metrics records nothing.
type Metrics struct {
	validatedEvents    *prometheus.CounterVec
	validationFindings *prometheus.CounterVec
	ingestTotal        *prometheus.CounterVec
	ingestLatency      *prometheus.HistogramVec
	gatherer           prometheus.Gatherer
}

// New registers the service metrics with reg. Use prometheus.NewRegistry()
// in tests to keep them isolated.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		validatedEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "validated_events_total",
				Help: "Total validated telemetry events by result",
			},
			[]string{"result"},
		),
		validationFindings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "validation_findings_total",
				Help: "Total validation errors and warnings reported",
			},
			[]string{"kind"},
		),
		ingestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_events_total",
				Help: "Total ingest payloads by resulting status",
			},
			[]string{"status"},
		),
		ingestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest processing latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{m.validatedEvents, m.validationFindings, m.ingestTotal, m.ingestLatency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) ObserveValidation(valid bool, errors, warnings int) {
	if m == nil {
		return
	}

	result := resultValid
	if !valid {
		result = resultInvalid
	}

	m.validatedEvents.WithLabelValues(result).Inc()
	m.validationFindings.WithLabelValues(kindError).Add(float64(errors))
	m.validationFindings.WithLabelValues(kindWarning).Add(float64(warnings))
}

func (m *Metrics) ObserveIngest(status string, started time.Time) {
	if m == nil {
		return
	}

	m.ingestTotal.WithLabelValues(status).Inc()
	m.ingestLatency.WithLabelValues(status).Observe(time.Since(started).Seconds())
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
