package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	BatchesReceived *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	ItemsTracked    prometheus.Gauge
	ScansFinished   *prometheus.CounterVec
}

// New registers every collector of the service
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invexis_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invexis_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		BatchesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invexis_batches_received_total",
				Help: "Batches committed to the ledger",
			},
			[]string{"source"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invexis_ledger_rejections_total",
				Help: "Ledger operations declined, by reason",
			},
			[]string{"operation", "reason"},
		),
		ItemsTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "invexis_items_tracked",
				Help: "Number of stock items in the ledger",
			},
		),
		ScansFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invexis_bill_scans_finished_total",
				Help: "Bill scans that finished, by final state",
			},
			[]string{"state"},
		),
	}

	m.registry.MustRegister(
		m.RequestCounter,
		m.RequestLatency,
		m.BatchesReceived,
		m.Rejections,
		m.ItemsTracked,
		m.ScansFinished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
