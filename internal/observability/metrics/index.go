package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IndexMetrics tracks knowledge index reloads triggered by rebuild events.
type IndexMetrics struct {
	reloadTotal    *prometheus.CounterVec
	reloadDuration prometheus.Histogram
	documents      prometheus.Gauge
}

func NewIndexMetrics(registerer prometheus.Registerer, service string) *IndexMetrics {
	reloadTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "reloads_total",
			Help:      "Total knowledge index reloads by status.",
		},
		[]string{"service", "status"},
	)
	reloadDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "index",
			Name:        "reload_duration_seconds",
			Help:        "Knowledge index reload duration in seconds.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	documents := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "index",
			Name:        "documents",
			Help:        "Number of documents in the active knowledge index.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	registerer.MustRegister(reloadTotal, reloadDuration, documents)

	return &IndexMetrics{
		reloadTotal:    reloadTotal,
		reloadDuration: reloadDuration,
		documents:      documents,
	}
}

func (m *IndexMetrics) SetDocuments(count int) {
	m.documents.Set(float64(count))
}

// FinishReload records one reload. The document gauge only moves on success.
func (m *IndexMetrics) FinishReload(service string, duration time.Duration, documents int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.reloadTotal.WithLabelValues(service, status).Inc()
	m.reloadDuration.Observe(duration.Seconds())
	if err == nil {
		m.documents.Set(float64(documents))
	}
}
