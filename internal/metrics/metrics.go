package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "facemock"

var (
	RecognitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recognition",
		Name:      "requests_total",
		Help:      "Fabricated recognition results served, by mode and route",
	}, []string{"mode", "route"})

	ConfidenceHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "recognition",
		Name:      "confidence",
		Help:      "Distribution of fabricated confidence scores",
		Buckets:   prometheus.LinearBuckets(0.75, 0.025, 10),
	})

	RejectedUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rejected_uploads_total",
		Help:      "Uploads rejected before recognition, by reason",
	}, []string{"reason"})

	HistoryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "history",
		Name:      "failures_total",
		Help:      "Best-effort history writes that failed, by operation",
	}, []string{"operation"})
)

// ObserveRecognition records one served result.
func ObserveRecognition(mode, route string, confidence float64) {
	RecognitionsTotal.WithLabelValues(mode, route).Inc()
	ConfidenceHistogram.Observe(confidence)
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
