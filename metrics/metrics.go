// Package metrics holds the Prometheus collectors of the converter and the
// HTTP server. Collectors register with the default registry on import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// conversionsTotal counts conversions by request type and outcome.
	// Outcomes: "ok", "rejected", "internal", "unknown".
	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "henkan_conversions_total",
		Help: "Total conversions by request type and outcome",
	}, []string{"request_type", "outcome"})

	conversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "henkan_conversion_duration_seconds",
		Help:    "Conversion duration",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"request_type"})

	candidatesPerSegment = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "henkan_candidates_per_segment",
		Help:    "Number of candidates produced for a segment",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
	})

	latticeNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "henkan_lattice_nodes",
		Help:    "Nodes allocated in the lattice of one conversion",
		Buckets: []float64{16, 64, 256, 1024, 4096, 8192, 16384},
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "henkan_http_requests_total",
		Help: "Total HTTP requests by route and status code",
	}, []string{"route", "code"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "henkan_sessions",
		Help: "Conversion sessions held by the server",
	})
)

// ObserveConversion records one finished conversion.
func ObserveConversion(requestType, outcome string, d time.Duration) {
	conversionsTotal.WithLabelValues(requestType, outcome).Inc()
	conversionDuration.WithLabelValues(requestType).Observe(d.Seconds())
}

func ObserveCandidates(n int) {
	candidatesPerSegment.Observe(float64(n))
}

func ObserveLatticeNodes(n int) {
	latticeNodes.Observe(float64(n))
}

// ObserveHTTP records a served request.
func ObserveHTTP(route string, code int) {
	httpRequestsTotal.WithLabelValues(route, statusLabel(code)).Inc()
}

func SetSessions(n int) {
	activeSessions.Set(float64(n))
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}
