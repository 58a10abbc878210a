package orchestrator

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the conversation core.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal       *prometheus.CounterVec
	AutoRepliesTotal *prometheus.CounterVec
	GatewayDuration  *prometheus.HistogramVec
}

// NewMetrics creates and registers the metric set.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "omnitalk"
	}
	registry := prometheus.NewRegistry()

	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Committed and failed conversation turns",
		},
		[]string{"sender", "kind", "status"},
	)
	autoRepliesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autoreplies_total",
			Help:      "Avatar auto-reply attempts",
		},
		[]string{"status"},
	)
	gatewayDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_duration_seconds",
			Help:      "Gateway call latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"call"},
	)

	registry.MustRegister(turnsTotal, autoRepliesTotal, gatewayDuration)
	return &Metrics{
		registry:         registry,
		TurnsTotal:       turnsTotal,
		AutoRepliesTotal: autoRepliesTotal,
		GatewayDuration:  gatewayDuration,
	}
}

// Handler exposes the metrics for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
