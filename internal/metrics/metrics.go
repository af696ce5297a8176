// Package metrics wires prometheus instrumentation for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registration outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeDuplicate = "duplicate"
	OutcomeTierMiss  = "tier_not_found"
	OutcomeNotFound  = "event_not_found"
	OutcomeConflict  = "conflict_exhausted"
	OutcomeError     = "error"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	Registrations *prometheus.CounterVec
	LikeToggles   *prometheus.CounterVec
	TxReruns      prometheus.Counter
	HTTPDuration  *prometheus.HistogramVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventpulse",
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		LikeToggles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventpulse",
			Name:      "like_toggles_total",
			Help:      "Like toggles by resulting action.",
		}, []string{"action"}),
		TxReruns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "eventpulse",
			Name:      "docstore_tx_reruns_total",
			Help:      "Document store transaction reruns after conflicts.",
		}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventpulse",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler exposes the registry for scraping.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
