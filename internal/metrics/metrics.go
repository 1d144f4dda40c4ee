// Package metrics defines the proxy's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "translation_proxy"

type Metrics struct {
	Requests        *prometheus.CounterVec
	DictionaryHits  prometheus.Counter
	ProviderItems   prometheus.Counter
	ProviderLatency prometheus.Histogram
	Refinements     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests use to avoid global state.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Translation requests by outcome.",
		}, []string{"outcome"}),
		DictionaryHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dictionary_hits_total",
			Help:      "Items resolved by the abbreviation dictionary.",
		}),
		ProviderItems: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_items_total",
			Help:      "Items sent to the translation provider.",
		}),
		ProviderLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_duration_seconds",
			Help:      "Latency of translation provider calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		Refinements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refinements_total",
			Help:      "Refinement attempts by status.",
		}, []string{"status"}),
	}
}
