// metrics.go - Prometheus metrics for the wallet node.
package node

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry

	submissions  *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	rateLimited  prometheus.Counter
	proofSeconds prometheus.Histogram
	proofsTotal  prometheus.Counter
	mismatches   prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletd_blob_submissions_total",
			Help: "Blobs submitted, by transition kind.",
		}, []string{"kind"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletd_transition_outcomes_total",
			Help: "Transition outcomes, by failure kind (none = success).",
		}, []string{"failure"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walletd_rate_limited_total",
			Help: "Submissions rejected by the per-identity rate limiter.",
		}),
		proofSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "walletd_proof_generation_seconds",
			Help:    "Wall time to prove one accepted transition.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		proofsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walletd_proofs_total",
			Help: "Transitions proved and verified.",
		}),
		mismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walletd_journal_mismatches_total",
			Help: "Proving-path journals that diverged from the fast path.",
		}),
	}
	m.registry.MustRegister(
		m.submissions, m.outcomes, m.rateLimited,
		m.proofSeconds, m.proofsTotal, m.mismatches,
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
