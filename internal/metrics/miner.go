// Package metrics exposes Prometheus instrumentation for nonce searches.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/screa/nonce-miner/pkg/types"
)

var (
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nonce_miner",
		Subsystem: "search",
		Name:      "total",
		Help:      "Count of finished searches by outcome.",
	}, []string{"algorithm", "outcome"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nonce_miner",
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "Duration of a search from start to terminal state.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 12), // 1ms..~70min
	}, []string{"algorithm", "outcome"})

	hashesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nonce_miner",
		Subsystem: "search",
		Name:      "hashes_total",
		Help:      "Count of candidate digests computed.",
	}, []string{"algorithm"})

	prefixLength = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nonce_miner",
		Subsystem: "search",
		Name:      "prefix_length",
		Help:      "Target prefix length in hex characters per search.",
		Buckets:   prometheus.LinearBuckets(1, 1, 16),
	}, []string{"algorithm"})
)

// Miner records search metrics for one hash algorithm.
type Miner struct {
	algorithm string
}

func NewMiner(algorithm string) *Miner {
	if algorithm == "" {
		algorithm = "unknown"
	}
	return &Miner{algorithm: algorithm}
}

// ObserveHashes adds n computed digests.
func (m Miner) ObserveHashes(n uint64) {
	hashesTotal.WithLabelValues(m.algorithm).Add(float64(n))
}

// ObserveSearch records a finished search.
func (m Miner) ObserveSearch(err error, prefix string, started time.Time) {
	outcome := types.OutcomeOf(err).String()
	searchTotal.WithLabelValues(m.algorithm, outcome).Inc()
	searchDuration.WithLabelValues(m.algorithm, outcome).Observe(time.Since(started).Seconds())
	prefixLength.WithLabelValues(m.algorithm).Observe(float64(len(prefix)))
}
