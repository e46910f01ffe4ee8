package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// positiveIntBuckets overrides the default Prometheus buckets for the
// positive-integer-valued histograms below (spec.md §6): using the
// wrong buckets silently clips the collected histogram.
var positiveIntBuckets = []float64{
	1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 20000, 50000,
}

// Metrics is the aggregator's Prometheus surface (spec.md §6). Handles
// are cheaply cloned into every AuthorityAggregator; all increments
// are single observations from the calling goroutine.
type Metrics struct {
	TotalTxCertificatesCreated prometheus.Counter
	NumSignaturesPerTx         prometheus.Histogram
	NumGoodStakePerTx          prometheus.Histogram
	NumBadStakePerTx           prometheus.Histogram
}

// NewMetrics registers the aggregator's metrics against reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		TotalTxCertificatesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "total_tx_certificates_created",
			Help: "Total number of certificates made in the authority aggregator",
		}),
		NumSignaturesPerTx: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "num_signatures_per_tx",
			Help:    "Number of signatures collected per transaction",
			Buckets: positiveIntBuckets,
		}),
		NumGoodStakePerTx: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "num_good_stake_per_tx",
			Help:    "Amount of good stake collected per transaction",
			Buckets: positiveIntBuckets,
		}),
		NumBadStakePerTx: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "num_bad_stake_per_tx",
			Help:    "Amount of bad stake collected per transaction",
			Buckets: positiveIntBuckets,
		}),
	}
	for _, c := range []prometheus.Collector{
		m.TotalTxCertificatesCreated,
		m.NumSignaturesPerTx,
		m.NumGoodStakePerTx,
		m.NumBadStakePerTx,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewMetricsForTesting registers the aggregator's metrics against a
// fresh, private registry - for use in tests that construct many
// aggregators and would otherwise collide on metric names.
func NewMetricsForTesting() *Metrics {
	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		panic(err) // a fresh registry cannot fail to register
	}
	return m
}
