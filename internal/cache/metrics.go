package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Discovery cache lookup results
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultExpired = "expired"
	ResultError   = "error"
)

var (
	discoveryCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scopegraph_discovery_cache_requests_total",
			Help: "Discovery cache lookups by result (hit, miss, expired, error)",
		},
		[]string{"result"},
	)

	discoveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scopegraph_discovery_duration_seconds",
			Help:    "Time spent assembling one entity configuration by discovery",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

// ObserveDiscovery records the duration of one discovery run
func ObserveDiscovery(d time.Duration) {
	discoveryDuration.Observe(d.Seconds())
}
