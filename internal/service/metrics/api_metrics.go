package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "futpull",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of bar API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "futpull",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by bar API endpoint",
		},
		[]string{"endpoint"},
	)

	APICacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "futpull",
			Subsystem: "api",
			Name:      "cache_hits_total",
			Help:      "Bar API responses served from cache",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, APICacheHits)
	})
}
