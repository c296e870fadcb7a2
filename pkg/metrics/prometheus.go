package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	units        *prometheus.CounterVec
	ticksRevised *prometheus.CounterVec
	barsSaved    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New registers the collectors on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		units: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futpull_units_total",
				Help: "Contract/date units processed, by outcome",
			},
			[]string{"status"},
		),
		ticksRevised: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futpull_ticks_revised_total",
				Help: "Ticks snapped to a zone boundary or dropped outside the session",
			},
			[]string{"action"},
		),
		barsSaved: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futpull_bars_saved_total",
				Help: "Minute bars written, by sink",
			},
			[]string{"sink"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "futpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordUnit(status string) {
	r.units.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordTicks(snapped, dropped int) {
	r.ticksRevised.WithLabelValues("snapped").Add(float64(snapped))
	r.ticksRevised.WithLabelValues("dropped").Add(float64(dropped))
}

func (r *Recorder) RecordBars(sink string, n int) {
	r.barsSaved.WithLabelValues(sink).Add(float64(n))
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
