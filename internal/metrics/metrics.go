// Package metrics exposes Prometheus collectors for division runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fairrent"

// Metrics implements division.Recorder on top of Prometheus collectors.
type Metrics struct {
	divisions      *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	descentRounds  prometheus.Histogram
	storedDivision prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		divisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "divisions_total",
			Help:      "Division runs by pricing method and outcome.",
		}, []string{"method", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "division_duration_seconds",
			Help:      "Wall time of division runs, including solver calls.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"method"}),
		descentRounds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "descent_rounds",
			Help:      "Rounds taken by second-price descent runs.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55},
		}),
		storedDivision: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_divisions",
			Help:      "Division results currently held in storage.",
		}),
	}
}

// ObserveDivision records one run.
func (m *Metrics) ObserveDivision(method, outcome string, d time.Duration) {
	m.divisions.WithLabelValues(method, outcome).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveDescentRounds records the length of a descent.
func (m *Metrics) ObserveDescentRounds(rounds int) {
	m.descentRounds.Observe(float64(rounds))
}

// SetStored reports the number of stored results.
func (m *Metrics) SetStored(n int) {
	m.storedDivision.Set(float64(n))
}
