package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches     *prometheus.CounterVec
	tallies     *prometheus.CounterVec
	points      prometheus.Counter
	lastPrice   *prometheus.GaugeVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hourcast_feed_fetches_total",
				Help: "Total price feed fetch attempts by outcome",
			},
			[]string{"outcome"},
		),
		tallies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hourcast_tally_entries_total",
				Help: "Total daily tally entry outcomes",
			},
			[]string{"outcome"},
		),
		points: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hourcast_points_awarded_total",
				Help: "Total points awarded across all tallies",
			},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hourcast_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hourcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hourcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFetch records a price feed fetch outcome.
func (r *Recorder) RecordFetch(outcome string) {
	r.fetches.WithLabelValues(outcome).Inc()
}

// RecordTally records a tally entry outcome.
func (r *Recorder) RecordTally(outcome string) {
	r.tallies.WithLabelValues(outcome).Inc()
}

// RecordPoints adds awarded points to the running total.
func (r *Recorder) RecordPoints(points int) {
	if points > 0 {
		r.points.Add(float64(points))
	}
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
