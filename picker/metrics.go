package picker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the prometheus metrics for the picker
type Metrics struct {
	Picks       prometheus.Counter
	ShortPicks  prometheus.Counter
	Relaxations *prometheus.CounterVec
	Exclusions  *prometheus.CounterVec

	PickDuration prometheus.Histogram
	PickSize     prometheus.Histogram
}

// NewMetrics creates and registers the picker metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Picks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picker_picks_total",
			Help: "Total number of imposter picks",
		}),
		ShortPicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picker_short_picks_total",
			Help: "Picks that returned fewer imposters than desired",
		}),
		Relaxations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picker_relaxations_total",
				Help: "Picks that needed to relax soft penalties, by final level",
			},
			[]string{"level"},
		),
		Exclusions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picker_hard_exclusions_total",
				Help: "Players hard-excluded from a pick, by reason",
			},
			[]string{"reason"},
		),
		PickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "picker_pick_duration_seconds",
			Help:    "Time spent in a single pick",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		PickSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "picker_pick_size",
			Help:    "Number of imposters returned per pick",
			Buckets: prometheus.LinearBuckets(0, 1, 8),
		}),
	}

	reg.MustRegister(
		m.Picks,
		m.ShortPicks,
		m.Relaxations,
		m.Exclusions,
		m.PickDuration,
		m.PickSize,
	)

	return m
}

// TrackSelection records the outcome of a pick
func (m *Metrics) TrackSelection(sel Selection, duration float64) {
	m.Picks.Inc()
	m.PickDuration.Observe(duration)
	m.PickSize.Observe(float64(len(sel.Players)))

	if sel.Short() {
		m.ShortPicks.Inc()
	}
	if sel.Relaxation != RelaxNone {
		m.Relaxations.WithLabelValues(sel.Relaxation.String()).Inc()
	}
	for _, reason := range sel.Excluded {
		m.Exclusions.WithLabelValues(string(reason)).Inc()
	}
}
