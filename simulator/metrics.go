package simulator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the prometheus metrics for simulation runs
type Metrics struct {
	Rounds        prometheus.Counter
	SkippedRounds prometheus.Counter
	PairRepeats   prometheus.Counter
	Runs          prometheus.Counter
}

// NewMetrics creates and registers the simulation metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_rounds_total",
			Help: "Simulated rounds with a full pick",
		}),
		SkippedRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_skipped_rounds_total",
			Help: "Simulated rounds where the picker came back short",
		}),
		PairRepeats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_pair_repeats_total",
			Help: "Imposter pairs repeated within the pair window",
		}),
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_runs_total",
			Help: "Completed simulation runs",
		}),
	}

	reg.MustRegister(
		m.Rounds,
		m.SkippedRounds,
		m.PairRepeats,
		m.Runs,
	)

	return m
}
