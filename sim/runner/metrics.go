package runner

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/market-sim/market-sim/sim"
)

// Metrics are the runner's Prometheus collectors. Each Metrics owns its
// registry so concurrent batches and tests do not share counters.
type Metrics struct {
	Registry *prometheus.Registry

	// Repetitions counts finished repetitions by outcome (ok, failed).
	Repetitions *prometheus.CounterVec
	// EventsProcessed counts events executed across all repetitions.
	EventsProcessed prometheus.Counter
	// Subtasks counts verified subtasks by provider behaviour and verdict.
	Subtasks *prometheus.CounterVec
	// RepetitionSeconds observes the wall-clock time of each repetition.
	RepetitionSeconds prometheus.Histogram
}

// NewMetrics creates and registers the runner collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Repetitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketsim_repetitions_total",
				Help: "Total number of repetitions run, by outcome",
			},
			[]string{"outcome"},
		),
		EventsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "marketsim_events_processed_total",
				Help: "Total number of simulation events executed",
			},
		),
		Subtasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketsim_subtasks_total",
				Help: "Total number of verified subtasks, by provider behaviour and verdict",
			},
			[]string{"behaviour", "verdict"},
		),
		RepetitionSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketsim_repetition_duration_seconds",
				Help:    "Wall-clock duration of one repetition",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
	}
	m.Registry.MustRegister(m.Repetitions, m.EventsProcessed, m.Subtasks, m.RepetitionSeconds)
	return m
}

// WriteToTextfile writes the current metrics in the text exposition format,
// for pickup by a node exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

func (m *Metrics) observe(snap *sim.Snapshot, seconds float64) {
	m.Repetitions.WithLabelValues("ok").Inc()
	m.EventsProcessed.Add(float64(snap.EventsProcessed))
	m.RepetitionSeconds.Observe(seconds)
	for _, p := range snap.Providers {
		m.Subtasks.WithLabelValues(p.Behaviour, sim.Settle.String()).Add(float64(p.SubtasksComputed))
		m.Subtasks.WithLabelValues(p.Behaviour, sim.Cancel.String()).Add(float64(p.SubtasksCancelled))
	}
}

func (m *Metrics) observeFailure() {
	m.Repetitions.WithLabelValues("failed").Inc()
}
