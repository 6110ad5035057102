package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SimulatorMetrics contains Prometheus metrics for the reader simulator.
type SimulatorMetrics struct {
	ReadsGenerated     *prometheus.CounterVec
	GenerationFailures *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	ActiveSimulators   prometheus.Gauge
	ReadersGenerated   prometheus.Counter
}

// NewSimulatorMetrics creates and registers simulator metrics.
func NewSimulatorMetrics(namespace string) *SimulatorMetrics {
	m := &SimulatorMetrics{
		ReadsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "reads_generated_total",
				Help:      "Total number of synthetic tag reads generated",
			},
			[]string{"status"},
		),
		GenerationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "generation_failures_total",
				Help:      "Total number of failed read generations",
			},
			[]string{"reason"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "generation_duration_seconds",
				Help:      "Duration of read generation and publish",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		ActiveSimulators: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "active_simulators",
				Help:      "Number of running simulator instances",
			},
		),
		ReadersGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "readers_generated_total",
				Help:      "Total number of synthetic readers created",
			},
		),
	}

	MustRegister(
		m.ReadsGenerated,
		m.GenerationFailures,
		m.GenerationDuration,
		m.ActiveSimulators,
		m.ReadersGenerated,
	)

	return m
}
