package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationsTotal prometheus.Counter
	repairsTotal     *prometheus.CounterVec
	bestFitness      prometheus.Gauge
	unservedCells    prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, *prometheus.CounterVec, prometheus.Gauge, prometheus.Gauge) {
	gen := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_generations_total",
			Help: "Number of generations evaluated by the genetic scheduler",
		},
	)
	rep := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_repairs_total",
			Help: "Number of chromosomes repaired after an operator broke a ceiling",
		},
		[]string{"operator"},
	)
	best := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_best_fitness",
			Help: "Fitness of the best chromosome of the last run",
		},
	)
	uns := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_unserved_cells",
			Help: "Unserved cells in the best chromosome of the last run",
		},
	)
	return gen, rep, best, uns
}

func init() {
	generationsTotal, repairsTotal, bestFitness, unservedCells = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers scheduler metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(generationsTotal, repairsTotal, bestFitness, unservedCells)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	generationsTotal, repairsTotal, bestFitness, unservedCells = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
