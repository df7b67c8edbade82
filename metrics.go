package main

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"classmix/solver"
)

type metrics struct {
	runs      *prometheus.CounterVec
	moves     *prometheus.CounterVec
	conflicts *prometheus.GaugeVec
	objective *prometheus.GaugeVec
	duration  prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classmix_runs_total",
			Help: "Balancing runs by termination.",
		}, []string{"termination"}),
		moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classmix_moves_total",
			Help: "Applied moves by kind.",
		}, []string{"kind"}),
		conflicts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "classmix_residual_conflicts",
			Help: "Co-located dissociation pairs left by the last run of a cohort.",
		}, []string{"cohort"}),
		objective: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "classmix_objective",
			Help: "Objective after the last run of a cohort.",
		}, []string{"cohort"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "classmix_run_duration_seconds",
			Help:    "Wall time of a balancing run.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
	reg.MustRegister(m.runs, m.moves, m.conflicts, m.objective, m.duration)
	return m
}

func (m *metrics) observe(cohortID int64, sum *solver.Summary, elapsed time.Duration) {
	m.runs.WithLabelValues(sum.Termination.String()).Inc()
	for _, mv := range sum.Moves {
		m.moves.WithLabelValues(mv.Kind.String()).Inc()
	}
	pairs := 0
	for _, c := range sum.Conflicts {
		pairs += c.Pairs
	}
	cohort := strconv.FormatInt(cohortID, 10)
	m.conflicts.WithLabelValues(cohort).Set(float64(pairs))
	m.objective.WithLabelValues(cohort).Set(sum.ObjectiveAfter)
	m.duration.Observe(elapsed.Seconds())
}

func (m *metrics) forget(cohortID int64) {
	cohort := strconv.FormatInt(cohortID, 10)
	m.conflicts.DeleteLabelValues(cohort)
	m.objective.DeleteLabelValues(cohort)
}
