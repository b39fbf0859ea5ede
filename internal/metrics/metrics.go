// Package metrics exposes attempt statistics to prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/turtle/internal/ir"
)

// Collector counts attempts by level and tier. It is both an attempt
// report sink and a run observer for sessions.
type Collector struct {
	registry *prometheus.Registry

	attempts   *prometheus.CounterVec
	successes  *prometheus.CounterVec
	overruns   *prometheus.CounterVec
	ticks      *prometheus.HistogramVec
	elapsedSec *prometheus.HistogramVec
}

// New creates a collector registered on its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtle_attempts_total",
				Help: "Graded attempts by level and outcome tier",
			},
			[]string{"level", "tier"},
		),
		successes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtle_level_completions_total",
				Help: "Attempts that completed their level",
			},
			[]string{"level"},
		),
		overruns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtle_budget_exceeded_total",
				Help: "Runs stopped by the tick budget",
			},
			[]string{"level"},
		),
		ticks: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turtle_run_ticks",
				Help:    "Interpreter ticks used per run",
				Buckets: prometheus.ExponentialBuckets(10, 10, 6),
			},
			[]string{"level"},
		),
		elapsedSec: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turtle_attempt_elapsed_seconds",
				Help:    "Session time at each attempt",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"level"},
		),
	}
	c.registry.MustRegister(c.attempts, c.successes, c.overruns, c.ticks, c.elapsedSec)
	return c
}

// Report records one attempt report.
func (c *Collector) Report(_ context.Context, r ir.Report) error {
	c.attempts.WithLabelValues(r.LevelID, r.Tier.String()).Inc()
	if r.Succeeded {
		c.successes.WithLabelValues(r.LevelID).Inc()
	}
	c.elapsedSec.WithLabelValues(r.LevelID).Observe(float64(r.ElapsedMs) / 1000)
	return nil
}

// ObserveRun records interpreter statistics for one run.
func (c *Collector) ObserveRun(levelID string, _ ir.Tier, ticks int, budgetExceeded bool) {
	c.ticks.WithLabelValues(levelID).Observe(float64(ticks))
	if budgetExceeded {
		c.overruns.WithLabelValues(levelID).Inc()
	}
}

// Registry returns the registry the collectors live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
