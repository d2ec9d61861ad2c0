// Package observability holds the Prometheus collector and tracing setup
// for simulation runs.
package observability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for the runs counter.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// SimulationCollector exposes simulation engine metrics. A nil collector is
// valid and records nothing.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	ConflictsTotal *prometheus.CounterVec
	BudgetOverruns prometheus.Counter
	CacheLookups   *prometheus.CounterVec
}

// NewSimulationCollector registers the collectors against reg, reusing any
// that are already registered under the same name.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portsim_simulation_runs_total",
		Help: "Simulation runs by outcome and scenario type.",
	}, []string{"outcome", "scenario_type"}), "portsim_simulation_runs_total")
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portsim_simulation_duration_seconds",
		Help:    "End-to-end simulation run latency.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"scenario_type"}), "portsim_simulation_duration_seconds")
	if err != nil {
		return nil, err
	}

	conflicts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portsim_conflicts_detected_total",
		Help: "Conflicts detected in simulated schedules by conflict type.",
	}, []string{"type"}), "portsim_conflicts_detected_total")
	if err != nil {
		return nil, err
	}

	overruns, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portsim_latency_budget_overruns_total",
		Help: "Simulation runs that exceeded the latency budget.",
	}), "portsim_latency_budget_overruns_total")
	if err != nil {
		return nil, err
	}

	cache, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portsim_result_cache_lookups_total",
		Help: "Result cache lookups by result (hit or miss).",
	}, []string{"result"}), "portsim_result_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:       gatherer,
		RunsTotal:      runs,
		RunDuration:    duration,
		ConflictsTotal: conflicts,
		BudgetOverruns: overruns,
		CacheLookups:   cache,
	}, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (c *SimulationCollector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *SimulationCollector) ObserveRun(scenarioType, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.RunsTotal.WithLabelValues(outcome, scenarioType).Inc()
	c.RunDuration.WithLabelValues(scenarioType).Observe(d.Seconds())
}

// AddConflicts adds per-type conflict counts from one run.
func (c *SimulationCollector) AddConflicts(byType map[string]int) {
	if c == nil {
		return
	}
	for t, n := range byType {
		if n > 0 {
			c.ConflictsTotal.WithLabelValues(t).Add(float64(n))
		}
	}
}

func (c *SimulationCollector) IncBudgetOverrun() {
	if c == nil {
		return
	}
	c.BudgetOverruns.Inc()
}

func (c *SimulationCollector) ObserveCacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero C
		return zero, fmt.Errorf("registering %s: %w", name, err)
	}
	return c, nil
}
