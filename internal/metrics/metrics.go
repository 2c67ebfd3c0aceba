// Package metrics exposes Prometheus metrics for the highscore service
package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/alexbotov/highscore/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes
const (
	OutcomeAccepted = "accepted"
	OutcomeKept     = "kept"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Metrics holds the service collectors and the registry they live in
type Metrics struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	best        *prometheus.GaugeVec

	mu        sync.Mutex
	published map[string]int64
}

// New creates a registry with process, Go runtime and service collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry:  reg,
		published: make(map[string]int64),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "highscore",
			Name:      "submissions_total",
			Help:      "Score submissions by outcome.",
		}, []string{"outcome"}),
		best: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "highscore",
			Name:      "best",
			Help:      "Current best score per team.",
		}, []string{"team"}),
	}
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		m.submissions,
		m.best,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSubmission counts a submission outcome
func (m *Metrics) ObserveSubmission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

// SetBest records the current best for a team. The gauge only moves up;
// a value at or below the last one published is ignored.
func (m *Metrics) SetBest(team string, best int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.published[team]; ok && best <= last {
		return
	}
	m.published[team] = best
	m.best.WithLabelValues(team).Set(float64(best))
}

// HighscoreUpdated implements highscore.Notifier
func (m *Metrics) HighscoreUpdated(_ context.Context, event domain.HighscoreEvent) {
	m.SetBest(event.Record.Team, event.Record.Best)
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
