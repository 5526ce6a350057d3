package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers credit decisions and bulk imports. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	// Decision outcomes by operation and outcome
	DecisionOutcome *prometheus.CounterVec

	DecisionLatency *prometheus.HistogramVec

	// Score cache lookups by result: "hit", "miss"
	ScoreCache *prometheus.CounterVec

	// Imported rows by import type and item status
	ImportRows *prometheus.CounterVec

	ImportDuration *prometheus.HistogramVec
}

// New registers every metric on reg. Passing nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		DecisionOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "creditdesk_decision_outcomes_total",
			Help: "Credit decisions by operation and outcome",
		}, []string{"operation", "outcome"}), // operation: "eligibility", "create"

		DecisionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "creditdesk_decision_duration_seconds",
			Help:    "Duration of a credit decision including store reads",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),

		ScoreCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "creditdesk_score_cache_total",
			Help: "Score cache lookups by result",
		}, []string{"result"}),

		ImportRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "creditdesk_import_rows_total",
			Help: "Imported rows by import type and status",
		}, []string{"type", "status"}),

		ImportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "creditdesk_import_duration_seconds",
			Help:    "Duration of a whole import run",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"type"}),
	}
}

func (m *Metrics) IncrementOutcome(operation, outcome string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(operation, outcome).Inc()
	}
}

func (m *Metrics) ObserveDecisionLatency(operation string, d time.Duration) {
	if m != nil {
		m.DecisionLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (m *Metrics) ScoreCacheResult(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ScoreCache.WithLabelValues(result).Inc()
}

func (m *Metrics) AddImportRows(importType, status string, n int) {
	if m != nil && n > 0 {
		m.ImportRows.WithLabelValues(importType, status).Add(float64(n))
	}
}

func (m *Metrics) ObserveImportDuration(importType string, d time.Duration) {
	if m != nil {
		m.ImportDuration.WithLabelValues(importType).Observe(d.Seconds())
	}
}
