// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

// Package metrics exposes Prometheus instrumentation for the research
// pipeline: summarization unit outcomes during gathering and answer
// synthesis calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Unit outcome labels for gather units.
const (
	UnitOutcomeKept     = "kept"
	UnitOutcomeFiltered = "filtered"
	UnitOutcomeFailed   = "failed"
	UnitOutcomeSkipped  = "skipped"
)

// PipelineMetrics instruments gather and answer operations.
type PipelineMetrics struct {
	registry *prometheus.Registry

	gatherUnitsTotal *prometheus.CounterVec
	gatherDuration   prometheus.Histogram
	unitsInFlight    prometheus.Gauge
	answerTotal      *prometheus.CounterVec
	tokensTotal      *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers the pipeline collectors on a
// private registry.
func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	gatherUnitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeseek",
			Subsystem: "gather",
			Name:      "units_total",
			Help:      "Summarization units by outcome.",
		},
		[]string{"outcome"},
	)
	gatherDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "citeseek",
			Subsystem: "gather",
			Name:      "duration_seconds",
			Help:      "Wall time of gather calls.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	unitsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "citeseek",
			Subsystem: "gather",
			Name:      "units_in_flight",
			Help:      "Summarization units currently running.",
		},
	)
	answerTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeseek",
			Subsystem: "answer",
			Name:      "synthesize_total",
			Help:      "Answer synthesis calls by status.",
		},
		[]string{"status"},
	)
	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeseek",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by collaborator calls.",
		},
		[]string{"direction"},
	)

	registry.MustRegister(gatherUnitsTotal, gatherDuration, unitsInFlight, answerTotal, tokensTotal)

	return &PipelineMetrics{
		registry:         registry,
		gatherUnitsTotal: gatherUnitsTotal,
		gatherDuration:   gatherDuration,
		unitsInFlight:    unitsInFlight,
		answerTotal:      answerTotal,
		tokensTotal:      tokensTotal,
	}
}

// Handler serves the registry for a /metrics route.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) UnitStarted() {
	if m == nil {
		return
	}
	m.unitsInFlight.Inc()
}

// UnitDone decrements the in-flight gauge; call it when a dispatched
// unit returns, regardless of outcome.
func (m *PipelineMetrics) UnitDone() {
	if m == nil {
		return
	}
	m.unitsInFlight.Dec()
}

// UnitOutcome counts a unit's final disposition.
func (m *PipelineMetrics) UnitOutcome(outcome string) {
	if m == nil {
		return
	}
	m.gatherUnitsTotal.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) UnitSkipped() {
	if m == nil {
		return
	}
	m.gatherUnitsTotal.WithLabelValues(UnitOutcomeSkipped).Inc()
}

func (m *PipelineMetrics) ObserveGather(duration time.Duration) {
	if m == nil {
		return
	}
	m.gatherDuration.Observe(duration.Seconds())
}

func (m *PipelineMetrics) AnswerFinished(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.answerTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) AddTokens(input, output int) {
	if m == nil {
		return
	}
	m.tokensTotal.WithLabelValues("input").Add(float64(input))
	m.tokensTotal.WithLabelValues("output").Add(float64(output))
}
