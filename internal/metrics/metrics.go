// Package metrics provides Prometheus metrics for the irrigation core:
// counters, gauges, and histograms for decisions, pulses, telemetry, and
// predictions. Grounded on the teacher's internal/infra/metrics package
// (package-level promauto vars grouped by concern).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Decisions ──────────────────────────────────────────────────────────────

// DecisionsTotal tracks decisions by urgency.
var DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "irrigator",
	Name:      "decisions_total",
	Help:      "Total irrigation decisions computed, by urgency.",
}, []string{"urgency"})

// DecisionMoistureDeficit tracks the most recent deficit per greenhouse.
var DecisionMoistureDeficit = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "irrigator",
	Name:      "decision_moisture_deficit_percent",
	Help:      "Most recent target-minus-current moisture deficit, by greenhouse.",
}, []string{"greenhouse"})

// ─── Pulses ─────────────────────────────────────────────────────────────────

// PulsesExecuted tracks individual actuator pulses fired.
var PulsesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "irrigator",
	Name:      "pulses_executed_total",
	Help:      "Total actuator pulses fired, by greenhouse and outcome.",
}, []string{"greenhouse", "outcome"})

// IrrigationSequenceDuration tracks end-to-end pulse sequence duration.
var IrrigationSequenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "irrigator",
	Name:      "irrigation_sequence_duration_seconds",
	Help:      "Duration of one pulse sequence (activate..report), by greenhouse.",
	Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
}, []string{"greenhouse"})

// IrrigationInProgress tracks whether a greenhouse currently has a pulse
// sequence in flight (1) or not (0).
var IrrigationInProgress = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "irrigator",
	Name:      "irrigation_in_progress",
	Help:      "1 if a pulse sequence is currently in flight for this greenhouse.",
}, []string{"greenhouse"})

// ─── Telemetry / actuator clients ───────────────────────────────────────────

// BackendRequestsTotal tracks calls to the data-backend telemetry service.
var BackendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "irrigator",
	Name:      "backend_requests_total",
	Help:      "Total telemetry backend requests, by operation and outcome.",
}, []string{"operation", "outcome"})

// ActuatorRequestsTotal tracks calls to the pump actuator.
var ActuatorRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "irrigator",
	Name:      "actuator_requests_total",
	Help:      "Total actuator requests, by operation and outcome.",
}, []string{"operation", "outcome"})

// ─── Predictions ────────────────────────────────────────────────────────────

// PredictionsSent tracks accepted prediction notifications.
var PredictionsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "irrigator",
	Name:      "predictions_sent_total",
	Help:      "Total prediction notifications accepted by the backend, by type.",
}, []string{"type"})

// PredictionsSkipped tracks cooldown/dedup skips.
var PredictionsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "irrigator",
	Name:      "predictions_skipped_total",
	Help:      "Total prediction evaluations that were skipped, by reason.",
}, []string{"reason"})

// ─── Supervisor ─────────────────────────────────────────────────────────────

// SupervisorTicks tracks completed supervisor scan loop iterations.
var SupervisorTicks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "irrigator",
	Name:      "supervisor_ticks_total",
	Help:      "Total supervisor scan loop iterations completed.",
})

// MonitoredGreenhouses tracks the current size of the monitored set.
var MonitoredGreenhouses = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "irrigator",
	Name:      "monitored_greenhouses",
	Help:      "Number of greenhouses currently in the monitored set.",
})
