package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestDecisionMetrics(t *testing.T) {
	DecisionsTotal.WithLabelValues("high").Inc()
	DecisionMoistureDeficit.WithLabelValues("gh-1").Set(12.5)

	names := gatheredNames(t)
	if !names["irrigator_decisions_total"] {
		t.Error("irrigator_decisions_total not found")
	}
	if !names["irrigator_decision_moisture_deficit_percent"] {
		t.Error("irrigator_decision_moisture_deficit_percent not found")
	}
}

func TestPulseMetrics(t *testing.T) {
	PulsesExecuted.WithLabelValues("gh-1", "success").Inc()
	IrrigationSequenceDuration.WithLabelValues("gh-1").Observe(12.0)
	IrrigationInProgress.WithLabelValues("gh-1").Set(1)

	names := gatheredNames(t)
	for _, name := range []string{
		"irrigator_pulses_executed_total",
		"irrigator_irrigation_sequence_duration_seconds",
		"irrigator_irrigation_in_progress",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestClientMetrics(t *testing.T) {
	BackendRequestsTotal.WithLabelValues("latest_reading", "ok").Inc()
	ActuatorRequestsTotal.WithLabelValues("activate_pulse", "ok").Inc()

	names := gatheredNames(t)
	if !names["irrigator_backend_requests_total"] {
		t.Error("irrigator_backend_requests_total not found")
	}
	if !names["irrigator_actuator_requests_total"] {
		t.Error("irrigator_actuator_requests_total not found")
	}
}

func TestPredictionMetrics(t *testing.T) {
	PredictionsSent.WithLabelValues("moisture_drop").Inc()
	PredictionsSkipped.WithLabelValues("cooldown").Inc()

	names := gatheredNames(t)
	if !names["irrigator_predictions_sent_total"] {
		t.Error("irrigator_predictions_sent_total not found")
	}
	if !names["irrigator_predictions_skipped_total"] {
		t.Error("irrigator_predictions_skipped_total not found")
	}
}

func TestSupervisorMetrics(t *testing.T) {
	SupervisorTicks.Inc()
	MonitoredGreenhouses.Set(3)

	names := gatheredNames(t)
	if !names["irrigator_supervisor_ticks_total"] {
		t.Error("irrigator_supervisor_ticks_total not found")
	}
	if !names["irrigator_monitored_greenhouses"] {
		t.Error("irrigator_monitored_greenhouses not found")
	}
}

func TestAllMetricsGatherable(t *testing.T) {
	names := gatheredNames(t)

	irrigatorMetrics := 0
	for name := range names {
		if len(name) > 10 && name[:10] == "irrigator_" {
			irrigatorMetrics++
		}
	}
	if irrigatorMetrics < 10 {
		t.Errorf("expected at least 10 irrigator_ metrics, got %d", irrigatorMetrics)
	}
}
