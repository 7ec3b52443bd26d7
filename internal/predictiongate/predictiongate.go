// Package predictiongate implements the Prediction Gate (C9): it inspects
// a forecast, classifies impending risk, and emits at most one notification
// per greenhouse per cooldown window. The cooldown/suppression shape is
// grounded on the teacher's engagement notification service (daily cap +
// quiet hours, "suppressed" sentinel instead of an error); spec §4.9's
// 7200s cooldown and moisture/temperature/humidity classification rules
// replace the teacher's policy.
package predictiongate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greenhouse-io/irrigator/internal/domain"
	"github.com/greenhouse-io/irrigator/internal/metrics"
)

// Cooldown is the minimum time between two accepted prediction
// notifications for one greenhouse.
const Cooldown = 7200 * time.Second

// Reporter is the subset of the Telemetry Client the gate depends on.
type Reporter interface {
	ReportPrediction(ctx context.Context, payload domain.PredictionPayload) (domain.PredictionReport, error)
}

// Gate evaluates one greenhouse's forecast per tick and, when warranted,
// reports a prediction. It holds no per-greenhouse state itself — the
// caller supplies lastPredictionAt and receives back whether to advance it
// — which keeps the gate itself stateless and easy to unit test.
type Gate struct {
	reporter Reporter
}

// New returns a Gate reporting through reporter.
func New(reporter Reporter) *Gate {
	return &Gate{reporter: reporter}
}

// Outcome is what Evaluate decided and (if it sent anything) what the
// backend said.
type Outcome struct {
	Sent      bool
	Accepted  bool
	Type      domain.PredictionType
	NotifiedAt time.Time
}

// Evaluate runs spec §4.9's algorithm for one greenhouse at one tick. now is
// threaded in explicitly (rather than calling time.Now internally) to keep
// this function easy to drive from a table-driven test. target is the
// Decision Engine's resolved target moisture (domain.IrrigationDecision's
// TargetMoisture), not the raw cfg.TargetMoisturePct field — that field is
// commonly zero when a greenhouse relies on the plant-table default, which
// would make classify's moisture_drop branch unreachable.
func (g *Gate) Evaluate(ctx context.Context, now time.Time, lastPredictionAt *time.Time, id string, cfg domain.GreenhouseConfig, current domain.SensorReading, forecast []float64, historyLen int, target float64) (Outcome, error) {
	if lastPredictionAt != nil && now.Sub(*lastPredictionAt) < Cooldown {
		metrics.PredictionsSkipped.WithLabelValues("cooldown").Inc()
		return Outcome{}, nil
	}
	if len(forecast) < 6 {
		metrics.PredictionsSkipped.WithLabelValues("insufficient_forecast").Inc()
		return Outcome{}, nil
	}

	drop6h := current.SoilMoisture - forecast[5]

	predType, recommendation, fires := classify(drop6h, forecast[5], target, current)
	if !fires {
		metrics.PredictionsSkipped.WithLabelValues("no_risk_classified").Inc()
		return Outcome{}, nil
	}

	confidence := 75 + minFloat(20, float64(historyLen)/5)

	payload := domain.PredictionPayload{
		GreenhouseID:      id,
		PredictionType:    predType,
		CurrentMoisture:   current.SoilMoisture,
		PredictedMoisture: forecast[5],
		Confidence:        confidence,
		HorizonHours:      6,
		PlantType:         cfg.PlantType,
		Recommendation:    recommendation,
	}

	report, err := g.reporter.ReportPrediction(ctx, payload)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Sent: true, Accepted: report.Accepted, Type: predType}
	if report.Accepted {
		out.NotifiedAt = now
		metrics.PredictionsSent.WithLabelValues(string(predType)).Inc()
	} else {
		metrics.PredictionsSkipped.WithLabelValues("backend_dedup").Inc()
	}
	return out, nil
}

func classify(drop6h, predicted6h, target float64, current domain.SensorReading) (domain.PredictionType, string, bool) {
	switch {
	case drop6h > 15 && predicted6h < target:
		return domain.PredictionMoistureDrop, fmt.Sprintf("soil moisture projected to drop %.1f%% in 6h, below target %.1f%% — consider irrigating ahead of schedule", drop6h, target), true
	case current.AirTemperature > 30 && drop6h > 10:
		return domain.PredictionTemperatureRise, fmt.Sprintf("air temperature %.1f°C is accelerating moisture loss (%.1f%% drop projected)", current.AirTemperature, drop6h), true
	case current.AirHumidity < 40 && drop6h > 8:
		return domain.PredictionHumidityDrop, fmt.Sprintf("low air humidity (%.1f%%) is accelerating moisture loss (%.1f%% drop projected)", current.AirHumidity, drop6h), true
	default:
		return "", "", false
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// NewNotificationID mints a correlation id for callers that want one ahead
// of the backend's own notificationId (e.g. for local logging).
func NewNotificationID() string {
	return uuid.NewString()
}
