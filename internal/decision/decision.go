// Package decision implements the Decision Engine (C7): a pure function
// from the latest reading, the greenhouse config, and an optional forecast
// to an IrrigationDecision. It performs no I/O and holds no state, which
// makes it trivially unit-testable and referentially transparent (P7).
package decision

import (
	"fmt"
	"math"

	"github.com/greenhouse-io/irrigator/internal/domain"
	"github.com/greenhouse-io/irrigator/internal/plantdata"
)

// Decide implements spec §4.7's algorithm exactly. forecast, when non-nil,
// is a slice of predicted soil-moisture percentages for the next 12 hours;
// passing fewer than 6 elements simply skips the annotation step.
func Decide(latest domain.SensorReading, cfg domain.GreenhouseConfig, forecast []float64) domain.IrrigationDecision {
	target := cfg.TargetMoisturePct
	if target == 0 {
		target = plantdata.TargetMoisture(cfg.PlantType, latest.Timestamp.Hour(), latest.AirTemperature)
	}

	deficit := target - latest.SoilMoisture

	var d domain.IrrigationDecision
	d.CurrentMoisture = latest.SoilMoisture
	d.TargetMoisture = target
	d.PulseDurationSec = cfg.PulseDurationSec

	if deficit <= 0 {
		d.NeedsIrrigation = false
		d.PulseCount = 0
		d.Confidence = 0.85
		d.Urgency = domain.UrgencyLow
		d.HumanSummary = "OK: current >= target"
	} else {
		d.NeedsIrrigation = true

		switch {
		case deficit > 30:
			d.Urgency = domain.UrgencyCritical
			d.Confidence = 0.95
		case deficit > 15:
			d.Urgency = domain.UrgencyHigh
			d.Confidence = 0.90
		case deficit > 5:
			d.Urgency = domain.UrgencyMedium
			d.Confidence = 0.85
		default:
			d.Urgency = domain.UrgencyLow
			d.Confidence = 0.80
		}

		gain := cfg.GainPerPulseSec
		if gain == 0 {
			gain = 1.5
		}
		g := gain * cfg.PulseDurationSec
		pulseCount := int(math.Ceil(deficit/g)) + 1
		d.PulseCount = clampInt(pulseCount, 1, cfg.MaxPulses)

		d.HumanSummary = fmt.Sprintf("Irrigation needed: deficit %.1f%% below target", deficit)
	}

	if len(forecast) >= 6 {
		mean := meanOf(forecast[0:6])
		d.PredictedMoisture = &mean
		d.HumanSummary = fmt.Sprintf("%s (forecast: %.1f%% in 6h)", d.HumanSummary, mean)
	}

	return d
}

func meanOf(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
