// Package executor implements the Pulse Executor (C8): it drives one pulse
// sequence for one greenhouse and owns that greenhouse's mutual-exclusion
// lock for the call's duration. The trylock-and-fail-fast discipline is
// grounded on the teacher's pool locking pattern (lock the specific entry,
// never nest locks across entries), adapted from reference-counted
// acquisition to single-flight: if the lock is already held, execute
// returns immediately rather than queuing, per spec §4.8.
package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/greenhouse-io/irrigator/internal/domain"
	"github.com/greenhouse-io/irrigator/internal/metrics"
)

// Actuator is the subset of the Actuator Client the executor depends on.
type Actuator interface {
	ActivatePulse(ctx context.Context, endpoint string, durationMs int64) error
}

// Telemetry is the subset of the Telemetry Client the executor depends on.
type Telemetry interface {
	LatestReading(ctx context.Context, id string) (domain.SensorReading, bool, error)
	ReportIrrigation(ctx context.Context, event domain.IrrigationEvent) error
}

// Locker supplies the per-greenhouse execution lock and status transitions.
// internal/registry.Registry satisfies this.
type Locker interface {
	TryLockExec(id string) (release func(), ok bool)
	SetStatus(id string, status domain.Status)
	MarkIrrigated(id string, at time.Time)
}

// StabilizationSleep is the pause after the pulse loop before the "after"
// reading is taken, per spec §4.8 step 4.
var StabilizationSleep = 5 * time.Second

// Executor drives pulse sequences.
type Executor struct {
	actuator  Actuator
	telemetry Telemetry
	locks     Locker
	sleep     func(time.Duration)
}

// New returns an Executor wired to the given collaborators. sleep defaults
// to time.Sleep; tests may override it to avoid real delays.
func New(actuator Actuator, telemetry Telemetry, locks Locker) *Executor {
	return &Executor{actuator: actuator, telemetry: telemetry, locks: locks, sleep: time.Sleep}
}

// SetSleepFunc overrides the sleep implementation used for inter-pulse
// waits and the stabilization pause. Intended for tests.
func (e *Executor) SetSleepFunc(sleep func(time.Duration)) {
	e.sleep = sleep
}

// Execute runs one pulse sequence for id against decision and cfg. It
// returns domain.ErrInProgress immediately if another sequence already
// holds id's lock.
func (e *Executor) Execute(ctx context.Context, id string, cfg domain.GreenhouseConfig, decision domain.IrrigationDecision) (domain.IrrigationResult, error) {
	release, ok := e.locks.TryLockExec(id)
	if !ok {
		return domain.IrrigationResult{}, domain.ErrInProgress
	}
	defer release()

	metrics.IrrigationInProgress.WithLabelValues(id).Set(1)
	defer metrics.IrrigationInProgress.WithLabelValues(id).Set(0)
	start := time.Now()

	e.locks.SetStatus(id, domain.StatusAnalyzing)
	e.locks.SetStatus(id, domain.StatusIrrigating)

	moistureBefore := e.bestEffortMoisture(ctx, id)

	result := domain.IrrigationResult{MoistureBefore: moistureBefore}
	var failureMessage string

	for i := 1; i <= decision.PulseCount; i++ {
		durationMs := int64(decision.PulseDurationSec * 1000)
		if err := e.actuator.ActivatePulse(ctx, cfg.ActuatorEndpoint, durationMs); err != nil {
			failureMessage = err.Error()
			metrics.PulsesExecuted.WithLabelValues(id, "failed").Inc()
			break
		}
		metrics.PulsesExecuted.WithLabelValues(id, "success").Inc()
		result.PulsesExecuted++
		result.TotalDurationSec += decision.PulseDurationSec

		if i < decision.PulseCount {
			e.locks.SetStatus(id, domain.StatusWaiting)
			e.sleep(time.Duration(cfg.PulseWaitSec) * time.Second)

			latest, haveLatest, err := e.telemetry.LatestReading(ctx, id)
			if err == nil && haveLatest && latest.SoilMoisture >= decision.TargetMoisture {
				break
			}
			e.locks.SetStatus(id, domain.StatusIrrigating)
		}
	}

	e.sleep(StabilizationSleep)
	moistureAfter := e.bestEffortMoisture(ctx, id)
	result.MoistureAfter = moistureAfter

	result.Success = result.PulsesExecuted > 0 && failureMessage == ""
	result.Timestamp = time.Now()

	if result.Success {
		result.Message = fmt.Sprintf("irrigated with %d pulse(s), moisture %.1f%% -> %.1f%%", result.PulsesExecuted, result.MoistureBefore, result.MoistureAfter)
	} else {
		if failureMessage == "" {
			failureMessage = "no pulses executed"
		}
		result.Message = failureMessage
	}

	status := "success"
	if !result.Success {
		status = "failed"
	}

	event := domain.IrrigationEvent{
		GreenhouseID:   id,
		Status:         status,
		DurationMs:     int64(result.TotalDurationSec * 1000),
		PulseCount:     result.PulsesExecuted,
		MoistureBefore: result.MoistureBefore,
		MoistureAfter:  &result.MoistureAfter,
		TargetMoisture: decision.TargetMoisture,
		PlantType:      cfg.PlantType,
		ActuatorHost:   cfg.ActuatorEndpoint,
	}
	if !result.Success {
		event.ErrorMessage = failureMessage
	}

	// Invariant 5: report exactly once per invocation, regardless of
	// outcome. A failure to post here is logged but never fails the
	// sequence — the pump has already been (or failed to be) actuated.
	if err := e.telemetry.ReportIrrigation(ctx, event); err != nil {
		log.Printf("executor: failed to report irrigation for %s: %v", id, err)
	}

	e.locks.MarkIrrigated(id, result.Timestamp)
	if !result.Success {
		e.locks.SetStatus(id, domain.StatusError)
	}
	e.locks.SetStatus(id, domain.StatusIdle)
	metrics.IrrigationSequenceDuration.WithLabelValues(id).Observe(time.Since(start).Seconds())

	return result, nil
}

func (e *Executor) bestEffortMoisture(ctx context.Context, id string) float64 {
	reading, ok, err := e.telemetry.LatestReading(ctx, id)
	if err != nil || !ok {
		return 0
	}
	return reading.SoilMoisture
}
