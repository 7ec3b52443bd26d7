package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/greenhouse-io/irrigator/internal/domain"
)

type fakeActuator struct {
	mu        sync.Mutex
	calls     int
	failAfter int // fail on the call numbered failAfter (1-indexed); 0 = never fail
}

func (a *fakeActuator) ActivatePulse(ctx context.Context, endpoint string, durationMs int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.failAfter != 0 && a.calls == a.failAfter {
		return errors.New("actuator returned 500")
	}
	return nil
}

type fakeTelemetry struct {
	mu            sync.Mutex
	reading       domain.SensorReading
	haveReading   bool
	reportCalls   int
	lastEvent     domain.IrrigationEvent
	reportErr     error
	sequence      []float64 // successive SoilMoisture values to return; the last one repeats
}

func (f *fakeTelemetry) LatestReading(ctx context.Context, id string) (domain.SensorReading, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sequence) > 0 {
		f.reading.SoilMoisture = f.sequence[0]
		if len(f.sequence) > 1 {
			f.sequence = f.sequence[1:]
		}
	}
	return f.reading, f.haveReading, nil
}

func (f *fakeTelemetry) ReportIrrigation(ctx context.Context, event domain.IrrigationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportCalls++
	f.lastEvent = event
	return f.reportErr
}

type fakeLocks struct {
	mu       sync.Mutex
	held     map[string]bool
	statuses map[string]domain.Status
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: map[string]bool{}, statuses: map[string]domain.Status{}}
}

func (l *fakeLocks) TryLockExec(id string) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[id] {
		return func() {}, false
	}
	l.held[id] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held[id] = false
	}, true
}

func (l *fakeLocks) SetStatus(id string, status domain.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses[id] = status
}

func (l *fakeLocks) MarkIrrigated(id string, at time.Time) {}

func noSleep(time.Duration) {}

func cfgFixture() domain.GreenhouseConfig {
	cfg := domain.DefaultGreenhouseConfig("gh-1")
	cfg.ActuatorEndpoint = "192.168.1.50:80"
	cfg.PulseWaitSec = 0
	return cfg
}

// Scenario 3: pulse loop with early stop. Readings: 40 before the sequence,
// 60 after pulse 1 (below target), 72 after pulse 2 (target reached).
func TestExecuteEarlyStop(t *testing.T) {
	actuator := &fakeActuator{}
	telemetry := &fakeTelemetry{sequence: []float64{40, 60, 72}, haveReading: true}
	locks := newFakeLocks()
	ex := New(actuator, telemetry, locks)
	ex.SetSleepFunc(noSleep)

	cfg := cfgFixture()
	decision := domain.IrrigationDecision{NeedsIrrigation: true, PulseCount: 5, PulseDurationSec: 1, TargetMoisture: 70}

	result, err := ex.Execute(context.Background(), "gh-1", cfg, decision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PulsesExecuted != 2 {
		t.Fatalf("PulsesExecuted = %d, want 2 (early stop after reaching target)", result.PulsesExecuted)
	}
	if !result.Success {
		t.Fatal("expected success=true")
	}
	if telemetry.reportCalls != 1 {
		t.Fatalf("reportCalls = %d, want 1", telemetry.reportCalls)
	}
	if telemetry.lastEvent.PulseCount != 2 {
		t.Fatalf("reported pulseCount = %d, want 2", telemetry.lastEvent.PulseCount)
	}
}

// Scenario 4: actuator fails on pulse 1.
func TestExecuteActuatorFailsFirstPulse(t *testing.T) {
	actuator := &fakeActuator{failAfter: 1}
	telemetry := &fakeTelemetry{haveReading: false}
	locks := newFakeLocks()
	ex := New(actuator, telemetry, locks)
	ex.SetSleepFunc(noSleep)

	cfg := cfgFixture()
	decision := domain.IrrigationDecision{NeedsIrrigation: true, PulseCount: 3, PulseDurationSec: 1, TargetMoisture: 70}

	result, err := ex.Execute(context.Background(), "gh-1", cfg, decision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PulsesExecuted != 0 {
		t.Fatalf("PulsesExecuted = %d, want 0", result.PulsesExecuted)
	}
	if result.Success {
		t.Fatal("expected success=false")
	}
	if telemetry.reportCalls != 1 {
		t.Fatalf("reportCalls = %d, want 1", telemetry.reportCalls)
	}
	if telemetry.lastEvent.Status != "failed" {
		t.Fatalf("reported status = %q, want failed", telemetry.lastEvent.Status)
	}
	if telemetry.lastEvent.ErrorMessage == "" {
		t.Fatal("expected errorMessage to be populated")
	}
	if locks.statuses["gh-1"] != domain.StatusIdle {
		t.Fatalf("final status = %v, want idle", locks.statuses["gh-1"])
	}
}

// P1: exclusion.
func TestExecuteReturnsInProgressWhenLocked(t *testing.T) {
	actuator := &fakeActuator{}
	telemetry := &fakeTelemetry{}
	locks := newFakeLocks()
	locks.held["gh-1"] = true // simulate an in-flight sequence
	ex := New(actuator, telemetry, locks)
	ex.SetSleepFunc(noSleep)

	_, err := ex.Execute(context.Background(), "gh-1", cfgFixture(), domain.IrrigationDecision{PulseCount: 1, PulseDurationSec: 1})
	if !errors.Is(err, domain.ErrInProgress) {
		t.Fatalf("err = %v, want ErrInProgress", err)
	}
}

// P5: exactly one report per invocation of a multi-pulse sequence.
func TestExecuteReportsExactlyOnce(t *testing.T) {
	actuator := &fakeActuator{}
	telemetry := &fakeTelemetry{haveReading: true, reading: domain.SensorReading{SoilMoisture: 50}}
	locks := newFakeLocks()
	ex := New(actuator, telemetry, locks)
	ex.SetSleepFunc(noSleep)

	decision := domain.IrrigationDecision{NeedsIrrigation: true, PulseCount: 3, PulseDurationSec: 1, TargetMoisture: 90}
	_, err := ex.Execute(context.Background(), "gh-1", cfgFixture(), decision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if telemetry.reportCalls != 1 {
		t.Fatalf("reportCalls = %d, want exactly 1", telemetry.reportCalls)
	}
}
