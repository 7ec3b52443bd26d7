package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greenhouse-io/irrigator/internal/domain"
	"github.com/greenhouse-io/irrigator/internal/executor"
	"github.com/greenhouse-io/irrigator/internal/registry"
	"github.com/greenhouse-io/irrigator/internal/telemetryclient"
)

type fakeTelemetry struct {
	reading     domain.SensorReading
	have        bool
	plantConfig telemetryclient.PlantConfigFields
	reportErr   error

	recentWindow          []domain.SensorReading
	recentWindowHours     int
	recentWindowMaxPoints int
	recentWindowCalls     int
}

func (f *fakeTelemetry) LatestReading(ctx context.Context, id string) (domain.SensorReading, bool, error) {
	return f.reading, f.have, nil
}

func (f *fakeTelemetry) RecentWindow(ctx context.Context, id string, hours, maxPoints int) ([]domain.SensorReading, error) {
	f.recentWindowCalls++
	f.recentWindowHours, f.recentWindowMaxPoints = hours, maxPoints
	return f.recentWindow, nil
}

func (f *fakeTelemetry) FetchPlantConfig(ctx context.Context) (telemetryclient.PlantConfigFields, error) {
	return f.plantConfig, nil
}

func (f *fakeTelemetry) ReportIrrigation(ctx context.Context, event domain.IrrigationEvent) error {
	return f.reportErr
}

type fakeActuator struct{}

func (fakeActuator) ActivatePulse(ctx context.Context, endpoint string, durationMs int64) error {
	return nil
}

func (fakeActuator) PumpStatus(ctx context.Context, endpoint string) (domain.PumpStatus, error) {
	return domain.PumpStatus{"status": "idle"}, nil
}

func newTestController() (*Controller, *fakeTelemetry) {
	reg := registry.New()
	telemetry := &fakeTelemetry{have: true, reading: domain.SensorReading{SoilMoisture: 40, AirTemperature: 22, Timestamp: time.Now()}}
	actuator := fakeActuator{}
	ex := executor.New(actuator, telemetry, reg)
	ex.SetSleepFunc(func(time.Duration) {})
	c := New(reg, telemetry, actuator, ex)
	return c, telemetry
}

func TestConfigureRequiresEndpoint(t *testing.T) {
	c, _ := newTestController()
	_, err := c.Configure(context.Background(), ConfigureInput{GreenhouseID: "gh-1"})
	if !errors.Is(err, domain.ErrMissingEndpoint) {
		t.Fatalf("err = %v, want ErrMissingEndpoint", err)
	}
}

func TestConfigureAndStatus(t *testing.T) {
	c, _ := newTestController()
	cfg, err := c.Configure(context.Background(), ConfigureInput{GreenhouseID: "gh-1", ActuatorEndpoint: "10.0.0.5:80", PlantType: "tomato"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PlantType != "tomato" {
		t.Fatalf("PlantType = %q, want tomato", cfg.PlantType)
	}

	snap, err := c.Status(context.Background(), "gh-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Config.ActuatorEndpoint != "10.0.0.5:80" {
		t.Fatalf("snapshot endpoint = %q", snap.Config.ActuatorEndpoint)
	}
}

// spec §4.2: first configuration warm-fills history from the backend.
func TestConfigureWarmFillsHistoryFromBackend(t *testing.T) {
	c, telemetry := newTestController()
	telemetry.recentWindow = []domain.SensorReading{
		{SoilMoisture: 50, Timestamp: time.Now().Add(-2 * time.Hour)},
		{SoilMoisture: 45, Timestamp: time.Now().Add(-1 * time.Hour)},
	}

	_, err := c.Configure(context.Background(), ConfigureInput{GreenhouseID: "gh-1", ActuatorEndpoint: "10.0.0.5:80"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if telemetry.recentWindowCalls != 1 {
		t.Fatalf("RecentWindow called %d times, want 1", telemetry.recentWindowCalls)
	}
	if telemetry.recentWindowHours != 48 {
		t.Fatalf("RecentWindow hours = %d, want 48", telemetry.recentWindowHours)
	}
	if got := c.Registry().HistoryLen("gh-1"); got != 2 {
		t.Fatalf("HistoryLen = %d, want 2", got)
	}

	// Reconfiguring (not first-time) must not warm-fill again.
	if _, err := c.Configure(context.Background(), ConfigureInput{GreenhouseID: "gh-1", PlantType: "tomato"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if telemetry.recentWindowCalls != 1 {
		t.Fatalf("RecentWindow called %d times after reconfigure, want still 1", telemetry.recentWindowCalls)
	}
}

func TestAnalyzeNotConfigured(t *testing.T) {
	c, _ := newTestController()
	_, _, err := c.Analyze(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestExecuteIrrigationEndToEnd(t *testing.T) {
	c, _ := newTestController()
	_, err := c.Configure(context.Background(), ConfigureInput{GreenhouseID: "gh-1", ActuatorEndpoint: "10.0.0.5:80", PlantType: "tomato", TargetMoisturePct: 70})
	if err != nil {
		t.Fatalf("configure failed: %v", err)
	}

	result, err := c.ExecuteIrrigation(context.Background(), "gh-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PulsesExecuted == 0 {
		t.Fatal("expected at least one pulse for dry soil")
	}
}

// Scenario 6: reload config swaps target without interrupting monitoring.
func TestReloadConfigSwapsTarget(t *testing.T) {
	c, telemetry := newTestController()
	_, err := c.Configure(context.Background(), ConfigureInput{GreenhouseID: "gh-1", ActuatorEndpoint: "10.0.0.5:80", TargetMoisturePct: 50})
	if err != nil {
		t.Fatalf("configure failed: %v", err)
	}

	ideal := 72.0
	telemetry.plantConfig = telemetryclient.PlantConfigFields{PlantType: "tomato", SoilMoistureIdeal: &ideal}

	updated, err := c.ReloadConfig(context.Background(), "gh-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.TargetMoisturePct != 72 {
		t.Fatalf("TargetMoisturePct after reload = %v, want 72", updated.TargetMoisturePct)
	}

	d, _, err := c.Analyze(context.Background(), "gh-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.TargetMoisture != 72 {
		t.Fatalf("analyze target = %v, want 72", d.TargetMoisture)
	}
}

func TestListPlantsIncludesRequiredTags(t *testing.T) {
	c, _ := newTestController()
	plants := c.ListPlants(context.Background())
	for _, tag := range []string{"default", "tomato", "lettuce"} {
		if _, ok := plants[tag]; !ok {
			t.Fatalf("ListPlants missing tag %q", tag)
		}
	}
}
