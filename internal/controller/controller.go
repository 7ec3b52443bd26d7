// Package controller implements the Lifecycle API (C11): the in-process
// surface the outer HTTP façade calls. Controller is the explicit value the
// teacher's source materialized as module-level globals (the service
// handle, the loaded-models dict) — constructed once by process bootstrap
// and owning every map and lock in the system, per spec §9's pattern
// remapping note.
package controller

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/greenhouse-io/irrigator/internal/decision"
	"github.com/greenhouse-io/irrigator/internal/domain"
	"github.com/greenhouse-io/irrigator/internal/executor"
	"github.com/greenhouse-io/irrigator/internal/history"
	"github.com/greenhouse-io/irrigator/internal/plantdata"
	"github.com/greenhouse-io/irrigator/internal/registry"
	"github.com/greenhouse-io/irrigator/internal/telemetryclient"
)

// warmFillHistoryHours is spec §4.2's "up to 48h of history" warm-fill
// window for a newly configured/started greenhouse.
const warmFillHistoryHours = 48

// Telemetry is the subset of the Telemetry Client the controller depends
// on directly (the rest is used inside the executor/supervisor).
type Telemetry interface {
	LatestReading(ctx context.Context, id string) (domain.SensorReading, bool, error)
	RecentWindow(ctx context.Context, id string, hours, maxPoints int) ([]domain.SensorReading, error)
	FetchPlantConfig(ctx context.Context) (telemetryclient.PlantConfigFields, error)
}

// Actuator is the subset of the Actuator Client the controller depends on
// directly (pump status for analyze).
type Actuator interface {
	PumpStatus(ctx context.Context, endpoint string) (domain.PumpStatus, error)
}

// Monitor starts/stops the Supervisor loop. internal/supervisor.Supervisor
// satisfies this.
type Monitor interface {
	Start(id string)
	Stop(id string)
	StopAll()
}

// Controller wires the registry, telemetry/actuator clients, decision
// engine, executor, and supervisor into the eight Lifecycle API operations.
type Controller struct {
	reg       *registry.Registry
	telemetry Telemetry
	actuator  Actuator
	exec      *executor.Executor
	monitor   Monitor
}

// New returns a Controller. monitor may be nil until supervisor wiring is
// attached via SetMonitor (bootstrap order: controller, then supervisor
// which needs a reference back to the controller, then SetMonitor).
func New(reg *registry.Registry, telemetry Telemetry, actuator Actuator, exec *executor.Executor) *Controller {
	return &Controller{reg: reg, telemetry: telemetry, actuator: actuator, exec: exec}
}

// SetMonitor attaches the Supervisor once constructed.
func (c *Controller) SetMonitor(m Monitor) {
	c.monitor = m
}

// ConfigureInput carries the optional fields accepted by Configure; zero
// values mean "use the default".
type ConfigureInput struct {
	GreenhouseID      string
	ActuatorEndpoint  string
	PlantType         string
	PulseDurationSec  float64
	PulseWaitSec      int
	MaxPulses         int
	AutoIrrigate      bool
	CheckIntervalSec  int
	TargetMoisturePct float64
}

// Configure stores a new config (or replaces the existing one atomically).
func (c *Controller) Configure(ctx context.Context, in ConfigureInput) (domain.GreenhouseConfig, error) {
	firstConfigure := !c.reg.Exists(in.GreenhouseID)

	if in.ActuatorEndpoint == "" {
		if existing, ok := c.reg.Get(in.GreenhouseID); ok {
			in.ActuatorEndpoint = existing.ActuatorEndpoint
		}
	}
	if in.ActuatorEndpoint == "" {
		return domain.GreenhouseConfig{}, domain.ErrMissingEndpoint
	}

	cfg := domain.DefaultGreenhouseConfig(in.GreenhouseID)
	cfg.ActuatorEndpoint = in.ActuatorEndpoint
	if in.PlantType != "" {
		cfg.PlantType = in.PlantType
	}
	if in.PulseDurationSec > 0 {
		cfg.PulseDurationSec = in.PulseDurationSec
	}
	if in.PulseWaitSec > 0 {
		cfg.PulseWaitSec = in.PulseWaitSec
	}
	if in.MaxPulses > 0 {
		cfg.MaxPulses = in.MaxPulses
	}
	if in.CheckIntervalSec > 0 {
		cfg.CheckIntervalSec = in.CheckIntervalSec
	}
	cfg.AutoIrrigate = in.AutoIrrigate
	if in.TargetMoisturePct > 0 {
		cfg.TargetMoisturePct = in.TargetMoisturePct
	}
	cfg.ConfiguredAt = time.Now()

	c.reg.Put(cfg)

	if firstConfigure {
		c.warmFillHistory(ctx, in.GreenhouseID)
	}

	return cfg, nil
}

// warmFillHistory implements spec §4.2's "on first configuration, the store
// is warm-filled from the telemetry backend (up to 48h of history)": it
// fetches the backend's recent window and pushes every reading into the
// history ring, oldest first. A fetch failure is logged and otherwise
// ignored — the greenhouse still starts monitoring with an empty history
// that fills in over subsequent ticks, same as if warm-fill didn't exist.
func (c *Controller) warmFillHistory(ctx context.Context, id string) {
	if c.reg.HistoryLen(id) > 0 {
		return
	}
	readings, err := c.telemetry.RecentWindow(ctx, id, warmFillHistoryHours, history.Capacity)
	if err != nil {
		log.Printf("controller: %s: warm-fill history failed: %v", id, err)
		return
	}
	for _, r := range readings {
		c.reg.PushReading(id, r)
	}
}

// ReloadConfig fetches a fresh config record from the telemetry backend and
// reconstructs targetMoisture per spec §4.3, preserving all other fields.
func (c *Controller) ReloadConfig(ctx context.Context, id string) (domain.GreenhouseConfig, error) {
	existing, ok := c.reg.Get(id)
	if !ok {
		return domain.GreenhouseConfig{}, domain.ErrNotConfigured
	}

	fields, err := c.telemetry.FetchPlantConfig(ctx)
	if err != nil {
		return domain.GreenhouseConfig{}, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}

	updated := existing
	if fields.PlantType != "" {
		updated.PlantType = fields.PlantType
	}
	if fields.SoilMoistureIdeal != nil {
		updated.TargetMoisturePct = *fields.SoilMoistureIdeal
	} else if fields.SoilMoistureMax > 0 || fields.SoilMoistureMin > 0 {
		updated.TargetMoisturePct = (fields.SoilMoistureMin + fields.SoilMoistureMax) / 2
	}

	c.reg.Put(updated)
	return updated, nil
}

// StartMonitoringInput carries the inputs to startMonitoring.
type StartMonitoringInput struct {
	GreenhouseID     string
	ActuatorEndpoint string
}

// StartMonitoring idempotently ensures id is in the monitored set; a running
// Supervisor loop picks it up on its next tick. It does not start the loop
// itself (Monitor.Start is a no-op on supervisor.Supervisor): the loop runs
// only once Supervisor.Run has been called, as Daemon.Serve does, and is
// not restarted after StopAll.
func (c *Controller) StartMonitoring(ctx context.Context, in StartMonitoringInput) (domain.StatusSnapshot, error) {
	if !c.reg.Exists(in.GreenhouseID) {
		if in.ActuatorEndpoint == "" {
			return domain.StatusSnapshot{}, domain.ErrMissingEndpoint
		}
		cfg := domain.DefaultGreenhouseConfig(in.GreenhouseID)
		cfg.ActuatorEndpoint = in.ActuatorEndpoint
		cfg.ConfiguredAt = time.Now()
		c.reg.Put(cfg)
	}

	c.warmFillHistory(ctx, in.GreenhouseID)

	c.reg.SetMonitored(in.GreenhouseID, true)
	if c.monitor != nil {
		c.monitor.Start(in.GreenhouseID)
	}

	return c.Status(ctx, in.GreenhouseID)
}

// StopMonitoring removes id from the monitored set, or every greenhouse and
// signals the Supervisor to exit if id is empty.
func (c *Controller) StopMonitoring(ctx context.Context, id string) error {
	if id == "" {
		if c.monitor != nil {
			c.monitor.StopAll()
		}
		return nil
	}
	c.reg.SetMonitored(id, false)
	if c.monitor != nil {
		c.monitor.Stop(id)
	}
	return nil
}

// Analyze returns the current decision and pump status for id.
func (c *Controller) Analyze(ctx context.Context, id string) (domain.IrrigationDecision, domain.PumpStatus, error) {
	cfg, ok := c.reg.Get(id)
	if !ok {
		return domain.IrrigationDecision{}, nil, domain.ErrNotConfigured
	}

	latest, ok, err := c.telemetry.LatestReading(ctx, id)
	if err != nil || !ok {
		d := domain.IrrigationDecision{NeedsIrrigation: false, Confidence: 0, HumanSummary: "sensor/data error"}
		return d, nil, domain.ErrNoReadings
	}

	d := decision.Decide(latest, cfg, nil)

	var status domain.PumpStatus
	if c.actuator != nil {
		status, _ = c.actuator.PumpStatus(ctx, cfg.ActuatorEndpoint)
	}

	return d, status, nil
}

// ExecuteIrrigation runs the Pulse Executor for id. Without force, a
// decision that needs no irrigation returns a zero IrrigationResult and no
// error; force runs the sequence regardless of that decision. autoIrrigate
// is not consulted here, and force never bypasses the mutual-exclusion lock.
func (c *Controller) ExecuteIrrigation(ctx context.Context, id string, force bool) (domain.IrrigationResult, error) {
	cfg, ok := c.reg.Get(id)
	if !ok {
		return domain.IrrigationResult{}, domain.ErrNotConfigured
	}

	d, _, err := c.Analyze(ctx, id)
	if err != nil {
		return domain.IrrigationResult{}, err
	}
	if !d.NeedsIrrigation && !force {
		return domain.IrrigationResult{}, nil
	}

	return c.exec.Execute(ctx, id, cfg, d)
}

// Status returns a point-in-time snapshot for id, including the last
// decision computed on demand (never cached, so it can't go stale across a
// concurrent state transition — see SPEC_FULL §7's supplemented feature).
func (c *Controller) Status(ctx context.Context, id string) (domain.StatusSnapshot, error) {
	state, ok := c.reg.Snapshot(id)
	if !ok {
		return domain.StatusSnapshot{}, domain.ErrNotConfigured
	}

	snap := domain.StatusSnapshot{
		GreenhouseID:     id,
		Config:           state.Config,
		Status:           state.Status,
		HistoryLen:       len(state.History),
		LastIrrigationAt: state.LastIrrigationAt,
		LastPredictionAt: state.LastPredictionAt,
		Monitored:        state.Monitored,
	}

	if len(state.History) > 0 {
		last := state.History[len(state.History)-1]
		d := decision.Decide(last, state.Config, nil)
		snap.LastDecision = &d
	}

	return snap, nil
}

// ListPlants returns the full Plant Knowledge Table.
func (c *Controller) ListPlants(ctx context.Context) map[string]domain.PlantProfile {
	return plantdata.All()
}

// Registry exposes the underlying registry for the Supervisor to read
// monitored ids and push readings into history; it is not part of the
// Lifecycle API surface proper but is needed to wire the supervisor without
// a dependency cycle (supervisor depends on registry directly, not on
// controller).
func (c *Controller) Registry() *registry.Registry {
	return c.reg
}
