// Package supervisor implements the Supervisor (C10): the single
// long-lived scan loop that drives per-greenhouse ticks. The ticker loop
// shape — select{ctx.Done(); ticker.C} with an immediate first pass — is
// grounded on the teacher's health.Checker.Run(ctx), generalized here from
// a fixed interval to min(checkIntervalSec) across monitored greenhouses.
package supervisor

import (
	"context"
	"log"
	"time"

	"github.com/greenhouse-io/irrigator/internal/decision"
	"github.com/greenhouse-io/irrigator/internal/domain"
	"github.com/greenhouse-io/irrigator/internal/executor"
	"github.com/greenhouse-io/irrigator/internal/forecaster"
	"github.com/greenhouse-io/irrigator/internal/metrics"
	"github.com/greenhouse-io/irrigator/internal/predictiongate"
	"github.com/greenhouse-io/irrigator/internal/registry"
)

// DefaultInterval is used when no greenhouse is monitored.
const DefaultInterval = 300 * time.Second

// Telemetry is the subset of the Telemetry Client the supervisor depends
// on.
type Telemetry interface {
	LatestReading(ctx context.Context, id string) (domain.SensorReading, bool, error)
}

// Forecasts produces a forecast for one greenhouse; nil/empty when
// unavailable.
type Forecasts interface {
	ForecastFor(ctx context.Context, id string, last24 []domain.SensorReading) ([]float64, error)
}

// Supervisor ticks over every monitored greenhouse, calling the Decision
// Engine, the Prediction Gate, and dispatching the Pulse Executor when
// warranted.
type Supervisor struct {
	reg       *registry.Registry
	telemetry Telemetry
	forecasts Forecasts
	gate      *predictiongate.Gate
	exec      *executor.Executor

	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a Supervisor. It does not start any goroutine until Run is
// called.
func New(reg *registry.Registry, telemetry Telemetry, forecasts Forecasts, gate *predictiongate.Gate, exec *executor.Executor) *Supervisor {
	return &Supervisor{reg: reg, telemetry: telemetry, forecasts: forecasts, gate: gate, exec: exec}
}

// Start is a no-op hook satisfying controller.Monitor; the actual loop is a
// single shared task started once via Run, not one per greenhouse — adding
// a greenhouse to the monitored set is enough for the next tick to pick it
// up.
func (s *Supervisor) Start(id string) {
	if s.cancel == nil {
		// Run has not been called yet; the caller (daemon bootstrap) is
		// responsible for calling Run once at startup.
		return
	}
}

// Stop removes id from the monitored set. The loop itself keeps running
// until StopAll or Run's context is cancelled.
func (s *Supervisor) Stop(id string) {
	s.reg.SetMonitored(id, false)
}

// StopAll signals the running loop to exit and removes every greenhouse
// from the monitored set.
func (s *Supervisor) StopAll() {
	for _, id := range s.reg.MonitoredIDs() {
		s.reg.SetMonitored(id, false)
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Run starts the scan loop and blocks until ctx is cancelled or StopAll is
// called. It performs an immediate first pass, then sleeps on
// min(checkIntervalSec) across monitored greenhouses (or DefaultInterval
// when none), level-triggered so the loop exits within one sleep.
func (s *Supervisor) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	defer close(s.done)

	s.tick(ctx)

	for {
		interval := s.nextInterval()
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.tick(ctx)
		}
	}
}

// Wait blocks until a previously started Run has returned.
func (s *Supervisor) Wait() {
	if s.done != nil {
		<-s.done
	}
}

func (s *Supervisor) nextInterval() time.Duration {
	min := 0
	for _, id := range s.reg.MonitoredIDs() {
		cfg, ok := s.reg.Get(id)
		if !ok {
			continue
		}
		secs := cfg.CheckIntervalSec
		if secs <= 0 {
			continue
		}
		if min == 0 || secs < min {
			min = secs
		}
	}
	if min == 0 {
		return DefaultInterval
	}
	return time.Duration(min) * time.Second
}

// tick runs one scan over every monitored greenhouse. It tolerates
// concurrent add/remove because MonitoredIDs returns a snapshot.
func (s *Supervisor) tick(ctx context.Context) {
	ids := s.reg.MonitoredIDs()
	metrics.MonitoredGreenhouses.Set(float64(len(ids)))
	for _, id := range ids {
		s.tickOne(ctx, id)
	}
	metrics.SupervisorTicks.Inc()
}

func (s *Supervisor) tickOne(ctx context.Context, id string) {
	cfg, ok := s.reg.Get(id)
	if !ok {
		return
	}

	latest, ok, err := s.telemetry.LatestReading(ctx, id)
	if err != nil {
		log.Printf("supervisor: %s: latest reading failed: %v", id, err)
		return
	}
	if !ok {
		log.Printf("supervisor: %s: no reading available", id)
		return
	}
	s.reg.PushReading(id, latest)

	var forecast []float64
	if s.forecasts != nil {
		window := s.reg.History(id, forecaster.WindowLen)
		if f, err := s.forecasts.ForecastFor(ctx, id, window); err == nil {
			forecast = f
		}
	}

	d := decision.Decide(latest, cfg, forecast)
	metrics.DecisionsTotal.WithLabelValues(string(d.Urgency)).Inc()
	metrics.DecisionMoistureDeficit.WithLabelValues(id).Set(d.TargetMoisture - d.CurrentMoisture)

	s.runPredictionGate(ctx, id, cfg, latest, forecast, d.TargetMoisture)

	if d.NeedsIrrigation && cfg.AutoIrrigate {
		if _, err := s.exec.Execute(ctx, id, cfg, d); err != nil {
			if err == domain.ErrInProgress {
				log.Printf("supervisor: %s: irrigation already in progress, skipping tick", id)
			} else {
				log.Printf("supervisor: %s: irrigation failed: %v", id, err)
			}
		}
		return
	}

	log.Printf("supervisor: %s: moisture %.1f%% target %.1f%% needsIrrigation=%v", id, latest.SoilMoisture, d.TargetMoisture, d.NeedsIrrigation)
}

func (s *Supervisor) runPredictionGate(ctx context.Context, id string, cfg domain.GreenhouseConfig, latest domain.SensorReading, forecast []float64, target float64) {
	if s.gate == nil || len(forecast) == 0 {
		return
	}
	lastAt := s.reg.LastPredictionAt(id)
	historyLen := s.reg.HistoryLen(id)

	out, err := s.gate.Evaluate(ctx, time.Now(), lastAt, id, cfg, latest, forecast, historyLen, target)
	if err != nil {
		log.Printf("supervisor: %s: prediction gate failed: %v", id, err)
		return
	}
	if out.Sent && out.Accepted {
		s.reg.MarkPredicted(id, out.NotifiedAt)
	}
}
