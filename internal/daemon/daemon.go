package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/greenhouse-io/irrigator/internal/actuatorclient"
	"github.com/greenhouse-io/irrigator/internal/controller"
	"github.com/greenhouse-io/irrigator/internal/executor"
	"github.com/greenhouse-io/irrigator/internal/forecaster"
	"github.com/greenhouse-io/irrigator/internal/httpapi"
	"github.com/greenhouse-io/irrigator/internal/predictiongate"
	"github.com/greenhouse-io/irrigator/internal/registry"
	"github.com/greenhouse-io/irrigator/internal/supervisor"
	"github.com/greenhouse-io/irrigator/internal/telemetryclient"
)

// Daemon is the irrigation control loop's runtime: every subsystem wired
// together, constructed once by process bootstrap, per spec §9's pattern
// remapping note (no module-level globals).
type Daemon struct {
	Config     Config
	Registry   *registry.Registry
	Telemetry  *telemetryclient.Client
	Actuator   *actuatorclient.Client
	Executor   *executor.Executor
	Gate       *predictiongate.Gate
	Supervisor *supervisor.Supervisor
	Controller *controller.Controller

	httpServer *http.Server
	cancel     context.CancelFunc
}

// New wires a Daemon from cfg, then bootstraps the configured greenhouse
// (if any) per spec §6's environment-variable contract.
func New(cfg Config) (*Daemon, error) {
	reg := registry.New()
	telemetry := telemetryclient.New(cfg.Telemetry.BackendURL)
	actuator := actuatorclient.New()

	exec := executor.New(actuator, telemetry, reg)
	gate := predictiongate.New(telemetry)

	// The LSTM forecaster model itself is an external collaborator, out of
	// scope per spec §1; the adapter is wired with no model so Forecast
	// always returns domain.ErrForecastUnavailable until a real model is
	// plugged in, exercising the same code path the Supervisor drives.
	adapter := forecaster.New(nil)
	provider := forecaster.NewProvider(adapter, forecaster.DefaultNormalize)

	sup := supervisor.New(reg, telemetry, provider, gate, exec)
	ctrl := controller.New(reg, telemetry, actuator, exec)
	ctrl.SetMonitor(sup)

	d := &Daemon{
		Config:     cfg,
		Registry:   reg,
		Telemetry:  telemetry,
		Actuator:   actuator,
		Executor:   exec,
		Gate:       gate,
		Supervisor: sup,
		Controller: ctrl,
	}

	if err := d.bootstrap(context.Background()); err != nil {
		return nil, err
	}

	return d, nil
}

// bootstrap implements spec §6's single-greenhouse environment bootstrap:
// configure the greenhouse named by GREENHOUSE_ID (if set), optionally
// reload its config from the backend, and optionally auto-start
// monitoring.
func (d *Daemon) bootstrap(ctx context.Context) error {
	b := d.Config.Bootstrap
	if b.GreenhouseID == "" {
		return nil
	}

	_, err := d.Controller.Configure(ctx, controller.ConfigureInput{
		GreenhouseID:      b.GreenhouseID,
		ActuatorEndpoint:  b.ActuatorEndpoint(),
		PlantType:         b.PlantType,
		PulseDurationSec:  b.PulseDurationSec,
		PulseWaitSec:      b.PulseWaitSec,
		MaxPulses:         b.MaxPulses,
		AutoIrrigate:      b.AutoStartMonitor,
		TargetMoisturePct: b.TargetMoisturePct,
	})
	if err != nil {
		return fmt.Errorf("bootstrap configure %s: %w", b.GreenhouseID, err)
	}

	if b.FetchConfigFromBackend {
		if _, err := d.Controller.ReloadConfig(ctx, b.GreenhouseID); err != nil {
			log.Printf("daemon: bootstrap reloadConfig for %s failed, keeping env defaults: %v", b.GreenhouseID, err)
		}
	}

	if b.AutoStartMonitor {
		if _, err := d.Controller.StartMonitoring(ctx, controller.StartMonitoringInput{GreenhouseID: b.GreenhouseID}); err != nil {
			return fmt.Errorf("bootstrap startMonitoring %s: %w", b.GreenhouseID, err)
		}
	}

	return nil
}

// Serve starts the Supervisor loop and the HTTP façade, and blocks until
// ctx is cancelled or a termination signal arrives. On shutdown it signals
// the Supervisor to stop and waits for any in-flight Pulse Executor
// sequence to finish before returning, per spec §5's cooperative shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Supervisor.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.Server.Host, d.Config.Server.Port)
	d.httpServer = &http.Server{
		Addr:         addr,
		Handler:      httpapi.NewServer(d.Controller, d.Config.Metrics.Enabled).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		d.Supervisor.StopAll()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		_ = d.httpServer.Shutdown(shutdownCtx)
		cancel()
	}()

	log.Printf("irrigator: serving on http://%s (backend %s)", addr, d.Config.Telemetry.BackendURL)
	if d.Config.Metrics.Enabled {
		log.Printf("irrigator: metrics at http://%s/metrics", addr)
	}

	if err := d.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	d.Supervisor.Wait()
	return nil
}

// Shutdown signals Serve's running loop to stop, for callers that hold a
// Daemon outside of a signal-driven process (e.g. tests, or an embedding
// binary with its own lifecycle).
func (d *Daemon) Shutdown() {
	if d.cancel != nil {
		d.cancel()
	}
}
