// Package daemon wires the core packages into a runnable process: TOML
// configuration with environment-variable overrides, bootstrap of the
// configured greenhouse, and the HTTP façade + Supervisor lifecycle.
// Grounded on the teacher's internal/daemon/config.go (DefaultConfig /
// LoadConfig / SaveConfig over BurntSushi/toml) and internal/daemon/daemon.go
// (a single struct wiring every subsystem, started and stopped from Serve).
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Bootstrap BootstrapConfig `toml:"bootstrap"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// ServerConfig controls the operator-facing HTTP façade.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// TelemetryConfig points at the data-backend service.
type TelemetryConfig struct {
	BackendURL string `toml:"backend_url"`
}

// BootstrapConfig mirrors spec §6's environment variables: the single
// greenhouse a bare-metal install configures on first boot. Multi-
// greenhouse deployments configure additional greenhouses over the HTTP
// façade instead of the config file.
type BootstrapConfig struct {
	GreenhouseID           string  `toml:"greenhouse_id"`
	ActuatorHost           string  `toml:"actuator_host"`
	ActuatorPort           int     `toml:"actuator_port"`
	PlantType              string  `toml:"plant_type"`
	TargetMoisturePct      float64 `toml:"target_moisture_pct"`
	PulseDurationSec       float64 `toml:"pulse_duration_sec"`
	PulseWaitSec           int     `toml:"pulse_wait_sec"`
	MaxPulses              int     `toml:"max_pulses"`
	AutoStartMonitor       bool    `toml:"auto_start_monitor"`
	FetchConfigFromBackend bool    `toml:"fetch_config_from_backend"`
}

// MetricsConfig controls the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			BackendURL: "http://localhost:8000",
		},
		Bootstrap: BootstrapConfig{
			PlantType:        "default",
			PulseDurationSec: 1.0,
			PulseWaitSec:     30,
			MaxPulses:        15,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// LoadConfig reads config from path, falling back to defaults and applying
// environment-variable overrides on top either way.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// SaveConfig writes cfg to path as TOML.
func SaveConfig(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// applyEnvOverrides implements spec §6's bootstrap environment variables:
// BACKEND_URL, ESP32_IP, ESP32_PORT, GREENHOUSE_ID, PLANT_TYPE,
// TARGET_MOISTURE, PULSE_DURATION, PULSE_WAIT, MAX_PULSES,
// AUTO_START_MONITOR, FETCH_CONFIG_FROM_BACKEND.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.Telemetry.BackendURL = v
	}
	if v := os.Getenv("GREENHOUSE_ID"); v != "" {
		cfg.Bootstrap.GreenhouseID = v
	}
	if v := os.Getenv("ESP32_IP"); v != "" {
		cfg.Bootstrap.ActuatorHost = v
	}
	if v, ok := envInt("ESP32_PORT"); ok {
		cfg.Bootstrap.ActuatorPort = v
	}
	if v := os.Getenv("PLANT_TYPE"); v != "" {
		cfg.Bootstrap.PlantType = v
	}
	if v, ok := envFloat("TARGET_MOISTURE"); ok {
		cfg.Bootstrap.TargetMoisturePct = v
	}
	if v, ok := envFloat("PULSE_DURATION"); ok {
		cfg.Bootstrap.PulseDurationSec = v
	}
	if v, ok := envInt("PULSE_WAIT"); ok {
		cfg.Bootstrap.PulseWaitSec = v
	}
	if v, ok := envInt("MAX_PULSES"); ok {
		cfg.Bootstrap.MaxPulses = v
	}
	if v, ok := envBool("AUTO_START_MONITOR"); ok {
		cfg.Bootstrap.AutoStartMonitor = v
	}
	if v, ok := envBool("FETCH_CONFIG_FROM_BACKEND"); ok {
		cfg.Bootstrap.FetchConfigFromBackend = v
	}
}

// ActuatorEndpoint joins the bootstrap host/port into a host:port endpoint,
// or "" if no host is configured.
func (b BootstrapConfig) ActuatorEndpoint() string {
	if b.ActuatorHost == "" {
		return ""
	}
	if b.ActuatorPort == 0 {
		return b.ActuatorHost
	}
	return fmt.Sprintf("%s:%d", b.ActuatorHost, b.ActuatorPort)
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// irrigatorHome returns the directory the CLI looks for a config file in
// when none is given explicitly.
func irrigatorHome() string {
	if env := os.Getenv("IRRIGATOR_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".irrigator")
}

// DefaultConfigPath is where the CLI looks for a config file absent a
// --config flag.
func DefaultConfigPath() string {
	return filepath.Join(irrigatorHome(), "config.toml")
}
