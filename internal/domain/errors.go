package domain

import "errors"

// Sentinel errors returned by core packages. Callers type-compare with
// errors.Is; none of these carry dynamic context beyond their message.
var (
	// ErrNotConfigured is returned when an operation targets a greenhouse id
	// with no stored GreenhouseConfig.
	ErrNotConfigured = errors.New("domain: greenhouse not configured")

	// ErrMissingEndpoint is returned when configure/startMonitoring lacks an
	// actuator endpoint and no prior config supplies one.
	ErrMissingEndpoint = errors.New("domain: actuator endpoint required")

	// ErrInProgress is returned by executeIrrigation when the per-greenhouse
	// lock is already held; the executor never queues.
	ErrInProgress = errors.New("domain: irrigation already in progress")

	// ErrNoReadings is returned by analyze when the telemetry backend yields
	// no latest reading (none available, or the read failed); the history
	// store is not consulted.
	ErrNoReadings = errors.New("domain: no sensor readings available")

	// ErrBackendUnavailable is returned when the telemetry backend cannot be
	// reached or returns a non-2xx response.
	ErrBackendUnavailable = errors.New("domain: telemetry backend unavailable")

	// ErrActuatorUnavailable is returned when the actuator cannot be reached
	// or returns a non-2xx response.
	ErrActuatorUnavailable = errors.New("domain: actuator unavailable")

	// ErrForecastUnavailable is returned by the forecaster adapter when
	// preconditions fail or the model declines to answer.
	ErrForecastUnavailable = errors.New("domain: forecast unavailable")
)
