// Package forecaster wraps the external LSTM forecaster model (out of
// scope per spec §1 — treated as a pure function here) behind an Adapter
// that enforces the model's input contract: exactly 24 timesteps, four
// channels in a fixed order, already normalized by the preprocessor. The
// Decision Engine must behave sensibly when Forecast reports ErrForecastUnavailable.
package forecaster

import (
	"context"

	"github.com/greenhouse-io/irrigator/internal/domain"
)

// WindowLen is the number of timesteps the model requires.
const WindowLen = 24

// HorizonLen is the number of future values the model produces.
const HorizonLen = 12

// NormalizedRow is one already-preprocessed timestep, channel order fixed:
// airTemperature, airHumidity, soilMoisture, soilTemperature.
type NormalizedRow [4]float64

// Model is the external forecaster: window in, 12 normalized moisture
// predictions (in [0,1]) out, or an error if it cannot answer.
type Model interface {
	Predict(ctx context.Context, window []NormalizedRow) ([]float64, error)
}

// Adapter enforces the preconditions in spec §4.6 before delegating to the
// wrapped Model, and rescales its output to percent.
type Adapter struct {
	model Model
}

// New wraps model behind the precondition-checking Adapter.
func New(model Model) *Adapter {
	return &Adapter{model: model}
}

// Forecast returns a 12-element vector of predicted soil-moisture
// percentages for the next 12 hours, or domain.ErrForecastUnavailable if
// the model is unset, the window is the wrong length, or the model itself
// declines to answer.
func (a *Adapter) Forecast(ctx context.Context, window []NormalizedRow) ([]float64, error) {
	if a.model == nil {
		return nil, domain.ErrForecastUnavailable
	}
	if len(window) != WindowLen {
		return nil, domain.ErrForecastUnavailable
	}

	raw, err := a.model.Predict(ctx, window)
	if err != nil {
		return nil, domain.ErrForecastUnavailable
	}
	if len(raw) != HorizonLen {
		return nil, domain.ErrForecastUnavailable
	}

	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = v * 100
	}
	return out, nil
}

// NormalizeReadings is a placeholder for the preprocessor's responsibility
// (out of scope per spec §1): it applies normalize to each reading in order,
// so the Decision Engine's callers have one place to build a window from
// recent history. It checks nothing itself; the channel order is whatever
// normalize puts into each NormalizedRow.
func NormalizeReadings(readings []domain.SensorReading, normalize func(domain.SensorReading) NormalizedRow) []NormalizedRow {
	out := make([]NormalizedRow, len(readings))
	for i, r := range readings {
		out[i] = normalize(r)
	}
	return out
}

// Provider bundles an Adapter with a normalization function so the
// Supervisor can call it with raw history and get back a rescaled
// prediction in one step, satisfying supervisor.Forecasts.
type Provider struct {
	adapter   *Adapter
	normalize func(domain.SensorReading) NormalizedRow
}

// NewProvider returns a Provider wrapping adapter, normalizing readings
// with normalize before invoking the model.
func NewProvider(adapter *Adapter, normalize func(domain.SensorReading) NormalizedRow) *Provider {
	return &Provider{adapter: adapter, normalize: normalize}
}

// ForecastFor builds a window from last24 and forecasts for id. The id
// argument is accepted (not used in the window itself) so implementations
// that key a per-greenhouse model cache can use it.
func (p *Provider) ForecastFor(ctx context.Context, id string, last24 []domain.SensorReading) ([]float64, error) {
	window := NormalizeReadings(last24, p.normalize)
	return p.adapter.Forecast(ctx, window)
}

// DefaultNormalize divides each channel by a fixed scale, a stand-in for
// the preprocessor's real normalization (out of scope per spec §1) so this
// module is runnable end-to-end without an external preprocessing service.
func DefaultNormalize(r domain.SensorReading) NormalizedRow {
	return NormalizedRow{r.AirTemperature / 50, r.AirHumidity / 100, r.SoilMoisture / 100, r.SoilTemperature / 50}
}
