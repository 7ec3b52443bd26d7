package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenhouse-io/irrigator/internal/controller"
	"github.com/greenhouse-io/irrigator/internal/domain"
	"github.com/greenhouse-io/irrigator/internal/executor"
	"github.com/greenhouse-io/irrigator/internal/registry"
	"github.com/greenhouse-io/irrigator/internal/telemetryclient"
)

type fakeTelemetry struct {
	reading domain.SensorReading
	have    bool
}

func (f *fakeTelemetry) LatestReading(ctx context.Context, id string) (domain.SensorReading, bool, error) {
	return f.reading, f.have, nil
}
func (f *fakeTelemetry) RecentWindow(ctx context.Context, id string, hours, maxPoints int) ([]domain.SensorReading, error) {
	return nil, nil
}
func (f *fakeTelemetry) FetchPlantConfig(ctx context.Context) (telemetryclient.PlantConfigFields, error) {
	return telemetryclient.PlantConfigFields{}, nil
}
func (f *fakeTelemetry) ReportIrrigation(ctx context.Context, event domain.IrrigationEvent) error {
	return nil
}

type fakeActuator struct{}

func (fakeActuator) ActivatePulse(ctx context.Context, endpoint string, durationMs int64) error {
	return nil
}
func (fakeActuator) PumpStatus(ctx context.Context, endpoint string) (domain.PumpStatus, error) {
	return domain.PumpStatus{"status": "idle"}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := registry.New()
	telemetry := &fakeTelemetry{have: true, reading: domain.SensorReading{SoilMoisture: 40, AirTemperature: 22, Timestamp: time.Now()}}
	actuator := fakeActuator{}
	ex := executor.New(actuator, telemetry, reg)
	ex.SetSleepFunc(func(time.Duration) {})
	ctrl := controller.New(reg, telemetry, actuator, ex)
	return httptest.NewServer(NewServer(ctrl, false).Handler())
}

func TestConfigureAndStatusOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"actuatorEndpoint": "10.0.0.5:80", "plantType": "tomato"})
	resp, err := http.Post(srv.URL+"/greenhouses/gh-1/configure", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/greenhouses/gh-1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var snap domain.StatusSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "10.0.0.5:80", snap.Config.ActuatorEndpoint)
}

func TestAnalyzeNotConfiguredReturns404(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/greenhouses/nope/analyze")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListPlantsOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/plants")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var plants map[string]domain.PlantProfile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plants))
	assert.Contains(t, plants, "default")
	assert.Contains(t, plants, "tomato")
}

func TestExecuteIrrigationOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"actuatorEndpoint": "10.0.0.5:80", "targetMoisturePct": 70.0})
	resp, err := http.Post(srv.URL+"/greenhouses/gh-2/configure", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/greenhouses/gh-2/irrigate", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result domain.IrrigationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.PulsesExecuted > 0)
}
