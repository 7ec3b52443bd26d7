// Package telemetryclient implements the Telemetry Client (C4): a thin HTTP
// client over the data-backend service. Every call is bounded by the
// http.Client's DefaultTimeout, and by the caller's context deadline when
// that is shorter; there is no transparent retry here by design — the
// Supervisor's tick cadence is the retry mechanism.
package telemetryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/greenhouse-io/irrigator/internal/domain"
	"github.com/greenhouse-io/irrigator/internal/metrics"
)

// DefaultTimeout is the http.Client timeout applied to every request,
// whatever deadline the caller's context carries.
const DefaultTimeout = 8 * time.Second

// Client is a telemetry backend client bound to one base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client targeting baseURL (e.g. "http://backend:8000").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

type sensorReadingJSON struct {
	AirTemperature  float64 `json:"airTemperature"`
	AirHumidity     float64 `json:"airHumidity"`
	SoilMoisture    float64 `json:"soilMoisture"`
	SoilTemperature float64 `json:"soilTemperature"`
	Timestamp       string  `json:"timestamp"`
}

func (j sensorReadingJSON) toDomain() (domain.SensorReading, error) {
	ts, err := time.Parse(time.RFC3339, j.Timestamp)
	if err != nil {
		return domain.SensorReading{}, fmt.Errorf("telemetryclient: parse timestamp %q: %w", j.Timestamp, err)
	}
	return domain.SensorReading{
		AirTemperature:  j.AirTemperature,
		AirHumidity:     j.AirHumidity,
		SoilMoisture:    j.SoilMoisture,
		SoilTemperature: j.SoilTemperature,
		Timestamp:       ts,
	}, nil
}

// LatestReading fetches the most recent reading for id. The second return
// value is false if the backend reports no data ("missing" in spec terms).
func (c *Client) LatestReading(ctx context.Context, id string) (domain.SensorReading, bool, error) {
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			LatestReading  *sensorReadingJSON `json:"latestReading"`
			CurrentValues  *sensorReadingJSON `json:"currentValues"`
		} `json:"data"`
	}

	path := fmt.Sprintf("/sensor/greenhouse/%s/latest", id)
	if err := c.getJSON(ctx, "latest_reading", path, &body); err != nil {
		return domain.SensorReading{}, false, err
	}

	raw := body.Data.LatestReading
	if raw == nil {
		raw = body.Data.CurrentValues
	}
	if raw == nil {
		return domain.SensorReading{}, false, nil
	}
	reading, err := raw.toDomain()
	if err != nil {
		return domain.SensorReading{}, false, err
	}
	return reading, true, nil
}

// RecentWindow fetches up to maxPoints readings from the last hours hours,
// oldest first.
func (c *Client) RecentWindow(ctx context.Context, id string, hours, maxPoints int) ([]domain.SensorReading, error) {
	var body struct {
		Success bool                `json:"success"`
		Data    []sensorReadingJSON `json:"data"`
	}

	path := fmt.Sprintf("/sensor/greenhouse/%s/history?hours=%d&limit=%d", id, hours, maxPoints)
	if err := c.getJSON(ctx, "recent_window", path, &body); err != nil {
		return nil, err
	}

	out := make([]domain.SensorReading, 0, len(body.Data))
	for _, raw := range body.Data {
		reading, err := raw.toDomain()
		if err != nil {
			continue
		}
		out = append(out, reading)
	}
	return out, nil
}

// PlantConfigFields is the subset of GreenhouseConfig the backend owns for
// reloadConfig bootstrap.
type PlantConfigFields struct {
	GreenhouseID     string
	PlantType        string
	PlantName        string
	SoilMoistureMin  float64
	SoilMoistureMax  float64
	SoilMoistureIdeal *float64
}

// FetchPlantConfig fetches the backend's irrigation config record, used by
// reloadConfig.
func (c *Client) FetchPlantConfig(ctx context.Context) (PlantConfigFields, error) {
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			GreenhouseID      string   `json:"greenhouseId"`
			PlantType         string   `json:"plantType"`
			PlantName         string   `json:"plantName"`
			SoilMoistureMin   float64  `json:"soilMoistureMin"`
			SoilMoistureMax   float64  `json:"soilMoistureMax"`
			SoilMoistureIdeal *float64 `json:"soilMoistureIdeal"`
		} `json:"data"`
	}

	if err := c.getJSON(ctx, "fetch_plant_config", "/greenhouses/ai/irrigation-config", &body); err != nil {
		return PlantConfigFields{}, err
	}

	return PlantConfigFields{
		GreenhouseID:      body.Data.GreenhouseID,
		PlantType:         body.Data.PlantType,
		PlantName:         body.Data.PlantName,
		SoilMoistureMin:   body.Data.SoilMoistureMin,
		SoilMoistureMax:   body.Data.SoilMoistureMax,
		SoilMoistureIdeal: body.Data.SoilMoistureIdeal,
	}, nil
}

// ReportIrrigation posts an irrigation event. Fire-and-observe: the caller
// (the Pulse Executor) logs a failure here but never fails the sequence
// because of it.
func (c *Client) ReportIrrigation(ctx context.Context, event domain.IrrigationEvent) error {
	payload := map[string]any{
		"greenhouseId":    event.GreenhouseID,
		"status":          event.Status,
		"durationMs":      event.DurationMs,
		"pulseCount":      event.PulseCount,
		"moistureBefore":  event.MoistureBefore,
		"moistureAfter":   event.MoistureAfter,
		"targetMoisture":  event.TargetMoisture,
		"plantType":       event.PlantType,
		"actuatorHost":    event.ActuatorHost,
		"errorMessage":    event.ErrorMessage,
	}
	return c.postJSON(ctx, "report_irrigation", "/irrigation/ai/report", payload, nil)
}

// ReportPrediction posts a prediction notification payload.
func (c *Client) ReportPrediction(ctx context.Context, p domain.PredictionPayload) (domain.PredictionReport, error) {
	payload := map[string]any{
		"greenhouseId":      p.GreenhouseID,
		"predictionType":    p.PredictionType,
		"currentMoisture":   p.CurrentMoisture,
		"predictedMoisture": p.PredictedMoisture,
		"confidence":        p.Confidence,
		"horizonHours":      p.HorizonHours,
		"plantType":         p.PlantType,
		"recommendation":    p.Recommendation,
	}

	var resp struct {
		Success        bool   `json:"success"`
		Skipped        bool   `json:"skipped"`
		NotificationID string `json:"notificationId"`
	}
	if err := c.postJSON(ctx, "report_prediction", "/irrigation/ai/prediction", payload, &resp); err != nil {
		return domain.PredictionReport{}, err
	}

	return domain.PredictionReport{
		Accepted:       resp.Success && !resp.Skipped,
		Skipped:        resp.Skipped,
		NotificationID: resp.NotificationID,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, operation, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("telemetryclient: build request: %w", err)
	}
	return c.do(operation, req, out)
}

func (c *Client) postJSON(ctx context.Context, operation, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telemetryclient: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telemetryclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(operation, req, out)
}

func (c *Client) do(operation string, req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		metrics.BackendRequestsTotal.WithLabelValues(operation, "http_error").Inc()
		return fmt.Errorf("%w: status %d: %s", domain.ErrBackendUnavailable, resp.StatusCode, string(b))
	}

	if out == nil {
		metrics.BackendRequestsTotal.WithLabelValues(operation, "ok").Inc()
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(operation, "decode_error").Inc()
		return fmt.Errorf("telemetryclient: decode response: %w", err)
	}
	metrics.BackendRequestsTotal.WithLabelValues(operation, "ok").Inc()
	return nil
}
