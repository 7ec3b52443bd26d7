// Package actuatorclient implements the Actuator Client (C5): a thin HTTP
// client over the greenhouse's pump firmware. No implicit retries —
// retrying an actuator write without reading back whether the valve opened
// is unsafe, so a failed activatePulse call is simply reported as an error
// by the caller (the Pulse Executor).
package actuatorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/greenhouse-io/irrigator/internal/domain"
	"github.com/greenhouse-io/irrigator/internal/metrics"
)

// Timeout bounds every call to the actuator.
const Timeout = 10 * time.Second

// Client is an actuator client; it is not bound to one endpoint because a
// single process drives many greenhouses, each with its own actuator host.
type Client struct {
	http *http.Client
}

// New returns a Client.
func New() *Client {
	return &Client{http: &http.Client{Timeout: Timeout}}
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "http://" + endpoint
	}
	return endpoint
}

// ActivatePulse requests the actuator run the pump for durationMs
// milliseconds. HTTP 2xx is success; anything else is error. There is no
// acknowledgement of completion — the caller does not know when the pump
// actually stops, only that activation was accepted.
func (c *Client) ActivatePulse(ctx context.Context, endpoint string, durationMs int64) error {
	body, err := json.Marshal(map[string]int64{"duration_ms": durationMs})
	if err != nil {
		return fmt.Errorf("actuatorclient: marshal payload: %w", err)
	}

	url := normalizeEndpoint(endpoint) + "/pump/activate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("actuatorclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ActuatorRequestsTotal.WithLabelValues("activate_pulse", "error").Inc()
		return fmt.Errorf("%w: %v", domain.ErrActuatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ActuatorRequestsTotal.WithLabelValues("activate_pulse", "http_error").Inc()
		return fmt.Errorf("%w: status %d", domain.ErrActuatorUnavailable, resp.StatusCode)
	}
	metrics.ActuatorRequestsTotal.WithLabelValues("activate_pulse", "ok").Inc()
	return nil
}

// PumpStatus fetches the actuator's opaque diagnostic status. It is used
// only by the analyze Lifecycle API operation; failures are non-fatal to
// the caller and should be surfaced as a nil map.
func (c *Client) PumpStatus(ctx context.Context, endpoint string) (domain.PumpStatus, error) {
	url := normalizeEndpoint(endpoint) + "/pump/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("actuatorclient: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ActuatorRequestsTotal.WithLabelValues("pump_status", "error").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrActuatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ActuatorRequestsTotal.WithLabelValues("pump_status", "http_error").Inc()
		return nil, fmt.Errorf("%w: status %d", domain.ErrActuatorUnavailable, resp.StatusCode)
	}

	var status domain.PumpStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		metrics.ActuatorRequestsTotal.WithLabelValues("pump_status", "decode_error").Inc()
		return nil, fmt.Errorf("actuatorclient: decode response: %w", err)
	}
	metrics.ActuatorRequestsTotal.WithLabelValues("pump_status", "ok").Inc()
	return status, nil
}
