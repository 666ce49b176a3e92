package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	telemetryTimeout     = 5 * time.Second
	telemetryMaxErrBody  = 4096
	telemetryContentType = "application/json"
)

// TelemetryPayload is the fixed tuple pushed to the external telemetry
// collector after each collection tick.
type TelemetryPayload struct {
	ResponseTimeAvgMS  float64 `json:"response_time_avg"`
	CacheHitRatio      float64 `json:"cache_hit_ratio"`
	MemoryUsagePercent float64 `json:"memory_usage"`
	ActiveConnections  int     `json:"active_connections"`
	ErrorRate          float64 `json:"error_rate"`
}

// TelemetryEmitter pushes snapshots to an external collector, best-effort.
// The caller logs and drops any error; emission must never affect
// collection.
type TelemetryEmitter struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewTelemetryEmitter creates an emitter for the given collector endpoint.
func NewTelemetryEmitter(baseURL, token string, client *http.Client) (*TelemetryEmitter, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("telemetry base url required")
	}
	if client == nil {
		client = &http.Client{Timeout: telemetryTimeout}
	} else if client.Timeout == 0 {
		client.Timeout = telemetryTimeout
	}
	return &TelemetryEmitter{
		baseURL: trimmed,
		token:   strings.TrimSpace(token),
		client:  client,
	}, nil
}

// Emit posts one payload. Non-2xx responses are reported as errors with a
// capped slice of the body for context.
func (e *TelemetryEmitter) Emit(ctx context.Context, payload TelemetryPayload) error {
	if e == nil {
		return errors.New("telemetry emitter not initialised")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/metrics", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", telemetryContentType)
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, telemetryMaxErrBody))
		return fmt.Errorf("telemetry collector returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
