package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTelemetryEmitterRequiresURL(t *testing.T) {
	_, err := NewTelemetryEmitter("", "token", nil)
	assert.Error(t, err)

	_, err = NewTelemetryEmitter("   ", "token", nil)
	assert.Error(t, err)
}

func TestTelemetryEmit(t *testing.T) {
	var got TelemetryPayload
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	e, err := NewTelemetryEmitter(srv.URL+"/", "s3cret", srv.Client())
	require.NoError(t, err)

	payload := TelemetryPayload{
		ResponseTimeAvgMS:  120.5,
		CacheHitRatio:      0.85,
		MemoryUsagePercent: 61.2,
		ActiveConnections:  7,
		ErrorRate:          3,
	}
	require.NoError(t, e.Emit(context.Background(), payload))

	assert.Equal(t, "/v1/metrics", path)
	assert.Equal(t, "Bearer s3cret", auth)
	assert.Equal(t, payload, got)
}

func TestTelemetryEmitNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e, err := NewTelemetryEmitter(srv.URL, "", srv.Client())
	require.NoError(t, err)

	err = e.Emit(context.Background(), TelemetryPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestTelemetryEmitNoTokenOmitsHeader(t *testing.T) {
	var auth string
	gotHeader := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, gotHeader = r.Header["Authorization"]
	}))
	defer srv.Close()

	e, err := NewTelemetryEmitter(srv.URL, "", srv.Client())
	require.NoError(t, err)
	require.NoError(t, e.Emit(context.Background(), TelemetryPayload{}))

	assert.Empty(t, auth)
	assert.False(t, gotHeader)
}
