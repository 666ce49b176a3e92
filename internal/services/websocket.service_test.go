package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nabz/internal/models"
)

func newTestClient(id string) *ClientConnection {
	return &ClientConnection{
		ID:    id,
		Send:  make(chan WebSocketMessage, 16),
		Close: make(chan bool),
	}
}

func TestHubBroadcastsSnapshots(t *testing.T) {
	h := NewWebSocketHub(nil)
	defer h.Stop()

	client := newTestClient("c1")
	h.Register(client)

	h.BroadcastSnapshot(models.MetricSnapshot{Timestamp: time.Now()})

	select {
	case msg := <-client.Send:
		assert.Equal(t, "snapshot", msg.Type)
		assert.NotNil(t, msg.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestHubNotifiesCriticalAlerts(t *testing.T) {
	h := NewWebSocketHub(nil)
	defer h.Stop()

	client := newTestClient("c1")
	h.Register(client)

	h.NotifyCritical(models.Alert{
		ID:       "a1",
		Type:     models.AlertHighErrorRate,
		Severity: models.SeverityCritical,
	})

	select {
	case msg := <-client.Send:
		assert.Equal(t, "alert", msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no alert delivered")
	}
}

func TestHubRealtimeStats(t *testing.T) {
	h := NewWebSocketHub(nil)
	defer h.Stop()

	stats, err := h.RealtimeStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.ActiveSockets)

	h.Register(newTestClient("c1"))
	h.Register(newTestClient("c2"))

	require.Eventually(t, func() bool {
		stats, _ := h.RealtimeStats(context.Background())
		return stats.ActiveSockets == 2
	}, 2*time.Second, 5*time.Millisecond)

	h.Unregister("c1")
	require.Eventually(t, func() bool {
		stats, _ := h.RealtimeStats(context.Background())
		return stats.ActiveSockets == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHubSkipsSlowClients(t *testing.T) {
	h := NewWebSocketHub(nil)
	defer h.Stop()

	full := &ClientConnection{ID: "full", Send: make(chan WebSocketMessage)}
	healthy := newTestClient("healthy")
	h.Register(full)
	h.Register(healthy)

	require.Eventually(t, func() bool {
		stats, _ := h.RealtimeStats(context.Background())
		return stats.ActiveSockets == 2
	}, 2*time.Second, 5*time.Millisecond)

	h.BroadcastSnapshot(models.MetricSnapshot{})

	// the healthy client still gets the message; the full one is skipped
	select {
	case msg := <-healthy.Send:
		assert.Equal(t, "snapshot", msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("healthy client starved by a slow one")
	}
}
