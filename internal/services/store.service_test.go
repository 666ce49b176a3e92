package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nabz/internal/models"
)

func snapAt(ts time.Time) models.MetricSnapshot {
	return models.MetricSnapshot{Timestamp: ts}
}

func TestMetricStoreAppendKeepsOrder(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s := NewMetricStore()

	// out of order on purpose
	s.Append(snapAt(base.Add(2 * time.Minute)))
	s.Append(snapAt(base))
	s.Append(snapAt(base.Add(1 * time.Minute)))

	got := s.RangeSince(time.Time{})
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
}

func TestMetricStoreLatest(t *testing.T) {
	s := NewMetricStore()
	_, ok := s.Latest()
	assert.False(t, ok)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.Append(snapAt(base))
	s.Append(snapAt(base.Add(time.Minute)))

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Minute), latest.Timestamp)
}

func TestMetricStoreRangeSince(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s := NewMetricStore()
	for i := 0; i < 5; i++ {
		s.Append(snapAt(base.Add(time.Duration(i) * time.Minute)))
	}

	got := s.RangeSince(base.Add(3 * time.Minute))
	require.Len(t, got, 2)
	assert.Equal(t, base.Add(3*time.Minute), got[0].Timestamp)

	assert.Empty(t, s.RangeSince(base.Add(time.Hour)))
}

func TestMetricStoreCountSamplesSince(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s := NewMetricStore()
	entries := make([]models.SampleLogEntry, 10)
	for i := range entries {
		entries[i] = models.SampleLogEntry{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Operation: "api.get",
		}
	}
	s.AppendSamples(entries)

	assert.Equal(t, 10, s.CountSamplesSince(base))
	assert.Equal(t, 4, s.CountSamplesSince(base.Add(6*time.Second)))
	assert.Equal(t, 0, s.CountSamplesSince(base.Add(time.Minute)))
}

func TestMetricStoreAlertLifecycle(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s := NewMetricStore()
	s.InsertAlert(models.Alert{ID: "a1", Timestamp: base})
	s.InsertAlert(models.Alert{ID: "a2", Timestamp: base.Add(time.Minute)})
	s.InsertAlert(models.Alert{ID: "a3", Timestamp: base.Add(2 * time.Minute)})

	active := s.ActiveAlerts()
	require.Len(t, active, 3)
	assert.Equal(t, "a3", active[0].ID) // newest first

	assert.True(t, s.Acknowledge("a2"))
	active = s.ActiveAlerts()
	require.Len(t, active, 2)
	for _, a := range active {
		assert.NotEqual(t, "a2", a.ID)
	}

	// acknowledged alerts still show in the recent view
	recent := s.RecentAlerts(10)
	assert.Len(t, recent, 3)
	recent = s.RecentAlerts(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "a3", recent[0].ID)
}

func TestMetricStoreAcknowledgeUnknownID(t *testing.T) {
	s := NewMetricStore()
	s.InsertAlert(models.Alert{ID: "a1"})

	assert.False(t, s.Acknowledge("nope"))
	assert.Len(t, s.ActiveAlerts(), 1)
}

func TestMetricStorePrune(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cutoff := base.Add(30 * time.Minute)
	s := NewMetricStore()

	for i := 0; i < 6; i++ {
		ts := base.Add(time.Duration(i) * 10 * time.Minute)
		s.Append(snapAt(ts))
		s.AppendSamples([]models.SampleLogEntry{{Timestamp: ts}})
	}
	s.InsertAlert(models.Alert{ID: "old", Timestamp: base})
	s.InsertAlert(models.Alert{ID: "new", Timestamp: base.Add(time.Hour)})

	// 3 snapshots + 3 samples before the cutoff, plus one alert
	removed := s.Prune(cutoff)
	assert.Equal(t, 7, removed)

	got := s.RangeSince(time.Time{})
	require.Len(t, got, 3)
	assert.Equal(t, cutoff, got[0].Timestamp)
	assert.Equal(t, 3, s.CountSamplesSince(time.Time{}))

	active := s.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, "new", active[0].ID)

	assert.Equal(t, 0, s.Prune(cutoff))
}
