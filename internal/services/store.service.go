package services

import (
	"sort"
	"time"

	"nabz/internal/models"
)

// MetricStore keeps the bounded in-process history: snapshots ordered by
// timestamp, the alert set, and the raw response-time log used only for
// throughput queries. It is owned by the monitor loop and carries no
// internal locking; nothing outside that goroutine may touch it.
type MetricStore struct {
	snapshots []models.MetricSnapshot
	alerts    map[string]*models.Alert
	samples   []models.SampleLogEntry
}

// NewMetricStore creates an empty store.
func NewMetricStore() *MetricStore {
	return &MetricStore{
		alerts: make(map[string]*models.Alert),
	}
}

// Append inserts a snapshot at its timestamp position. The monitor appends
// in wall-clock order, so the binary search almost always lands at the end.
func (s *MetricStore) Append(snap models.MetricSnapshot) {
	i := sort.Search(len(s.snapshots), func(i int) bool {
		return s.snapshots[i].Timestamp.After(snap.Timestamp)
	})
	s.snapshots = append(s.snapshots, models.MetricSnapshot{})
	copy(s.snapshots[i+1:], s.snapshots[i:])
	s.snapshots[i] = snap
}

// Latest returns the most recent snapshot, if any exists yet.
func (s *MetricStore) Latest() (models.MetricSnapshot, bool) {
	if len(s.snapshots) == 0 {
		return models.MetricSnapshot{}, false
	}
	return s.snapshots[len(s.snapshots)-1], true
}

// RangeSince returns all snapshots with timestamp >= since, ascending.
func (s *MetricStore) RangeSince(since time.Time) []models.MetricSnapshot {
	i := sort.Search(len(s.snapshots), func(i int) bool {
		return !s.snapshots[i].Timestamp.Before(since)
	})
	out := make([]models.MetricSnapshot, len(s.snapshots)-i)
	copy(out, s.snapshots[i:])
	return out
}

// AppendSamples adds raw response-time log rows.
func (s *MetricStore) AppendSamples(entries []models.SampleLogEntry) {
	s.samples = append(s.samples, entries...)
}

// CountSamplesSince reports how many raw samples landed at or after t.
func (s *MetricStore) CountSamplesSince(t time.Time) int {
	i := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].Timestamp.Before(t)
	})
	return len(s.samples) - i
}

// InsertAlert stores an alert.
func (s *MetricStore) InsertAlert(a models.Alert) {
	stored := a
	s.alerts[a.ID] = &stored
}

// ActiveAlerts returns every alert not yet acknowledged, newest first.
func (s *MetricStore) ActiveAlerts() []models.Alert {
	out := make([]models.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if !a.Acknowledged {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// RecentAlerts returns up to n alerts regardless of acknowledgment,
// newest first.
func (s *MetricStore) RecentAlerts(n int) []models.Alert {
	out := make([]models.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Acknowledge marks an alert as handled. Unknown ids are a no-op; the call
// is idempotent either way.
func (s *MetricStore) Acknowledge(id string) bool {
	a, ok := s.alerts[id]
	if !ok {
		return false
	}
	a.Acknowledged = true
	return true
}

// Prune removes snapshots, alerts, and raw samples older than the cutoff
// and reports how many entries went away, so the cleanup job itself can be
// observed.
func (s *MetricStore) Prune(cutoff time.Time) int {
	removed := 0

	i := sort.Search(len(s.snapshots), func(i int) bool {
		return !s.snapshots[i].Timestamp.Before(cutoff)
	})
	if i > 0 {
		removed += i
		s.snapshots = append(s.snapshots[:0], s.snapshots[i:]...)
	}

	j := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].Timestamp.Before(cutoff)
	})
	if j > 0 {
		removed += j
		s.samples = append(s.samples[:0], s.samples[j:]...)
	}

	for id, a := range s.alerts {
		if a.Timestamp.Before(cutoff) {
			delete(s.alerts, id)
			removed++
		}
	}
	return removed
}
