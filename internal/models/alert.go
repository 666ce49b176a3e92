package models

import "time"

// AlertSeverity classifies how urgently an alert needs attention.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType names the threshold rule that raised an alert.
type AlertType string

const (
	AlertHighResponseTime       AlertType = "high_response_time"
	AlertVeryHighResponseTime   AlertType = "very_high_response_time"
	AlertHighCPUUsage           AlertType = "high_cpu_usage"
	AlertHighMemoryUsage        AlertType = "high_memory_usage"
	AlertLowCacheHitRatio       AlertType = "low_cache_hit_ratio"
	AlertDatabasePoolExhaustion AlertType = "database_pool_exhaustion"
	AlertHighSlowQueryCount     AlertType = "high_slow_query_count"
	AlertHighErrorRate          AlertType = "high_error_rate"
)

// Alert is a single threshold violation raised against one snapshot.
// Alerts are not deduplicated: a condition that persists raises a fresh
// alert on every evaluation tick until an operator acknowledges the backlog.
// Acknowledged is the only field that mutates after creation.
type Alert struct {
	ID           string        `json:"id"`
	Type         AlertType     `json:"type"`
	Severity     AlertSeverity `json:"severity"`
	Message      string        `json:"message"`
	Timestamp    time.Time     `json:"timestamp"`
	SnapshotTime time.Time     `json:"snapshot_time"`
	Acknowledged bool          `json:"acknowledged"`
}
