package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"nabz/internal/models"
)

// Thresholds carries every alert-rule limit in one place so the rule table
// stays declarative and tests can tighten or relax individual rules.
type Thresholds struct {
	AvgResponseWarnMS   float64
	P95CriticalMS       float64
	CPUWarnPercent      float64
	MemoryWarnPercent   float64
	CacheHitWarnRatio   float64
	PoolCriticalPercent float64
	SlowQueryWarnCount  int64
	ErrorCriticalCount  int64
}

// DefaultThresholds returns the stock rule limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AvgResponseWarnMS:   500,
		P95CriticalMS:       1000, // 2x the average-response threshold
		CPUWarnPercent:      80,
		MemoryWarnPercent:   85,
		CacheHitWarnRatio:   0.7,
		PoolCriticalPercent: 90,
		SlowQueryWarnCount:  10,
		ErrorCriticalCount:  50,
	}
}

type alertRule struct {
	Type     models.AlertType
	Severity models.AlertSeverity
	// Check returns whether the rule fires against the snapshot and a
	// human-readable message embedding the offending value.
	Check func(t Thresholds, s models.MetricSnapshot) (bool, string)
}

// AlertEvaluator inspects the freshest snapshot against the rule table.
// Evaluation is stateless: there is no debouncing, so a condition that
// persists raises a new alert on every tick it is checked. That backlog is
// intentional and accumulates until acknowledged.
type AlertEvaluator struct {
	thresholds Thresholds
	rules      []alertRule
	now        func() time.Time
}

// NewAlertEvaluator builds an evaluator with the given thresholds.
func NewAlertEvaluator(t Thresholds) *AlertEvaluator {
	return &AlertEvaluator{
		thresholds: t,
		rules:      ruleTable(),
		now:        time.Now,
	}
}

// Evaluate returns at most one alert per rule for the snapshot.
func (e *AlertEvaluator) Evaluate(s models.MetricSnapshot) []models.Alert {
	var alerts []models.Alert
	for _, rule := range e.rules {
		fired, message := rule.Check(e.thresholds, s)
		if !fired {
			continue
		}
		alerts = append(alerts, models.Alert{
			ID:           uuid.NewString(),
			Type:         rule.Type,
			Severity:     rule.Severity,
			Message:      message,
			Timestamp:    e.now(),
			SnapshotTime: s.Timestamp,
		})
	}
	return alerts
}

// slowestOver finds the worst operation whose selected statistic exceeds
// the limit. Ties break by name so messages are stable.
func slowestOver(s models.MetricSnapshot, limit float64, stat func(models.OperationStats) float64) (string, float64, bool) {
	names := make([]string, 0, len(s.ResponseTimes))
	for name := range s.ResponseTimes {
		names = append(names, name)
	}
	sort.Strings(names)

	worstName := ""
	worstValue := 0.0
	for _, name := range names {
		v := stat(s.ResponseTimes[name])
		if v > limit && v > worstValue {
			worstName = name
			worstValue = v
		}
	}
	return worstName, worstValue, worstName != ""
}

func totalErrors(s models.MetricSnapshot) int64 {
	var total int64
	for _, c := range s.ErrorCounts {
		total += c
	}
	return total
}

func ruleTable() []alertRule {
	return []alertRule{
		{
			Type:     models.AlertHighResponseTime,
			Severity: models.SeverityWarning,
			Check: func(t Thresholds, s models.MetricSnapshot) (bool, string) {
				name, v, ok := slowestOver(s, t.AvgResponseWarnMS, func(o models.OperationStats) float64 { return o.AvgMS })
				if !ok {
					return false, ""
				}
				return true, fmt.Sprintf("operation %q average response time %.0fms exceeds %.0fms", name, v, t.AvgResponseWarnMS)
			},
		},
		{
			Type:     models.AlertVeryHighResponseTime,
			Severity: models.SeverityCritical,
			Check: func(t Thresholds, s models.MetricSnapshot) (bool, string) {
				name, v, ok := slowestOver(s, t.P95CriticalMS, func(o models.OperationStats) float64 { return o.P95MS })
				if !ok {
					return false, ""
				}
				return true, fmt.Sprintf("operation %q p95 response time %.0fms exceeds %.0fms", name, v, t.P95CriticalMS)
			},
		},
		{
			Type:     models.AlertHighCPUUsage,
			Severity: models.SeverityWarning,
			Check: func(t Thresholds, s models.MetricSnapshot) (bool, string) {
				if s.System.CPUUsagePercent <= t.CPUWarnPercent {
					return false, ""
				}
				return true, fmt.Sprintf("CPU usage %.0f%% exceeds %.0f%%", s.System.CPUUsagePercent, t.CPUWarnPercent)
			},
		},
		{
			Type:     models.AlertHighMemoryUsage,
			Severity: models.SeverityWarning,
			Check: func(t Thresholds, s models.MetricSnapshot) (bool, string) {
				if s.System.Memory.UsagePercent <= t.MemoryWarnPercent {
					return false, ""
				}
				return true, fmt.Sprintf("memory usage %.0f%% exceeds %.0f%%", s.System.Memory.UsagePercent, t.MemoryWarnPercent)
			},
		},
		{
			Type:     models.AlertLowCacheHitRatio,
			Severity: models.SeverityWarning,
			Check: func(t Thresholds, s models.MetricSnapshot) (bool, string) {
				if s.Cache.HitRatio >= t.CacheHitWarnRatio {
					return false, ""
				}
				return true, fmt.Sprintf("cache hit ratio %.2f below %.2f", s.Cache.HitRatio, t.CacheHitWarnRatio)
			},
		},
		{
			Type:     models.AlertDatabasePoolExhaustion,
			Severity: models.SeverityCritical,
			Check: func(t Thresholds, s models.MetricSnapshot) (bool, string) {
				if s.Database.Utilization <= t.PoolCriticalPercent {
					return false, ""
				}
				return true, fmt.Sprintf("database pool utilization %.0f%% exceeds %.0f%%", s.Database.Utilization, t.PoolCriticalPercent)
			},
		},
		{
			Type:     models.AlertHighSlowQueryCount,
			Severity: models.SeverityWarning,
			Check: func(t Thresholds, s models.MetricSnapshot) (bool, string) {
				if s.Database.SlowQueryCount <= t.SlowQueryWarnCount {
					return false, ""
				}
				return true, fmt.Sprintf("%d slow queries exceed limit of %d", s.Database.SlowQueryCount, t.SlowQueryWarnCount)
			},
		},
		{
			Type:     models.AlertHighErrorRate,
			Severity: models.SeverityCritical,
			Check: func(t Thresholds, s models.MetricSnapshot) (bool, string) {
				total := totalErrors(s)
				if total <= t.ErrorCriticalCount {
					return false, ""
				}
				return true, fmt.Sprintf("%d errors in interval exceed limit of %d", total, t.ErrorCriticalCount)
			},
		},
	}
}
