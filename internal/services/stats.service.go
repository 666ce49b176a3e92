package services

import (
	"fmt"
	"math"
	"sort"

	"nabz/internal/models"
)

// Statistics helpers shared by the monitor's collection tick and the
// dashboard query handlers. Everything here is a pure function.

// Percentile computes a nearest-rank percentile: sort ascending and index
// at round(p * (n-1)), clamped to the valid range. An empty input yields 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(math.Round(p * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// AggregateOperation builds the per-operation aggregate for one snapshot.
func AggregateOperation(durations []float64) models.OperationStats {
	if len(durations) == 0 {
		return models.OperationStats{}
	}
	min := durations[0]
	max := durations[0]
	sum := 0.0
	for _, d := range durations {
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
		sum += d
	}
	return models.OperationStats{
		Count: len(durations),
		AvgMS: sum / float64(len(durations)),
		MinMS: min,
		MaxMS: max,
		P95MS: Percentile(durations, 0.95),
		P99MS: Percentile(durations, 0.99),
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ComputeHealthScore derives the 0-100 composite from a snapshot. With no
// tracked operations the response sub-score is 100 (zero load, not zero
// score). The memory penalty constant and the unweighted mean are kept
// as-is for compatibility with the thresholds operators already know.
func ComputeHealthScore(s models.MetricSnapshot) models.HealthScore {
	response := 100.0
	if len(s.ResponseTimes) > 0 {
		sum := 0.0
		for _, op := range s.ResponseTimes {
			sum += op.AvgMS
		}
		avgOfAvgs := sum / float64(len(s.ResponseTimes))
		response = clampScore(100 - avgOfAvgs/10)
	}
	cpu := clampScore(100 - s.System.CPUUsagePercent)
	memory := clampScore(100 - s.System.Memory.ProcessGB*25)
	cache := clampScore(s.Cache.HitRatio * 100)

	return models.HealthScore{
		Overall:  (response + cpu + memory + cache) / 4,
		Response: response,
		CPU:      cpu,
		Memory:   memory,
		Cache:    cache,
	}
}

// Trend classifies a numeric series by comparing the averages of its two
// halves; an odd-length series gives the extra element to the second half.
// Fewer than two points is always stable.
func Trend(series []float64) models.TrendDirection {
	if len(series) < 2 {
		return models.TrendStable
	}
	mid := len(series) / 2
	firstAvg := mean(series[:mid])
	secondAvg := mean(series[mid:])
	switch {
	case secondAvg > firstAvg*1.1:
		return models.TrendIncreasing
	case secondAvg < firstAvg*0.9:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// IdentifyBottlenecks ranks what is most likely limiting the system: the
// three slowest operations by average, plus resource entries for elevated
// CPU, process memory, and database acquire queueing.
func IdentifyBottlenecks(s models.MetricSnapshot) []models.Bottleneck {
	type opAvg struct {
		name string
		avg  float64
	}
	ops := make([]opAvg, 0, len(s.ResponseTimes))
	for name, st := range s.ResponseTimes {
		ops = append(ops, opAvg{name: name, avg: st.AvgMS})
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].avg != ops[j].avg {
			return ops[i].avg > ops[j].avg
		}
		return ops[i].name < ops[j].name
	})
	if len(ops) > 3 {
		ops = ops[:3]
	}

	bottlenecks := make([]models.Bottleneck, 0, len(ops)+3)
	for _, op := range ops {
		bottlenecks = append(bottlenecks, models.Bottleneck{
			Kind:    "operation",
			Name:    op.name,
			Value:   op.avg,
			Message: fmt.Sprintf("%s averaging %.1fms", op.name, op.avg),
		})
	}
	if s.System.CPUUsagePercent > 70 {
		bottlenecks = append(bottlenecks, models.Bottleneck{
			Kind:    "cpu",
			Name:    "cpu",
			Value:   s.System.CPUUsagePercent,
			Message: fmt.Sprintf("CPU at %.1f%%", s.System.CPUUsagePercent),
		})
	}
	if s.System.Memory.ProcessGB > 2 {
		bottlenecks = append(bottlenecks, models.Bottleneck{
			Kind:    "memory",
			Name:    "memory",
			Value:   s.System.Memory.ProcessGB,
			Message: fmt.Sprintf("process memory at %.2fGB", s.System.Memory.ProcessGB),
		})
	}
	if s.Database.QueueLength > 10 {
		bottlenecks = append(bottlenecks, models.Bottleneck{
			Kind:    "database",
			Name:    "database_queue",
			Value:   float64(s.Database.QueueLength),
			Message: fmt.Sprintf("%d acquires waited on the pool", s.Database.QueueLength),
		})
	}
	return bottlenecks
}
