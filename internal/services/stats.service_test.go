package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nabz/internal/models"
)

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{0.5, 60},  // round(0.5*9)=5
		{0.95, 100}, // round(0.95*9)=9
		{0.99, 100},
		{1, 100},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("p%.2f", tc.p), func(t *testing.T) {
			assert.Equal(t, tc.want, Percentile(values, tc.p))
		})
	}
}

func TestPercentileEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 0.95))
}

func TestPercentileSingleValue(t *testing.T) {
	for _, p := range []float64{0, 0.5, 0.95, 1} {
		assert.Equal(t, 42.0, Percentile([]float64{42}, p))
	}
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Percentile(values, 0.5)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestAggregateOperation(t *testing.T) {
	stats := AggregateOperation([]float64{100, 300, 200})

	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 200, stats.AvgMS, 0.001)
	assert.Equal(t, 100.0, stats.MinMS)
	assert.Equal(t, 300.0, stats.MaxMS)
	assert.Equal(t, 300.0, stats.P95MS)
	assert.Equal(t, 300.0, stats.P99MS)
}

func TestAggregateOperationUniformSamples(t *testing.T) {
	stats := AggregateOperation([]float64{50, 50, 50, 50, 50})

	assert.Equal(t, models.OperationStats{
		Count: 5,
		AvgMS: 50,
		MinMS: 50,
		MaxMS: 50,
		P95MS: 50,
		P99MS: 50,
	}, stats)
}

func TestAggregateOperationEmpty(t *testing.T) {
	assert.Equal(t, models.OperationStats{}, AggregateOperation(nil))
}

func TestComputeHealthScoreMidrange(t *testing.T) {
	snap := models.MetricSnapshot{
		ResponseTimes: map[string]models.OperationStats{
			"api.get": {AvgMS: 200},
		},
		System: models.SystemStats{
			CPUUsagePercent: 40,
			Memory:          models.MemoryBreakdown{ProcessGB: 1},
		},
		Cache: models.CacheStats{HitRatio: 0.5},
	}

	score := ComputeHealthScore(snap)
	assert.InDelta(t, 80, score.Response, 0.001) // 100 - 200/10
	assert.InDelta(t, 60, score.CPU, 0.001)
	assert.InDelta(t, 75, score.Memory, 0.001) // 100 - 1*25
	assert.InDelta(t, 50, score.Cache, 0.001)  // hit ratio 0.5
	assert.InDelta(t, (80+60+75+50)/4.0, score.Overall, 0.001)
}

func TestComputeHealthScoreNoOperations(t *testing.T) {
	snap := models.MetricSnapshot{
		Cache: models.CacheStats{HitRatio: 1},
	}
	score := ComputeHealthScore(snap)
	assert.Equal(t, 100.0, score.Response)
}

func TestComputeHealthScoreClampsAtZero(t *testing.T) {
	snap := models.MetricSnapshot{
		ResponseTimes: map[string]models.OperationStats{
			"slow": {AvgMS: 5000},
		},
		System: models.SystemStats{
			CPUUsagePercent: 100,
			Memory:          models.MemoryBreakdown{ProcessGB: 8},
		},
	}

	score := ComputeHealthScore(snap)
	assert.Equal(t, 0.0, score.Response)
	assert.Equal(t, 0.0, score.CPU)
	assert.Equal(t, 0.0, score.Memory)
	assert.Equal(t, 0.0, score.Cache)
	assert.Equal(t, 0.0, score.Overall)
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   models.TrendDirection
	}{
		{"increasing", []float64{10, 10, 20, 20}, models.TrendIncreasing},
		{"decreasing", []float64{20, 20, 10, 10}, models.TrendDecreasing},
		{"flat", []float64{10, 10, 10, 10}, models.TrendStable},
		{"within band", []float64{100, 100, 105, 105}, models.TrendStable},
		{"single point", []float64{10}, models.TrendStable},
		{"empty", nil, models.TrendStable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Trend(tc.series))
		})
	}
}

func TestTrendOddLengthGivesExtraToSecondHalf(t *testing.T) {
	// halves are {0} and {100, 100}: second average 100 vs first 0
	assert.Equal(t, models.TrendIncreasing, Trend([]float64{0, 100, 100}))
}

func TestIdentifyBottlenecksTopOperations(t *testing.T) {
	snap := models.MetricSnapshot{
		ResponseTimes: map[string]models.OperationStats{
			"a": {AvgMS: 100},
			"b": {AvgMS: 400},
			"c": {AvgMS: 300},
			"d": {AvgMS: 200},
		},
	}

	got := IdentifyBottlenecks(snap)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
	assert.Equal(t, "d", got[2].Name)
	assert.Equal(t, "operation", got[0].Kind)
}

func TestIdentifyBottlenecksResources(t *testing.T) {
	snap := models.MetricSnapshot{
		System: models.SystemStats{
			CPUUsagePercent: 85,
			Memory:          models.MemoryBreakdown{ProcessGB: 3},
		},
		Database: models.DatabaseStats{QueueLength: 25},
	}

	got := IdentifyBottlenecks(snap)
	require.Len(t, got, 3)
	kinds := []string{got[0].Kind, got[1].Kind, got[2].Kind}
	assert.Equal(t, []string{"cpu", "memory", "database"}, kinds)
}

func TestIdentifyBottlenecksHealthySystem(t *testing.T) {
	snap := models.MetricSnapshot{
		System: models.SystemStats{
			CPUUsagePercent: 30,
			Memory:          models.MemoryBreakdown{ProcessGB: 0.5},
		},
	}
	assert.Empty(t, IdentifyBottlenecks(snap))
}
