package models

import "time"

// OperationStats holds the per-operation aggregate for one snapshot.
// All durations are milliseconds. Invariants: Min <= Avg <= Max and
// P95 <= P99; with fewer than two samples all percentiles equal the value.
type OperationStats struct {
	Count int     `json:"count"`
	AvgMS float64 `json:"avg_ms"`
	MinMS float64 `json:"min_ms"`
	MaxMS float64 `json:"max_ms"`
	P95MS float64 `json:"p95_ms"`
	P99MS float64 `json:"p99_ms"`
}

// MemoryBreakdown combines system-wide memory (gopsutil) with the agent
// process's own footprint (RSS and Go heap).
type MemoryBreakdown struct {
	TotalGB      float64 `json:"total_gb"`
	UsedGB       float64 `json:"used_gb"`
	AvailableGB  float64 `json:"available_gb"`
	UsagePercent float64 `json:"usage_percent"`
	ProcessGB    float64 `json:"process_gb"`
	HeapAllocGB  float64 `json:"heap_alloc_gb"`
}

// GCCounters carries Go runtime garbage-collection counters.
type GCCounters struct {
	NumGC        uint32  `json:"num_gc"`
	PauseTotalMS float64 `json:"pause_total_ms"`
}

// SystemStats is the polled OS/process resource shape. QueueLength is the
// one-minute load average rounded to an integer, the closest host analog of
// a scheduler run queue.
type SystemStats struct {
	CPUUsagePercent float64         `json:"cpu_usage_percent"`
	Memory          MemoryBreakdown `json:"memory"`
	ProcessCount    int             `json:"process_count"`
	GoroutineCount  int             `json:"goroutine_count"`
	QueueLength     int             `json:"queue_length"`
	GC              GCCounters      `json:"gc"`
	Error           string          `json:"error,omitempty"`
}

// CacheStats is the polled cache-backend shape. HitRatio is in [0, 1];
// with zero lookups (or on probe failure) it reports 0.
type CacheStats struct {
	HitRatio        float64 `json:"hit_ratio"`
	Hits            int64   `json:"hits"`
	Misses          int64   `json:"misses"`
	Evictions       int64   `json:"evictions"`
	Keys            int64   `json:"keys"`
	UsedMemoryBytes int64   `json:"used_memory_bytes"`
	Error           string  `json:"error,omitempty"`
}

// MessagingStats is the polled messaging-backend (pub/sub) shape.
type MessagingStats struct {
	Channels         int    `json:"channels"`
	Patterns         int    `json:"patterns"`
	ConnectedClients int64  `json:"connected_clients"`
	Error            string `json:"error,omitempty"`
}

// DatabaseStats is the polled connection-pool shape. QueueLength counts
// acquires that had to wait for a connection since the previous poll.
type DatabaseStats struct {
	PoolSize          int32   `json:"pool_size"`
	ActiveConnections int32   `json:"active_connections"`
	Utilization       float64 `json:"utilization"`
	SlowQueryCount    int64   `json:"slow_query_count"`
	QueueLength       int64   `json:"queue_length"`
	Error             string  `json:"error,omitempty"`
}

// RealtimeStats is the polled realtime-connection registry shape.
type RealtimeStats struct {
	ActiveSockets  int    `json:"active_sockets"`
	QueuedMessages int    `json:"queued_messages"`
	Error          string `json:"error,omitempty"`
}

// MetricSnapshot is one immutable aggregated measurement of everything the
// monitor tracks at a point in time. Identified by Timestamp; owned by the
// metric store once appended.
type MetricSnapshot struct {
	Timestamp         time.Time                 `json:"timestamp"`
	ResponseTimes     map[string]OperationStats `json:"response_times"`
	Cache             CacheStats                `json:"cache_stats"`
	Messaging         MessagingStats            `json:"messaging_stats"`
	System            SystemStats               `json:"system_stats"`
	Database          DatabaseStats             `json:"database_stats"`
	Realtime          RealtimeStats             `json:"realtime_stats"`
	ErrorCounts       map[string]int64          `json:"error_counts"`
	ActiveConnections int                       `json:"active_connections"`
	MessageThroughput float64                   `json:"message_throughput"`
}
