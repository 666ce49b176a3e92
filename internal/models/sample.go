package models

import "time"

// ResponseTimeSample is a single raw operation timing. Samples only live in
// the sample buffer until the next collection tick drains them.
type ResponseTimeSample struct {
	Operation  string    `json:"operation"`
	DurationMS float64   `json:"duration_ms"`
	ObservedAt time.Time `json:"observed_at"`
}

// ErrorKey identifies an error occurrence class inside the sample buffer.
// Occurrences are counted, not retained individually.
type ErrorKey struct {
	Type   string
	Detail string
}

// SampleLogEntry is one row of the raw response-time log kept by the metric
// store. The log exists only to answer throughput queries.
type SampleLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Operation  string    `json:"operation"`
	DurationMS float64   `json:"duration_ms"`
}
