package services

import (
	"sync"
	"time"

	"nabz/internal/models"
)

// SampleBuffer accumulates raw response-time samples and error occurrences
// between collection ticks. Producers on any goroutine call the record
// methods; only the monitor loop drains. The mutex covers the buffer alone,
// so a slow collection tick never blocks producers beyond a map append.
type SampleBuffer struct {
	mu      sync.Mutex
	samples map[string][]models.ResponseTimeSample
	errors  map[models.ErrorKey]int64
	now     func() time.Time
}

// NewSampleBuffer creates an empty buffer.
func NewSampleBuffer() *SampleBuffer {
	return &SampleBuffer{
		samples: make(map[string][]models.ResponseTimeSample),
		errors:  make(map[models.ErrorKey]int64),
		now:     time.Now,
	}
}

// RecordResponseTime enqueues one timing. It returns immediately and never
// fails; there is no backpressure, so between ticks the buffer grows with
// whatever producers send.
func (b *SampleBuffer) RecordResponseTime(operation string, durationMS float64) {
	sample := models.ResponseTimeSample{
		Operation:  operation,
		DurationMS: durationMS,
		ObservedAt: b.now(),
	}
	b.mu.Lock()
	b.samples[operation] = append(b.samples[operation], sample)
	b.mu.Unlock()
}

// RecordError counts one error occurrence. Occurrences are keyed by
// (type, detail) in the buffer and summed by type at aggregation time.
func (b *SampleBuffer) RecordError(errType, detail string) {
	key := models.ErrorKey{Type: errType, Detail: detail}
	b.mu.Lock()
	b.errors[key]++
	b.mu.Unlock()
}

// Drain atomically takes everything recorded so far and resets the buffer.
// A concurrent record lands either in the returned generation or the next
// one, never in both and never nowhere.
func (b *SampleBuffer) Drain() (map[string][]models.ResponseTimeSample, map[models.ErrorKey]int64) {
	b.mu.Lock()
	samples := b.samples
	errors := b.errors
	b.samples = make(map[string][]models.ResponseTimeSample)
	b.errors = make(map[models.ErrorKey]int64)
	b.mu.Unlock()
	return samples, errors
}

// Len reports how many samples are pending. Used for observability only.
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.samples {
		n += len(s)
	}
	return n
}
