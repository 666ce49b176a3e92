package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nabz/internal/models"
)

// timingRecorder is the sink query timings feed into; the monitor's sample
// buffer satisfies it.
type timingRecorder interface {
	RecordResponseTime(operation string, durationMS float64)
	RecordError(errType, detail string)
}

// QueryTracker instruments pgx queries: every query's latency is recorded
// as a "db.query" sample, failures count as errors, and queries past the
// slow threshold are tallied for the pool probe.
type QueryTracker struct {
	recorder  timingRecorder
	slowMS    float64
	slowCount atomic.Int64
}

type queryStartKey struct{}

// NewQueryTracker creates a tracker with the given slow-query threshold.
func NewQueryTracker(recorder timingRecorder, slowMS float64) *QueryTracker {
	if slowMS <= 0 {
		slowMS = 100
	}
	return &QueryTracker{recorder: recorder, slowMS: slowMS}
}

// TraceQueryStart implements pgx.QueryTracer.
func (t *QueryTracker) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, time.Now())
}

// TraceQueryEnd implements pgx.QueryTracer.
func (t *QueryTracker) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsedMS := float64(time.Since(start)) / float64(time.Millisecond)
	if t.recorder != nil {
		t.recorder.RecordResponseTime("db.query", elapsedMS)
		if data.Err != nil {
			t.recorder.RecordError("db_query_failed", data.Err.Error())
		}
	}
	if elapsedMS > t.slowMS {
		t.slowCount.Add(1)
	}
}

// TakeSlowCount returns and resets the slow queries seen since last call.
func (t *QueryTracker) TakeSlowCount() int64 {
	return t.slowCount.Swap(0)
}

// PoolProbe reads utilization numbers off a pgx connection pool.
type PoolProbe struct {
	pool    *pgxpool.Pool
	tracker *QueryTracker

	// EmptyAcquireCount is cumulative over the pool's lifetime; the delta
	// between polls is the number of acquires that had to wait.
	lastEmptyAcquire int64
}

// NewPoolProbe wraps an existing pool. The tracker may be nil when query
// tracing is not wired.
func NewPoolProbe(pool *pgxpool.Pool, tracker *QueryTracker) *PoolProbe {
	return &PoolProbe{pool: pool, tracker: tracker}
}

// DatabaseStats implements DatabaseProber.
func (p *PoolProbe) DatabaseStats(_ context.Context) (models.DatabaseStats, error) {
	stat := p.pool.Stat()

	stats := models.DatabaseStats{
		PoolSize:          stat.MaxConns(),
		ActiveConnections: stat.AcquiredConns(),
	}
	if stat.MaxConns() > 0 {
		stats.Utilization = float64(stat.AcquiredConns()) / float64(stat.MaxConns()) * 100
	}

	empty := stat.EmptyAcquireCount()
	stats.QueueLength = empty - p.lastEmptyAcquire
	if stats.QueueLength < 0 {
		stats.QueueLength = 0
	}
	p.lastEmptyAcquire = empty

	if p.tracker != nil {
		stats.SlowQueryCount = p.tracker.TakeSlowCount()
	}
	return stats, nil
}

// NewInstrumentedPool builds a pgx pool whose queries report into the
// recorder, plus the matching probe.
func NewInstrumentedPool(ctx context.Context, databaseURL string, recorder timingRecorder, slowMS float64) (*pgxpool.Pool, *PoolProbe, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	tracker := NewQueryTracker(recorder, slowMS)
	cfg.ConnConfig.Tracer = tracker

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return pool, NewPoolProbe(pool, tracker), nil
}
