package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedTimings struct {
	mu        sync.Mutex
	responses []float64
	errors    []string
}

func (c *capturedTimings) RecordResponseTime(operation string, durationMS float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if operation == "db.query" {
		c.responses = append(c.responses, durationMS)
	}
}

func (c *capturedTimings) RecordError(errType, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, errType+": "+detail)
}

func TestQueryTrackerRecordsLatency(t *testing.T) {
	rec := &capturedTimings{}
	tr := NewQueryTracker(rec, 100)

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "select 1"})
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	require.Len(t, rec.responses, 1)
	assert.GreaterOrEqual(t, rec.responses[0], 0.0)
	assert.Empty(t, rec.errors)
	assert.Equal(t, int64(0), tr.TakeSlowCount())
}

func TestQueryTrackerCountsFailures(t *testing.T) {
	rec := &capturedTimings{}
	tr := NewQueryTracker(rec, 100)

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "select broken"})
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("relation does not exist")})

	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "db_query_failed")
	assert.Contains(t, rec.errors[0], "relation does not exist")
}

func TestQueryTrackerSlowCount(t *testing.T) {
	rec := &capturedTimings{}
	tr := NewQueryTracker(rec, 5)

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{})
	time.Sleep(10 * time.Millisecond)
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	fast := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{})
	tr.TraceQueryEnd(fast, nil, pgx.TraceQueryEndData{})

	assert.Equal(t, int64(1), tr.TakeSlowCount())
	// the counter resets on read
	assert.Equal(t, int64(0), tr.TakeSlowCount())
}

func TestQueryTrackerEndWithoutStart(t *testing.T) {
	rec := &capturedTimings{}
	tr := NewQueryTracker(rec, 100)

	tr.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	assert.Empty(t, rec.responses)
}
