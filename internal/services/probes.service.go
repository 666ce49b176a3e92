package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nabz/internal/models"
)

// Prober interfaces keep each external collaborator behind the narrowest
// possible contract. A probe may block briefly on the network; the ProbeSet
// wrapper bounds that with a per-probe timeout and turns every failure mode
// (error, timeout, panic, missing backend) into a safe default so a flaky
// collaborator can never abort a collection tick.

type CacheProber interface {
	CacheStats(ctx context.Context) (models.CacheStats, error)
}

type MessagingProber interface {
	MessagingStats(ctx context.Context) (models.MessagingStats, error)
}

type DatabaseProber interface {
	DatabaseStats(ctx context.Context) (models.DatabaseStats, error)
}

type RealtimeProber interface {
	RealtimeStats(ctx context.Context) (models.RealtimeStats, error)
}

type SystemProber interface {
	SystemStats(ctx context.Context) (models.SystemStats, error)
}

// lastGoodWindow bounds how long a degraded probe keeps reporting its last
// successful values (still flagged with the Error field) before falling
// back to zeros.
const lastGoodWindow = 5 * time.Minute

// ProbeSet bundles the probers behind failure isolation. Any prober may be
// nil, which reads as a permanently unavailable backend.
type ProbeSet struct {
	Cache     CacheProber
	Messaging MessagingProber
	Database  DatabaseProber
	Realtime  RealtimeProber
	System    SystemProber

	Timeout time.Duration
	logger  *zap.Logger

	mu   sync.Mutex
	good struct {
		cache       models.CacheStats
		cacheAt     time.Time
		messaging   models.MessagingStats
		messagingAt time.Time
		database    models.DatabaseStats
		databaseAt  time.Time
	}
	now func() time.Time
}

// NewProbeSet wires the probers with a shared per-probe timeout.
func NewProbeSet(timeout time.Duration, logger *zap.Logger) *ProbeSet {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProbeSet{
		Timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// probe runs fn under the per-probe timeout with panic recovery. The result
// arrives on a channel so a hung backend cannot stall the collection tick
// past the deadline; the abandoned goroutine finishes on its own.
func probe[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("probe panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{value: v, err: err}
	}()

	select {
	case res := <-ch:
		return res.value, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// CollectCache polls the cache backend. On failure it returns the last
// known good values while they are fresh enough, otherwise the zero shape;
// either way the Error field is set and a warning logged.
func (p *ProbeSet) CollectCache(ctx context.Context) models.CacheStats {
	if p.Cache == nil {
		return models.CacheStats{Error: "cache backend unavailable"}
	}
	stats, err := probe(ctx, p.Timeout, p.Cache.CacheStats)
	if err != nil {
		p.logger.Warn("cache probe failed", zap.Error(err))
		fallback := models.CacheStats{}
		p.mu.Lock()
		if !p.good.cacheAt.IsZero() && p.now().Sub(p.good.cacheAt) < lastGoodWindow {
			fallback = p.good.cache
		}
		p.mu.Unlock()
		fallback.Error = err.Error()
		return fallback
	}
	p.mu.Lock()
	p.good.cache = stats
	p.good.cacheAt = p.now()
	p.mu.Unlock()
	return stats
}

// CollectMessaging polls the messaging backend; failures degrade the same
// way as the cache probe.
func (p *ProbeSet) CollectMessaging(ctx context.Context) models.MessagingStats {
	if p.Messaging == nil {
		return models.MessagingStats{Error: "messaging backend unavailable"}
	}
	stats, err := probe(ctx, p.Timeout, p.Messaging.MessagingStats)
	if err != nil {
		p.logger.Warn("messaging probe failed", zap.Error(err))
		fallback := models.MessagingStats{}
		p.mu.Lock()
		if !p.good.messagingAt.IsZero() && p.now().Sub(p.good.messagingAt) < lastGoodWindow {
			fallback = p.good.messaging
		}
		p.mu.Unlock()
		fallback.Error = err.Error()
		return fallback
	}
	p.mu.Lock()
	p.good.messaging = stats
	p.good.messagingAt = p.now()
	p.mu.Unlock()
	return stats
}

// CollectDatabase polls the connection pool; failures degrade the same way
// as the cache probe.
func (p *ProbeSet) CollectDatabase(ctx context.Context) models.DatabaseStats {
	if p.Database == nil {
		return models.DatabaseStats{Error: "database pool unavailable"}
	}
	stats, err := probe(ctx, p.Timeout, p.Database.DatabaseStats)
	if err != nil {
		p.logger.Warn("database probe failed", zap.Error(err))
		fallback := models.DatabaseStats{}
		p.mu.Lock()
		if !p.good.databaseAt.IsZero() && p.now().Sub(p.good.databaseAt) < lastGoodWindow {
			fallback = p.good.database
		}
		p.mu.Unlock()
		fallback.Error = err.Error()
		return fallback
	}
	p.mu.Lock()
	p.good.database = stats
	p.good.databaseAt = p.now()
	p.mu.Unlock()
	return stats
}

// CollectRealtime polls the realtime-connection registry. The registry is
// in-process, so there is no last-good window; failures report zeros.
func (p *ProbeSet) CollectRealtime(ctx context.Context) models.RealtimeStats {
	if p.Realtime == nil {
		return models.RealtimeStats{Error: "realtime registry unavailable"}
	}
	stats, err := probe(ctx, p.Timeout, p.Realtime.RealtimeStats)
	if err != nil {
		p.logger.Warn("realtime probe failed", zap.Error(err))
		return models.RealtimeStats{Error: err.Error()}
	}
	return stats
}

// CollectSystem polls OS and runtime resource stats; failures report zeros.
func (p *ProbeSet) CollectSystem(ctx context.Context) models.SystemStats {
	if p.System == nil {
		return models.SystemStats{Error: "system stats unavailable"}
	}
	stats, err := probe(ctx, p.Timeout, p.System.SystemStats)
	if err != nil {
		p.logger.Warn("system probe failed", zap.Error(err))
		return models.SystemStats{Error: err.Error()}
	}
	return stats
}
