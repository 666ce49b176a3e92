package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"nabz/internal/models"
)

// RedisCacheProbe reads hit/miss counters from the cache backend's INFO
// output. The chat stack leans on Redis for both caching and pub/sub
// fan-out, so the same client backs two independent probes.
type RedisCacheProbe struct {
	client redis.UniversalClient
}

// NewRedisCacheProbe wraps an existing client; the probe never owns it.
func NewRedisCacheProbe(client redis.UniversalClient) *RedisCacheProbe {
	return &RedisCacheProbe{client: client}
}

// CacheStats implements CacheProber. With zero lookups recorded the hit
// ratio reports 0.
func (p *RedisCacheProbe) CacheStats(ctx context.Context) (models.CacheStats, error) {
	info, err := p.client.Info(ctx, "stats", "memory").Result()
	if err != nil {
		return models.CacheStats{}, err
	}
	fields := parseRedisInfo(info)

	stats := models.CacheStats{
		Hits:            fields.int64Field("keyspace_hits"),
		Misses:          fields.int64Field("keyspace_misses"),
		Evictions:       fields.int64Field("evicted_keys"),
		UsedMemoryBytes: fields.int64Field("used_memory"),
	}
	if lookups := stats.Hits + stats.Misses; lookups > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(lookups)
	}

	if keys, err := p.client.DBSize(ctx).Result(); err == nil {
		stats.Keys = keys
	}
	return stats, nil
}

// RedisMessagingProbe reports pub/sub load on the messaging backend.
type RedisMessagingProbe struct {
	client redis.UniversalClient
}

// NewRedisMessagingProbe wraps an existing client.
func NewRedisMessagingProbe(client redis.UniversalClient) *RedisMessagingProbe {
	return &RedisMessagingProbe{client: client}
}

// MessagingStats implements MessagingProber.
func (p *RedisMessagingProbe) MessagingStats(ctx context.Context) (models.MessagingStats, error) {
	channels, err := p.client.PubSubChannels(ctx, "*").Result()
	if err != nil {
		return models.MessagingStats{}, err
	}

	stats := models.MessagingStats{Channels: len(channels)}

	if patterns, err := p.client.PubSubNumPat(ctx).Result(); err == nil {
		stats.Patterns = int(patterns)
	}
	if info, err := p.client.Info(ctx, "clients").Result(); err == nil {
		stats.ConnectedClients = parseRedisInfo(info).int64Field("connected_clients")
	}
	return stats, nil
}

// redisInfoFields holds the flat key:value pairs of an INFO reply.
type redisInfoFields map[string]string

func (f redisInfoFields) int64Field(key string) int64 {
	v, err := strconv.ParseInt(f[key], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseRedisInfo splits an INFO reply into fields, skipping section headers.
func parseRedisInfo(info string) redisInfoFields {
	fields := make(redisInfoFields)
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[key] = value
	}
	return fields
}
