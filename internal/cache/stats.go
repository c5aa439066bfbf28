package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const statsKey = "checkin:stats"

type Stats struct {
	Total     int64 `json:"total"`
	CheckedIn int64 `json:"checkedIn"`
	Pending   int64 `json:"pending"`
}

// StatsCache holds the dashboard counters between changes.
type StatsCache interface {
	Get(ctx context.Context) (Stats, bool)
	Set(ctx context.Context, s Stats)
	Invalidate(ctx context.Context)
}

// Noop never caches.
type Noop struct{}

func (Noop) Get(context.Context) (Stats, bool) { return Stats{}, false }
func (Noop) Set(context.Context, Stats)        {}
func (Noop) Invalidate(context.Context)        {}

// Redis keeps stats under a single key with a TTL. Redis errors are logged
// and treated as cache misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *zerolog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, log: log}
}

func (r *Redis) Get(ctx context.Context) (Stats, bool) {
	raw, err := r.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Stats{}, false
	}
	if err != nil {
		r.log.Warn().Err(err).Msg("stats cache read failed")
		return Stats{}, false
	}
	var s Stats
	if err := json.Unmarshal(raw, &s); err != nil {
		r.log.Warn().Err(err).Msg("stats cache entry is corrupt")
		return Stats{}, false
	}
	return s, true
}

func (r *Redis) Set(ctx context.Context, s Stats) {
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, statsKey, raw, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Msg("stats cache write failed")
	}
}

func (r *Redis) Invalidate(ctx context.Context) {
	if err := r.client.Del(ctx, statsKey).Err(); err != nil {
		r.log.Warn().Err(err).Msg("stats cache invalidation failed")
	}
}
