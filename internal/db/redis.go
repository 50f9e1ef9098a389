package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// counterTTL keeps daily hit counters around for a week of dashboard history.
const counterTTL = 7 * 24 * time.Hour

// RedisStore wraps a redis client and context for operations.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// IncrementHit bumps the daily hit counter for a campaign, and the bot
// counter when the hit was blocked. A TTL is applied on first set.
func (r *RedisStore) IncrementHit(slug string, isBot bool) error {
	day := time.Now().Format("2006-01-02")
	key := fmt.Sprintf("hits:%s:%s", slug, day)
	val, err := r.Client.Incr(r.Ctx, key).Result()
	if err != nil {
		return err
	}
	if val == 1 {
		r.Client.Expire(r.Ctx, key, counterTTL)
	}
	if !isBot {
		return nil
	}
	botKey := fmt.Sprintf("bots:%s:%s", slug, day)
	val, err = r.Client.Incr(r.Ctx, botKey).Result()
	if err != nil {
		return err
	}
	if val == 1 {
		r.Client.Expire(r.Ctx, botKey, counterTTL)
	}
	return nil
}

// GetHitCounts returns today's total and bot hit counts for a campaign.
// Missing keys read as zero.
func (r *RedisStore) GetHitCounts(slug string) (hits, bots int64) {
	day := time.Now().Format("2006-01-02")
	hits, _ = r.Client.Get(r.Ctx, fmt.Sprintf("hits:%s:%s", slug, day)).Int64()
	bots, _ = r.Client.Get(r.Ctx, fmt.Sprintf("bots:%s:%s", slug, day)).Int64()
	return hits, bots
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
