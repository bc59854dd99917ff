package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// tagTTL bounds how long a tag set may outlive its entries. Entries expire on
// their own TTL; the set just has to survive at least as long as any member.
const tagTTL = 24 * time.Hour

// Redis is the redis-backed Cache. Each entry is a plain key with a TTL, and
// each tag is a redis set listing the keys it covers, so invalidating a tag is
// one SMEMBERS followed by one DEL.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis creates a redis-backed cache around an existing client.
func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, logger: logger}
}

var _ Cache = (*Redis)(nil)

func (r *Redis) Get(ctx context.Context, key Key) ([]byte, bool) {
	raw, err := r.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache get failed, treating as miss",
				slog.String("key", key.String()),
				slog.String("error", err.Error()))
		}
		return nil, false
	}
	return raw, true
}

func (r *Redis) Set(ctx context.Context, key Key, value []byte, ttl time.Duration) {
	keyStr := key.String()
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, keyStr, value, ttl)
	for _, tag := range key.Tags() {
		pipe.SAdd(ctx, tag, keyStr)
		pipe.Expire(ctx, tag, tagTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("cache set failed, value dropped",
			slog.String("key", keyStr),
			slog.String("error", err.Error()))
	}
}

func (r *Redis) Invalidate(ctx context.Context, tags ...string) {
	for _, tag := range tags {
		members, err := r.client.SMembers(ctx, tag).Result()
		if err != nil {
			r.logger.Warn("cache invalidation failed to list tag members",
				slog.String("tag", tag),
				slog.String("error", err.Error()))
			continue
		}
		toDelete := append(members, tag)
		if err := r.client.Del(ctx, toDelete...).Err(); err != nil {
			r.logger.Warn("cache invalidation delete failed",
				slog.String("tag", tag),
				slog.String("error", err.Error()))
		}
	}
}
