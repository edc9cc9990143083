package windowstore

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisWindowPrefix string = "window/"

// RedisWindowStore keeps one sorted set per key, scored by unix nanoseconds.
// Useful when multiple warden processes need to share rate state; the mem
// store is preferred for a single-process deployment.
type RedisWindowStore struct {
	Client *redis.Client
	window time.Duration
}

func NewRedisWindowStore(redisURL string, window time.Duration) (*RedisWindowStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}
	return &RedisWindowStore{Client: rdb, window: window}, nil
}

func (s *RedisWindowStore) Record(ctx context.Context, key string) (int, error) {
	now := time.Now()
	k := redisWindowPrefix + key
	cutoff := now.Add(-s.window).UnixNano()

	multi := s.Client.Pipeline()
	multi.ZRemRangeByScore(ctx, k, "-inf", fmt.Sprintf("%d", cutoff))
	// random suffix so same-instant events for one key don't collapse into one member
	member := fmt.Sprintf("%d-%d", now.UnixNano(), rand.Int63())
	multi.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixNano()), Member: member})
	card := multi.ZCard(ctx, k)
	multi.Expire(ctx, k, s.window)
	if _, err := multi.Exec(ctx); err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}

func (s *RedisWindowStore) Count(ctx context.Context, key string) (int, error) {
	now := time.Now()
	k := redisWindowPrefix + key
	cutoff := now.Add(-s.window).UnixNano()

	multi := s.Client.Pipeline()
	multi.ZRemRangeByScore(ctx, k, "-inf", fmt.Sprintf("%d", cutoff))
	card := multi.ZCard(ctx, k)
	if _, err := multi.Exec(ctx); err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}
