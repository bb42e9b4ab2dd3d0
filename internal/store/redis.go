package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore persists session slices in a local Redis instance. Each slice is
// one key holding a JSON blob, overwritten wholesale on every write.
type RedisStore struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisClient creates and validates a Redis client connection.
func NewRedisClient(ctx context.Context, redisURL string, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("Local store connected")

	return rdb, nil
}

// NewRedisStore wraps an established Redis client.
func NewRedisStore(rdb *redis.Client, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		log: log.With().Str("component", "store").Logger(),
	}
}

func (s *RedisStore) Write(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Marshal failed, write dropped")
		return
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		// Swallowed on purpose: losing the durable mirror only costs
		// resume-after-restart, never the current session.
		s.log.Error().Err(err).Str("key", key).Msg("Store write failed")
	}
}

func (s *RedisStore) Read(ctx context.Context, key string, dest any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Error().Err(err).Str("key", key).Msg("Store read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Corrupt slice, treating as absent")
		return false
	}
	return true
}

func (s *RedisStore) Clear(ctx context.Context, prefix string) {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			s.log.Error().Err(err).Str("prefix", prefix).Msg("Store clear scan failed")
			return
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				s.log.Error().Err(err).Str("prefix", prefix).Msg("Store clear delete failed")
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
