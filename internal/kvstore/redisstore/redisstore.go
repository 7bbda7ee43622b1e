// Package redisstore implements kvstore.Store over Redis. Connection
// tuning (pool size, timeouts) and the redis.Nil-as-missing-key
// convention are grounded on the pack's Redis-backed discovery-registry
// adapter (NewRedisRegistry in the example corpus), updated to the
// maintained github.com/redis/go-redis/v9 client already present in the
// rest of the pack's dependency graph.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Store adapts a *redis.Client to kvstore.Store.
type Store struct {
	client *redis.Client
	logger zerolog.Logger
}

// New connects to the Redis server at addr and returns a Store.
func New(addr string, logger zerolog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: connect to %s: %w", addr, err)
	}

	return &Store{client: client, logger: logger}, nil
}

func (s *Store) GetBool(ctx context.Context, key string) (bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("kvstore: GetBool failed, returning neutral default")
		return false, nil
	}
	return val == "1" || val == "true", nil
}

func (s *Store) SetBool(ctx context.Context, key string, value bool) error {
	v := "0"
	if value {
		v = "1"
	}
	if err := s.client.Set(ctx, key, v, 0).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("kvstore: SetBool failed")
		return err
	}
	return nil
}

func (s *Store) GetCounter(ctx context.Context, key string) (int, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("kvstore: GetCounter failed, returning neutral default")
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *Store) SetCounter(ctx context.Context, key string, value int) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("kvstore: SetCounter failed")
		return err
	}
	return nil
}

func (s *Store) IncrCounter(ctx context.Context, key string, delta int) (int, error) {
	val, err := s.client.IncrBy(ctx, key, int64(delta)).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("kvstore: IncrCounter failed")
		return 0, err
	}
	return int(val), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
