// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// redisStore is a Redis-backed Store. Blobs are stored raw under their
// logical key; Path spills to a temp file like the memory backend.
type redisStore struct {
	client *redis.Client
	logger zerolog.Logger

	mu    sync.Mutex
	spill map[string]string
}

// NewRedisStore connects to Redis and verifies the connection before
// returning the store.
func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis connection failed: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to redis cache")
	return &redisStore{
		client: client,
		logger: logger,
		spill:  make(map[string]string),
	}, nil
}

func (s *redisStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", key, err)
	}
	s.mu.Lock()
	if p, ok := s.spill[key]; ok {
		_ = os.Remove(p)
		delete(s.spill, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		return nil, false
	}
	return val, true
}

func (s *redisStore) Path(ctx context.Context, key string) (string, bool) {
	s.mu.Lock()
	if p, ok := s.spill[key]; ok {
		if _, err := os.Stat(p); err == nil {
			s.mu.Unlock()
			return p, true
		}
		delete(s.spill, key)
	}
	s.mu.Unlock()

	data, ok := s.Get(ctx, key)
	if !ok {
		return "", false
	}
	f, err := os.CreateTemp("", "relaycast-cache-*")
	if err != nil {
		return "", false
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", false
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", false
	}
	s.mu.Lock()
	s.spill[key] = f.Name()
	s.mu.Unlock()
	return f.Name(), true
}

func (s *redisStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	for _, p := range s.spill {
		_ = os.Remove(p)
	}
	s.spill = make(map[string]string)
	s.mu.Unlock()

	if err := s.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("cache: redis flush: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (s *redisStore) Close() error {
	return s.client.Close()
}
