package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// sessionStore keeps revoked token ids and short lived cached responses.
type sessionStore interface {
	revoke(ctx context.Context, jti string, ttl time.Duration) error
	isRevoked(ctx context.Context, jti string) (bool, error)
	cached(ctx context.Context, key string) ([]byte, bool, error)
	cache(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

const (
	revokedPrefix = "hostel:revoked:"
	cachePrefix   = "hostel:cache:"
)

func newSessionStore(ctx context.Context, cfg config) (sessionStore, error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, keeping sessions in memory")
		return newMemorySessionStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	log.WithField("addr", cfg.RedisAddr).Info("Connected to Redis")

	return &redisSessionStore{client: client}, nil
}

type redisSessionStore struct {
	client *redis.Client
}

func (s *redisSessionStore) revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedPrefix+jti, 1, ttl).Err()
}

func (s *redisSessionStore) isRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisSessionStore) cached(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, cachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *redisSessionStore) cache(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, cachePrefix+key, value, ttl).Err()
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

type memorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *memorySessionStore) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

func (s *memorySessionStore) set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.entries[key] = memoryEntry{value: value, expires: s.now().Add(ttl)}
	s.mu.Unlock()
}

func (s *memorySessionStore) revoke(_ context.Context, jti string, ttl time.Duration) error {
	s.set(revokedPrefix+jti, nil, ttl)
	return nil
}

func (s *memorySessionStore) isRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := s.get(revokedPrefix + jti)
	return ok, nil
}

func (s *memorySessionStore) cached(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := s.get(cachePrefix + key)
	return b, ok, nil
}

func (s *memorySessionStore) cache(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.set(cachePrefix+key, value, ttl)
	return nil
}
