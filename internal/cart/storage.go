package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage is a durable string key/value store scoped to one session.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend hands out per-user Storage.
type Backend interface {
	Session(userID string) Storage
}

func sessionKey(userID, key string) string { return "cart:" + userID + ":" + key }

type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (m *MemoryBackend) Session(userID string) Storage {
	return &memorySession{b: m, userID: userID}
}

type memorySession struct {
	b      *MemoryBackend
	userID string
}

func (s *memorySession) Get(_ context.Context, key string) (string, bool, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	v, ok := s.b.data[sessionKey(s.userID, key)]
	return v, ok, nil
}

func (s *memorySession) Set(_ context.Context, key, value string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.data[sessionKey(s.userID, key)] = value
	return nil
}

func (s *memorySession) Delete(_ context.Context, key string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	delete(s.b.data, sessionKey(s.userID, key))
	return nil
}

// RedisBackend keeps carts as plain string keys; ttl of zero means no expiry.
type RedisBackend struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisBackend(client redis.Cmdable, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func (r *RedisBackend) Session(userID string) Storage {
	return &redisSession{b: r, userID: userID}
}

type redisSession struct {
	b      *RedisBackend
	userID string
}

func (s *redisSession) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.b.client.Get(ctx, sessionKey(s.userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *redisSession) Set(ctx context.Context, key, value string) error {
	return s.b.client.Set(ctx, sessionKey(s.userID, key), value, s.b.ttl).Err()
}

func (s *redisSession) Delete(ctx context.Context, key string) error {
	return s.b.client.Del(ctx, sessionKey(s.userID, key)).Err()
}
