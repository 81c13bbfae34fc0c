package session

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage implements fiber.Storage on top of a go-redis client so
// sessions survive process restarts and are shared across replicas.
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage connects to Redis at addr (host:port or redis:// URL).
// Returns nil when Redis is unreachable; callers fall back to in-memory
// session storage.
func NewRedisStorage(addr string) *RedisStorage {
	if addr == "" {
		return nil
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			log.Printf("Redis connection warning: invalid REDIS_URL %q: %v (using in-memory sessions)", addr, err)
			return nil
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection warning: %v (using in-memory sessions)", err)
		return nil
	}

	log.Println("Redis connected successfully, sessions stored in Redis")
	return &RedisStorage{client: client}
}

// NewRedisStorageWithClient wraps an existing client. Used by tests.
func NewRedisStorageWithClient(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

func (s *RedisStorage) key(k string) string {
	return "sess:" + k
}

// Get returns the value for the given session key, or nil when absent.
func (s *RedisStorage) Get(key string) ([]byte, error) {
	val, err := s.client.Get(context.Background(), s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

// Set stores the value under the session key with the given expiry.
func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.client.Set(context.Background(), s.key(key), val, exp).Err()
}

// Delete removes a single session.
func (s *RedisStorage) Delete(key string) error {
	return s.client.Del(context.Background(), s.key(key)).Err()
}

// Reset removes all sessions.
func (s *RedisStorage) Reset() error {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, s.key("*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close releases the underlying client.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
