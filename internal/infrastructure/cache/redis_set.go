package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/servicehub-backend/internal/config"
)

const suppressionKeyPrefix = "suppress:completed:"

// RedisSet хранит множество в Redis: каждый ключ это отдельная запись с EX,
// поэтому подавление переживает рестарт и общее для всех инстансов.
type RedisSet struct {
	client *redis.Client
	prefix string
}

func NewRedisSet(cfg config.RedisConfig) *RedisSet {
	return &RedisSet{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		prefix: suppressionKeyPrefix,
	}
}

// Ping проверяет доступность Redis при старте.
func (s *RedisSet) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *RedisSet) Add(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisSet) Contains(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisSet) Close() error {
	return s.client.Close()
}

func (s *RedisSet) key(k string) string {
	return s.prefix + k
}
