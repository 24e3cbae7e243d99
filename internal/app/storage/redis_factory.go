package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edap/edap-server/internal/config"
	"github.com/edap/edap-server/internal/kv"
)

// RedisFactory creates Redis-backed storage components.
type RedisFactory struct {
	family
	redis *kv.RedisStore
}

var _ Factory = (*RedisFactory)(nil)

// NewRedisFactory connects to the configured Redis server.
func NewRedisFactory(ctx context.Context, cfg *config.Config) (*RedisFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Store.Redis == nil {
		return nil, fmt.Errorf("redis configuration is required for redis store type")
	}

	password, err := cfg.Store.Redis.GetPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to read redis password: %w", err)
	}

	slog.Info("Creating redis-backed storage factory", "addr", cfg.Store.Redis.Addr)

	store, err := kv.NewRedisStore(ctx, kv.RedisOptions{
		Addr:     cfg.Store.Redis.Addr,
		Username: cfg.Store.Redis.Username,
		Password: password,
		DB:       cfg.Store.Redis.DB,
	})
	if err != nil {
		return nil, err
	}

	return NewRedisFactoryFromStore(cfg, store), nil
}

// NewRedisFactoryFromStore wraps an already connected store.
func NewRedisFactoryFromStore(cfg *config.Config, store *kv.RedisStore) *RedisFactory {
	return &RedisFactory{family: family{config: cfg, store: store}, redis: store}
}

// Cleanup closes the Redis client.
func (r *RedisFactory) Cleanup() {
	if r.redis == nil {
		return
	}
	if err := r.redis.Close(); err != nil {
		slog.Error("Failed to close redis client", "error", err)
	}
}
