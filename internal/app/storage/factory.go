// Package storage provides factory functions for creating storage-dependent components.
// It implements the Abstract Factory pattern so the profile store, the credential
// store and the counters all share one compatible key-value backend.
package storage

import (
	"context"
	"fmt"

	"github.com/edap/edap-server/internal/config"
	"github.com/edap/edap-server/internal/credentials"
	"github.com/edap/edap-server/internal/kv"
	"github.com/edap/edap-server/internal/profile"
)

// Factory creates storage-dependent components as a family.
//
// The factory encapsulates the creation of:
// - the key-value store holding counters
// - profile.Store: user profiles keyed by token
// - credentials.Store: portal credentials keyed by token
//
// It also manages the lifecycle of storage resources (e.g., Redis connections).
type Factory interface {
	// Store returns the key-value store shared by every component of the family.
	Store() kv.Store

	// CreateProfileStore creates the profile store.
	CreateProfileStore(ctx context.Context) (profile.Store, error)

	// CreateCredentialStore creates the credential store for the configured backend.
	// The kv and sealed backends write to Store().
	CreateCredentialStore(ctx context.Context) (credentials.Store, error)

	// Cleanup releases any resources held by this factory.
	// For Redis factories, this closes the client.
	// For memory factories, this is a no-op.
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configured store type.
// Returns a MemoryFactory for in-memory storage or a RedisFactory for Redis.
func NewStorageFactory(ctx context.Context, cfg *config.Config) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.Store.GetType() {
	case config.StoreTypeRedis:
		return NewRedisFactory(ctx, cfg)
	case config.StoreTypeMemory:
		return NewMemoryFactory(cfg)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Store.GetType())
	}
}

// family implements the component constructors shared by every factory.
type family struct {
	config *config.Config
	store  kv.Store
}

// Store implements Factory.
func (f *family) Store() kv.Store {
	return f.store
}

// CreateProfileStore implements Factory.
func (f *family) CreateProfileStore(_ context.Context) (profile.Store, error) {
	return profile.NewStore(f.store), nil
}

// CreateCredentialStore implements Factory.
func (f *family) CreateCredentialStore(ctx context.Context) (credentials.Store, error) {
	s, err := credentials.New(ctx, f.config.Credentials, f.store)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}
	return s, nil
}
