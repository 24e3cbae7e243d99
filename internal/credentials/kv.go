package credentials

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/edap/edap-server/internal/kv"
)

// KeyPrefix is the key-value namespace used by the kv and sealed backends.
const KeyPrefix = "cred:"

// KVStore keeps credentials as plain JSON in a key-value store.
type KVStore struct {
	store kv.Store
}

// NewKVStore creates a KVStore.
func NewKVStore(store kv.Store) *KVStore {
	return &KVStore{store: store}
}

// Set implements Store.
func (s *KVStore) Set(ctx context.Context, c Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return wrap("kv", "set", err)
	}
	return wrap("kv", "set", s.store.Set(ctx, KeyPrefix+c.Token, data))
}

// Get implements Store.
func (s *KVStore) Get(ctx context.Context, token string) (Credential, error) {
	data, err := s.store.Get(ctx, KeyPrefix+token)
	if errors.Is(err, kv.ErrNotFound) {
		return Credential{}, ErrNotFound
	}
	if err != nil {
		return Credential{}, wrap("kv", "get", err)
	}

	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return Credential{}, wrap("kv", "get", err)
	}
	c.Token = token
	return c, nil
}

// Remove implements Store.
func (s *KVStore) Remove(ctx context.Context, token string) error {
	return wrap("kv", "remove", s.store.Delete(ctx, KeyPrefix+token))
}
