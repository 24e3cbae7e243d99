package credentials

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps credentials in the operating system keyring. It suits
// single-host deployments where profiles live in the in-memory store.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a KeyringStore under the given service name.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

// Set implements Store.
func (s *KeyringStore) Set(_ context.Context, c Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return wrap("keyring", "set", err)
	}
	return wrap("keyring", "set", keyring.Set(s.service, c.Token, string(data)))
}

// Get implements Store.
func (s *KeyringStore) Get(_ context.Context, token string) (Credential, error) {
	data, err := keyring.Get(s.service, token)
	if errors.Is(err, keyring.ErrNotFound) {
		return Credential{}, ErrNotFound
	}
	if err != nil {
		return Credential{}, wrap("keyring", "get", err)
	}

	var c Credential
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return Credential{}, wrap("keyring", "get", err)
	}
	c.Token = token
	return c, nil
}

// Remove implements Store.
func (s *KeyringStore) Remove(_ context.Context, token string) error {
	err := keyring.Delete(s.service, token)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return wrap("keyring", "remove", err)
}
