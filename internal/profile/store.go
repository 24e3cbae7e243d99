// Package profile persists user profiles in the key-value store.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/edap/edap-server/internal/kv"
	"github.com/edap/edap-server/internal/model"
)

// KeyPrefix namespaces profile records in the key-value store.
const KeyPrefix = "token:"

var (
	// ErrNotFound is returned when no profile exists for a token.
	ErrNotFound = errors.New("profile not found")

	// ErrExists is returned by Create when the token already has a profile.
	ErrExists = errors.New("profile already exists")

	// ErrNoChange can be returned from a MutateFunc to finish Update without writing.
	ErrNoChange = errors.New("no change")
)

// MutateFunc edits a profile in place. It may run more than once when a
// concurrent writer wins the race, each time on a freshly loaded copy.
type MutateFunc func(p *model.UserProfile) error

// Store persists profiles keyed by token.
type Store interface {
	// Get returns the profile for token or ErrNotFound.
	Get(ctx context.Context, token string) (*model.UserProfile, error)
	// Exists reports whether token has a profile.
	Exists(ctx context.Context, token string) (bool, error)
	// Create stores a new profile or fails with ErrExists.
	Create(ctx context.Context, p *model.UserProfile) error
	// Update atomically loads, mutates and writes back the profile for token.
	// The profile is never recreated: a missing token yields ErrNotFound.
	Update(ctx context.Context, token string, fn MutateFunc) (*model.UserProfile, error)
	// Delete removes the profile. Deleting a missing profile is not an error.
	Delete(ctx context.Context, token string) error
	// Tokens lists every token that has a profile.
	Tokens(ctx context.Context) ([]string, error)
}

type kvStore struct {
	store kv.Store
}

// NewStore creates a profile Store on top of a key-value store.
func NewStore(store kv.Store) Store {
	return &kvStore{store: store}
}

func key(token string) string {
	return KeyPrefix + token
}

func decode(data []byte) (*model.UserProfile, error) {
	var p model.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

func (s *kvStore) Get(ctx context.Context, token string) (*model.UserProfile, error) {
	data, err := s.store.Get(ctx, key(token))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return decode(data)
}

func (s *kvStore) Exists(ctx context.Context, token string) (bool, error) {
	_, err := s.store.Get(ctx, key(token))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load profile: %w", err)
	}
	return true, nil
}

func (s *kvStore) Create(ctx context.Context, p *model.UserProfile) error {
	if p.Token == "" {
		return errors.New("profile has no token")
	}
	return s.store.Update(ctx, key(p.Token), func(_ []byte, exists bool) ([]byte, error) {
		if exists {
			return nil, ErrExists
		}
		p.Version = 1
		return json.Marshal(p)
	})
}

func (s *kvStore) Update(ctx context.Context, token string, fn MutateFunc) (*model.UserProfile, error) {
	var result *model.UserProfile
	err := s.store.Update(ctx, key(token), func(current []byte, exists bool) ([]byte, error) {
		if !exists {
			return nil, ErrNotFound
		}
		p, err := decode(current)
		if err != nil {
			return nil, err
		}
		if err := fn(p); err != nil {
			if errors.Is(err, ErrNoChange) {
				result = p
				return nil, nil
			}
			return nil, err
		}
		p.Token = token
		p.Version++
		result = p
		return json.Marshal(p)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *kvStore) Delete(ctx context.Context, token string) error {
	return s.store.Delete(ctx, key(token))
}

func (s *kvStore) Tokens(ctx context.Context) ([]string, error) {
	keys, err := s.store.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	tokens := make([]string, 0, len(keys))
	for _, k := range keys {
		tokens = append(tokens, strings.TrimPrefix(k, KeyPrefix))
	}
	return tokens, nil
}
