package credentials

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/edap/edap-server/internal/kv"
)

const (
	sealKeyLen  = 32
	minSaltLen  = 8
	argonTime   = 1
	argonMemory = 64 * 1024
	argonLanes  = 4
)

// SealedStore encrypts credentials with AES-256-GCM before writing them to a
// key-value store. The key is derived from a master secret with argon2id.
type SealedStore struct {
	store kv.Store
	aead  cipher.AEAD
}

// NewSealedStore derives the sealing key and returns a SealedStore.
func NewSealedStore(store kv.Store, master, salt []byte) (*SealedStore, error) {
	if len(master) == 0 {
		return nil, errors.New("sealed credentials: master secret is empty")
	}
	if len(salt) < minSaltLen {
		return nil, fmt.Errorf("sealed credentials: salt must be at least %d bytes", minSaltLen)
	}

	key := argon2.IDKey(master, salt, argonTime, argonMemory, argonLanes, sealKeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SealedStore{store: store, aead: aead}, nil
}

// Set implements Store. The token is bound as additional data, so a sealed
// record copied under another token fails to open.
func (s *SealedStore) Set(ctx context.Context, c Credential) error {
	plain, err := json.Marshal(c)
	if err != nil {
		return wrap("sealed", "set", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return wrap("sealed", "set", err)
	}
	sealed := s.aead.Seal(nonce, nonce, plain, []byte(c.Token))
	return wrap("sealed", "set", s.store.Set(ctx, KeyPrefix+c.Token, sealed))
}

// Get implements Store.
func (s *SealedStore) Get(ctx context.Context, token string) (Credential, error) {
	sealed, err := s.store.Get(ctx, KeyPrefix+token)
	if errors.Is(err, kv.ErrNotFound) {
		return Credential{}, ErrNotFound
	}
	if err != nil {
		return Credential{}, wrap("sealed", "get", err)
	}

	ns := s.aead.NonceSize()
	if len(sealed) < ns {
		return Credential{}, wrap("sealed", "get", errors.New("record too short"))
	}
	plain, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], []byte(token))
	if err != nil {
		return Credential{}, wrap("sealed", "get", fmt.Errorf("decrypt: %w", err))
	}

	var c Credential
	if err := json.Unmarshal(plain, &c); err != nil {
		return Credential{}, wrap("sealed", "get", err)
	}
	c.Token = token
	return c, nil
}

// Remove implements Store.
func (s *SealedStore) Remove(ctx context.Context, token string) error {
	return wrap("sealed", "remove", s.store.Delete(ctx, KeyPrefix+token))
}
