// Package credentials stores the upstream username and secret behind each token.
//
// Several backends are available. None of them should be assumed secure by
// callers: the Store interface is the security boundary, and choosing a backend
// is a deployment decision.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edap/edap-server/internal/config"
	"github.com/edap/edap-server/internal/kv"
)

// ErrNotFound is returned when no credentials exist for a token.
var ErrNotFound = errors.New("credentials not found")

// Credential is the upstream login behind a token.
type Credential struct {
	Token    string `json:"-"`
	Username string `json:"username"`
	Secret   string `json:"password"`
}

// Store persists credentials keyed by token.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store
type Store interface {
	// Set creates or replaces the credentials for c.Token.
	Set(ctx context.Context, c Credential) error
	// Get returns the credentials for token or ErrNotFound.
	Get(ctx context.Context, token string) (Credential, error)
	// Remove deletes the credentials for token. Removing missing credentials is not an error.
	Remove(ctx context.Context, token string) error
}

// Error wraps a backend failure with the backend name and operation.
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("credentials %s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(backend, op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &Error{Backend: backend, Op: op, Err: err}
}

// New builds the Store selected by cfg. store backs the kv and sealed backends.
func New(ctx context.Context, cfg config.CredentialsConfig, store kv.Store) (Store, error) {
	switch cfg.GetBackend() {
	case config.CredentialsBackendKV:
		slog.Warn("Credentials are stored unencrypted in the key-value store")
		return NewKVStore(store), nil
	case config.CredentialsBackendSealed:
		key, err := cfg.Sealed.GetKey()
		if err != nil {
			return nil, fmt.Errorf("sealed credentials: %w", err)
		}
		return NewSealedStore(store, []byte(key), []byte(cfg.Sealed.Salt))
	case config.CredentialsBackendVault:
		return NewVaultStore(ctx, cfg.Vault)
	case config.CredentialsBackendKeyring:
		return NewKeyringStore(cfg.Keyring.GetService()), nil
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Backend)
	}
}
