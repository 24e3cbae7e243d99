package credentials

import (
	"context"
	"fmt"
	"log/slog"

	vault "github.com/hashicorp/vault/api"

	"github.com/edap/edap-server/internal/config"
)

// VaultStore keeps credentials in a HashiCorp Vault KV v2 engine, one secret
// per token. Reads and writes use separate tokens so the read path can run with
// a narrower policy.
type VaultStore struct {
	reader *vault.Client
	writer *vault.Client
	mount  string
}

// NewVaultStore creates a VaultStore from configuration.
func NewVaultStore(_ context.Context, cfg *config.VaultConfig) (*VaultStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vault credentials: configuration is missing")
	}
	readToken, err := cfg.GetReadToken()
	if err != nil {
		return nil, fmt.Errorf("vault read token: %w", err)
	}
	writeToken, err := cfg.GetWriteToken()
	if err != nil {
		return nil, fmt.Errorf("vault write token: %w", err)
	}

	s, err := NewVaultStoreWithTokens(cfg.Address, cfg.GetMount(), readToken, writeToken)
	if err != nil {
		return nil, err
	}
	slog.Info("Using vault for credentials", "address", cfg.Address, "mount", cfg.GetMount())
	return s, nil
}

// NewVaultStoreWithTokens creates a VaultStore for the given server and mount.
func NewVaultStoreWithTokens(address, mount, readToken, writeToken string) (*VaultStore, error) {
	newClient := func(token string) (*vault.Client, error) {
		vc := vault.DefaultConfig()
		vc.Address = address
		c, err := vault.NewClient(vc)
		if err != nil {
			return nil, fmt.Errorf("vault client: %w", err)
		}
		c.SetToken(token)
		return c, nil
	}

	reader, err := newClient(readToken)
	if err != nil {
		return nil, err
	}
	writer, err := newClient(writeToken)
	if err != nil {
		return nil, err
	}
	return &VaultStore{reader: reader, writer: writer, mount: mount}, nil
}

func (s *VaultStore) dataPath(token string) string {
	return s.mount + "/data/" + token
}

// Set implements Store.
func (s *VaultStore) Set(ctx context.Context, c Credential) error {
	_, err := s.writer.Logical().WriteWithContext(ctx, s.dataPath(c.Token), map[string]any{
		"data": map[string]any{
			"username": c.Username,
			"password": c.Secret,
		},
	})
	return wrap("vault", "set", err)
}

// Get implements Store.
func (s *VaultStore) Get(ctx context.Context, token string) (Credential, error) {
	secret, err := s.reader.Logical().ReadWithContext(ctx, s.dataPath(token))
	if err != nil {
		return Credential{}, wrap("vault", "get", err)
	}
	if secret == nil || secret.Data == nil {
		return Credential{}, ErrNotFound
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok || data == nil {
		// a soft-deleted latest version reads back with null data
		return Credential{}, ErrNotFound
	}
	username, _ := data["username"].(string)
	password, _ := data["password"].(string)
	if username == "" {
		return Credential{}, wrap("vault", "get", fmt.Errorf("secret for %s has no username", token))
	}
	return Credential{Token: token, Username: username, Secret: password}, nil
}

// Remove implements Store. All versions of the secret are destroyed.
func (s *VaultStore) Remove(ctx context.Context, token string) error {
	_, err := s.writer.Logical().DeleteWithContext(ctx, s.mount+"/metadata/"+token)
	return wrap("vault", "remove", err)
}
