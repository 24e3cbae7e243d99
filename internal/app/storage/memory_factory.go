package storage

import (
	"fmt"
	"log/slog"

	"github.com/edap/edap-server/internal/config"
	"github.com/edap/edap-server/internal/kv"
)

// MemoryFactory creates components backed by process memory.
// Nothing survives a restart.
type MemoryFactory struct {
	family
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory creates a new in-memory storage factory.
func NewMemoryFactory(cfg *config.Config) (*MemoryFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	slog.Warn("Using in-memory storage, profiles are lost on restart")
	return &MemoryFactory{family{config: cfg, store: kv.NewMemoryStore()}}, nil
}

// Cleanup implements Factory.
func (*MemoryFactory) Cleanup() {}
