package app

import (
	"github.com/edap/edap-server/internal/app/storage"
	"github.com/edap/edap-server/internal/service"
	pkgsync "github.com/edap/edap-server/internal/sync"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Storage owns the key-value backend shared by profiles, credentials and counters
	Storage storage.Factory

	// Scheduler runs one background sync worker per token
	Scheduler *pkgsync.Scheduler

	// Service provides the business logic behind the HTTP API
	Service service.Service
}
