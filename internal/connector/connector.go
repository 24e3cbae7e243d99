// Package connector adapts the upstream grading portal to a typed login and
// fetch interface.
package connector

import (
	"context"
	"fmt"

	"github.com/edap/edap-server/internal/config"
	"github.com/edap/edap-server/internal/model"
)

// Session is an authenticated upstream session. Its contents are opaque to
// everything except the connector that issued it.
type Session struct {
	Username string
	ID       string
}

// Connector logs into the upstream portal and fetches snapshots.
//
//go:generate mockgen -destination=mocks/mock_connector.go -package=mocks -source=connector.go Connector
type Connector interface {
	// Login authenticates against the portal. Bad credentials yield an *Error
	// of KindWrongCredentials.
	Login(ctx context.Context, username, secret string) (Session, error)
	// FetchSnapshot downloads every class of the logged in user.
	FetchSnapshot(ctx context.Context, s Session) (*model.ProfileSnapshot, error)
}

// Fetch logs in and downloads a complete snapshot with averages filled in.
func Fetch(ctx context.Context, c Connector, username, secret string) (*model.ProfileSnapshot, error) {
	session, err := c.Login(ctx, username, secret)
	if err != nil {
		return nil, err
	}
	snap, err := c.FetchSnapshot(ctx, session)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, &Error{Kind: KindInvalidResponse, Op: "fetch", Err: fmt.Errorf("empty snapshot")}
	}
	for i := range snap.Classes {
		snap.Classes[i].ComputeAverages()
	}
	return snap, nil
}

// New builds the Connector selected by cfg.
func New(cfg config.ConnectorConfig) (Connector, error) {
	switch cfg.Type {
	case config.ConnectorFile:
		return NewFileConnector(cfg.File.Dir), nil
	case config.ConnectorHTTP:
		return NewHTTPConnector(cfg.HTTP.Endpoint, 0), nil
	default:
		return nil, fmt.Errorf("unknown connector type %q", cfg.Type)
	}
}
