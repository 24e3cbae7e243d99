package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edap/edap-server/internal/alert"
	"github.com/edap/edap-server/internal/connector"
	"github.com/edap/edap-server/internal/credentials"
	"github.com/edap/edap-server/internal/model"
	"github.com/edap/edap-server/internal/profile"
	"github.com/edap/edap-server/internal/token"
	"github.com/edap/edap-server/internal/versions"
)

// Login paths, used for metrics and the persistent counters.
const (
	LoginFast          = "fast"
	LoginFull          = "full"
	LoginWrongPassword = "wrong_password"
	LoginFailed        = "failed"
)

// CounterPrefix namespaces the persistent usage counters in the key-value store.
const CounterPrefix = "counter:"

// Login implements Service.
//
// A known token takes the fast path: the stored profile is trusted, its last IP
// is refreshed and its worker is started if it is not already running. An
// unknown token is logged in upstream, stored and scheduled. Identical
// concurrent logins share one upstream fetch.
func (s *edapService) Login(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	if token.Normalize(username) == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidRequest)
	}
	tok := token.Derive(username, password)

	p, err := s.Profiles.Update(ctx, tok, func(cur *model.UserProfile) error {
		if cur.LastIP == ip {
			return profile.ErrNoChange
		}
		cur.LastIP = ip
		return nil
	})
	switch {
	case err == nil:
		if !p.SyncIgnored {
			s.Scheduler.Start(tok)
		}
		s.countLogin(ctx, LoginFast)
		return &LoginResult{Token: tok, Fast: true}, nil
	case !errors.Is(err, profile.ErrNotFound):
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	// the first caller's cancellation must not fail the others sharing the fetch
	shared := context.WithoutCancel(ctx)
	_, err, _ = s.logins.Do(tok, func() (any, error) {
		return nil, s.fullLogin(shared, tok, username, password, ip)
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: tok}, nil
}

func (s *edapService) fullLogin(ctx context.Context, tok, username, password, ip string) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	snap, err := connector.Fetch(fetchCtx, s.Connector, username, password)
	cancel()
	if err != nil {
		if connector.IsWrongCredentials(err) {
			s.countLogin(ctx, LoginWrongPassword)
			return ErrWrongCredentials
		}
		s.countLogin(ctx, LoginFailed)
		switch connector.KindOf(err) {
		case connector.KindInvalidResponse, connector.KindParse:
			alert.Report(ctx, s.alerts, "login fetch", err)
		default:
			slog.Warn("Login fetch failed", "token", token.Short(tok), "error", err)
		}
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	cred := credentials.Credential{Token: tok, Username: token.Normalize(username), Secret: password}
	if err := s.Credentials.Set(ctx, cred); err != nil {
		alert.Report(ctx, s.alerts, "store credentials", err)
		s.countLogin(ctx, LoginFailed)
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	p := &model.UserProfile{
		Token:         tok,
		Data:          *snap,
		New:           []model.ChangeEvent{},
		LastIP:        ip,
		GeneratedWith: versions.DataVersion,
		CreatedAt:     s.now().UTC(),
		LastSync:      s.now().UTC(),
	}
	if err := s.Profiles.Create(ctx, p); err != nil && !errors.Is(err, profile.ErrExists) {
		// without a profile nothing would ever purge the credentials
		if rerr := s.Credentials.Remove(ctx, tok); rerr != nil {
			slog.Error("Failed to remove credentials of unsaved profile", "token", token.Short(tok), "error", rerr)
		}
		s.countLogin(ctx, LoginFailed)
		return fmt.Errorf("failed to create profile: %w", err)
	}

	s.Scheduler.Start(tok)
	s.countLogin(ctx, LoginFull)
	slog.Info("New user logged in", "token", token.Short(tok), "classes", len(snap.Classes))
	return nil
}

func (s *edapService) countLogin(ctx context.Context, path string) {
	s.loginMetrics.RecordLogin(ctx, path)
	if _, err := s.Store.Incr(ctx, CounterPrefix+"logins_"+path); err != nil {
		slog.Warn("Failed to update login counter", "path", path, "error", err)
	}
}
