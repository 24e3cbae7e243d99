package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/edap/edap-server/internal/alert"
	"github.com/edap/edap-server/internal/connector"
	"github.com/edap/edap-server/internal/credentials"
	"github.com/edap/edap-server/internal/diff"
	"github.com/edap/edap-server/internal/model"
	"github.com/edap/edap-server/internal/notify"
	edapotel "github.com/edap/edap-server/internal/otel"
	"github.com/edap/edap-server/internal/profile"
	"github.com/edap/edap-server/internal/telemetry"
	"github.com/edap/edap-server/internal/token"
	"github.com/edap/edap-server/internal/versions"
)

// DefaultFetchTimeout bounds one upstream fetch when no timeout is configured.
const DefaultFetchTimeout = 2 * time.Minute

// Outcome is the result of one sync iteration.
type Outcome int

// Sync outcomes
const (
	// OutcomeFailed means the iteration did not complete; the next one retries.
	OutcomeFailed Outcome = iota
	// OutcomeUnchanged means the upstream data matched the stored snapshot.
	OutcomeUnchanged
	// OutcomeChanged means change events were stored and dispatched.
	OutcomeChanged
	// OutcomeRefreshed means stored data from an older layout was replaced silently.
	OutcomeRefreshed
	// OutcomeInactiveDevice means the registered device no longer exists. The
	// token must be purged.
	OutcomeInactiveDevice
	// OutcomeGone means the profile or its credentials disappeared. The worker
	// has nothing left to sync.
	OutcomeGone
)

// Terminal reports whether a worker must stop after this outcome.
func (o Outcome) Terminal() bool {
	return o == OutcomeInactiveDevice || o == OutcomeGone
}

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeChanged:
		return "changed"
	case OutcomeRefreshed:
		return "refreshed"
	case OutcomeInactiveDevice:
		return "inactive_device"
	case OutcomeGone:
		return "gone"
	default:
		return "failed"
	}
}

// Runner performs sync iterations for the Scheduler.
//
//go:generate mockgen -destination=mocks/mock_runner.go -package=mocks -source=syncer.go Runner
type Runner interface {
	// RunOnce performs one fetch-diff-persist-notify iteration for token.
	RunOnce(ctx context.Context, token string) (Outcome, error)
	// Forget deletes the credentials and profile of token.
	Forget(ctx context.Context, token string) error
}

// Syncer implements Runner on top of the profile and credential stores.
type Syncer struct {
	profiles     profile.Store
	creds        credentials.Store
	conn         connector.Connector
	sink         notify.Sink
	dispatcher   *notify.Dispatcher
	alerts       alert.Notifier
	metrics      *telemetry.SyncMetrics
	tracer       trace.Tracer
	fetchTimeout time.Duration
	now          func() time.Time
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithFetchTimeout bounds each upstream fetch.
func WithFetchTimeout(d time.Duration) SyncerOption {
	return func(s *Syncer) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithAlerts forwards credential store failures to the operator.
func WithAlerts(n alert.Notifier) SyncerOption {
	return func(s *Syncer) {
		s.alerts = n
	}
}

// WithSyncMetrics records iteration durations and change counts.
func WithSyncMetrics(m *telemetry.SyncMetrics) SyncerOption {
	return func(s *Syncer) {
		s.metrics = m
	}
}

// WithTracer wraps each iteration in a span.
func WithTracer(t trace.Tracer) SyncerOption {
	return func(s *Syncer) {
		s.tracer = t
	}
}

// WithSyncerClock overrides the time source used for LastSync.
func WithSyncerClock(now func() time.Time) SyncerOption {
	return func(s *Syncer) {
		s.now = now
	}
}

// NewSyncer creates a Syncer.
func NewSyncer(
	profiles profile.Store,
	creds credentials.Store,
	conn connector.Connector,
	sink notify.Sink,
	dispatcher *notify.Dispatcher,
	opts ...SyncerOption,
) *Syncer {
	s := &Syncer{
		profiles:     profiles,
		creds:        creds,
		conn:         conn,
		sink:         sink,
		dispatcher:   dispatcher,
		alerts:       alert.Noop{},
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce implements Runner.
func (s *Syncer) RunOnce(ctx context.Context, tok string) (outcome Outcome, err error) {
	start := time.Now()
	ctx, span := edapotel.StartSpan(ctx, s.tracer, "sync.iteration", trace.WithAttributes(edapotel.Token(tok)))
	defer func() {
		span.SetAttributes(edapotel.AttrSyncOutcome.String(outcome.String()))
		edapotel.RecordError(span, err)
		span.End()
		s.metrics.RecordSyncDuration(ctx, time.Since(start), err == nil)
	}()

	p, err := s.profiles.Get(ctx, tok)
	if errors.Is(err, profile.ErrNotFound) {
		return OutcomeGone, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to load profile: %w", err)
	}

	if p.DeviceToken != "" {
		active, err := s.sink.CheckLiveness(ctx, p.DeviceToken)
		switch {
		case err != nil:
			// an unanswered liveness check is not proof of a dead device
			slog.Warn("Device liveness check failed", "token", token.Short(tok), "error", err)
		case !active:
			slog.Warn("Inactive device detected, stopping sync", "token", token.Short(tok))
			return OutcomeInactiveDevice, nil
		}
	}

	cred, err := s.creds.Get(ctx, tok)
	if errors.Is(err, credentials.ErrNotFound) {
		slog.Warn("No credentials stored for token, stopping sync", "token", token.Short(tok))
		return OutcomeGone, nil
	}
	if err != nil {
		alert.Report(ctx, s.alerts, "credentials get", err)
		return OutcomeFailed, fmt.Errorf("failed to load credentials: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	fetchCtx, fetchSpan := edapotel.StartSpan(fetchCtx, s.tracer, "connector.fetch")
	snap, err := connector.Fetch(fetchCtx, s.conn, cred.Username, cred.Secret)
	if err != nil {
		fetchSpan.SetAttributes(edapotel.AttrConnectorError.String(connector.KindOf(err).String()))
		edapotel.RecordError(fetchSpan, err)
	}
	fetchSpan.End()
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	return s.apply(ctx, tok, snap)
}

// Simulate diffs snap against the stored snapshot of tok and applies the result
// exactly as a real iteration would, without contacting upstream.
func (s *Syncer) Simulate(ctx context.Context, tok string, snap *model.ProfileSnapshot) ([]model.ChangeEvent, error) {
	if snap == nil {
		return nil, errors.New("snapshot is required")
	}
	for i := range snap.Classes {
		snap.Classes[i].ComputeAverages()
	}

	updated, events, _, err := s.update(ctx, tok, snap, false)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 {
		s.dispatcher.Dispatch(ctx, updated, events)
	}
	return events, nil
}

func (s *Syncer) apply(ctx context.Context, tok string, snap *model.ProfileSnapshot) (Outcome, error) {
	updated, events, refreshed, err := s.update(ctx, tok, snap, true)
	if errors.Is(err, profile.ErrNotFound) {
		return OutcomeGone, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to store snapshot: %w", err)
	}

	if refreshed {
		slog.Info("Replaced outdated profile data", "token", token.Short(tok), "data_version", versions.DataVersion)
		return OutcomeRefreshed, nil
	}
	if len(events) == 0 {
		slog.Debug("No changes detected", "token", token.Short(tok))
		return OutcomeUnchanged, nil
	}

	counts := make(map[model.EventKind]int)
	for _, e := range events {
		counts[e.Kind]++
	}
	for kind, n := range counts {
		s.metrics.RecordChanges(ctx, string(kind), n)
	}
	slog.Info("Sync detected changes", "token", token.Short(tok), "events", len(events))

	s.dispatcher.Dispatch(ctx, updated, events)
	return OutcomeChanged, nil
}

// update stores snap under tok in one atomic profile update. With checkLayout
// set, data written by an older layout is replaced without producing events.
// The callback may run more than once when writers race, so every output is
// reset on entry.
func (s *Syncer) update(
	ctx context.Context, tok string, snap *model.ProfileSnapshot, checkLayout bool,
) (updated *model.UserProfile, events []model.ChangeEvent, refreshed bool, err error) {
	updated, err = s.profiles.Update(ctx, tok, func(p *model.UserProfile) error {
		events, refreshed = nil, false

		if checkLayout && versions.IsOutdated(p.GeneratedWith) {
			p.Data = *snap
			p.GeneratedWith = versions.DataVersion
			p.LastSync = s.now()
			refreshed = true
			return nil
		}

		found := diff.Diff(&p.Data, snap)
		if len(found) == 0 {
			return profile.ErrNoChange
		}

		if found[0].Kind == model.KindClass || len(p.Data.Classes) == 0 {
			p.Data = *snap
		} else {
			p.Data.Classes[0] = snap.Classes[0]
		}
		p.New = append(p.New, found...)
		p.LastSync = s.now()
		events = found
		return nil
	})
	return updated, events, refreshed, err
}

// Forget implements Runner. Both records are removed even if one removal fails.
func (s *Syncer) Forget(ctx context.Context, tok string) error {
	credErr := s.creds.Remove(ctx, tok)
	if credErr != nil {
		alert.Report(ctx, s.alerts, "credentials remove", credErr)
	}
	profErr := s.profiles.Delete(ctx, tok)
	return errors.Join(credErr, profErr)
}
