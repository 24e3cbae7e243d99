package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/edap/edap-server/internal/profile"
	"github.com/edap/edap-server/internal/telemetry"
	"github.com/edap/edap-server/internal/token"
)

const (
	// DefaultMinDelay is the shortest pause between two iterations of a worker
	DefaultMinDelay = 30 * time.Minute
	// DefaultMaxDelay is the longest pause between two iterations of a worker
	DefaultMaxDelay = 60 * time.Minute
)

// ErrShutdown is returned by Restore once the scheduler has been shut down.
var ErrShutdown = errors.New("scheduler is shut down")

// Scheduler owns one background worker per token. Workers sleep a random delay
// between iterations so that many users do not hit the upstream portal at the
// same moment.
type Scheduler struct {
	runner   Runner
	profiles profile.Store

	minDelay time.Duration
	maxDelay time.Duration
	metrics  *telemetry.SyncMetrics
	randN    func(n int64) int64
	now      func() time.Time

	// ctx is the parent of every worker context and is cancelled by Shutdown
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	workers map[string]*worker
	// purging counts the Purge calls in flight per token; Start refuses those tokens
	purging map[string]int
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDelays sets the bounds of the randomized pause between iterations.
func WithDelays(minDelay, maxDelay time.Duration) Option {
	return func(s *Scheduler) {
		s.minDelay, s.maxDelay = minDelay, maxDelay
	}
}

// WithMetrics tracks the number of running workers.
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithRandom replaces the source of the pause jitter. fn returns a value in [0, n).
func WithRandom(fn func(n int64) int64) Option {
	return func(s *Scheduler) {
		s.randN = fn
	}
}

// WithClock replaces the time source used for worker bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a Scheduler with no workers.
func NewScheduler(runner Runner, profiles profile.Store, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner:   runner,
		profiles: profiles,
		minDelay: DefaultMinDelay,
		maxDelay: DefaultMaxDelay,
		//nolint:gosec // G404: jitter does not need a cryptographic source
		randN:   rand.Int64N,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		workers: make(map[string]*worker),
		purging: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxDelay < s.minDelay {
		s.maxDelay = s.minDelay
	}
	return s
}

// nextDelay returns a pause in [minDelay, maxDelay].
func (s *Scheduler) nextDelay() time.Duration {
	span := int64(s.maxDelay - s.minDelay)
	if span <= 0 {
		return s.minDelay
	}
	return s.minDelay + time.Duration(s.randN(span+1))
}

// Start spawns a worker for tok. It returns false when a worker is already
// registered for tok, tok is being purged or the scheduler has been shut down.
// A worker whose profile no longer exists exits before its first pause.
func (s *Scheduler) Start(tok string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.purging[tok] > 0 {
		return false
	}
	if _, ok := s.workers[tok]; ok {
		return false
	}

	ctx, cancel := context.WithCancel(s.ctx)
	w := newWorker(tok, cancel, s.now())
	s.workers[tok] = w
	s.wg.Add(1)
	s.metrics.WorkerStarted(ctx)

	go s.run(ctx, w)
	slog.Debug("Sync worker started", "token", token.Short(tok))
	return true
}

// Stop cancels the worker of tok and waits until it has exited. An iteration in
// progress sees the cancellation through its context. Stop reports whether a
// worker was registered.
func (s *Scheduler) Stop(tok string) bool {
	s.mu.Lock()
	w, ok := s.workers[tok]
	s.mu.Unlock()
	if !ok {
		return false
	}

	w.stop()
	<-w.done
	return true
}

// Running reports whether a worker is registered for tok.
func (s *Scheduler) Running(tok string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.workers[tok]
	return ok
}

// List returns a snapshot of every registered worker, ordered by token.
func (s *Scheduler) List() []WorkerInfo {
	s.mu.Lock()
	infos := make([]WorkerInfo, 0, len(s.workers))
	for _, w := range s.workers {
		infos = append(infos, w.info())
	}
	s.mu.Unlock()

	slices.SortFunc(infos, func(a, b WorkerInfo) int {
		return strings.Compare(a.Token, b.Token)
	})
	return infos
}

// Restore starts a worker for every stored profile not marked as sync-ignored.
// It runs once at process start, before requests are served.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrShutdown
	}

	tokens, err := s.profiles.Tokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tokens: %w", err)
	}

	started := 0
	for _, tok := range tokens {
		p, err := s.profiles.Get(ctx, tok)
		if err != nil {
			slog.Warn("Skipping unreadable profile during restore", "token", token.Short(tok), "error", err)
			continue
		}
		if p.SyncIgnored {
			continue
		}
		if s.Start(tok) {
			started++
		}
	}

	slog.Info("Restored sync workers", "profiles", len(tokens), "started", started)
	return started, nil
}

// Purge stops the worker of tok, then deletes its credentials and profile. The
// order guarantees no worker writes the profile back after deletion.
func (s *Scheduler) Purge(ctx context.Context, tok string) error {
	s.mu.Lock()
	s.purging[tok]++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.purging[tok]--; s.purging[tok] <= 0 {
			delete(s.purging, tok)
		}
		s.mu.Unlock()
	}()

	s.Stop(tok)
	if err := s.runner.Forget(ctx, tok); err != nil {
		return fmt.Errorf("failed to purge token: %w", err)
	}
	slog.Info("Token purged", "token", token.Short(tok))
	return nil
}

// Shutdown stops every worker and waits for them until ctx expires. No worker
// can be started afterwards.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, w := range s.workers {
		w.setState(StateStopping)
	}
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("All sync workers stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sync workers: %w", ctx.Err())
	}
}

// run is the worker loop: sleep, then iterate, until cancelled or an iteration
// reports a terminal outcome.
func (s *Scheduler) run(ctx context.Context, w *worker) {
	defer s.wg.Done()
	defer close(w.done)
	defer func() {
		w.setState(StateStopped)
		s.mu.Lock()
		if s.workers[w.token] == w {
			delete(s.workers, w.token)
		}
		s.mu.Unlock()
		s.metrics.WorkerStopped(context.WithoutCancel(ctx))
		slog.Debug("Sync worker stopped", "token", token.Short(w.token))
	}()

	w.setState(StateRunning)
	if !s.profileExists(ctx, w.token) {
		return
	}
	for {
		if !sleep(ctx, s.nextDelay()) {
			return
		}

		w.beginIteration()
		outcome, err := s.runner.RunOnce(ctx, w.token)
		w.endIteration(s.now(), outcome, err)

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// the next iteration is the retry
			slog.Warn("Sync iteration failed", "token", token.Short(w.token), "error", err)
			continue
		}

		switch outcome {
		case OutcomeInactiveDevice:
			w.setState(StateStopping)
			// this worker is the only writer left, so deleting here keeps stop-then-delete
			if err := s.runner.Forget(context.WithoutCancel(ctx), w.token); err != nil {
				slog.Error("Failed to purge token of inactive device", "token", token.Short(w.token), "error", err)
			}
			return
		case OutcomeGone:
			w.setState(StateStopping)
			return
		default:
		}
	}
}

// profileExists reports whether the profile of tok is still stored. A Start
// racing a completed Purge is caught here. Read errors count as present and
// are left to the first iteration.
func (s *Scheduler) profileExists(ctx context.Context, tok string) bool {
	ok, err := s.profiles.Exists(ctx, tok)
	if err != nil {
		slog.Warn("Failed to check profile before syncing", "token", token.Short(tok), "error", err)
		return true
	}
	if !ok {
		slog.Debug("Profile gone before first sync", "token", token.Short(tok))
	}
	return ok
}

// sleep waits for d or until ctx is done. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
