package sync_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/edap/edap-server/internal/kv"
	"github.com/edap/edap-server/internal/model"
	"github.com/edap/edap-server/internal/profile"
	"github.com/edap/edap-server/internal/sync"
	syncmocks "github.com/edap/edap-server/internal/sync/mocks"
	"github.com/edap/edap-server/internal/telemetry"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newScheduler(t *testing.T, runner sync.Runner, opts ...sync.Option) (*sync.Scheduler, profile.Store) {
	t.Helper()
	profiles := profile.NewStore(kv.NewMemoryStore())
	opts = append([]sync.Option{sync.WithDelays(time.Millisecond, time.Millisecond)}, opts...)
	s := sync.NewScheduler(runner, profiles, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, profiles
}

// seed stores an empty profile for every token so workers get past their
// existence check.
func seed(t *testing.T, profiles profile.Store, toks ...string) {
	t.Helper()
	for _, tok := range toks {
		require.NoError(t, profiles.Create(context.Background(), &model.UserProfile{Token: tok}))
	}
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	runner := syncmocks.NewMockRunner(ctrl)

	var runs atomic.Int32
	runner.EXPECT().RunOnce(gomock.Any(), testToken).DoAndReturn(func(context.Context, string) (sync.Outcome, error) {
		runs.Add(1)
		return sync.OutcomeUnchanged, nil
	}).AnyTimes()

	s, profiles := newScheduler(t, runner)
	seed(t, profiles, testToken)

	assert.True(t, s.Start(testToken))
	assert.False(t, s.Start(testToken), "a second worker must not be registered")
	assert.True(t, s.Running(testToken))

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, waitFor, tick)

	infos := s.List()
	require.Len(t, infos, 1)
	assert.Equal(t, testToken, infos[0].Token)
	assert.Equal(t, sync.StateRunning, infos[0].State)
	assert.GreaterOrEqual(t, infos[0].Iterations, 1)

	assert.True(t, s.Stop(testToken))
	assert.False(t, s.Running(testToken))
	assert.Empty(t, s.List())
	assert.False(t, s.Stop(testToken))

	assert.True(t, s.Start(testToken), "a stopped token can be started again")
}

func TestSchedulerStopInterruptsIteration(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	runner := syncmocks.NewMockRunner(ctrl)

	entered := make(chan struct{})
	runner.EXPECT().RunOnce(gomock.Any(), testToken).DoAndReturn(func(ctx context.Context, _ string) (sync.Outcome, error) {
		close(entered)
		<-ctx.Done()
		return sync.OutcomeFailed, ctx.Err()
	})

	s, profiles := newScheduler(t, runner)
	seed(t, profiles, testToken)
	require.True(t, s.Start(testToken))
	<-entered

	require.True(t, s.List()[0].Syncing)

	stopped := make(chan struct{})
	go func() {
		s.Stop(testToken)
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(waitFor):
		t.Fatal("Stop did not interrupt the running iteration")
	}
}

func TestSchedulerFailedIterationIsRetried(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	runner := syncmocks.NewMockRunner(ctrl)

	recovered := make(chan struct{})
	gomock.InOrder(
		runner.EXPECT().RunOnce(gomock.Any(), testToken).Return(sync.OutcomeFailed, errors.New("portal down")),
		runner.EXPECT().RunOnce(gomock.Any(), testToken).DoAndReturn(func(context.Context, string) (sync.Outcome, error) {
			close(recovered)
			return sync.OutcomeUnchanged, nil
		}),
		runner.EXPECT().RunOnce(gomock.Any(), testToken).Return(sync.OutcomeUnchanged, nil).AnyTimes(),
	)

	s, profiles := newScheduler(t, runner)
	seed(t, profiles, testToken)
	require.True(t, s.Start(testToken))

	select {
	case <-recovered:
	case <-time.After(waitFor):
		t.Fatal("worker did not retry after a failed iteration")
	}
	assert.True(t, s.Running(testToken))
}

func TestSchedulerTerminalOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		outcome    sync.Outcome
		wantForget bool
	}{
		{name: "inactive device purges the token", outcome: sync.OutcomeInactiveDevice, wantForget: true},
		{name: "vanished profile only stops", outcome: sync.OutcomeGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			runner := syncmocks.NewMockRunner(ctrl)

			runner.EXPECT().RunOnce(gomock.Any(), testToken).Return(tt.outcome, nil)
			var forgot atomic.Bool
			if tt.wantForget {
				runner.EXPECT().Forget(gomock.Any(), testToken).DoAndReturn(func(context.Context, string) error {
					forgot.Store(true)
					return nil
				})
			}

			s, profiles := newScheduler(t, runner)
			seed(t, profiles, testToken)
			require.True(t, s.Start(testToken))
			require.Eventually(t, func() bool { return !s.Running(testToken) }, waitFor, tick)
			assert.Equal(t, tt.wantForget, forgot.Load())
		})
	}
}

func TestSchedulerRestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	runner := syncmocks.NewMockRunner(ctrl)

	s, profiles := newScheduler(t, runner, sync.WithDelays(time.Hour, time.Hour))
	for i := range 3 {
		require.NoError(t, profiles.Create(ctx, &model.UserProfile{
			Token:       fmt.Sprintf("token-%d", i),
			SyncIgnored: i == 2,
		}))
	}

	started, err := s.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, started)
	assert.True(t, s.Running("token-0"))
	assert.True(t, s.Running("token-1"))
	assert.False(t, s.Running("token-2"))

	started, err = s.Restore(ctx)
	require.NoError(t, err)
	assert.Zero(t, started, "restore must not duplicate workers")
}

func TestSchedulerPurgeStopsBeforeDeleting(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	runner := syncmocks.NewMockRunner(ctrl)

	s, profiles := newScheduler(t, runner, sync.WithDelays(time.Hour, time.Hour))
	seed(t, profiles, testToken)
	require.True(t, s.Start(testToken))

	runner.EXPECT().Forget(gomock.Any(), testToken).DoAndReturn(func(context.Context, string) error {
		assert.False(t, s.Running(testToken), "worker must be stopped before data is deleted")
		return nil
	})
	require.NoError(t, s.Purge(context.Background(), testToken))

	runner.EXPECT().Forget(gomock.Any(), "unknown").Return(errors.New("vault down"))
	assert.ErrorContains(t, s.Purge(context.Background(), "unknown"), "vault down")
}

func TestSchedulerStartDuringPurgeIsRefused(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	runner := syncmocks.NewMockRunner(ctrl)

	s, profiles := newScheduler(t, runner, sync.WithDelays(time.Hour, time.Hour))
	seed(t, profiles, testToken)

	runner.EXPECT().Forget(gomock.Any(), testToken).DoAndReturn(func(ctx context.Context, tok string) error {
		assert.False(t, s.Start(tok), "a login racing the purge must not register a worker")
		return profiles.Delete(ctx, tok)
	})
	require.NoError(t, s.Purge(context.Background(), testToken))
	assert.False(t, s.Running(testToken))
}

func TestSchedulerWorkerForDeletedProfileExits(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	// RunOnce is never expected: the worker must leave before its first iteration
	runner := syncmocks.NewMockRunner(ctrl)

	s, _ := newScheduler(t, runner)
	require.True(t, s.Start(testToken))
	require.Eventually(t, func() bool { return !s.Running(testToken) }, waitFor, tick)
	assert.Empty(t, s.List())
}

func TestSchedulerShutdown(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	runner := syncmocks.NewMockRunner(ctrl)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := telemetry.NewSyncMetrics(mp)
	require.NoError(t, err)

	s, profiles := newScheduler(t, runner, sync.WithDelays(time.Hour, time.Hour), sync.WithMetrics(metrics))
	seed(t, profiles, "a", "b")
	require.True(t, s.Start("a"))
	require.True(t, s.Start("b"))
	assert.Equal(t, int64(2), activeWorkers(t, reader))

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	assert.Empty(t, s.List())
	assert.False(t, s.Start("c"))
	_, err = s.Restore(context.Background())
	assert.ErrorIs(t, err, sync.ErrShutdown)
	assert.Equal(t, int64(0), activeWorkers(t, reader))
}

func TestSchedulerJitterBounds(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	runner := syncmocks.NewMockRunner(ctrl)
	runner.EXPECT().RunOnce(gomock.Any(), gomock.Any()).Return(sync.OutcomeUnchanged, nil).AnyTimes()

	var bound atomic.Int64
	s, profiles := newScheduler(t, runner,
		sync.WithDelays(time.Millisecond, 3*time.Millisecond),
		sync.WithRandom(func(n int64) int64 {
			bound.Store(n)
			return 0
		}),
	)
	seed(t, profiles, testToken)
	require.True(t, s.Start(testToken))
	require.Eventually(t, func() bool { return bound.Load() != 0 }, waitFor, tick)
	assert.Equal(t, int64(2*time.Millisecond)+1, bound.Load())
}

func activeWorkers(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "edap_active_workers" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}
