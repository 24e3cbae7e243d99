package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edap/edap-server/internal/kv"
	"github.com/edap/edap-server/internal/model"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"memory": NewStore(kv.NewMemoryStore()),
		"redis":  NewStore(kv.NewRedisStoreFromClient(client, 100)),
	}
}

func TestStoreLifecycle(t *testing.T) {
	t.Parallel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			_, err := s.Get(ctx, "abc")
			assert.ErrorIs(t, err, ErrNotFound)
			ok, err := s.Exists(ctx, "abc")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Create(ctx, &model.UserProfile{Token: "abc", Lang: "hr"}))
			assert.ErrorIs(t, s.Create(ctx, &model.UserProfile{Token: "abc"}), ErrExists)

			ok, err = s.Exists(ctx, "abc")
			require.NoError(t, err)
			assert.True(t, ok)

			p, err := s.Update(ctx, "abc", func(p *model.UserProfile) error {
				p.New = append(p.New, model.ClassChanged())
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, int64(2), p.Version)

			got, err := s.Get(ctx, "abc")
			require.NoError(t, err)
			assert.Equal(t, "hr", got.Lang)
			assert.Len(t, got.New, 1)
			assert.Equal(t, int64(2), got.Version)

			tokens, err := s.Tokens(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"abc"}, tokens)

			require.NoError(t, s.Delete(ctx, "abc"))
			require.NoError(t, s.Delete(ctx, "abc"))
			_, err = s.Get(ctx, "abc")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestUpdateNeverRecreates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore(kv.NewMemoryStore())

	called := false
	_, err := s.Update(ctx, "gone", func(*model.UserProfile) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)

	ok, err := s.Exists(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateCallbackErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore(kv.NewMemoryStore())
	require.NoError(t, s.Create(ctx, &model.UserProfile{Token: "t"}))

	boom := errors.New("boom")
	_, err := s.Update(ctx, "t", func(p *model.UserProfile) error {
		p.Lang = "de"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := s.Update(ctx, "t", func(p *model.UserProfile) error {
		p.Lang = "sv"
		return ErrNoChange
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Version)

	got, err := s.Get(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, got.Lang)
	assert.Equal(t, int64(1), got.Version)
}

func TestConcurrentUpdatesKeepEveryWrite(t *testing.T) {
	t.Parallel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, &model.UserProfile{Token: "race"}))

			const writers = 20
			var wg sync.WaitGroup
			for i := range writers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Update(ctx, "race", func(p *model.UserProfile) error {
						p.New = append(p.New, model.GradeAdded(0, i, model.GradeRecord{Grade: 5, Note: fmt.Sprint(i)}))
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := s.Get(ctx, "race")
			require.NoError(t, err)
			assert.Len(t, got.New, writers)
			assert.Equal(t, int64(writers+1), got.Version)
		})
	}
}
