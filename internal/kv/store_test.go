package kv

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client, 0)
}

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"redis":  func(t *testing.T) Store { return newRedisStore(t) },
	}
}

func TestStoreBasics(t *testing.T) {
	t.Parallel()

	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := newStore(t)

			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "token:a", []byte("1")))
			require.NoError(t, s.Set(ctx, "token:b", []byte("2")))
			require.NoError(t, s.Set(ctx, "cred:a", []byte("x")))

			v, err := s.Get(ctx, "token:a")
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), v)

			keys, err := s.Keys(ctx, "token:")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"token:a", "token:b"}, keys)

			require.NoError(t, s.Delete(ctx, "token:a", "does-not-exist"))
			_, err = s.Get(ctx, "token:a")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Delete(ctx))
			require.NoError(t, s.Ping(ctx))
		})
	}
}

func TestStoreIncr(t *testing.T) {
	t.Parallel()

	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := newStore(t)

			for i := int64(1); i <= 3; i++ {
				n, err := s.Incr(ctx, "counter:logins")
				require.NoError(t, err)
				assert.Equal(t, i, n)
			}

			v, err := s.Get(ctx, "counter:logins")
			require.NoError(t, err)
			assert.Equal(t, "3", string(v))
		})
	}
}

func TestStoreUpdate(t *testing.T) {
	t.Parallel()

	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := newStore(t)

			t.Run("missing key", func(t *testing.T) {
				err := s.Update(ctx, "u:missing", func(cur []byte, exists bool) ([]byte, error) {
					assert.False(t, exists)
					assert.Nil(t, cur)
					return []byte("created"), nil
				})
				require.NoError(t, err)
				v, err := s.Get(ctx, "u:missing")
				require.NoError(t, err)
				assert.Equal(t, "created", string(v))
			})

			t.Run("nil result leaves value", func(t *testing.T) {
				require.NoError(t, s.Set(ctx, "u:keep", []byte("old")))
				require.NoError(t, s.Update(ctx, "u:keep", func([]byte, bool) ([]byte, error) {
					return nil, nil
				}))
				v, err := s.Get(ctx, "u:keep")
				require.NoError(t, err)
				assert.Equal(t, "old", string(v))
			})

			t.Run("callback error aborts", func(t *testing.T) {
				boom := errors.New("boom")
				require.NoError(t, s.Set(ctx, "u:abort", []byte("old")))
				err := s.Update(ctx, "u:abort", func([]byte, bool) ([]byte, error) {
					return []byte("new"), boom
				})
				assert.ErrorIs(t, err, boom)
				v, err := s.Get(ctx, "u:abort")
				require.NoError(t, err)
				assert.Equal(t, "old", string(v))
			})
		})
	}
}

func TestStoreUpdateConcurrent(t *testing.T) {
	t.Parallel()

	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := newStore(t)
			if rs, ok := s.(*RedisStore); ok {
				rs.retries = 1000
			}
			require.NoError(t, s.Set(ctx, "n", []byte("0")))

			const workers, perWorker = 8, 25
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						err := s.Update(ctx, "n", func(cur []byte, _ bool) ([]byte, error) {
							n, err := strconv.Atoi(string(cur))
							if err != nil {
								return nil, err
							}
							return []byte(strconv.Itoa(n + 1)), nil
						})
						assert.NoError(t, err)
					}
				}()
			}
			wg.Wait()

			v, err := s.Get(ctx, "n")
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(workers*perWorker), string(v))
		})
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	in := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", in))
	in[0] = 'x'

	out, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))
	out[0] = 'y'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestNewRedisStoreGivesUp(t *testing.T) {
	t.Parallel()
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisStore(context.Background(), RedisOptions{Addr: addr, ConnectTries: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestNewRedisStoreConnects(t *testing.T) {
	t.Parallel()
	srv := miniredis.RunT(t)

	s, err := NewRedisStore(context.Background(), RedisOptions{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Set(context.Background(), "k", []byte("v")))
	assert.True(t, srv.Exists("k"))
}
