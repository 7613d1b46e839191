package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedis(t)
	return map[string]Store{
		"redis":  rs,
		"memory": NewMemoryStore(time.Minute),
	}
}

func TestStore_HashLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetHash(ctx, "h")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.SetHash(ctx, "h", map[string]string{"a": "1", "ua": "x"}, time.Hour))
			got, err := s.GetHash(ctx, "h")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"a": "1", "ua": "x"}, got)

			require.NoError(t, s.Delete(ctx, "h", "missing"))
			_, err = s.GetHash(ctx, "h")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_TakeHashIf(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.TakeHashIf(ctx, "h", "ua", "x")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.SetHash(ctx, "h", map[string]string{"tok": "t", "ua": "x"}, time.Hour))

			_, err = s.TakeHashIf(ctx, "h", "ua", "y")
			require.ErrorIs(t, err, ErrMismatch)
			// a mismatch leaves the entry in place
			_, err = s.GetHash(ctx, "h")
			require.NoError(t, err)

			got, err := s.TakeHashIf(ctx, "h", "ua", "x")
			require.NoError(t, err)
			assert.Equal(t, "t", got["tok"])

			_, err = s.TakeHashIf(ctx, "h", "ua", "x")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_TakeHashIf_SingleWinner(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SetHash(ctx, "h", map[string]string{"ua": "x"}, time.Hour))

			var wins atomic.Int32
			var wg sync.WaitGroup
			for range 16 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.TakeHashIf(ctx, "h", "ua", "x"); err == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SetList(ctx, "l", nil, time.Hour))
			_, err := s.GetList(ctx, "l")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.SetList(ctx, "l", []string{"a", "b"}, time.Hour))
			require.NoError(t, s.SetList(ctx, "l", []string{"c"}, time.Hour))
			got, err := s.GetList(ctx, "l")
			require.NoError(t, err)
			assert.Equal(t, []string{"c"}, got)
		})
	}
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedis(t)

	require.NoError(t, s.SetHash(ctx, "h", map[string]string{"a": "1"}, time.Minute))
	require.NoError(t, s.SetList(ctx, "l", []string{"a"}, 2*time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("h"))
	assert.Equal(t, 2*time.Minute, mr.TTL("l"))

	mr.FastForward(time.Minute + time.Second)
	_, err := s.GetHash(ctx, "h")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetList(ctx, "l")
	require.NoError(t, err)
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedis(t)
	mr.Close()

	_, err := s.GetList(ctx, "l")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
