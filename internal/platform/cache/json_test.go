package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Count int `json:"count"`
}

func newTestCache(t *testing.T) (*JSONCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewJSONCache(client, "po-metrics", time.Minute), mr
}

func TestFetchCachesLoaderResult(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return summary{Count: 3}, nil
	}

	key, err := c.Key(ctx, "user", "7")
	require.NoError(t, err)

	var first, second summary
	require.NoError(t, c.Fetch(ctx, key, &first, loader))
	require.NoError(t, c.Fetch(ctx, key, &second, loader))
	require.Equal(t, 3, first.Count)
	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}

func TestBumpInvalidatesNamespace(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	before, err := c.Key(ctx, "user", "7")
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))
	after, err := c.Key(ctx, "user", "7")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestFetchPropagatesLoaderError(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("db down")

	var out summary
	err := c.Fetch(ctx, "k", &out, func(context.Context) (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("k"))
}

func TestNilClientBypassesCache(t *testing.T) {
	c := NewJSONCache(nil, "x", time.Minute)
	var out summary
	require.NoError(t, c.Fetch(context.Background(), "k", &out, func(context.Context) (any, error) {
		return summary{Count: 1}, nil
	}))
	require.Equal(t, 1, out.Count)
	require.NoError(t, c.Bump(context.Background()))
}
