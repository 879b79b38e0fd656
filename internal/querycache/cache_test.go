package querycache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute, quiet), mr
}

type row struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestLoadCachesUntilInvalidated(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) ([]row, error) {
		calls++
		return []row{{ID: 1, Name: "SSD"}}, nil
	}
	deps := []string{Products, ProductCategories}

	got, err := Load(ctx, c, deps, []string{"products", FilterToken(map[string]string{"q": "ssd"})}, loader)
	require.NoError(t, err)
	assert.Equal(t, "SSD", got[0].Name)
	_, err = Load(ctx, c, deps, []string{"products", FilterToken(map[string]string{"q": "ssd"})}, loader)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = Load(ctx, c, deps, []string{"products", FilterToken(map[string]string{"q": "hdd"})}, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "different filters use different keys")

	require.NoError(t, c.Invalidate(ctx, ProductCategories))
	_, err = Load(ctx, c, deps, []string{"products", FilterToken(map[string]string{"q": "ssd"})}, loader)
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "invalidating any dependency misses")
}

func TestInvalidateNotifiesListeners(t *testing.T) {
	c, _ := newTestCache(t)
	var got [][]string
	c.OnInvalidate(func(_ context.Context, resources []string) {
		got = append(got, resources)
	})
	require.NoError(t, c.Invalidate(context.Background(), Sales, Inventory))
	require.NoError(t, c.Invalidate(context.Background()))
	assert.Equal(t, [][]string{{Sales, Inventory}}, got)
}

func TestListenForInvalidationFromOtherInstance(t *testing.T) {
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientA.Close()
	defer clientB.Close()
	a := New(clientA, time.Minute, quiet)
	b := New(clientB, time.Minute, quiet)

	var mu sync.Mutex
	var seen []string
	b.OnInvalidate(func(_ context.Context, resources []string) {
		mu.Lock()
		seen = append(seen, resources...)
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.ListenForInvalidation(ctx))

	require.NoError(t, a.Invalidate(ctx, Commissions))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0] == Commissions
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNilClientPassesThrough(t *testing.T) {
	c := New(nil, 0, nil)
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Load(context.Background(), c, []string{Users}, []string{"users"}, func(context.Context) (int, error) {
			calls++
			return 7, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)

	var nilCache *Cache
	v, err := Load(context.Background(), nilCache, nil, nil, func(context.Context) (string, error) { return "direct", nil })
	require.NoError(t, err)
	assert.Equal(t, "direct", v)
}
