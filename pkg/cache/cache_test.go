package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Fields []string `json:"fields"`
	Rows   int      `json:"rows"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", payload{Fields: []string{"open"}, Rows: 3}, time.Minute))
	var got payload
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, payload{Fields: []string{"open"}, Rows: 3}, got)

	require.NoError(t, mc.Set(ctx, "s", "done", 0))
	var s string
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "done", s)

	ok, err := mc.Exists(ctx, "missing", "s")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mc.Delete(ctx, "s"))
	assert.True(t, errors.Is(mc.Get(ctx, "s", &s), ErrCacheMiss))
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	var v string
	assert.True(t, errors.Is(mc.Get(ctx, "k", &v), ErrCacheMiss))
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))
	time.Sleep(time.Millisecond)
	var v string
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", "3", time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.True(t, errors.Is(mc.Get(ctx, "b", &v), ErrCacheMiss))
	assert.NoError(t, mc.Get(ctx, "a", &v))
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "lock:20240105", "run-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = mc.TryLock(ctx, "lock:20240105", "run-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mc.Unlock(ctx, "lock:20240105", "run-a"))
	ok, err = mc.TryLock(ctx, "lock:20240105", "run-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheUnlockKeepsOtherOwner(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "lock:20240105", "run-a", time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(5 * time.Millisecond)

	ok, err = mc.TryLock(ctx, "lock:20240105", "run-b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, mc.Unlock(ctx, "lock:20240105", "run-a"), ErrLockNotHeld)
	ok, err = mc.TryLock(ctx, "lock:20240105", "run-c", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mc.Unlock(ctx, "lock:20240105", "run-b"))
}

func TestLayeredCacheFillsL1(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2, 10, time.Minute)
	defer lc.Close()

	require.NoError(t, l2.Set(ctx, "k", payload{Rows: 7}, time.Hour))
	var got payload
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, 7, got.Rows)
	assert.Equal(t, 1, lc.l1.Len())

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.True(t, errors.Is(lc.Get(ctx, "k", &got), ErrCacheMiss))
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "bars:CU2402.SHF:20240105", GenerateKey("bars", "CU2402.SHF", "20240105"))
	assert.Len(t, HashKey("open,close"), 40)
}
