package cache

import (
	"context"
	"time"
)

// LayeredCache puts a small in-process cache in front of another Service,
// usually Redis. Locks and existence checks always go to the backing store.
type LayeredCache struct {
	l1    *MemoryCache
	l2    Service
	l1TTL time.Duration
}

func NewLayeredCache(l2 Service, l1Size int, l1TTL time.Duration) *LayeredCache {
	return &LayeredCache{
		l1:    NewMemoryCache(WithMemoryMaxSize(l1Size), WithMemoryDefaultTTL(l1TTL)),
		l2:    l2,
		l1TTL: l1TTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return lc.l1.Set(ctx, key, value, lc.ttl(expiration))
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.l1.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.l2.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, dest, lc.l1TTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.l2.Exists(ctx, keys...)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return lc.l2.TryLock(ctx, key, token, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key, token string) error {
	return lc.l2.Unlock(ctx, key, token)
}

func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}

func (lc *LayeredCache) ttl(expiration time.Duration) time.Duration {
	if expiration > 0 && expiration < lc.l1TTL {
		return expiration
	}
	return lc.l1TTL
}
