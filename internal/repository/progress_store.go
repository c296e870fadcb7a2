package repository

import (
	"context"
	"time"

	"FutPull/internal/domain/repository"
	"FutPull/pkg/cache"
)

// CacheProgressStore remembers finished trade dates under progress:{date}.
// Backed by Redis, progress survives restarts.
type CacheProgressStore struct {
	c   cache.Service
	ttl time.Duration
}

func NewCacheProgressStore(c cache.Service, ttl time.Duration) repository.ProgressStore {
	return &CacheProgressStore{c: c, ttl: ttl}
}

func (s *CacheProgressStore) IsDone(ctx context.Context, tradeDate string) (bool, error) {
	return s.c.Exists(ctx, cache.GenerateKey("progress", tradeDate))
}

func (s *CacheProgressStore) MarkDone(ctx context.Context, tradeDate string) error {
	return s.c.Set(ctx, cache.GenerateKey("progress", tradeDate), time.Now().UTC().Format(time.RFC3339), s.ttl)
}
