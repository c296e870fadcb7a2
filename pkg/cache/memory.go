package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	data       []byte
	expireAt   time.Time
	lastAccess time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return now.After(m.expireAt)
}

// MemoryCache implements Service in process with LRU eviction. Values are
// encoded on Set, so Get behaves the same as with Redis.
type MemoryCache struct {
	mu         sync.Mutex
	data       map[string]*memoryItem
	maxSize    int
	defaultTTL time.Duration
	stop       chan struct{}
	once       sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		DefaultTTL:      7 * 24 * time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	mc := &MemoryCache{
		data:       make(map[string]*memoryItem),
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		stop:       make(chan struct{}),
	}
	go mc.cleanup(cfg.CleanupInterval)
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = mc.defaultTTL
	}
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, ok := mc.data[key]; !ok && len(mc.data) >= mc.maxSize {
		mc.evictLocked()
	}
	mc.data[key] = &memoryItem{data: data, expireAt: now.Add(expiration), lastAccess: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	now := time.Now()
	mc.mu.Lock()
	item, ok := mc.data[key]
	if ok && item.expired(now) {
		delete(mc.data, key)
		ok = false
	}
	if !ok {
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	item.lastAccess = now
	data := item.data
	mc.mu.Unlock()
	return decode(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if item, ok := mc.data[key]; ok && !item.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if item, ok := mc.data[key]; ok && !item.expired(now) {
		return false, nil
	}
	mc.data[key] = &memoryItem{data: []byte(token), expireAt: now.Add(ttl), lastAccess: now}
	return true, nil
}

func (mc *MemoryCache) Unlock(_ context.Context, key, token string) error {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	item, ok := mc.data[key]
	if !ok || item.expired(now) || string(item.data) != token {
		return ErrLockNotHeld
	}
	delete(mc.data, key)
	return nil
}

// Len counts stored entries, expired ones included until cleanup runs.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.data)
}

func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.stop) })
	return nil
}

func (mc *MemoryCache) evictLocked() {
	var (
		oldestKey  string
		oldestTime time.Time
	)
	for key, item := range mc.data {
		if oldestKey == "" || item.lastAccess.Before(oldestTime) {
			oldestKey, oldestTime = key, item.lastAccess
		}
	}
	if oldestKey != "" {
		delete(mc.data, oldestKey)
	}
}

func (mc *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-mc.stop:
			return
		case now := <-ticker.C:
			mc.mu.Lock()
			for key, item := range mc.data {
				if item.expired(now) {
					delete(mc.data, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}
