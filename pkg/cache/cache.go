package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCacheMiss   = errors.New("cache: key not found")
	ErrLockNotHeld = errors.New("cache: lock not held")
)

// Service is the key/value store behind response caching, run progress and
// per-date build locks. Values are stored as JSON unless they are strings.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	// TryLock takes key for owner token. Unlock releases it only while the
	// same token still holds it and returns ErrLockNotHeld otherwise.
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
	Close() error
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case *string:
		return []byte(*v), nil
	case []byte:
		return v, nil
	case *[]byte:
		return *v, nil
	default:
		return json.Marshal(value)
	}
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	default:
		return json.Unmarshal(data, dest)
	}
}
