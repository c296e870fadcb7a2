package cache

import "time"

type RedisOption func(*RedisConfig)

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
}

func WithRedisHost(host string) RedisOption {
	return func(c *RedisConfig) { c.Host = host }
}

func WithRedisPort(port int) RedisOption {
	return func(c *RedisConfig) { c.Port = port }
}

func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) { c.Password = password }
}

func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) { c.DB = db }
}

func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithRedisPrefix sets the namespace every key is stored under.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

type MemoryOption func(*MemoryConfig)

type MemoryConfig struct {
	MaxSize         int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxSize = size }
}

// WithMemoryDefaultTTL applies to Set calls with a non-positive expiration.
func WithMemoryDefaultTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.DefaultTTL = ttl }
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.CleanupInterval = interval }
}
