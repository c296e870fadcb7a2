package clickhouse

import "time"

type ClientOption func(*ClientConfig)

type ClientConfig struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	UseHTTP         bool
	AsyncInsert     bool
	WaitForAsync    bool
	MaxExecTime     time.Duration
}

func WithHost(host string) ClientOption {
	return func(c *ClientConfig) { c.Host = host }
}

func WithPort(port int) ClientOption {
	return func(c *ClientConfig) { c.Port = port }
}

func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) { c.Database = database }
}

func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

func WithMaxConnections(maxOpen, maxIdle int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
	}
}

func WithTimeouts(dial, read time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.DialTimeout = dial
		c.ReadTimeout = read
	}
}

// WithHTTP switches from the native protocol to HTTP.
func WithHTTP(useHTTP bool) ClientOption {
	return func(c *ClientConfig) { c.UseHTTP = useHTTP }
}

// WithAsyncInsert sets async_insert and whether inserts wait for the flush.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) {
		c.AsyncInsert = enabled
		c.WaitForAsync = wait
	}
}

func WithMaxExecutionTime(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.MaxExecTime = d }
}
