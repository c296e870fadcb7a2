package kafka

import "time"

type ProducerOption func(*ProducerConfig)

type ProducerConfig struct {
	Brokers         []string
	RequiredAcks    int
	Compression     string
	MaxAttempts     int
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	BatchSize       int
	BatchBytes      int
	BatchTimeout    time.Duration
	HashByKey       bool
	AutoCreateTopic bool
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression accepts gzip, snappy, lz4 or zstd.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = compression }
}

// WithRequiredAcks sets required acknowledgements (-1 = all).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) { c.MaxAttempts = n }
}

func WithBatch(size, bytes int, timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchSize = size
		c.BatchBytes = bytes
		c.BatchTimeout = timeout
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithHashByKey keeps every message of a key on one partition.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}

func WithAutoCreateTopic(enabled bool) ProducerOption {
	return func(c *ProducerConfig) { c.AutoCreateTopic = enabled }
}
