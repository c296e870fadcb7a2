package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Producer wraps a kafka-go writer with JSON encoding and metrics.
type Producer struct {
	writer *kafka.Writer
	comp   string
}

// Message is a keyed payload. Values that are not []byte or string are
// encoded as JSON.
type Message struct {
	Key   []byte
	Value interface{}
}

// NewProducer creates a producer. Brokers are required.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    500,
		BatchBytes:   1 << 20,
		BatchTimeout: 200 * time.Millisecond,
		HashByKey:    true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	bal := kafka.Balancer(&kafka.LeastBytes{})
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     bal,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   int64(cfg.BatchBytes),
		BatchTimeout: cfg.BatchTimeout,
		// a sink must know whether its batch landed
		Async:                  false,
		AllowAutoTopicCreation: cfg.AutoCreateTopic,
	}

	metricsOnce.Do(registerMetrics)
	return &Producer{writer: writer, comp: cfg.Compression}, nil
}

// Publish sends one message.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishBatch sends messages in a single write.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	start := time.Now()
	now := start
	msgs := make([]kafka.Message, 0, len(messages))
	var totalBytes int64
	for _, m := range messages {
		v, err := Encode(m.Value)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: now})
		totalBytes += int64(len(v))
	}

	err := p.writer.WriteMessages(ctx, msgs...)
	observe(topic, p.comp, totalBytes, len(messages), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// Encode turns a message value into bytes.
func Encode(value interface{}) ([]byte, error) {
	switch val := value.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal value: %w", err)
		}
		return b, nil
	}
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

var (
	metricsOnce      sync.Once
	producedMessages *prometheus.CounterVec
	producedBytes    *prometheus.CounterVec
	publishLatency   *prometheus.HistogramVec
)

func registerMetrics() {
	producedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "futpull_kafka_producer_messages_total",
		Help: "Messages published to Kafka",
	}, []string{"topic", "compression", "result"})
	producedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "futpull_kafka_producer_bytes_total",
		Help: "Payload bytes published to Kafka",
	}, []string{"topic", "compression"})
	publishLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "futpull_kafka_producer_publish_seconds",
		Help:    "Publish latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
}

func observe(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	if producedMessages == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	producedMessages.WithLabelValues(topic, comp, result).Add(float64(count))
	producedBytes.WithLabelValues(topic, comp).Add(float64(bytes))
	publishLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
