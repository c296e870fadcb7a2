package repository

import (
	"context"
	"time"

	"FutPull/internal/domain/models"
	"FutPull/internal/domain/repository"
	pkgkafka "FutPull/pkg/kafka"
)

// BatchPublisher is satisfied by *kafka.Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaBarSink publishes one message per projected row, keyed by contract so
// a contract's bars stay ordered within a partition.
type KafkaBarSink struct {
	pub       BatchPublisher
	topic     string
	chunkSize int
}

func NewKafkaBarSink(pub BatchPublisher, topic string, chunkSize int) repository.BarSink {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &KafkaBarSink{pub: pub, topic: topic, chunkSize: chunkSize}
}

func (s *KafkaBarSink) Name() string { return "kafka" }

func (s *KafkaBarSink) Init(context.Context) error { return nil }

// Exists is always false; a topic cannot answer whether a date was sent.
func (s *KafkaBarSink) Exists(context.Context, string) (bool, error) { return false, nil }

func (s *KafkaBarSink) Close() error { return nil }

func (s *KafkaBarSink) Save(ctx context.Context, batch models.BarBatch) error {
	t := batch.Table
	msgs := make([]pkgkafka.Message, 0, s.chunkSize)
	for i, row := range t.Rows {
		value := make(map[string]any, len(t.Fields))
		for j, f := range t.Fields {
			v := row[j]
			if tv, ok := v.(time.Time); ok {
				v = tv.Format(csvTimeLayout)
			}
			value[f] = v
		}
		var key []byte
		if i < len(batch.Records) {
			key = []byte(batch.Records[i].TsCode)
		}
		msgs = append(msgs, pkgkafka.Message{Key: key, Value: value})
		if len(msgs) == s.chunkSize {
			if err := s.pub.PublishBatch(ctx, s.topic, msgs); err != nil {
				return err
			}
			msgs = msgs[:0]
		}
	}
	if len(msgs) > 0 {
		return s.pub.PublishBatch(ctx, s.topic, msgs)
	}
	return nil
}
