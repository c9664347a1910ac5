package eventbus

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// KafkaPublisher publishes domain events to a single Kafka topic, keyed by
// order id so per-order ordering is preserved across partitions. The
// producer is synchronous and idempotent: a transition event is delivered at
// most once per commit.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaPublisher connects a synchronous producer to the given brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}

	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

func (p *KafkaPublisher) Publish(_ context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.Key()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{{
			Key:   []byte("event"),
			Value: []byte(e.EventName()),
		}},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("publish event",
			zap.Error(err),
			zap.String("event", e.EventName()),
			zap.String("key", e.Key()))
		return errors.Wrap(err, "send message")
	}

	p.logger.Debug("event published",
		zap.String("event", e.EventName()),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
