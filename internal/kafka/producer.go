package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"gradebook/common/metrics"
	"gradebook/internal/events"

	"github.com/IBM/sarama"
)

const transport = "kafka"

// Producer publishes mark events keyed by student id, so one student's
// events stay ordered within a partition.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewConfig returns the producer settings used by NewProducer.
func NewConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = "gradebook"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	return config
}

func NewProducer(brokers []string, topic string, logger *slog.Logger, m *metrics.Metrics) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, err
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)

	return NewProducerWith(producer, topic, logger, m), nil
}

// NewProducerWith wraps an existing sync producer.
func NewProducerWith(producer sarama.SyncProducer, topic string, logger *slog.Logger, m *metrics.Metrics) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
		metrics:  m,
	}
}

func (p *Producer) Publish(ctx context.Context, event events.MarkEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal mark event", "error", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.Itoa(event.Mark.StudentID)),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_id"), Value: []byte(event.ID)},
			{Key: []byte("kind"), Value: []byte(event.Kind)},
		},
	}

	start := time.Now()
	partition, offset, err := p.producer.SendMessage(msg)
	p.metrics.Messaging.RecordPublish(ctx, transport, p.topic, time.Since(start), err)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send mark event to kafka", "error", err, "event_id", event.ID)
		return err
	}

	p.logger.DebugContext(ctx, "mark event sent to kafka",
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
		"kind", event.Kind,
	)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
