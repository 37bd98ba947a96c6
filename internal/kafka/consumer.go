package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	commonmetrics "gradebook/common/metrics"
	"gradebook/internal/events"
	"gradebook/internal/metrics"

	"github.com/IBM/sarama"
)

// Consumer reads mark submissions from the ingest topic as part of a
// consumer group.
type Consumer struct {
	consumer sarama.ConsumerGroup
	topic    string
	handler  *ConsumerGroupHandler
	logger   *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, recorder events.Recorder, logger *slog.Logger, m *commonmetrics.Metrics, counters *metrics.Metrics) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.ClientID = "gradebook"
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	logger.Info("kafka consumer initialized", "brokers", brokers, "topic", topic, "group", groupID)

	return &Consumer{
		consumer: consumerGroup,
		topic:    topic,
		handler: &ConsumerGroupHandler{
			Recorder: recorder,
			Logger:   logger,
			Metrics:  m,
			Counters: counters,
		},
		logger: logger,
	}, nil
}

// Start consumes until ctx is cancelled, rejoining the group after each
// rebalance.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		if err := c.consumer.Consume(ctx, []string{c.topic}, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("error consuming messages", "error", err)
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}

// ConsumerGroupHandler implements sarama.ConsumerGroupHandler interface
type ConsumerGroupHandler struct {
	Recorder events.Recorder
	Logger   *slog.Logger
	Metrics  *commonmetrics.Metrics
	Counters *metrics.Metrics
}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim marks every message, including failed ones, so a poison
// submission cannot block the partition.
func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()

	for msg := range claim.Messages() {
		start := time.Now()
		err := h.process(ctx, msg)
		h.Metrics.Messaging.RecordConsume(ctx, transport, msg.Topic, time.Since(start), err)

		switch {
		case err == nil:
			h.Counters.RecordMarksRecorded(ctx, transport, 1)
		case errors.Is(err, events.ErrRejected):
			h.Counters.RecordIngestRejected(ctx, transport)
			h.Logger.WarnContext(ctx, "mark submission rejected",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		default:
			h.Logger.ErrorContext(ctx, "failed to record mark submission",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}

		session.MarkMessage(msg, "")
	}

	return nil
}

func (h *ConsumerGroupHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) error {
	sub, err := events.DecodeSubmission(msg.Value)
	if err != nil {
		return err
	}
	if err := h.Recorder.RecordSubmission(ctx, sub, transport); err != nil {
		return err
	}
	h.Logger.InfoContext(ctx, "mark submission recorded",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"student_id", sub.StudentID,
		"subject_id", sub.SubjectID,
	)
	return nil
}
