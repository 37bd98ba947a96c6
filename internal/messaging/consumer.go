package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	commonmetrics "gradebook/common/metrics"
	"gradebook/internal/events"
	"gradebook/internal/metrics"

	"github.com/nats-io/nats.go"
)

// QueueGroup spreads ingest submissions across service replicas.
const QueueGroup = "gradebook-ingest"

// Reply is sent back when a submission arrives as a request.
type Reply struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Consumer stores mark submissions published on the ingest subject.
type Consumer struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	subject  string
	recorder events.Recorder
	logger   *slog.Logger
	metrics  *commonmetrics.Metrics
	counters *metrics.Metrics
}

func NewConsumer(url string, subject string, recorder events.Recorder, logger *slog.Logger, m *commonmetrics.Metrics, counters *metrics.Metrics) (*Consumer, error) {
	nc, err := connect(url, "gradebook-ingest", logger)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		conn:     nc,
		subject:  subject,
		recorder: recorder,
		logger:   logger,
		metrics:  m,
		counters: counters,
	}, nil
}

// Start subscribes and blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.conn.QueueSubscribe(c.subject, QueueGroup, func(msg *nats.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return err
	}

	c.sub = sub
	c.logger.Info("NATS consumer started", "subject", c.subject, "queue", QueueGroup)

	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) handle(ctx context.Context, msg *nats.Msg) {
	start := time.Now()
	err := c.process(ctx, msg.Data)
	c.metrics.Messaging.RecordConsume(ctx, transport, msg.Subject, time.Since(start), err)

	reply := Reply{Status: "recorded"}
	switch {
	case err == nil:
		c.counters.RecordMarksRecorded(ctx, transport, 1)
	case errors.Is(err, events.ErrRejected):
		c.counters.RecordIngestRejected(ctx, transport)
		c.logger.WarnContext(ctx, "mark submission rejected", "subject", msg.Subject, "error", err)
		reply = Reply{Status: "rejected", Error: err.Error()}
	default:
		c.logger.ErrorContext(ctx, "failed to record mark submission", "subject", msg.Subject, "error", err)
		reply = Reply{Status: "failed", Error: err.Error()}
	}

	if msg.Reply == "" {
		return
	}
	data, _ := json.Marshal(reply)
	if err := msg.Respond(data); err != nil {
		c.logger.WarnContext(ctx, "failed to reply to submission", "error", err)
	}
}

func (c *Consumer) process(ctx context.Context, data []byte) error {
	sub, err := events.DecodeSubmission(data)
	if err != nil {
		return err
	}
	if err := c.recorder.RecordSubmission(ctx, sub, transport); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "mark submission recorded",
		"submission_id", sub.SubmissionID,
		"student_id", sub.StudentID,
		"subject_id", sub.SubjectID,
	)
	return nil
}

func (c *Consumer) Close() error {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	c.conn.Close()
	return nil
}

// HealthCheck verifies the NATS connection is healthy.
func (c *Consumer) HealthCheck() error {
	return connectionHealth(c.conn)
}
