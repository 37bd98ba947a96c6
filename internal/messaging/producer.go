package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"gradebook/common/metrics"
	"gradebook/internal/events"

	"github.com/nats-io/nats.go"
)

const transport = "nats"

// Producer publishes mark events to a NATS subject.
type Producer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewProducer(url string, subject string, logger *slog.Logger, m *metrics.Metrics) (*Producer, error) {
	nc, err := connect(url, "gradebook-producer", logger)
	if err != nil {
		return nil, err
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &Producer{
		conn:    nc,
		subject: subject,
		logger:  logger,
		metrics: m,
	}, nil
}

func (p *Producer) Publish(ctx context.Context, event events.MarkEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal mark event", "error", err)
		return err
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.ID)
	msg.Header.Set("Gradebook-Kind", string(event.Kind))

	start := time.Now()
	err = p.conn.PublishMsg(msg)
	p.metrics.Messaging.RecordPublish(ctx, transport, p.subject, time.Since(start), err)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send mark event to NATS", "error", err, "event_id", event.ID)
		return err
	}

	p.logger.DebugContext(ctx, "mark event sent to NATS", "subject", p.subject, "kind", event.Kind, "mark_id", event.Mark.ID)
	return nil
}

func (p *Producer) Close() error {
	if err := p.conn.Flush(); err != nil {
		p.logger.Warn("failed to flush NATS producer", "error", err)
	}
	p.conn.Close()
	return nil
}

// HealthCheck verifies the NATS connection is healthy.
func (p *Producer) HealthCheck() error {
	return connectionHealth(p.conn)
}

func connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
}

func connectionHealth(conn *nats.Conn) error {
	if conn == nil || conn.IsClosed() {
		return nats.ErrConnectionClosed
	}
	if !conn.IsConnected() {
		return nats.ErrDisconnected
	}
	return nil
}
