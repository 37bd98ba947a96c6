package app

import (
	"context"
	"fmt"

	"gradebook/internal/events"
	"gradebook/internal/kafka"
	"gradebook/internal/messaging"
	"gradebook/internal/metrics"
)

// newPublisher connects the configured broker. A broker that cannot be
// reached degrades to dropping events so writes keep working.
func (a *App) newPublisher() events.Publisher {
	cfg := a.config.Events
	infra := a.telemetry.Metrics

	switch cfg.Driver {
	case "nats":
		producer, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.EventSubject, a.logger, infra)
		if err != nil {
			a.logger.Warn("failed to initialize NATS producer, mark events disabled", "error", err)
			return events.Nop{}
		}
		a.health.Register("nats", func(context.Context) error { return producer.HealthCheck() })
		return producer
	case "kafka":
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventTopic, a.logger, infra)
		if err != nil {
			a.logger.Warn("failed to initialize kafka producer, mark events disabled", "error", err)
			return events.Nop{}
		}
		return producer
	default:
		a.logger.Info("mark events disabled")
		return events.Nop{}
	}
}

// newConsumers subscribes recorder to the configured ingest transport.
func (a *App) newConsumers(recorder events.Recorder, counters *metrics.Metrics) error {
	cfg := a.config.Events
	infra := a.telemetry.Metrics

	switch cfg.Driver {
	case "nats":
		c, err := messaging.NewConsumer(cfg.NATS.URL, cfg.NATS.IngestSubject, recorder, a.logger, infra, counters)
		if err != nil {
			return fmt.Errorf("failed to create NATS consumer: %w", err)
		}
		a.logger.Info("NATS consumer initialized", "url", cfg.NATS.URL, "subject", cfg.NATS.IngestSubject)
		a.consumers = append(a.consumers, c)
	case "kafka":
		c, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.IngestTopic, cfg.Kafka.GroupID, recorder, a.logger, infra, counters)
		if err != nil {
			return fmt.Errorf("failed to create kafka consumer: %w", err)
		}
		a.consumers = append(a.consumers, c)
	}
	return nil
}
