package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"roomwatch.dev/roomwatch/pkg/metrics"
	"roomwatch.dev/roomwatch/pkg/mq"
	"roomwatch.dev/roomwatch/pkg/tagread"
)

// Consumer consumes tag-read events from RabbitMQ and persists them
// through the same event-store semantics as the HTTP ingest endpoint.
type Consumer struct {
	logger    *slog.Logger
	store     *Store
	mqClient  mq.ClientInterface
	queueName string
	done      chan struct{}
	metrics   *metrics.ServerMetrics // Optional metrics
}

// ConsumerConfig holds the configuration for the Consumer.
type ConsumerConfig struct {
	Logger      *slog.Logger
	Store       *Store
	RabbitMQURL string
	QueueName   string
	Metrics     *metrics.ServerMetrics
}

// NewConsumer creates a new Consumer instance.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil {
		return nil, errors.New("consumer config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Store == nil {
		return nil, errors.New("store cannot be nil")
	}

	if cfg.RabbitMQURL == "" {
		return nil, errors.New("rabbitmq URL cannot be empty")
	}

	if cfg.QueueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	mqClient := mq.New(cfg.QueueName, cfg.RabbitMQURL, cfg.Logger)

	return &Consumer{
		logger:    cfg.Logger,
		store:     cfg.Store,
		mqClient:  mqClient,
		queueName: cfg.QueueName,
		done:      make(chan struct{}),
		metrics:   cfg.Metrics,
	}, nil
}

// Start begins consuming messages from RabbitMQ.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting tag-read consumer", "queue", c.queueName)

	// Wait for MQ client to be ready
	time.Sleep(2 * time.Second)

	deliveries, err := c.mqClient.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consumer started, waiting for messages")

	go c.processMessages(ctx, deliveries)

	return nil
}

// processMessages processes incoming messages from the deliveries channel.
func (c *Consumer) processMessages(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context canceled, stopping message processing")
			close(c.done)
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("deliveries channel closed")
				close(c.done)
				return
			}

			c.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery processes a single message delivery. Malformed payloads
// and validation failures are acked and dropped so they do not loop on
// the queue; storage failures are nacked for redelivery.
func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var read tagread.TagRead
	if err := json.Unmarshal(delivery.Body, &read); err != nil {
		c.logger.Error("failed to unmarshal tag read", "error", err)
		c.countError("unmarshal_error")
		if ackErr := delivery.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack message", "error", ackErr)
		}
		return
	}

	c.logger.Info("received tag read",
		"tag_id", read.TagID,
		"status", read.Status,
		"timestamp", read.Timestamp,
	)

	if _, err := c.store.AppendEvent(ctx, read); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			c.logger.Warn("dropping invalid tag read",
				"tag_id", read.TagID,
				"error", err,
			)
			c.countError("validation_error")
			if ackErr := delivery.Ack(false); ackErr != nil {
				c.logger.Error("failed to ack message", "error", ackErr)
			}
			return
		}

		c.logger.Error("failed to save tag read",
			"tag_id", read.TagID,
			"error", err,
		)
		c.countError("storage_error")
		// Nack the message so it can be reprocessed
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error("failed to nack message", "error", nackErr)
		}
		return
	}

	if err := delivery.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "error", err)
		return
	}

	if c.metrics != nil {
		c.metrics.ConsumerMessagesTotal.WithLabelValues(c.queueName, "success").Inc()
	}

	c.logger.Debug("tag read saved successfully", "tag_id", read.TagID)
}

// countError records one failed message, when metrics are enabled.
func (c *Consumer) countError(errorType string) {
	if c.metrics == nil {
		return
	}
	c.metrics.ConsumerMessagesTotal.WithLabelValues(c.queueName, "error").Inc()
	c.metrics.ConsumerErrors.WithLabelValues(c.queueName, errorType).Inc()
}

// Stop stops the consumer and closes the MQ client.
func (c *Consumer) Stop() error {
	c.logger.Info("stopping consumer")

	if err := c.mqClient.Close(); err != nil {
		return fmt.Errorf("failed to close mq client: %w", err)
	}

	// Wait for message processing to complete
	<-c.done

	c.logger.Info("consumer stopped")
	return nil
}
