package mq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ClientInterface is the broker surface consumed by the server and the
// simulator. Fakes implement it in tests so handlers can be exercised
// without a running RabbitMQ.
type ClientInterface interface {
	// Push publishes data and blocks until the broker confirms receipt,
	// retrying with backoff while the connection recovers. The context
	// bounds the wait.
	Push(ctx context.Context, data []byte) error

	// UnsafePush publishes without waiting for a confirmation. Delivery
	// is not guaranteed.
	UnsafePush(ctx context.Context, data []byte) error

	// Consume streams deliveries from the configured queue. Callers must
	// Ack each delivery once processed, or Nack on failure.
	Consume() (<-chan amqp.Delivery, error)

	// Close shuts down the channel and connection.
	Close() error
}

var _ ClientInterface = (*Client)(nil)
