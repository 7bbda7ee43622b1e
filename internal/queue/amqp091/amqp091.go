// Package amqp091 implements queue.Publisher over RabbitMQ using
// github.com/rabbitmq/amqp091-go, publishing onto durable queues bound
// to the default exchange.
package amqp091

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/ilofleet/sentinel/internal/queue"
)

// Publisher publishes to durable queues on the default exchange.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	framing queue.Framing
	logger  zerolog.Logger
}

// Config configures the adapter.
type Config struct {
	URL     string
	Framing queue.Framing
}

// queueNames are declared durable up front so the first publish to each
// never races a missing queue.
var queueNames = []string{
	queue.NewClientRequestQueue,
	queue.UnauthenticatedClientQueue,
	queue.AuthenticatedClientQueue,
}

// New dials the broker, opens a channel, and declares the module's
// three named queues as durable on the default exchange.
func New(cfg Config, logger zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp091: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp091: open channel: %w", err)
	}

	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("amqp091: declare queue %s: %w", name, err)
		}
	}

	return &Publisher{conn: conn, channel: ch, framing: cfg.Framing, logger: logger}, nil
}

// Publish implements queue.Publisher. Failures are logged at error and
// not retried in-line; callers decide whether to retry.
func (p *Publisher) Publish(ctx context.Context, msg queue.Message) error {
	body, err := queue.EncodeFrame(msg.Payload, p.framing)
	if err != nil {
		p.logger.Error().Err(err).Str("queue", msg.Queue).Msg("amqp091: frame encode failed")
		return err
	}

	err = p.channel.PublishWithContext(ctx, "", msg.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID.String(),
		Body:         body,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("queue", msg.Queue).Str("message_id", msg.ID.String()).Msg("amqp091: publish failed")
		return fmt.Errorf("amqp091: publish to %s: %w", msg.Queue, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	chErr := p.channel.Close()
	connErr := p.conn.Close()
	if chErr != nil {
		return chErr
	}
	return connErr
}
