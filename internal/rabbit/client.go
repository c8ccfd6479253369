package rabbit

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

var ErrClosed = errors.New("rabbit client is closed")

type Config struct {
	URL      string
	Exchange string
	Queue    string
}

type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	log      *zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// Handler processes one delivery. A non-nil error requeues the message.
type Handler func(ctx context.Context, body []byte) error

// NewRabbit dials the broker and declares a delayed-message exchange bound to
// the queue. The broker needs the rabbitmq_delayed_message_exchange plugin.
func NewRabbit(cfg Config, log *zerolog.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to RabbitMQ")
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		log.Error().Err(err).Msg("failed to open RabbitMQ channel")
		return nil, err
	}

	client := &Client{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		log:      log,
	}

	args := amqp.Table{"x-delayed-type": "direct"}
	if err := ch.ExchangeDeclare(cfg.Exchange, "x-delayed-message", true, false, false, false, args); err != nil {
		client.Close()
		log.Error().Err(err).Msg("failed to declare exchange")
		return nil, err
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		client.Close()
		log.Error().Err(err).Msg("failed to declare queue")
		return nil, err
	}

	if err := ch.QueueBind(cfg.Queue, "", cfg.Exchange, false, nil); err != nil {
		client.Close()
		log.Error().Err(err).Msg("failed to bind queue")
		return nil, err
	}

	log.Info().Str("exchange", cfg.Exchange).Str("queue", cfg.Queue).Msg("RabbitMQ initialized")
	return client, nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.log.Info().Msg("RabbitMQ connection closed")
}

// Publish sends message to the exchange, held back by the broker for delay.
func (c *Client) Publish(ctx context.Context, message []byte, delay time.Duration) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	headers := amqp.Table{}
	if delay > 0 {
		headers["x-delay"] = delay.Milliseconds()
	}

	err := c.channel.PublishWithContext(ctx, c.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         message,
		Timestamp:    time.Now(),
		Headers:      headers,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("failed to publish message to RabbitMQ")
		return err
	}

	c.log.Debug().Str("exchange", c.exchange).Dur("delay", delay).Msg("message published")
	return nil
}

// Consume delivers messages to handler until ctx is cancelled or the channel
// closes. It blocks.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to start consuming messages")
		return err
	}

	c.log.Info().Str("queue", c.queue).Msg("started consuming")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return ErrClosed
			}
			if err := handler(ctx, d.Body); err != nil {
				c.log.Warn().Err(err).Msg("failed to process message")
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
