// internal/relay/amqp.go
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/memesniper/internal/events"
)

const publishTimeout = 5 * time.Second

// Channel is the part of *amqp.Channel the relay uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Relay forwards broadcast messages to a RabbitMQ topic exchange, using the
// event name as routing key.
type Relay struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
	logger   *zap.Logger
}

// Dial connects to url and declares exchange as a durable topic exchange.
func Dial(url, exchange string, logger *zap.Logger) (*Relay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	r, err := New(ch, exchange, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	r.conn = conn
	return r, nil
}

// New wraps an already open channel.
func New(ch Channel, exchange string, logger *zap.Logger) (*Relay, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Relay{ch: ch, exchange: exchange, logger: logger.Named("relay")}, nil
}

// Handle implements events.Handler.
func (r *Relay) Handle(ctx context.Context, msg events.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Topic, err)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = r.ch.PublishWithContext(pubCtx, r.exchange, string(msg.Topic), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.Time,
		Type:         string(msg.Topic),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	r.logger.Debug("Relayed", zap.String("event", string(msg.Topic)), zap.String("id", msg.ID))
	return nil
}

func (r *Relay) Close() error {
	err := r.ch.Close()
	if r.conn != nil {
		err = errors.Join(err, r.conn.Close())
	}
	return err
}
