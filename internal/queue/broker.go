package queue

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Broker wraps a RabbitMQ connection and hands out channels, redialing
// transparently when the connection has been lost.
type Broker struct {
	url  string
	log  *zap.Logger
	mu   sync.Mutex
	conn *amqp.Connection
}

func NewBroker(url string, log *zap.Logger) (*Broker, error) {
	b := &Broker{
		url: url,
		log: log.With(zap.String("component", "broker")),
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	b.conn = conn

	return b, nil
}

// Channel opens a channel on the current connection, reconnecting first if
// the connection was closed by the broker.
func (b *Broker) Channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		conn, err := amqp.Dial(b.url)
		if err != nil {
			return nil, fmt.Errorf("redial broker: %w", err)
		}
		b.log.Info("Reconnected to broker")
		b.conn = conn
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil && !b.conn.IsClosed() {
		if err := b.conn.Close(); err != nil {
			b.log.Warn("Failed to close broker connection", zap.Error(err))
		}
	}
}

// declareExpiryTopology declares the wait queue and the ready queue. The wait
// queue carries the hold window as a per-queue TTL and dead-letters expired
// messages through the default exchange into the ready queue.
func declareExpiryTopology(ch *amqp.Channel, holdWindow time.Duration) error {
	if _, err := ch.QueueDeclare(
		ExpiryQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", ExpiryQueue, err)
	}

	if _, err := ch.QueueDeclare(
		ExpiryWaitQueue,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-message-ttl":             holdWindow.Milliseconds(),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": ExpiryQueue,
		},
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", ExpiryWaitQueue, err)
	}

	return nil
}
