package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"showtime-booking/internal/apperr"
	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// PaymentConsumer applies payment transaction events to the booking
// lifecycle: created events move bookings to pending, completed events
// settle them through reconciliation.
type PaymentConsumer struct {
	url string
	svc usecase.BookingService
	log *zap.Logger
}

func NewPaymentConsumer(svc usecase.BookingService, config *utils.Config, log *zap.Logger) *PaymentConsumer {
	return &PaymentConsumer{
		url: config.Broker.URL,
		svc: svc,
		log: log.With(zap.String("component", "payment_consumer")),
	}
}

// Run starts one consume loop per payment queue and blocks until ctx is
// cancelled.
func (c *PaymentConsumer) Run(ctx context.Context) {
	go c.loop(ctx, PaymentCreatedQueue, c.handleCreated)
	c.loop(ctx, PaymentCompletedQueue, c.handleCompleted)
}

func (c *PaymentConsumer) loop(ctx context.Context, queueName string, handle func(context.Context, []byte) error) {
	log := c.log.With(zap.String("queue", queueName))

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Warn("Failed to dial broker, retrying",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consumeLoop(ctx, conn, queueName, handle, log); err != nil {
			log.Warn("Consume loop ended, reconnecting", zap.Error(err))
		}
		_ = conn.Close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *PaymentConsumer) consumeLoop(
	ctx context.Context,
	conn *amqp.Connection,
	queueName string,
	handle func(context.Context, []byte) error,
	log *zap.Logger,
) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handle(ctx, d.Body); err != nil {
				log.Error("Failed to handle payment event", zap.Error(err))
				_ = d.Nack(false, false) // drop rather than poison-loop
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *PaymentConsumer) handleCreated(ctx context.Context, body []byte) error {
	var ev PaymentCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal created event: %w", err)
	}
	if ev.BookingID <= 0 {
		return fmt.Errorf("created event has no booking id")
	}

	err := c.svc.MarkPending(ctx, ev.BookingID)
	switch {
	case errors.Is(err, apperr.ErrFailedPrecondition):
		// Duplicate delivery or an already-settled booking; nothing to do.
		c.log.Debug("Ignoring created event for non-initializing booking",
			zap.Int64("booking_id", ev.BookingID),
		)
		return nil
	case errors.Is(err, apperr.ErrNotFound):
		c.log.Warn("Created event references unknown booking",
			zap.Int64("booking_id", ev.BookingID),
		)
		return nil
	default:
		return err
	}
}

func (c *PaymentConsumer) handleCompleted(ctx context.Context, body []byte) error {
	var ev PaymentCompletedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal completed event: %w", err)
	}
	if ev.BookingID <= 0 {
		return fmt.Errorf("completed event has no booking id")
	}

	err := c.svc.ReconcilePayment(ctx, ev.BookingID, entity.PaymentOutcome(ev.Status))
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.log.Warn("Completed event references unknown booking",
			zap.Int64("booking_id", ev.BookingID),
			zap.String("status", ev.Status),
		)
		return nil
	default:
		return err
	}
}
