package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/utils"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ExpiryScheduler publishes delayed expiry checks. A message enqueued at
// booking creation surfaces on the ready queue one hold window later.
type ExpiryScheduler struct {
	broker     *Broker
	holdWindow time.Duration
	log        *zap.Logger
}

func NewExpiryScheduler(broker *Broker, config *utils.Config, log *zap.Logger) (*ExpiryScheduler, error) {
	s := &ExpiryScheduler{
		broker:     broker,
		holdWindow: config.Booking.HoldWindow,
		log:        log.With(zap.String("component", "expiry_scheduler")),
	}

	ch, err := broker.Channel()
	if err != nil {
		return nil, err
	}
	defer func() { _ = ch.Close() }()

	if err := declareExpiryTopology(ch, s.holdWindow); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *ExpiryScheduler) ScheduleExpiryCheck(ctx context.Context, bookingID int64) error {
	body, err := json.Marshal(ExpiryCheckEvent{BookingID: bookingID})
	if err != nil {
		return fmt.Errorf("marshal expiry event: %w", err)
	}

	ch, err := s.broker.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	err = ch.PublishWithContext(ctx,
		"",              // default exchange
		ExpiryWaitQueue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Headers:      amqp.Table{attemptsHeader: int32(0)},
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish expiry check: %w", err)
	}

	s.log.Debug("Expiry check scheduled",
		zap.Int64("booking_id", bookingID),
		zap.Duration("hold_window", s.holdWindow),
	)
	return nil
}

// ExpiryConsumer drains the ready queue and cancels bookings that never
// reached a payment outcome inside the hold window.
type ExpiryConsumer struct {
	url         string
	svc         usecase.BookingService
	holdWindow  time.Duration
	maxAttempts int
	log         *zap.Logger
}

func NewExpiryConsumer(svc usecase.BookingService, config *utils.Config, log *zap.Logger) *ExpiryConsumer {
	return &ExpiryConsumer{
		url:         config.Broker.URL,
		svc:         svc,
		holdWindow:  config.Booking.HoldWindow,
		maxAttempts: config.Booking.ExpiryMaxAttempts,
		log:         log.With(zap.String("component", "expiry_consumer")),
	}
}

// Run consumes until ctx is cancelled, reconnecting with backoff after any
// broker failure.
func (c *ExpiryConsumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("Failed to dial broker, retrying",
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

		if err := c.consumeLoop(ctx, conn); err != nil {
			c.log.Warn("Consume loop ended, reconnecting", zap.Error(err))
		}
		_ = conn.Close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *ExpiryConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	if err := declareExpiryTopology(ch, c.holdWindow); err != nil {
		return err
	}

	msgs, err := ch.Consume(ExpiryQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", ExpiryQueue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(ctx, ch, d)
		}
	}
}

func (c *ExpiryConsumer) handle(ctx context.Context, ch *amqp.Channel, d amqp.Delivery) {
	var ev ExpiryCheckEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		c.log.Error("Dropping malformed expiry message", zap.Error(err))
		_ = d.Nack(false, false) // do not requeue, it will never parse
		return
	}

	if err := c.svc.ExpireBooking(ctx, ev.BookingID); err != nil {
		c.retry(ctx, ch, d, ev, err)
		return
	}

	_ = d.Ack(false)
}

// retry republishes the event to the ready queue with an incremented attempt
// counter, until the budget runs out; then it logs and drops.
func (c *ExpiryConsumer) retry(ctx context.Context, ch *amqp.Channel, d amqp.Delivery, ev ExpiryCheckEvent, cause error) {
	attempts := deliveryAttempts(d)
	if attempts+1 >= c.maxAttempts {
		c.log.Error("Expiry check failed, attempt budget exhausted",
			zap.Error(cause),
			zap.Int64("booking_id", ev.BookingID),
			zap.Int("attempts", attempts+1),
		)
		_ = d.Nack(false, false)
		return
	}

	err := ch.PublishWithContext(ctx,
		"",
		ExpiryQueue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Headers:      amqp.Table{attemptsHeader: int32(attempts + 1)},
			Body:         d.Body,
		},
	)
	if err != nil {
		// Could not republish; requeue the original so the attempt is not lost.
		c.log.Warn("Failed to republish expiry check, requeueing",
			zap.Error(err),
			zap.Int64("booking_id", ev.BookingID),
		)
		_ = d.Nack(false, true)
		return
	}

	c.log.Warn("Expiry check failed, retrying",
		zap.Error(cause),
		zap.Int64("booking_id", ev.BookingID),
		zap.Int("attempt", attempts+1),
	)
	_ = d.Ack(false)
}

func deliveryAttempts(d amqp.Delivery) int {
	switch v := d.Headers[attemptsHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
