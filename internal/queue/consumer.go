package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer listens to the booking queues and appends one line per event to
// a log file (logs/booking.log by default).
type Consumer struct {
	url     string
	logPath string
	log     logrus.FieldLogger
}

// NewConsumer returns a Consumer for the broker at url writing to logPath.
func NewConsumer(url, logPath string, log logrus.FieldLogger) *Consumer {
	if logPath == "" {
		logPath = filepath.Join("logs", "booking.log")
	}
	return &Consumer{url: url, logPath: logPath, log: log}
}

// Run connects to RabbitMQ, declares both booking queues (durable) and
// consumes them. It reconnects with exponential backoff and only returns
// once ctx is cancelled. A message that cannot be handled is rejected
// without requeue so a poison message cannot loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		conn, err := dial(dctx, c.url)
		cancel()
		if err != nil {
			c.log.WithError(err).Warnf("booking-consumer: failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("booking-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("booking-consumer: set QoS failed")
	}

	consume := func(queue string) (<-chan amqp.Delivery, error) {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("queue declare %s: %w", queue, err)
		}
		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("queue consume %s: %w", queue, err)
		}
		return msgs, nil
	}
	confirmed, err := consume(BookingConfirmedQueue)
	if err != nil {
		return err
	}
	cancelled, err := consume(BookingCancelledQueue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-confirmed:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.settle(d, c.Handle(BookingConfirmedQueue, d.Body))
		case d, ok := <-cancelled:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.settle(d, c.Handle(BookingCancelledQueue, d.Body))
		}
	}
}

func (c *Consumer) settle(d amqp.Delivery, err error) {
	if err != nil {
		c.log.WithError(err).Warn("booking-consumer: handle message failed")
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

// Handle formats one message from queue and appends it to the log file.
func (c *Consumer) Handle(queue string, body []byte) error {
	line, err := FormatLine(queue, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders an event body as a single human-friendly log line.
func FormatLine(queue string, body []byte) (string, error) {
	switch queue {
	case BookingConfirmedQueue:
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | user_id=%d | showtime_id=%d | screen_id=%d | starts_at=%s | total=%s | seats=[%s]\n",
			ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.ShowtimeID, ev.ScreenID, ev.StartsAt, ev.TotalAmount, strings.Join(ev.SeatLabels, ",")), nil
	case BookingCancelledQueue:
		var ev BookingCancelledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Booking cancelled | booking_id=%d | user_id=%d | showtime_id=%d | released_seats=%d\n",
			ev.CancelledAt, ev.BookingID, ev.UserID, ev.ShowtimeID, ev.ReleasedSeats), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}

// dialTimeout bounds one connection attempt of the consumer.
const dialTimeout = 10 * time.Second

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
