package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/logging"
	"github.com/rabbitmq/amqp091-go"
)

// RabbitOptions configures the AMQP publisher.
type RabbitOptions struct {
	URL           string
	Exchange      string
	RetryAttempts int
	// Delay is the first backoff step between dial attempts; it doubles
	// after every failure. Zero means DefaultDialDelay.
	Delay time.Duration
}

const (
	DefaultDialDelay = time.Second
	maxDialDelay     = 30 * time.Second
)

type rabbitPublisher struct {
	conn     *amqp091.Connection
	exchange string
	log      logging.Logger
}

// NewRabbitPublisher dials the broker (with backoff) and declares a durable
// topic exchange. Publish waits for the broker to confirm each message.
func NewRabbitPublisher(ctx context.Context, opts RabbitOptions, log logging.Logger) (Publisher, error) {
	conn, err := dialWithRetry(ctx, opts, log)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", opts.Exchange, err)
	}

	return &rabbitPublisher{conn: conn, exchange: opts.Exchange, log: log}, nil
}

func (r *rabbitPublisher) Publish(ctx context.Context, key string, e Envelope) error {
	msg, err := publishing(e)
	if err != nil {
		return err
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp091.Confirmation, 1))

	if err := ch.PublishWithContext(ctx, r.exchange, key, false, false, msg); err != nil {
		return err
	}
	if err := awaitConfirm(ctx, confirms); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	r.log.Debug(ctx, "published", "key", key, "exchange", r.exchange)
	return nil
}

var errNacked = errors.New("broker rejected message")

func awaitConfirm(ctx context.Context, confirms <-chan amqp091.Confirmation) error {
	select {
	case c, ok := <-confirms:
		if !ok {
			return amqp091.ErrClosed
		}
		if !c.Ack {
			return errNacked
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *rabbitPublisher) Close() error {
	return r.conn.Close()
}

func publishing(e Envelope) (amqp091.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal %s: %w", e.Type, err)
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    e.ID,
		Type:         e.Type,
		Timestamp:    e.OccurredAt,
		Body:         body,
	}, nil
}

var amqpDial = amqp091.Dial

func dialWithRetry(ctx context.Context, opts RabbitOptions, log logging.Logger) (*amqp091.Connection, error) {
	attempts := max(opts.RetryAttempts, 1)

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqpDial(opts.URL)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if i == attempts {
			break
		}

		sleep := backoff(opts.Delay, i)
		log.Warn(ctx, "amqp dial failed", "attempt", i, "sleep", sleep, "error", err)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("amqp: %d attempts failed: %w", attempts, lastErr)
}

// backoff is the pause after the n-th failed attempt.
func backoff(base time.Duration, n int) time.Duration {
	if base <= 0 {
		base = DefaultDialDelay
	}
	d := base
	for i := 1; i < n && d < maxDialDelay; i++ {
		d *= 2
	}
	return min(d, maxDialDelay)
}
