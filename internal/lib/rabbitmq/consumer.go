package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
)

// Handler обрабатывает тело сообщения.
type Handler func(body []byte) error

// Consumer читает очереди канала, обрабатывая не больше workers сообщений одновременно.
type Consumer struct {
	ch      *amqp.Channel
	workers int
	log     *slog.Logger
}

// NewConsumer создает потребителя. workers обычно равен prefetch топологии.
func NewConsumer(ch *amqp.Channel, workers int, log *slog.Logger) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{ch: ch, workers: workers, log: log}
}

// Consume запускает чтение queue в фоне до отмены ctx.
func (c *Consumer) Consume(ctx context.Context, queue string, handler Handler) error {
	const op = "rabbitmq.Consume"
	deliveries, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log := c.log.With(slog.String("op", op), slog.String("queue", queue))
	sem := make(chan struct{}, c.workers)
	go func() {
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					handle(log, d, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// handle подтверждает успешно обработанное сообщение. После ошибки сообщение
// возвращается в очередь один раз, повторная ошибка его отбрасывает.
func handle(log *slog.Logger, d amqp.Delivery, handler Handler) {
	log = log.With(slog.String("message_id", d.MessageId))
	if err := handler(d.Body); err != nil {
		requeue := !d.Redelivered
		log.Error("handler failed", slog.Bool("requeue", requeue), sl.Err(err))
		if nackErr := d.Nack(false, requeue); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
