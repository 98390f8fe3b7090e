// Package rabbitmq содержит подключение к брокеру, объявление топологии уведомлений,
// публикацию и потребление сообщений.
package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
)

const maxRetryDelay = 30 * time.Second

var dial = amqp.Dial

// Dial подключается к RabbitMQ. Между попытками пауза удваивается, начиная с delay.
// Ожидание прерывается отменой ctx.
func Dial(ctx context.Context, url string, retries int, delay time.Duration, log *slog.Logger) (*amqp.Connection, error) {
	const op = "rabbitmq.Dial"
	if retries < 1 {
		retries = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		var conn *amqp.Connection
		conn, err = dial(url)
		if err == nil {
			return conn, nil
		}
		if attempt == retries {
			break
		}
		log.Warn("rabbitmq is unavailable, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			sl.Err(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// Open открывает канал и объявляет на нем topo.
func Open(conn *amqp.Connection, topo Topology) (*amqp.Channel, error) {
	const op = "rabbitmq.Open"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := topo.Declare(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}
