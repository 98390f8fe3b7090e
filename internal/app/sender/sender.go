// Package sender собирает воркер, который читает очереди уведомлений
// и отправляет письма через SMTP.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscribepro/internal/config"
	"github.com/magabrotheeeer/subscribepro/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/subscribepro/internal/services/sender"
)

// App — воркер отправки писем.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	topo          rabbitmq.Topology
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New подключается к RabbitMQ и объявляет топологию уведомлений.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("%s: rabbitmq url is not configured", op)
	}
	topo := rabbitmq.NotificationTopology(cfg.RabbitMQ)
	conn, err := rabbitmq.Dial(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.Open(conn, topo)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	return &App{
		conn:          conn,
		ch:            ch,
		topo:          topo,
		senderService: senderservice.New(transport, logger),
		logger:        logger,
	}, nil
}

// Handlers сопоставляет ключам маршрутизации обработчики писем.
func Handlers(s *senderservice.Service) map[string]rabbitmq.Handler {
	return map[string]rabbitmq.Handler{
		rabbitmq.RoutingVerification: s.SendVerification,
		rabbitmq.RoutingInvoice:      s.SendInvoice,
	}
}

// Run читает очереди до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	consumer := rabbitmq.NewConsumer(a.ch, a.topo.Prefetch, a.logger)
	handlers := Handlers(a.senderService)
	for _, q := range a.topo.Queues {
		handler, ok := handlers[q.RoutingKey]
		if !ok {
			return fmt.Errorf("app.sender.Run: no handler for routing key %s", q.RoutingKey)
		}
		if err := consumer.Consume(ctx, q.QueueName, handler); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			return err
		}
		a.logger.Info("consumer started", slog.String("queue", q.QueueName), slog.String("routing_key", q.RoutingKey))
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
