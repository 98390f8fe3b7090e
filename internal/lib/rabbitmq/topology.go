package rabbitmq

import (
	"errors"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscribepro/internal/config"
)

// Ключи маршрутизации уведомлений.
const (
	RoutingVerification = "verification"
	RoutingInvoice      = "invoice"
)

const (
	defaultExchange = "notifications"
	defaultPrefetch = 10
)

// QueueConfig описывает очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Topology — обменник, очереди и prefetch одного канала.
type Topology struct {
	Exchange string
	Queues   []QueueConfig
	Prefetch int
}

// NotificationTopology собирает топологию уведомлений из настроек брокера.
// Незаполненные поля получают значения по умолчанию.
func NotificationTopology(cfg config.RabbitMQ) Topology {
	t := Topology{
		Exchange: cfg.Exchange,
		Prefetch: cfg.Prefetch,
		Queues: []QueueConfig{
			{QueueName: cfg.VerificationQueue, RoutingKey: RoutingVerification},
			{QueueName: cfg.InvoiceQueue, RoutingKey: RoutingInvoice},
		},
	}
	if t.Exchange == "" {
		t.Exchange = defaultExchange
	}
	if t.Prefetch < 1 {
		t.Prefetch = defaultPrefetch
	}
	for i := range t.Queues {
		if t.Queues[i].QueueName == "" {
			t.Queues[i].QueueName = "notification." + t.Queues[i].RoutingKey
		}
	}
	return t
}

// Queue возвращает имя очереди, привязанной ключом key.
func (t Topology) Queue(key string) (string, bool) {
	for _, q := range t.Queues {
		if q.RoutingKey == key {
			return q.QueueName, true
		}
	}
	return "", false
}

// Validate проверяет, что имена очередей и ключи не пусты и не повторяются.
func (t Topology) Validate() error {
	if t.Exchange == "" {
		return errors.New("exchange is empty")
	}
	names := make(map[string]struct{}, len(t.Queues))
	keys := make(map[string]struct{}, len(t.Queues))
	for _, q := range t.Queues {
		if q.QueueName == "" || q.RoutingKey == "" {
			return fmt.Errorf("queue %q: empty name or routing key", q.QueueName)
		}
		if _, ok := names[q.QueueName]; ok {
			return fmt.Errorf("duplicate queue %q", q.QueueName)
		}
		if _, ok := keys[q.RoutingKey]; ok {
			return fmt.Errorf("duplicate routing key %q", q.RoutingKey)
		}
		names[q.QueueName] = struct{}{}
		keys[q.RoutingKey] = struct{}{}
	}
	return nil
}

// Declarer — часть *amqp.Channel, нужная для объявления топологии.
type Declarer interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Declare объявляет на канале durable direct‑обменник и привязанные к нему очереди.
func (t Topology) Declare(ch Declarer) error {
	const op = "rabbitmq.Topology.Declare"
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(t.Prefetch, 0, false); err != nil {
		return fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}
	if err := ch.ExchangeDeclare(t.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, q := range t.Queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}
	return nil
}
