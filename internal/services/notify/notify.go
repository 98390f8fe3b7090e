// Package notify публикует уведомления (подтверждение email, новый счет)
// в exchange RabbitMQ. Письма отправляет отдельный процесс sender.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/subscribepro/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscribepro/internal/models"
)

// Verification — сообщение со ссылкой подтверждения email.
type Verification struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Token  string `json:"token"`
	Link   string `json:"link"`
}

// Invoice — сообщение о выставленном счете.
type Invoice struct {
	InvoiceID      string    `json:"invoice_id"`
	SubscriptionID string    `json:"subscription_id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	ProductName    string    `json:"product_name"`
	Amount         float64   `json:"amount"`
	BillingDate    time.Time `json:"billing_date"`
}

// VerificationLink собирает ссылку подтверждения для токена.
func VerificationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/verify-email?token=" + url.QueryEscape(token)
}

// Publisher отправляет сообщение с ключом маршрутизации.
type Publisher interface {
	Publish(ctx context.Context, key string, msg any) error
}

// Rabbit публикует уведомления через брокер.
type Rabbit struct {
	pub     Publisher
	baseURL string
	log     *slog.Logger
}

// NewRabbit создает уведомитель поверх pub.
func NewRabbit(pub Publisher, baseURL string, log *slog.Logger) *Rabbit {
	return &Rabbit{pub: pub, baseURL: baseURL, log: log}
}

// SendVerification публикует письмо подтверждения для user.
func (r *Rabbit) SendVerification(ctx context.Context, user models.User, token string) error {
	const op = "notify.SendVerification"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := Verification{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Token:  token,
		Link:   VerificationLink(r.baseURL, token),
	}
	if err := r.pub.Publish(ctx, rabbitmq.RoutingVerification, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.log.Debug("verification published", slog.String("user_id", user.ID))
	return nil
}

// SendInvoice публикует уведомление о счете.
func (r *Rabbit) SendInvoice(ctx context.Context, msg Invoice) error {
	const op = "notify.SendInvoice"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := r.pub.Publish(ctx, rabbitmq.RoutingInvoice, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.log.Debug("invoice published", slog.String("invoice_id", msg.InvoiceID))
	return nil
}

// Noop только пишет уведомления в лог. Используется, когда RabbitMQ не настроен.
type Noop struct {
	baseURL string
	log     *slog.Logger
}

// NewNoop создает уведомитель без брокера.
func NewNoop(baseURL string, log *slog.Logger) *Noop {
	return &Noop{baseURL: baseURL, log: log}
}

func (n *Noop) SendVerification(_ context.Context, user models.User, token string) error {
	n.log.Info("verification not sent, broker disabled",
		slog.String("user_id", user.ID),
		slog.String("link", VerificationLink(n.baseURL, token)),
	)
	return nil
}

func (n *Noop) SendInvoice(_ context.Context, msg Invoice) error {
	n.log.Info("invoice notification not sent, broker disabled", slog.String("invoice_id", msg.InvoiceID))
	return nil
}
