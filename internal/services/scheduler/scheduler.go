// Package scheduler выставляет счета по подпискам, у которых наступила дата списания.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscribepro/internal/lib/billingdate"
	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/metrics"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/services/notify"
)

// Repository определяет методы хранилища подписок, нужные планировщику.
type Repository interface {
	ListDueSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error)
	InvoiceExists(ctx context.Context, subscriptionID string, billingDate time.Time) (bool, error)
	AdvanceBilling(ctx context.Context, subscriptionID string, next time.Time, inv *models.Invoice) error
}

// UserDirectory ищет получателя уведомления.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (models.User, bool, error)
}

// Notifier публикует уведомление о счете.
type Notifier interface {
	SendInvoice(ctx context.Context, msg notify.Invoice) error
}

// Service периодически выставляет счета.
type Service struct {
	repo     Repository
	users    UserDirectory
	notifier Notifier
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// New создает планировщик с периодом interval.
func New(repo Repository, users UserDirectory, notifier Notifier, interval time.Duration, log *slog.Logger) *Service {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// WithClock подменяет источник текущего времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run выставляет счета сразу и затем раз в interval, пока не отменен ctx.
func (s *Service) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("billing scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	issued, err := s.Renew(ctx, s.now().UTC())
	if err != nil {
		s.log.Error("failed to renew subscriptions", sl.Err(err))
		return
	}
	if issued > 0 {
		s.log.Info("invoices issued", slog.Int("count", issued))
	}
}

// Renew выставляет по одному счету на дату NextBillingDate каждой просроченной
// активной подписки и переносит дату на следующий цикл. Подписка, отставшая
// на несколько циклов, догоняет по одному циклу за вызов.
// Возвращает число новых счетов.
func (s *Service) Renew(ctx context.Context, now time.Time) (int, error) {
	const op = "scheduler.Renew"

	due, err := s.repo.ListDueSubscriptions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(due) == 0 {
		s.log.Debug("no subscriptions due")
		return 0, nil
	}
	s.log.Info("found subscriptions due", slog.Int("count", len(due)))

	issued := 0
	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			return issued, fmt.Errorf("%s: %w", op, err)
		}
		log := s.log.With(slog.String("subscription_id", sub.ID))

		exists, err := s.repo.InvoiceExists(ctx, sub.ID, sub.NextBillingDate)
		if err != nil {
			log.Error("failed to check invoice", sl.Err(err))
			continue
		}
		var inv *models.Invoice
		if !exists {
			inv = &models.Invoice{
				ID:             uuid.NewString(),
				SubscriptionID: sub.ID,
				ProductName:    sub.Product.Name,
				BillingDate:    sub.NextBillingDate,
				Amount:         sub.Price,
				Status:         models.InvoicePending,
			}
		}

		// следующий цикл считается от даты начала, чтобы 31-е не сползало на 28-е
		next := billingdate.Next(sub.StartDate, sub.NextBillingDate)
		if err := s.repo.AdvanceBilling(ctx, sub.ID, next, inv); err != nil {
			log.Error("failed to advance billing", sl.Err(err))
			continue
		}
		if inv == nil {
			continue
		}
		issued++
		metrics.InvoiceIssued()
		s.notify(ctx, log, sub, *inv)
	}
	return issued, nil
}

func (s *Service) notify(ctx context.Context, log *slog.Logger, sub models.Subscription, inv models.Invoice) {
	user, found, err := s.users.FindByID(ctx, sub.UserID)
	if err != nil {
		log.Error("failed to find invoice recipient", sl.Err(err))
		return
	}
	if !found {
		log.Warn("invoice recipient not found", slog.String("user_id", sub.UserID))
		return
	}
	msg := notify.Invoice{
		InvoiceID:      inv.ID,
		SubscriptionID: sub.ID,
		UserID:         user.ID,
		Name:           user.Name,
		Email:          user.Email,
		ProductName:    inv.ProductName,
		Amount:         inv.Amount,
		BillingDate:    inv.BillingDate,
	}
	if err := s.notifier.SendInvoice(ctx, msg); err != nil {
		log.Error("failed to publish invoice notification", sl.Err(err))
	}
}
