// Package subscription содержит бизнес-логику подписок и счетов пользователя:
// оформление подписки с фиксацией цены, отмену, историю счетов и сводку.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
	"github.com/magabrotheeeer/subscribepro/internal/lib/billingdate"
	"github.com/magabrotheeeer/subscribepro/internal/metrics"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/services/catalog"
)

// Repository определяет методы для работы с подписками и счетами в хранилище.
type Repository interface {
	// CreateSubscription сохраняет подписку вместе с первым счетом.
	CreateSubscription(ctx context.Context, sub models.Subscription, first models.Invoice) error
	GetSubscription(ctx context.Context, id string) (models.Subscription, error)
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, id string, status models.SubscriptionStatus) error
	ListInvoicesByUser(ctx context.Context, userID string) ([]models.Invoice, error)
}

// Catalog возвращает продукт с ценой для пользователя.
type Catalog interface {
	Product(ctx context.Context, id string, user *models.User) (catalog.ProductView, error)
}

// NextPayment — ближайшее списание по активным подпискам.
type NextPayment struct {
	SubscriptionID string    `json:"subscription_id"`
	ProductName    string    `json:"product_name"`
	Date           time.Time `json:"date"`
	Amount         float64   `json:"amount"`
}

// Dashboard — сводка по подпискам и счетам пользователя.
type Dashboard struct {
	TotalSpent          float64      `json:"total_spent"`
	ActiveSubscriptions int          `json:"active_subscriptions"`
	NextPayment         *NextPayment `json:"next_payment"`
}

// Service реализует бизнес-логику подписок.
type Service struct {
	repo    Repository
	catalog Catalog
	now     func() time.Time
	log     *slog.Logger
}

// New создает сервис подписок.
func New(repo Repository, catalog Catalog, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		now:     time.Now,
		log:     log,
	}
}

// WithClock подменяет источник текущего времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Subscribe оформляет подписку user на продукт по цене, действующей для него сейчас,
// и выставляет первый счет.
func (s *Service) Subscribe(ctx context.Context, user models.User, productID string) (models.Subscription, error) {
	const op = "subscription.Subscribe"

	product, err := s.catalog.Product(ctx, productID, &user)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	sub := models.Subscription{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		ProductID:       product.ID,
		Product:         product.Product,
		StartDate:       now,
		NextBillingDate: billingdate.AddMonths(now, 1),
		Status:          models.SubscriptionActive,
		Price:           product.Price,
	}
	first := models.Invoice{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		ProductName:    product.Name,
		BillingDate:    now,
		Amount:         product.Price,
		Status:         models.InvoicePending,
	}
	if err := s.repo.CreateSubscription(ctx, sub, first); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.SubscriptionCreated(product.ContractPriceID != "")
	s.log.Info("created new subscription",
		slog.String("subscription_id", sub.ID),
		slog.String("user_id", user.ID),
		slog.String("product_id", product.ID),
		slog.Float64("price", sub.Price),
	)
	return sub, nil
}

// List возвращает подписки пользователя.
func (s *Service) List(ctx context.Context, userID string) ([]models.Subscription, error) {
	const op = "subscription.List"

	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// Cancel отменяет активную подписку. Чужая подписка не видна пользователю.
func (s *Service) Cancel(ctx context.Context, userID, subscriptionID string) (models.Subscription, error) {
	const op = "subscription.Cancel"

	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	if sub.UserID != userID {
		return models.Subscription{}, apperr.New(apperr.NotFound, "subscription not found")
	}
	if sub.Status != models.SubscriptionActive {
		return models.Subscription{}, apperr.New(apperr.ValidationError, "subscription is not active")
	}
	if err := s.repo.UpdateSubscriptionStatus(ctx, sub.ID, models.SubscriptionCanceled); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	sub.Status = models.SubscriptionCanceled

	s.log.Info("subscription canceled", slog.String("subscription_id", sub.ID), slog.String("user_id", userID))
	return sub, nil
}

// Invoices возвращает счета пользователя, новые первыми.
func (s *Service) Invoices(ctx context.Context, userID string) ([]models.Invoice, error) {
	const op = "subscription.Invoices"

	invoices, err := s.repo.ListInvoicesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sort.SliceStable(invoices, func(i, j int) bool {
		if !invoices[i].BillingDate.Equal(invoices[j].BillingDate) {
			return invoices[i].BillingDate.After(invoices[j].BillingDate)
		}
		return invoices[i].ID < invoices[j].ID
	})
	return invoices, nil
}

// Dashboard собирает сводку: сумму всех счетов, число активных подписок и ближайшее списание.
func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	const op = "subscription.Dashboard"

	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("%s: %w", op, err)
	}
	invoices, err := s.repo.ListInvoicesByUser(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("%s: %w", op, err)
	}

	var d Dashboard
	for _, inv := range invoices {
		d.TotalSpent += inv.Amount
	}
	d.TotalSpent = math.Round(d.TotalSpent*100) / 100

	for _, sub := range subs {
		if sub.Status != models.SubscriptionActive {
			continue
		}
		d.ActiveSubscriptions++
		if d.NextPayment == nil || sub.NextBillingDate.Before(d.NextPayment.Date) {
			d.NextPayment = &NextPayment{
				SubscriptionID: sub.ID,
				ProductName:    sub.Product.Name,
				Date:           sub.NextBillingDate,
				Amount:         sub.Price,
			}
		}
	}
	return d, nil
}
