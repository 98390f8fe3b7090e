// Package memory — хранилище каталога, контрактов, подписок и счетов в памяти процесса.
// Используется, когда строка подключения к PostgreSQL не задана.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/magabrotheeeer/subscribepro/internal/fixtures"
	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
	"github.com/magabrotheeeer/subscribepro/internal/models"
)

// Storage хранит записи в срезах в порядке добавления.
type Storage struct {
	mu             sync.RWMutex
	products       []models.Product
	contracts      []models.Contract
	contractPrices []models.ContractPrice
	subscriptions  []models.Subscription
	invoices       []models.Invoice
}

// New создает пустое хранилище.
func New() *Storage {
	return &Storage{}
}

// Seed заполняет хранилище фикстурами, если в нем еще нет продуктов.
func (s *Storage) Seed(_ context.Context, seed *fixtures.Seed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) > 0 {
		return nil
	}
	s.products = append(s.products, seed.Products...)
	s.contracts = append(s.contracts, seed.Contracts...)
	s.contractPrices = append(s.contractPrices, seed.ContractPrices...)
	s.subscriptions = append(s.subscriptions, seed.Subscriptions...)
	s.invoices = append(s.invoices, seed.Invoices...)
	return nil
}

func (s *Storage) ListProducts(_ context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Product(nil), s.products...), nil
}

func (s *Storage) GetProduct(_ context.Context, id string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, apperr.New(apperr.NotFound, "product not found")
}

func (s *Storage) CreateProduct(_ context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.ID == p.ID {
			return apperr.New(apperr.ValidationError, "product already exists")
		}
	}
	s.products = append(s.products, p)
	return nil
}

func (s *Storage) UpdateProduct(_ context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p
			return nil
		}
	}
	return apperr.New(apperr.NotFound, "product not found")
}

// DeleteProduct удаляет продукт вместе с его ценами по контрактам.
// Подписки хранят снимок продукта и не затрагиваются.
func (s *Storage) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.products {
		if s.products[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperr.New(apperr.NotFound, "product not found")
	}
	s.products = append(s.products[:idx], s.products[idx+1:]...)

	prices := s.contractPrices[:0]
	for _, p := range s.contractPrices {
		if p.ProductID != id {
			prices = append(prices, p)
		}
	}
	s.contractPrices = prices
	return nil
}

func (s *Storage) ListContracts(_ context.Context) ([]models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Contract(nil), s.contracts...), nil
}

func (s *Storage) GetContract(_ context.Context, id string) (models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contracts {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Contract{}, apperr.New(apperr.NotFound, "contract not found")
}

func (s *Storage) CreateContract(_ context.Context, c models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts = append(s.contracts, c)
	return nil
}

func (s *Storage) UpdateContractStatus(_ context.Context, id string, status models.ContractStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contracts {
		if s.contracts[i].ID == id {
			s.contracts[i].Status = status
			return nil
		}
	}
	return apperr.New(apperr.NotFound, "contract not found")
}

func (s *Storage) ListContractPrices(_ context.Context) ([]models.ContractPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ContractPrice(nil), s.contractPrices...), nil
}

func (s *Storage) CreateContractPrice(_ context.Context, p models.ContractPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contractPrices = append(s.contractPrices, p)
	return nil
}

// CreateSubscription сохраняет подписку и ее первый счет.
func (s *Storage) CreateSubscription(_ context.Context, sub models.Subscription, first models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = append(s.subscriptions, sub)
	s.invoices = append(s.invoices, first)
	return nil
}

func (s *Storage) GetSubscription(_ context.Context, id string) (models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscriptions {
		if sub.ID == id {
			return sub, nil
		}
	}
	return models.Subscription{}, apperr.New(apperr.NotFound, "subscription not found")
}

func (s *Storage) ListSubscriptionsByUser(_ context.Context, userID string) ([]models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]models.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.UserID == userID {
			res = append(res, sub)
		}
	}
	return res, nil
}

func (s *Storage) UpdateSubscriptionStatus(_ context.Context, id string, status models.SubscriptionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subscriptions {
		if s.subscriptions[i].ID == id {
			s.subscriptions[i].Status = status
			return nil
		}
	}
	return apperr.New(apperr.NotFound, "subscription not found")
}

// ListDueSubscriptions возвращает активные подписки с датой списания не позже now.
func (s *Storage) ListDueSubscriptions(_ context.Context, now time.Time) ([]models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]models.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.Status == models.SubscriptionActive && !sub.NextBillingDate.After(now) {
			res = append(res, sub)
		}
	}
	return res, nil
}

// AdvanceBilling переносит дату списания и, если inv не nil, добавляет счет.
func (s *Storage) AdvanceBilling(_ context.Context, subscriptionID string, next time.Time, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subscriptions {
		if s.subscriptions[i].ID != subscriptionID {
			continue
		}
		s.subscriptions[i].NextBillingDate = next
		if inv != nil {
			s.invoices = append(s.invoices, *inv)
		}
		return nil
	}
	return apperr.New(apperr.NotFound, "subscription not found")
}

func (s *Storage) InvoiceExists(_ context.Context, subscriptionID string, billingDate time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.SubscriptionID == subscriptionID && inv.BillingDate.Equal(billingDate) {
			return true, nil
		}
	}
	return false, nil
}

// ListInvoicesByUser возвращает счета по всем подпискам пользователя.
func (s *Storage) ListInvoicesByUser(_ context.Context, userID string) ([]models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := make(map[string]struct{})
	for _, sub := range s.subscriptions {
		if sub.UserID == userID {
			owned[sub.ID] = struct{}{}
		}
	}
	res := make([]models.Invoice, 0)
	for _, inv := range s.invoices {
		if _, ok := owned[inv.SubscriptionID]; ok {
			res = append(res, inv)
		}
	}
	return res, nil
}

// CountSubscriptionsByUser возвращает число подписок каждого пользователя.
func (s *Storage) CountSubscriptionsByUser(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, sub := range s.subscriptions {
		counts[sub.UserID]++
	}
	return counts, nil
}
