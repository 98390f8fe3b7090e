// Package catalog содержит бизнес-логику каталога продуктов и корпоративных
// контрактов: выдачу продуктов с персональной ценой, админские операции над
// продуктами, контрактами и ценами контрактов.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/services/pricing"
)

const productsCacheKey = "catalog:products"

// Repository определяет методы хранилища каталога.
type Repository interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	CreateProduct(ctx context.Context, p models.Product) error
	UpdateProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id string) error

	ListContracts(ctx context.Context) ([]models.Contract, error)
	GetContract(ctx context.Context, id string) (models.Contract, error)
	CreateContract(ctx context.Context, c models.Contract) error
	UpdateContractStatus(ctx context.Context, id string, status models.ContractStatus) error

	ListContractPrices(ctx context.Context) ([]models.ContractPrice, error)
	CreateContractPrice(ctx context.Context, p models.ContractPrice) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// ProductView — продукт с ценой для конкретного пользователя.
type ProductView struct {
	models.Product
	Price           float64 `json:"price"`
	HasDiscount     bool    `json:"has_discount"`
	ContractPriceID string  `json:"contract_price_id,omitempty"`
}

// ContractView — контракт вместе с его ценами.
type ContractView struct {
	models.Contract
	Prices []models.ContractPrice `json:"prices"`
}

// ProductFilter отбирает продукты каталога. Пустые поля не ограничивают выборку.
type ProductFilter struct {
	// Search ищет подстроку в названии и описании без учета регистра.
	Search string
	// Category сравнивается с категорией продукта точно.
	Category string
}

func (f ProductFilter) match(p models.Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}

// ProductInput — данные продукта из админки.
type ProductInput struct {
	Name             string
	Description      string
	ShortDescription string
	Category         string
	ImageURL         string
	RegularPrice     float64
}

// ContractInput — данные нового контракта.
type ContractInput struct {
	OrganizationID string
	CorporateName  string
	EffectiveDate  time.Time
	ExpirationDate time.Time
}

// PriceInput — данные новой цены контракта.
type PriceInput struct {
	ProductID      string
	Price          float64
	EffectiveDate  time.Time
	ExpirationDate *time.Time
}

// Service реализует каталог с кэшированием списка продуктов.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	now   func() time.Time
	log   *slog.Logger
}

// New создает сервис каталога.
func New(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
	}
}

// WithClock подменяет источник текущего времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) products(ctx context.Context) ([]models.Product, error) {
	var cached []models.Product
	found, err := s.cache.Get(productsCacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read products from cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(productsCacheKey, products, s.ttl); err != nil {
		s.log.Warn("failed to cache products", sl.Err(err))
	}
	return products, nil
}

func (s *Service) invalidateProducts() {
	if err := s.cache.Invalidate(productsCacheKey); err != nil {
		s.log.Warn("failed to invalidate products cache", sl.Err(err))
	}
}

// pricingData загружает контракты и цены только для корпоративных пользователей.
func (s *Service) pricingData(ctx context.Context, user *models.User) ([]models.Contract, []models.ContractPrice, error) {
	if user == nil || user.Role != models.RoleCorporate {
		return nil, nil, nil
	}
	contracts, err := s.repo.ListContracts(ctx)
	if err != nil {
		return nil, nil, err
	}
	prices, err := s.repo.ListContractPrices(ctx)
	if err != nil {
		return nil, nil, err
	}
	return contracts, prices, nil
}

func view(p models.Product, q pricing.Quote) ProductView {
	return ProductView{
		Product:         p,
		Price:           q.Price,
		HasDiscount:     q.HasDiscount,
		ContractPriceID: q.ContractPriceID,
	}
}

// Products возвращает продукты, подходящие под filter, с ценами для user.
// user == nil означает гостя.
func (s *Service) Products(ctx context.Context, user *models.User, filter ProductFilter) ([]ProductView, error) {
	const op = "catalog.Products"

	products, err := s.products(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	contracts, prices, err := s.pricingData(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		if !filter.match(p) {
			continue
		}
		views = append(views, view(p, pricing.QuoteFor(user, p, contracts, prices, now)))
	}
	return views, nil
}

// Categories возвращает отсортированный список категорий каталога без повторов.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	const op = "catalog.Categories"

	products, err := s.products(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	seen := make(map[string]struct{}, len(products))
	categories := make([]string, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

// Product возвращает продукт с ценой для user.
func (s *Service) Product(ctx context.Context, id string, user *models.User) (ProductView, error) {
	const op = "catalog.Product"

	products, err := s.products(ctx)
	if err != nil {
		return ProductView{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, p := range products {
		if p.ID != id {
			continue
		}
		contracts, prices, err := s.pricingData(ctx, user)
		if err != nil {
			return ProductView{}, fmt.Errorf("%s: %w", op, err)
		}
		return view(p, pricing.QuoteFor(user, p, contracts, prices, s.now())), nil
	}
	return ProductView{}, apperr.New(apperr.NotFound, "product not found")
}

func (in ProductInput) product(id string) (models.Product, error) {
	p := models.Product{
		ID:               id,
		Name:             strings.TrimSpace(in.Name),
		Description:      in.Description,
		ShortDescription: in.ShortDescription,
		Category:         in.Category,
		ImageURL:         in.ImageURL,
		RegularPrice:     in.RegularPrice,
	}
	if err := p.Validate(); err != nil {
		return models.Product{}, apperr.Wrap(apperr.ValidationError, "name is required and price must be positive", err)
	}
	return p, nil
}

// CreateProduct добавляет продукт в каталог.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	const op = "catalog.CreateProduct"

	p, err := in.product(uuid.NewString())
	if err != nil {
		return models.Product{}, err
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateProducts()
	s.log.Info("product created", slog.String("product_id", p.ID))
	return p, nil
}

// UpdateProduct заменяет данные продукта id.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (models.Product, error) {
	const op = "catalog.UpdateProduct"

	p, err := in.product(id)
	if err != nil {
		return models.Product{}, err
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateProducts()
	s.log.Info("product updated", slog.String("product_id", id))
	return p, nil
}

// DeleteProduct удаляет продукт и его цены в контрактах.
// Оформленные подписки хранят снимок продукта и не затрагиваются.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	const op = "catalog.DeleteProduct"

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateProducts()
	s.log.Info("product deleted", slog.String("product_id", id))
	return nil
}

// Contracts возвращает все контракты с их ценами.
func (s *Service) Contracts(ctx context.Context) ([]ContractView, error) {
	const op = "catalog.Contracts"

	contracts, err := s.repo.ListContracts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	prices, err := s.repo.ListContractPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byContract := make(map[string][]models.ContractPrice, len(contracts))
	for _, p := range prices {
		byContract[p.ContractID] = append(byContract[p.ContractID], p)
	}
	views := make([]ContractView, 0, len(contracts))
	for _, c := range contracts {
		ps := byContract[c.ID]
		if ps == nil {
			ps = []models.ContractPrice{}
		}
		views = append(views, ContractView{Contract: c, Prices: ps})
	}
	return views, nil
}

// CreateContract создает действующий контракт.
func (s *Service) CreateContract(ctx context.Context, in ContractInput) (models.Contract, error) {
	const op = "catalog.CreateContract"

	c := models.Contract{
		ID:             uuid.NewString(),
		OrganizationID: strings.TrimSpace(in.OrganizationID),
		CorporateName:  strings.TrimSpace(in.CorporateName),
		EffectiveDate:  in.EffectiveDate.UTC(),
		ExpirationDate: in.ExpirationDate.UTC(),
		Status:         models.ContractActive,
	}
	if c.CorporateName == "" {
		return models.Contract{}, apperr.New(apperr.ValidationError, "corporate name is required")
	}
	if err := c.Validate(); err != nil {
		return models.Contract{}, apperr.Wrap(apperr.ValidationError, "organization is required and expiration must be after effective date", err)
	}
	if err := s.repo.CreateContract(ctx, c); err != nil {
		return models.Contract{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("contract created", slog.String("contract_id", c.ID), slog.String("organization_id", c.OrganizationID))
	return c, nil
}

// ExpireContract переводит контракт в статус expired.
func (s *Service) ExpireContract(ctx context.Context, id string) (models.Contract, error) {
	const op = "catalog.ExpireContract"

	if err := s.repo.UpdateContractStatus(ctx, id, models.ContractExpired); err != nil {
		return models.Contract{}, fmt.Errorf("%s: %w", op, err)
	}
	c, err := s.repo.GetContract(ctx, id)
	if err != nil {
		return models.Contract{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("contract expired", slog.String("contract_id", id))
	return c, nil
}

// AddContractPrice добавляет цену продукта в контракт contractID.
func (s *Service) AddContractPrice(ctx context.Context, contractID string, in PriceInput) (models.ContractPrice, error) {
	const op = "catalog.AddContractPrice"

	if _, err := s.repo.GetContract(ctx, contractID); err != nil {
		return models.ContractPrice{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.repo.GetProduct(ctx, in.ProductID); err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return models.ContractPrice{}, apperr.New(apperr.ValidationError, "unknown product")
		}
		return models.ContractPrice{}, fmt.Errorf("%s: %w", op, err)
	}

	p := models.ContractPrice{
		ID:            uuid.NewString(),
		ContractID:    contractID,
		ProductID:     in.ProductID,
		Price:         in.Price,
		EffectiveDate: in.EffectiveDate.UTC(),
	}
	if in.ExpirationDate != nil {
		exp := in.ExpirationDate.UTC()
		p.ExpirationDate = &exp
	}
	if p.EffectiveDate.IsZero() {
		return models.ContractPrice{}, apperr.New(apperr.ValidationError, "effective date is required")
	}
	if err := p.Validate(); err != nil {
		return models.ContractPrice{}, apperr.Wrap(apperr.ValidationError, "price must be positive and expiration after effective date", err)
	}
	if err := s.repo.CreateContractPrice(ctx, p); err != nil {
		return models.ContractPrice{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("contract price added", slog.String("contract_id", contractID), slog.String("product_id", in.ProductID))
	return p, nil
}

// CurrentContract возвращает действующий контракт организации user и его действующие цены.
func (s *Service) CurrentContract(ctx context.Context, user *models.User) (ContractView, error) {
	const op = "catalog.CurrentContract"

	if user == nil || user.OrganizationID == "" {
		return ContractView{}, apperr.New(apperr.NotFound, "no active contract")
	}
	contracts, err := s.repo.ListContracts(ctx)
	if err != nil {
		return ContractView{}, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	// ActiveContract учитывает только корпоративную роль, админ смотрит контракт своей организации
	asCorporate := *user
	asCorporate.Role = models.RoleCorporate
	contract, ok := pricing.ActiveContract(&asCorporate, contracts, now)
	if !ok {
		return ContractView{}, apperr.New(apperr.NotFound, "no active contract")
	}

	prices, err := s.repo.ListContractPrices(ctx)
	if err != nil {
		return ContractView{}, fmt.Errorf("%s: %w", op, err)
	}
	effective := pricing.EffectivePrices(contract.ID, prices, now)
	view := ContractView{Contract: contract, Prices: make([]models.ContractPrice, 0, len(effective))}
	for _, p := range effective {
		view.Prices = append(view.Prices, p)
	}
	sort.Slice(view.Prices, func(i, j int) bool { return view.Prices[i].ProductID < view.Prices[j].ProductID })
	return view, nil
}
