package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscribepro/internal/cache"
	"github.com/magabrotheeeer/subscribepro/internal/fixtures"
	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/storage/memory"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newService(t *testing.T) (*Service, *memory.Storage) {
	t.Helper()
	seed, err := fixtures.Load("")
	require.NoError(t, err)
	store := memory.New()
	require.NoError(t, store.Seed(context.Background(), seed))

	lru := cache.NewLRU(16, time.Minute)
	svc := New(store, lru, time.Minute, newNoopLogger()).WithClock(func() time.Time { return testNow })
	return svc, store
}

var (
	john = &models.User{ID: "user_1", Role: models.RoleIndividual}
	jane = &models.User{ID: "user_2", Role: models.RoleCorporate, OrganizationID: "org_acme"}
)

func priceOf(t *testing.T, views []ProductView, id string) ProductView {
	t.Helper()
	for _, v := range views {
		if v.ID == id {
			return v
		}
	}
	t.Fatalf("product %s not in catalog", id)
	return ProductView{}
}

func TestService_Products(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		user     *models.User
		id       string
		want     float64
		discount bool
	}{
		{name: "guest", user: nil, id: "prod_1", want: 199.99},
		{name: "individual", user: john, id: "prod_1", want: 199.99},
		{name: "corporate contract price", user: jane, id: "prod_1", want: 149.99, discount: true},
		{name: "corporate second price", user: jane, id: "prod_2", want: 99.99, discount: true},
		{name: "corporate without price", user: jane, id: "prod_3", want: 29.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := svc.Products(ctx, tt.user, ProductFilter{})
			require.NoError(t, err)
			assert.Len(t, views, 4)

			v := priceOf(t, views, tt.id)
			assert.Equal(t, tt.want, v.Price)
			assert.Equal(t, tt.discount, v.HasDiscount)

			single, err := svc.Product(ctx, tt.id, tt.user)
			require.NoError(t, err)
			assert.Equal(t, v, single)
		})
	}
}

func TestService_ProductsFilter(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter ProductFilter
		want   []string
	}{
		{name: "no filter", filter: ProductFilter{}, want: []string{"prod_1", "prod_2", "prod_3", "prod_4"}},
		{name: "search by name ignores case", filter: ProductFilter{Search: "react"}, want: []string{"prod_1"}},
		{name: "search by description", filter: ProductFilter{Search: "COMPREHENSIVE"}, want: []string{"prod_1", "prod_3"}},
		{name: "search is trimmed", filter: ProductFilter{Search: "  security "}, want: []string{"prod_4"}},
		{name: "category", filter: ProductFilter{Category: "Software"}, want: []string{"prod_3"}},
		{name: "search and category", filter: ProductFilter{Search: "course", Category: "Development"}, want: []string{"prod_1"}},
		{name: "no match", filter: ProductFilter{Search: "course", Category: "Design"}, want: []string{}},
		{name: "category is exact", filter: ProductFilter{Category: "software"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := svc.Products(ctx, jane, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(views))
			for _, v := range views {
				ids = append(ids, v.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}

	// контрактная цена сохраняется и в отфильтрованной выдаче
	views, err := svc.Products(ctx, jane, ProductFilter{Category: "Development"})
	require.NoError(t, err)
	assert.Equal(t, 149.99, priceOf(t, views, "prod_1").Price)
}

func TestService_Categories(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Design", "Development", "Security", "Software"}, categories)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Go Course", Category: "Development", RegularPrice: 49})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Figma Kit", Category: "Assets", RegularPrice: 9})
	require.NoError(t, err)

	categories, err = svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Assets", "Design", "Development", "Security", "Software"}, categories)
}

func TestService_ProductNotFound(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Product(context.Background(), "prod_404", nil)
	assert.True(t, errors.Is(err, apperr.NotFound))
}

func TestService_ProductsFromCache(t *testing.T) {
	c := new(MockCache)
	svc := New(memory.New(), c, time.Minute, newNoopLogger())

	cached := []models.Product{{ID: "p", Name: "Cached", RegularPrice: 5}}
	c.On("Get", productsCacheKey, mock.Anything).
		Run(func(args mock.Arguments) {
			*(args.Get(1).(*[]models.Product)) = cached
		}).
		Return(true, nil).Once()

	views, err := svc.Products(context.Background(), nil, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Cached", views[0].Name)
	c.AssertExpectations(t)
}

func TestService_ProductsCacheMissFillsCache(t *testing.T) {
	c := new(MockCache)
	svc := New(memory.New(), c, 10*time.Minute, newNoopLogger())

	c.On("Get", productsCacheKey, mock.Anything).Return(false, errors.New("redis down")).Once()
	c.On("Set", productsCacheKey, mock.Anything, 10*time.Minute).Return(nil).Once()

	views, err := svc.Products(context.Background(), nil, ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, views)
	c.AssertExpectations(t)
}

func TestService_ProductsCacheErrorLogged(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	c := new(MockCache)
	svc := New(memory.New(), c, time.Minute, log)

	c.On("Get", productsCacheKey, mock.Anything).Return(false, errors.New("redis down")).Once()
	c.On("Set", productsCacheKey, mock.Anything, time.Minute).Return(nil).Once()

	_, err := svc.Products(context.Background(), nil, ProductFilter{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"failed to read products from cache"`)
	assert.Contains(t, buf.String(), `"error":"redis down"`)
}

func TestService_ProductCRUD(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Products(ctx, nil, ProductFilter{}) // прогреваем кэш
	require.NoError(t, err)

	p, err := svc.CreateProduct(ctx, ProductInput{Name: " Go Course ", Category: "Development", RegularPrice: 49})
	require.NoError(t, err)
	assert.Equal(t, "Go Course", p.Name)

	views, err := svc.Products(ctx, nil, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, views, 5)

	updated, err := svc.UpdateProduct(ctx, p.ID, ProductInput{Name: "Go Course 2", RegularPrice: 59})
	require.NoError(t, err)
	assert.Equal(t, 59.0, updated.RegularPrice)

	got, err := svc.Product(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Go Course 2", got.Name)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.Product(ctx, p.ID, nil)
	assert.True(t, errors.Is(err, apperr.NotFound))

	_, err = svc.UpdateProduct(ctx, "prod_404", ProductInput{Name: "X", RegularPrice: 1})
	assert.True(t, errors.Is(err, apperr.NotFound))
	assert.True(t, errors.Is(svc.DeleteProduct(ctx, "prod_404"), apperr.NotFound))
}

func TestService_CreateProductValidation(t *testing.T) {
	svc, _ := newService(t)

	for _, in := range []ProductInput{
		{Name: "", RegularPrice: 10},
		{Name: "   ", RegularPrice: 10},
		{Name: "Free", RegularPrice: 0},
		{Name: "Negative", RegularPrice: -1},
	} {
		_, err := svc.CreateProduct(context.Background(), in)
		assert.True(t, errors.Is(err, apperr.ValidationError), "%+v", in)
	}
}

func TestService_Contracts(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	views, err := svc.Contracts(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "contract_1", views[0].ID)
	assert.Len(t, views[0].Prices, 2)

	c, err := svc.CreateContract(ctx, ContractInput{
		OrganizationID: "org_globex",
		CorporateName:  "Globex",
		EffectiveDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpirationDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContractActive, c.Status)

	views, err = svc.Contracts(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.NotNil(t, views[1].Prices)
	assert.Empty(t, views[1].Prices)
}

func TestService_CreateContractValidation(t *testing.T) {
	svc, _ := newService(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []ContractInput{
		{OrganizationID: "", CorporateName: "X", EffectiveDate: start, ExpirationDate: start.AddDate(1, 0, 0)},
		{OrganizationID: "org", CorporateName: "", EffectiveDate: start, ExpirationDate: start.AddDate(1, 0, 0)},
		{OrganizationID: "org", CorporateName: "X", EffectiveDate: start, ExpirationDate: start},
		{OrganizationID: "org", CorporateName: "X", EffectiveDate: start, ExpirationDate: start.AddDate(0, 0, -1)},
	}
	for _, in := range tests {
		_, err := svc.CreateContract(context.Background(), in)
		assert.True(t, errors.Is(err, apperr.ValidationError), "%+v", in)
	}
}

func TestService_ExpireContract(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	c, err := svc.ExpireContract(ctx, "contract_1")
	require.NoError(t, err)
	assert.Equal(t, models.ContractExpired, c.Status)

	v, err := svc.Product(ctx, "prod_1", jane)
	require.NoError(t, err)
	assert.Equal(t, 199.99, v.Price)
	assert.False(t, v.HasDiscount)

	_, err = svc.CurrentContract(ctx, jane)
	assert.True(t, errors.Is(err, apperr.NotFound))

	_, err = svc.ExpireContract(ctx, "contract_404")
	assert.True(t, errors.Is(err, apperr.NotFound))
}

func TestService_AddContractPrice(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	eff := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	before := eff.AddDate(0, 0, -1)

	tests := []struct {
		name       string
		contractID string
		in         PriceInput
		kind       apperr.Kind
	}{
		{name: "unknown contract", contractID: "contract_404", in: PriceInput{ProductID: "prod_1", Price: 10, EffectiveDate: eff}, kind: apperr.NotFound},
		{name: "unknown product", contractID: "contract_1", in: PriceInput{ProductID: "prod_404", Price: 10, EffectiveDate: eff}, kind: apperr.ValidationError},
		{name: "zero price", contractID: "contract_1", in: PriceInput{ProductID: "prod_1", Price: 0, EffectiveDate: eff}, kind: apperr.ValidationError},
		{name: "missing effective date", contractID: "contract_1", in: PriceInput{ProductID: "prod_1", Price: 10}, kind: apperr.ValidationError},
		{name: "expiration before effective", contractID: "contract_1", in: PriceInput{ProductID: "prod_1", Price: 10, EffectiveDate: eff, ExpirationDate: &before}, kind: apperr.ValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddContractPrice(ctx, tt.contractID, tt.in)
			assert.True(t, errors.Is(err, tt.kind), err)
		})
	}

	// более поздняя цена вытесняет цену из фикстур
	p, err := svc.AddContractPrice(ctx, "contract_1", PriceInput{ProductID: "prod_1", Price: 139.99, EffectiveDate: eff})
	require.NoError(t, err)
	assert.Equal(t, "contract_1", p.ContractID)

	v, err := svc.Product(ctx, "prod_1", jane)
	require.NoError(t, err)
	assert.Equal(t, 139.99, v.Price)
	assert.Equal(t, p.ID, v.ContractPriceID)
}

func TestService_CurrentContract(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	view, err := svc.CurrentContract(ctx, jane)
	require.NoError(t, err)
	assert.Equal(t, "contract_1", view.ID)
	require.Len(t, view.Prices, 2)
	assert.Equal(t, "prod_1", view.Prices[0].ProductID)
	assert.Equal(t, "prod_2", view.Prices[1].ProductID)

	_, err = svc.CurrentContract(ctx, john)
	assert.True(t, errors.Is(err, apperr.NotFound))

	admin := &models.User{ID: "user_3", Role: models.RoleAdmin}
	_, err = svc.CurrentContract(ctx, admin)
	assert.True(t, errors.Is(err, apperr.NotFound))
}
