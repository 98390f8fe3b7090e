package contracts

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/handlertest"
	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/services/catalog"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Contracts(ctx context.Context) ([]catalog.ContractView, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]catalog.ContractView)
	return res, args.Error(1)
}

func (m *MockService) CreateContract(ctx context.Context, in catalog.ContractInput) (models.Contract, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(models.Contract)
	return res, args.Error(1)
}

func (m *MockService) ExpireContract(ctx context.Context, id string) (models.Contract, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(models.Contract)
	return res, args.Error(1)
}

func (m *MockService) AddContractPrice(ctx context.Context, contractID string, in catalog.PriceInput) (models.ContractPrice, error) {
	args := m.Called(ctx, contractID, in)
	res, _ := args.Get(0).(models.ContractPrice)
	return res, args.Error(1)
}

func router(svc *MockService) http.Handler {
	h := New(handlertest.NoopLogger(), svc)
	r := chi.NewRouter()
	r.Get("/admin/contracts", h.List)
	r.Post("/admin/contracts", h.Create)
	r.Post("/admin/contracts/{id}/expire", h.Expire)
	r.Post("/admin/contracts/{id}/prices", h.AddPrice)
	return r
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestContractsHandler(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		url            string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "list",
			method: http.MethodGet,
			url:    "/admin/contracts",
			setupMock: func(m *MockService) {
				m.On("Contracts", mock.Anything).
					Return([]catalog.ContractView{{Contract: models.Contract{ID: "contract_1", CorporateName: "Acme Corp"}}}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"corporate_name":"Acme Corp"`,
		},
		{
			name:   "create",
			method: http.MethodPost,
			url:    "/admin/contracts",
			body:   `{"organization_id":"org_new","corporate_name":"New Co","effective_date":"2024-01-01","expiration_date":"2024-12-31"}`,
			setupMock: func(m *MockService) {
				m.On("CreateContract", mock.Anything, catalog.ContractInput{
					OrganizationID: "org_new",
					CorporateName:  "New Co",
					EffectiveDate:  day(2024, 1, 1),
					ExpirationDate: day(2024, 12, 31),
				}).Return(models.Contract{ID: "contract_9", Status: models.ContractActive}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"id":"contract_9"`,
		},
		{
			name:           "create with bad date",
			method:         http.MethodPost,
			url:            "/admin/contracts",
			body:           `{"organization_id":"org_new","corporate_name":"New Co","effective_date":"01.01.2024","expiration_date":"2024-12-31"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field EffectiveDate must be a date in format 2006-01-02",
		},
		{
			name:   "expire unknown",
			method: http.MethodPost,
			url:    "/admin/contracts/nope/expire",
			setupMock: func(m *MockService) {
				m.On("ExpireContract", mock.Anything, "nope").
					Return(nil, apperr.New(apperr.NotFound, "contract not found")).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "contract not found",
		},
		{
			name:   "add open-ended price",
			method: http.MethodPost,
			url:    "/admin/contracts/contract_1/prices",
			body:   `{"product_id":"prod_2","price":15.5,"effective_date":"2024-06-01"}`,
			setupMock: func(m *MockService) {
				m.On("AddContractPrice", mock.Anything, "contract_1", catalog.PriceInput{
					ProductID:     "prod_2",
					Price:         15.5,
					EffectiveDate: day(2024, 6, 1),
				}).Return(models.ContractPrice{ID: "cp_9", ContractID: "contract_1", ProductID: "prod_2", Price: 15.5}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"id":"cp_9"`,
		},
		{
			name:   "add price with expiration",
			method: http.MethodPost,
			url:    "/admin/contracts/contract_1/prices",
			body:   `{"product_id":"prod_2","price":15.5,"effective_date":"2024-06-01","expiration_date":"2024-09-01"}`,
			setupMock: func(m *MockService) {
				m.On("AddContractPrice", mock.Anything, "contract_1", mock.MatchedBy(func(in catalog.PriceInput) bool {
					return in.ExpirationDate != nil && in.ExpirationDate.Equal(day(2024, 9, 1))
				})).Return(models.ContractPrice{ID: "cp_10"}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"id":"cp_10"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			router(svc).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.url, bytes.NewBufferString(tt.body)))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
