package invoices

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/handlertest"
	"github.com/magabrotheeeer/subscribepro/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Invoices(ctx context.Context, userID string) ([]models.Invoice, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).([]models.Invoice)
	return res, args.Error(1)
}

func TestInvoicesHandler(t *testing.T) {
	user := models.User{ID: "user_1", Email: "john@example.com", Role: models.RoleIndividual}

	t.Run("lists invoices", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Invoices", mock.Anything, "user_1").Return([]models.Invoice{
			{ID: "inv_2", SubscriptionID: "sub_1", ProductName: "Pro Plan", Amount: 19.99, Status: models.InvoicePaid,
				BillingDate: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)},
		}, nil).Once()

		req := handlertest.WithUser(t, httptest.NewRequest(http.MethodGet, "/invoices", nil), user)
		rec := httptest.NewRecorder()
		New(handlertest.NoopLogger(), svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":"inv_2"`)
		assert.Contains(t, rec.Body.String(), `"status":"paid"`)
		svc.AssertExpectations(t)
	})

	t.Run("storage failure is hidden", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Invoices", mock.Anything, "user_1").Return(nil, errors.New("pgx: timeout")).Once()

		req := handlertest.WithUser(t, httptest.NewRequest(http.MethodGet, "/invoices", nil), user)
		rec := httptest.NewRecorder()
		New(handlertest.NoopLogger(), svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "pgx")
	})
}
