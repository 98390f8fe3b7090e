package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/services/session"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, email, rawPassword string) (session.LoginResult, error) {
	args := m.Called(ctx, email, rawPassword)
	res, _ := args.Get(0).(session.LoginResult)
	return res, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	authMock := new(AuthServiceMock)
	handler := New(newNoopLogger(), authMock)

	tests := []struct {
		name           string
		requestBody    any
		mockResp       *session.LoginResult
		mockErr        error
		wantStatusCode int
		wantData       map[string]any
		wantError      string
		wantStatus     string
		wantMinutes    float64
	}{
		{
			name:        "valid login",
			requestBody: Request{Email: "john@example.com", Password: "password"},
			mockResp: &session.LoginResult{
				SessionID: "sid",
				Token:     "tok",
				User:      models.User{ID: "user_1", Email: "john@example.com", Role: models.RoleIndividual},
			},
			wantStatusCode: http.StatusOK,
			wantData:       map[string]any{"token": "tok", "session_id": "sid"},
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name:           "validation error - missing password",
			requestBody:    Request{Email: "john@example.com"},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Password is a required field",
			wantStatus:     "Error",
		},
		{
			name:           "invalid credentials",
			requestBody:    Request{Email: "john@example.com", Password: "nope"},
			mockErr:        fmt.Errorf("session.Login: %w", apperr.New(apperr.InvalidCredentials, "invalid email or password")),
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "invalid email or password",
			wantStatus:     "Error",
		},
		{
			name:           "account locked",
			requestBody:    Request{Email: "john@example.com", Password: "password"},
			mockErr:        apperr.Locked(15),
			wantStatusCode: http.StatusLocked,
			wantStatus:     "Error",
			wantMinutes:    15,
		},
		{
			name:           "storage failure",
			requestBody:    Request{Email: "john@example.com", Password: "password"},
			mockErr:        errors.New("redis: connection refused"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "internal error",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock.ExpectedCalls = nil
			authMock.Calls = nil

			if tt.mockResp != nil || tt.mockErr != nil {
				req := tt.requestBody.(Request)
				var res session.LoginResult
				if tt.mockResp != nil {
					res = *tt.mockResp
				}
				authMock.On("Login", mock.Anything, req.Email, req.Password).Return(res, tt.mockErr).Once()
			}

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			}
			if tt.wantMinutes != 0 {
				assert.Equal(t, tt.wantMinutes, got["minutes_remaining"])
			}
			if tt.wantData != nil {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				for k, v := range tt.wantData {
					assert.Equal(t, v, data[k])
				}
				user, ok := data["user"].(map[string]any)
				assert.True(t, ok)
				assert.NotContains(t, user, "password_hash")
			}

			if tt.mockResp != nil || tt.mockErr != nil {
				authMock.AssertExpectations(t)
			}
		})
	}
}
