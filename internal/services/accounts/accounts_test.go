package accounts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscribepro/internal/models"
)

type MockUsers struct{ mock.Mock }

func (m *MockUsers) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

type MockCounter struct{ mock.Mock }

func (m *MockCounter) CountSubscriptionsByUser(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var directory = []models.User{
	{ID: "user_1", Name: "John Doe", Email: "john@example.com", PasswordHash: "h1", Role: models.RoleIndividual},
	{ID: "user_2", Name: "Jane Smith", Email: "jane@acme.corp", PasswordHash: "h2", Role: models.RoleCorporate},
	{ID: "user_3", Name: "Admin User", Email: "admin@system.com", PasswordHash: "h3", Role: models.RoleAdmin},
}

func TestService_ListUsers(t *testing.T) {
	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{name: "all", search: "", want: []string{"user_1", "user_2", "user_3"}},
		{name: "by name ignoring case", search: "JANE", want: []string{"user_2"}},
		{name: "by email", search: "acme.corp", want: []string{"user_2"}},
		{name: "shared substring", search: "o", want: []string{"user_1", "user_2", "user_3"}},
		{name: "no match", search: "zzz", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUsers)
			counter := new(MockCounter)
			users.On("List", mock.Anything).Return(directory, nil).Once()
			counter.On("CountSubscriptionsByUser", mock.Anything).Return(map[string]int{"user_1": 2}, nil).Once()

			res, err := New(users, counter, newNoopLogger()).ListUsers(context.Background(), tt.search)
			require.NoError(t, err)

			ids := make([]string, 0, len(res))
			for _, u := range res {
				ids = append(ids, u.ID)
				assert.Empty(t, u.PasswordHash)
				if u.ID == "user_1" {
					assert.Equal(t, 2, u.SubscriptionCount)
				} else {
					assert.Zero(t, u.SubscriptionCount)
				}
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestService_ListUsersErrors(t *testing.T) {
	users := new(MockUsers)
	counter := new(MockCounter)
	users.On("List", mock.Anything).Return(directory, nil).Once()
	counter.On("CountSubscriptionsByUser", mock.Anything).Return(nil, errors.New("db error")).Once()

	_, err := New(users, counter, newNoopLogger()).ListUsers(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accounts.ListUsers: db error")
}
