// Package accounts — админский просмотр пользователей.
package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/subscribepro/internal/models"
)

// UserDirectory возвращает всех пользователей.
type UserDirectory interface {
	List(ctx context.Context) ([]models.User, error)
}

// SubscriptionCounter считает подписки пользователей.
type SubscriptionCounter interface {
	CountSubscriptionsByUser(ctx context.Context) (map[string]int, error)
}

// UserSummary — пользователь с числом его подписок.
type UserSummary struct {
	models.User
	SubscriptionCount int `json:"subscription_count"`
}

// Service выдает список пользователей для админки.
type Service struct {
	users  UserDirectory
	counts SubscriptionCounter
	log    *slog.Logger
}

// New создает сервис.
func New(users UserDirectory, counts SubscriptionCounter, log *slog.Logger) *Service {
	return &Service{users: users, counts: counts, log: log}
}

// ListUsers возвращает пользователей, у которых имя или email содержит search
// без учета регистра. Пустой search возвращает всех.
func (s *Service) ListUsers(ctx context.Context, search string) ([]UserSummary, error) {
	const op = "accounts.ListUsers"

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	counts, err := s.counts.CountSubscriptionsByUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	res := make([]UserSummary, 0, len(users))
	for _, u := range users {
		if needle != "" &&
			!strings.Contains(strings.ToLower(u.Name), needle) &&
			!strings.Contains(strings.ToLower(u.Email), needle) {
			continue
		}
		res = append(res, UserSummary{User: u.PublicUser(), SubscriptionCount: counts[u.ID]})
	}
	s.log.Debug("users listed", slog.String("search", search), slog.Int("count", len(res)))
	return res, nil
}
