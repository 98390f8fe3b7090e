// Package middlewarectx содержит HTTP middleware витрины: восстановление
// сессии по токену, проверки ролей и ограничение частоты запросов.
// Middleware кладут в контекст запроса идентификатор сессии и ее менеджер.
package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/services/session"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// SessionID — ключ для идентификатора сессии в контексте
	SessionID Key = "session_id"
	// Session — ключ для менеджера сессии в контексте
	Session Key = "session"
)

// WithSession возвращает контекст с сессией id.
func WithSession(ctx context.Context, id string, m *session.Manager) context.Context {
	ctx = context.WithValue(ctx, SessionID, id)
	return context.WithValue(ctx, Session, m)
}

// SessionFrom возвращает идентификатор и менеджер сессии запроса.
func SessionFrom(ctx context.Context) (string, *session.Manager, bool) {
	id, _ := ctx.Value(SessionID).(string)
	m, ok := ctx.Value(Session).(*session.Manager)
	return id, m, ok && m != nil
}

// CurrentUser возвращает пользователя аутентифицированной сессии.
// Для гостя возвращает nil.
func CurrentUser(ctx context.Context) *models.User {
	_, m, ok := SessionFrom(ctx)
	if !ok {
		return nil
	}
	st := m.State()
	if !st.IsAuthenticated {
		return nil
	}
	return st.User
}
