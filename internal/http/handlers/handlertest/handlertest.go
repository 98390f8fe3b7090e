// Package handlertest содержит вспомогательные функции для тестов HTTP-обработчиков.
package handlertest

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscribepro/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/services/session"
	"github.com/magabrotheeeer/subscribepro/internal/storage/kv"
	"github.com/magabrotheeeer/subscribepro/internal/storage/state"
)

// NoopLogger возвращает логгер, который ничего не пишет.
func NoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

// WithUser возвращает запрос с аутентифицированной сессией пользователя user.
func WithUser(t *testing.T, r *http.Request, user models.User) *http.Request {
	t.Helper()
	const sid = "test-session"

	store := kv.NewMemory()
	sessions := state.NewSessions(store)
	public := user.PublicUser()
	err := sessions.Save(r.Context(), state.SessionKeyFor(sid), models.SessionRecord{IsAuthenticated: true, User: &public})
	require.NoError(t, err)

	m := session.NewManager(session.Deps{
		Users:    state.NewUsers(store),
		Sessions: sessions,
		Lockouts: state.NewMemoryLockouts(),
	}, sid)
	require.NoError(t, m.Restore(r.Context()))
	return r.WithContext(middlewarectx.WithSession(r.Context(), sid, m))
}
