package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscribepro/internal/http/response"
	"github.com/magabrotheeeer/subscribepro/internal/lib/jwt"
	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/services/session"
)

// Sessions возвращает менеджер сессии по идентификатору.
type Sessions interface {
	Session(ctx context.Context, sessionID string) (*session.Manager, error)
}

// TokenParser разбирает токен сессии.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.SessionClaims, error)
}

var errNoToken = errors.New("missing or invalid authorization header")

func resolve(r *http.Request, sessions Sessions, tokens TokenParser) (string, *session.Manager, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", nil, errNoToken
	}
	claims, err := tokens.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return "", nil, err
	}
	m, err := sessions.Session(r.Context(), claims.SessionID)
	if err != nil {
		return "", nil, err
	}
	st := m.State()
	if !st.IsAuthenticated || st.User == nil || st.User.ID != claims.UserID {
		return "", nil, errors.New("session is not authenticated")
	}
	return claims.SessionID, m, nil
}

// JWTMiddleware пропускает только запросы с токеном аутентифицированной сессии.
// Иначе возвращает 401 Unauthorized.
func JWTMiddleware(sessions Sessions, tokens TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			id, m, err := resolve(r, sessions, tokens)
			if err != nil {
				log.Info("unauthorized request", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired session"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), id, m)))
		})
	}
}

// OptionalAuth восстанавливает сессию, если токен передан и действителен.
// Без токена запрос обрабатывается как гостевой.
func OptionalAuth(sessions Sessions, tokens TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, m, err := resolve(r, sessions, tokens)
			if err != nil {
				if !errors.Is(err, errNoToken) {
					log.Debug("token ignored, serving as guest",
						slog.String("request_id", middleware.GetReqID(r.Context())), sl.Err(err))
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), id, m)))
		})
	}
}
