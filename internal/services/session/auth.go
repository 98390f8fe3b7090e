package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/models"
)

// TokenIssuer выпускает токен, переносящий идентификатор сессии.
type TokenIssuer interface {
	GenerateToken(sessionID, userID, role string) (string, error)
}

// Auth связывает пул сессий с выпуском токенов для HTTP-слоя.
type Auth struct {
	pool   *Pool
	tokens TokenIssuer
	log    *slog.Logger
}

// NewAuth создает Auth.
func NewAuth(pool *Pool, tokens TokenIssuer, log *slog.Logger) *Auth {
	return &Auth{pool: pool, tokens: tokens, log: log}
}

// LoginResult — результат успешного входа.
type LoginResult struct {
	SessionID string
	Token     string
	User      models.User
}

// Login открывает новую сессию и выполняет в ней вход.
// Неудачная сессия в пуле не остается.
func (a *Auth) Login(ctx context.Context, email, rawPassword string) (LoginResult, error) {
	const op = "session.Auth.Login"

	id, m := a.pool.New()
	user, err := m.Login(ctx, email, rawPassword)
	if err != nil {
		a.pool.Drop(id)
		return LoginResult{}, err
	}
	token, err := a.tokens.GenerateToken(id, user.ID, string(user.Role))
	if err != nil {
		m.Logout(ctx)
		a.pool.Drop(id)
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return LoginResult{SessionID: id, Token: token, User: user}, nil
}

// Register регистрирует пользователя во временной анонимной сессии.
func (a *Auth) Register(ctx context.Context, name, email, rawPassword string, role models.Role) (models.User, error) {
	return NewManager(a.pool.deps, "").Register(ctx, name, email, rawPassword, role)
}

// VerifyEmail подтверждает email по токену из письма.
func (a *Auth) VerifyEmail(ctx context.Context, token string) (bool, error) {
	return NewManager(a.pool.deps, "").VerifyEmail(ctx, token)
}

// Logout завершает сессию sessionID. Неизвестная сессия не считается ошибкой.
func (a *Auth) Logout(ctx context.Context, sessionID string) {
	m, err := a.pool.Get(ctx, sessionID)
	if err != nil {
		a.log.Warn("logout of unknown session", slog.String("session_id", sessionID), sl.Err(err))
		a.pool.Drop(sessionID)
		return
	}
	m.Logout(ctx)
	a.pool.Drop(sessionID)
}

// Session возвращает менеджер сессии sessionID.
func (a *Auth) Session(ctx context.Context, sessionID string) (*Manager, error) {
	return a.pool.Get(ctx, sessionID)
}
