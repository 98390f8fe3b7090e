// Package session реализует менеджер клиентской сессии: вход с блокировкой
// после серии неудачных попыток, регистрацию, подтверждение email, выход и
// проверки прав. Состояние сессии сохраняется в key-value хранилище и
// восстанавливается при следующем обращении.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
	"github.com/magabrotheeeer/subscribepro/internal/lib/password"
	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/metrics"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/storage/state"
)

const invalidCredentialsMsg = "invalid email or password"

// UserDirectory — каталог пользователей.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (models.User, bool, error)
	Insert(ctx context.Context, user models.User) error
	Update(ctx context.Context, id string, fn func(*models.User) error) (models.User, error)
}

// SessionStore хранит записи сессий по ключу.
type SessionStore interface {
	Load(ctx context.Context, key string) (models.SessionRecord, bool, error)
	Save(ctx context.Context, key string, rec models.SessionRecord) error
	Delete(ctx context.Context, key string) error
}

// LockoutStore ведет учет неудачных попыток входа.
type LockoutStore interface {
	Get(ctx context.Context, email string) (models.LoginAttempt, error)
	RecordFailure(ctx context.Context, email string, now time.Time, threshold int, window time.Duration) (models.LoginAttempt, error)
	Clear(ctx context.Context, email string) error
}

// Notifier отправляет письмо со ссылкой подтверждения email.
type Notifier interface {
	SendVerification(ctx context.Context, user models.User, token string) error
}

// Deps — зависимости менеджера сессий.
type Deps struct {
	Users    UserDirectory
	Sessions SessionStore
	Lockouts LockoutStore
	Notifier Notifier // может быть nil

	Now              func() time.Time
	Latency          time.Duration // имитация сетевой задержки входа и регистрации
	LockoutThreshold int
	LockoutDuration  time.Duration
	AutoVerify       bool

	Log *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.LockoutThreshold < 1 {
		d.LockoutThreshold = 5
	}
	if d.LockoutDuration <= 0 {
		d.LockoutDuration = 15 * time.Minute
	}
	if d.Log == nil {
		d.Log = slog.New(slog.DiscardHandler)
	}
	return d
}

// Manager хранит состояние одной клиентской сессии.
type Manager struct {
	deps Deps
	key  string
	log  *slog.Logger

	mu    sync.Mutex
	state models.SessionState
}

// NewManager создает анонимную сессию. Пустой sessionID означает
// единственную сессию с ключом state.SessionKey.
func NewManager(deps Deps, sessionID string) *Manager {
	deps = deps.withDefaults()
	return &Manager{
		deps:  deps,
		key:   state.SessionKeyFor(sessionID),
		log:   deps.Log.With(slog.String("session_key", state.SessionKeyFor(sessionID))),
		state: anonymous(),
	}
}

func anonymous() models.SessionState {
	return models.SessionState{Phase: models.PhaseAnonymous}
}

// HasAdminAccess сообщает, может ли пользователь работать с админкой.
func HasAdminAccess(user *models.User) bool {
	return user != nil && user.Role == models.RoleAdmin
}

// begin выставляет loading. Второй вызов до завершения первого отклоняется.
func (m *Manager) begin(phase models.SessionPhase) (models.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Loading {
		return models.SessionState{}, apperr.New(apperr.OperationInProgress, "another operation is in progress")
	}
	prev := m.state
	m.state.Loading = true
	if phase != "" {
		m.state.Phase = phase
	}
	return prev, nil
}

func (m *Manager) wait(ctx context.Context) error {
	if m.deps.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.deps.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Login проверяет учетные данные и переводит сессию в AUTHENTICATED.
// При ошибке восстанавливается предыдущее состояние сессии.
func (m *Manager) Login(ctx context.Context, email, rawPassword string) (models.User, error) {
	const op = "session.Login"

	prev, err := m.begin(models.PhaseAuthenticating)
	if err != nil {
		return models.User{}, err
	}

	// email нормализуется так же, как в Register
	user, rec, err := m.authenticate(ctx, strings.TrimSpace(email), rawPassword)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = prev
		m.state.Loading = false
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	m.state = models.SessionState{
		Phase:           models.PhaseAuthenticated,
		IsAuthenticated: true,
		User:            rec.User,
	}
	return user, nil
}

func (m *Manager) authenticate(ctx context.Context, email, rawPassword string) (models.User, models.SessionRecord, error) {
	log := m.log.With(slog.String("email", email))

	if err := m.wait(ctx); err != nil {
		metrics.LoginAttempt(metrics.LoginInterrupted)
		return models.User{}, models.SessionRecord{}, err
	}
	now := m.deps.Now()

	attempt, err := m.deps.Lockouts.Get(ctx, email)
	if err != nil {
		return models.User{}, models.SessionRecord{}, err
	}
	if attempt.LockedAt(now) {
		metrics.LoginAttempt(metrics.LoginLocked)
		log.Info("login rejected, account locked")
		return models.User{}, models.SessionRecord{}, apperr.Locked(minutesUntil(*attempt.LockedUntil, now))
	}
	if attempt.LockedUntil != nil {
		// блокировка истекла: счетчик начинается заново
		if err := m.deps.Lockouts.Clear(ctx, email); err != nil {
			return models.User{}, models.SessionRecord{}, err
		}
	}

	user, found, err := m.deps.Users.FindByEmail(ctx, email)
	if err != nil {
		return models.User{}, models.SessionRecord{}, err
	}
	if !found || !user.Verified || !password.Matches(user.PasswordHash, rawPassword) {
		attempt, err := m.deps.Lockouts.RecordFailure(ctx, email, now, m.deps.LockoutThreshold, m.deps.LockoutDuration)
		if err != nil {
			return models.User{}, models.SessionRecord{}, err
		}
		if attempt.LockedAt(now) {
			metrics.LoginAttempt(metrics.LoginLocked)
			log.Warn("account locked after failed attempts", slog.Int("attempts", attempt.Attempts))
			return models.User{}, models.SessionRecord{}, apperr.Locked(minutesUntil(*attempt.LockedUntil, now))
		}
		metrics.LoginAttempt(metrics.LoginInvalid)
		log.Info("login failed", slog.Int("attempts", attempt.Attempts))
		return models.User{}, models.SessionRecord{}, apperr.New(apperr.InvalidCredentials, invalidCredentialsMsg)
	}

	if err := m.deps.Lockouts.Clear(ctx, email); err != nil {
		return models.User{}, models.SessionRecord{}, err
	}
	public := user.PublicUser()
	rec := models.SessionRecord{IsAuthenticated: true, User: &public, IssuedAt: now}
	if err := m.deps.Sessions.Save(ctx, m.key, rec); err != nil {
		return models.User{}, models.SessionRecord{}, err
	}

	metrics.LoginAttempt(metrics.LoginSuccess)
	log.Info("user logged in", slog.String("user_id", user.ID))
	return public, rec, nil
}

func minutesUntil(until, now time.Time) int {
	return int(math.Ceil(until.Sub(now).Minutes()))
}

// Register создает пользователя. Сессия после регистрации остается анонимной.
func (m *Manager) Register(ctx context.Context, name, email, rawPassword string, role models.Role) (models.User, error) {
	const op = "session.Register"

	if _, err := m.begin(""); err != nil {
		return models.User{}, err
	}
	defer func() {
		m.mu.Lock()
		m.state.Loading = false
		m.mu.Unlock()
	}()

	if err := m.wait(ctx); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	switch {
	case name == "" || email == "" || rawPassword == "":
		return models.User{}, apperr.New(apperr.ValidationError, "name, email and password are required")
	case role == models.RoleAdmin:
		return models.User{}, apperr.New(apperr.ValidationError, "admin accounts cannot be registered")
	case !role.Valid():
		return models.User{}, apperr.New(apperr.ValidationError, "unknown role")
	}

	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Verified:     m.deps.AutoVerify,
	}
	if err := m.deps.Users.Insert(ctx, user); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.Registration(string(role))
	m.log.Info("user registered", slog.String("user_id", user.ID), slog.String("role", string(role)))

	if !user.Verified && m.deps.Notifier != nil {
		// токен подтверждения совпадает с ID пользователя
		if err := m.deps.Notifier.SendVerification(ctx, user.PublicUser(), user.ID); err != nil {
			m.log.Error("failed to send verification", slog.String("user_id", user.ID), sl.Err(err))
		}
	}
	return user.PublicUser(), nil
}

// VerifyEmail подтверждает email пользователя по токену.
func (m *Manager) VerifyEmail(ctx context.Context, token string) (bool, error) {
	const op = "session.VerifyEmail"

	token = strings.TrimSpace(token)
	if token == "" {
		return false, apperr.New(apperr.InvalidToken, "verification token is empty")
	}
	_, err := m.deps.Users.Update(ctx, token, func(u *models.User) error {
		if u.Verified {
			return apperr.New(apperr.InvalidToken, "email is already verified")
		}
		u.Verified = true
		return nil
	})
	if errors.Is(err, apperr.NotFound) {
		return false, apperr.New(apperr.InvalidToken, "verification token is invalid")
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info("email verified", slog.String("user_id", token))
	return true, nil
}

// Logout сбрасывает сессию. Ошибка удаления записи только логируется.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.state.Phase = models.PhaseAnonymous
	m.state.IsAuthenticated = false
	m.state.User = nil
	m.mu.Unlock()

	if err := m.deps.Sessions.Delete(ctx, m.key); err != nil {
		m.log.Error("failed to delete session record", sl.Err(err))
	}
}

// State возвращает копию текущего состояния.
func (m *Manager) State() models.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// IsAdmin сообщает, открыта ли текущему пользователю админка.
func (m *Manager) IsAdmin() bool {
	st := m.State()
	return st.IsAuthenticated && HasAdminAccess(st.User)
}

// IsAdminOrCorporate сообщает, является ли текущий пользователь бизнес-клиентом.
func (m *Manager) IsAdminOrCorporate() bool {
	st := m.State()
	if !st.IsAuthenticated || st.User == nil {
		return false
	}
	return st.User.Role == models.RoleAdmin || st.User.Role == models.RoleCorporate
}

// Restore загружает сохраненную запись сессии. Отсутствие записи означает анонимную сессию.
func (m *Manager) Restore(ctx context.Context) error {
	const op = "session.Restore"

	rec, found, err := m.deps.Sessions.Load(ctx, m.key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !found || !rec.IsAuthenticated {
		m.state = anonymous()
		return nil
	}
	m.state = models.SessionState{
		Phase:           models.PhaseAuthenticated,
		IsAuthenticated: true,
		User:            rec.User,
	}
	return nil
}
