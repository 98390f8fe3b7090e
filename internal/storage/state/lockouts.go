package state

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
	"github.com/magabrotheeeer/subscribepro/internal/models"
)

// LockoutStore ведет учет неудачных попыток входа по email.
type LockoutStore interface {
	Get(ctx context.Context, email string) (models.LoginAttempt, error)
	// RecordFailure увеличивает счетчик и, если он достиг threshold, блокирует вход до now+window.
	RecordFailure(ctx context.Context, email string, now time.Time, threshold int, window time.Duration) (models.LoginAttempt, error)
	Clear(ctx context.Context, email string) error
}

// MemoryLockouts хранит попытки в памяти процесса. Записи не удаляются, только обнуляются.
type MemoryLockouts struct {
	mu       sync.Mutex
	attempts map[string]models.LoginAttempt
}

// NewMemoryLockouts создает пустой учет попыток.
func NewMemoryLockouts() *MemoryLockouts {
	return &MemoryLockouts{attempts: make(map[string]models.LoginAttempt)}
}

func (m *MemoryLockouts) Get(_ context.Context, email string) (models.LoginAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[email]
	if !ok {
		return models.LoginAttempt{Email: email}, nil
	}
	return copyAttempt(a), nil
}

func (m *MemoryLockouts) RecordFailure(_ context.Context, email string, now time.Time, threshold int, window time.Duration) (models.LoginAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.attempts[email]
	a.Email = email
	a.Attempts++
	if a.Attempts >= threshold {
		until := now.Add(window)
		a.LockedUntil = &until
	}
	m.attempts[email] = a
	return copyAttempt(a), nil
}

func (m *MemoryLockouts) Clear(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[email]; ok {
		m.attempts[email] = models.LoginAttempt{Email: email}
	}
	return nil
}

func copyAttempt(a models.LoginAttempt) models.LoginAttempt {
	if a.LockedUntil != nil {
		t := *a.LockedUntil
		a.LockedUntil = &t
	}
	return a
}

const (
	lockoutPrefix   = "login_attempts:"
	staleAttemptTTL = 24 * time.Hour
)

// RedisLockouts хранит попытки в хэше Redis login_attempts:<email>
// с полями attempts и locked_until (unix миллисекунды).
type RedisLockouts struct {
	client *redis.Client
}

// NewRedisLockouts создает учет попыток поверх клиента Redis.
func NewRedisLockouts(client *redis.Client) *RedisLockouts {
	return &RedisLockouts{client: client}
}

func (s *RedisLockouts) Get(ctx context.Context, email string) (models.LoginAttempt, error) {
	const op = "state.RedisLockouts.Get"
	data, err := s.client.HGetAll(ctx, lockoutPrefix+email).Result()
	if err != nil {
		return models.LoginAttempt{}, fmt.Errorf("%s: %w", op, err)
	}

	a := models.LoginAttempt{Email: email}
	if raw, ok := data["attempts"]; ok {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 0 {
			return models.LoginAttempt{}, apperr.Wrap(apperr.CorruptState, "stored login attempts are invalid", convErr)
		}
		a.Attempts = n
	}
	if raw, ok := data["locked_until"]; ok && raw != "" {
		ms, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr != nil {
			return models.LoginAttempt{}, apperr.Wrap(apperr.CorruptState, "stored login attempts are invalid", convErr)
		}
		t := time.UnixMilli(ms).UTC()
		a.LockedUntil = &t
	}
	return a, nil
}

func (s *RedisLockouts) RecordFailure(ctx context.Context, email string, now time.Time, threshold int, window time.Duration) (models.LoginAttempt, error) {
	const op = "state.RedisLockouts.RecordFailure"
	key := lockoutPrefix + email

	count, err := s.client.HIncrBy(ctx, key, "attempts", 1).Result()
	if err != nil {
		return models.LoginAttempt{}, fmt.Errorf("%s: %w", op, err)
	}

	a := models.LoginAttempt{Email: email, Attempts: int(count)}
	if a.Attempts >= threshold {
		lockedUntil := now.Add(window).UTC()
		_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, "locked_until", lockedUntil.UnixMilli())
			p.Expire(ctx, key, window+staleAttemptTTL)
			return nil
		})
		if err != nil {
			return models.LoginAttempt{}, fmt.Errorf("%s: %w", op, err)
		}
		a.LockedUntil = &lockedUntil
		return a, nil
	}

	if err := s.client.Expire(ctx, key, staleAttemptTTL).Err(); err != nil {
		return models.LoginAttempt{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func (s *RedisLockouts) Clear(ctx context.Context, email string) error {
	const op = "state.RedisLockouts.Clear"
	if err := s.client.Del(ctx, lockoutPrefix+email).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
