// Package state хранит состояние менеджера сессий поверх kv.Store:
// каталог пользователей, записи сессий и учет неудачных попыток входа.
//
// Все прочитанные записи проверяются; нечитаемые или невалидные данные
// возвращают apperr.CorruptState, а не пустое значение.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/storage/kv"
)

// UsersKey — ключ, под которым лежит JSON‑массив пользователей.
const UsersKey = "users"

// Users — каталог пользователей. Операции чтения‑изменения‑записи сериализованы мьютексом.
type Users struct {
	store kv.Store
	mu    sync.Mutex
}

// NewUsers создает каталог пользователей поверх store.
func NewUsers(store kv.Store) *Users {
	return &Users{store: store}
}

// List возвращает всех пользователей. Отсутствующий ключ означает пустой каталог.
func (u *Users) List(ctx context.Context) ([]models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.load(ctx)
}

// FindByEmail ищет пользователя по точному совпадению email.
func (u *Users) FindByEmail(ctx context.Context, email string) (models.User, bool, error) {
	users, err := u.List(ctx)
	if err != nil {
		return models.User{}, false, err
	}
	for _, user := range users {
		if user.Email == email {
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

// FindByID ищет пользователя по идентификатору.
func (u *Users) FindByID(ctx context.Context, id string) (models.User, bool, error) {
	users, err := u.List(ctx)
	if err != nil {
		return models.User{}, false, err
	}
	for _, user := range users {
		if user.ID == id {
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

// Insert добавляет пользователя. Если email занят, каталог не меняется и возвращается DuplicateEmail.
func (u *Users) Insert(ctx context.Context, user models.User) error {
	const op = "state.Users.Insert"
	if err := user.Validate(); err != nil {
		return apperr.Wrap(apperr.ValidationError, "invalid user", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	users, err := u.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range users {
		if existing.Email == user.Email {
			return apperr.New(apperr.DuplicateEmail, "user with this email already exists")
		}
		if existing.ID == user.ID {
			return fmt.Errorf("%s: duplicate id %s", op, user.ID)
		}
	}
	return u.save(ctx, append(users, user))
}

// Update применяет fn к пользователю с идентификатором id и сохраняет результат.
// Если fn вернула ошибку, каталог не меняется.
func (u *Users) Update(ctx context.Context, id string, fn func(*models.User) error) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	users, err := u.load(ctx)
	if err != nil {
		return models.User{}, err
	}
	for i := range users {
		if users[i].ID != id {
			continue
		}
		updated := users[i]
		if err := fn(&updated); err != nil {
			return models.User{}, err
		}
		users[i] = updated
		if err := u.save(ctx, users); err != nil {
			return models.User{}, err
		}
		return updated, nil
	}
	return models.User{}, apperr.New(apperr.NotFound, "user not found")
}

// SeedIfEmpty записывает users, только если каталог еще не создан.
func (u *Users) SeedIfEmpty(ctx context.Context, users []models.User) (bool, error) {
	const op = "state.Users.SeedIfEmpty"

	u.mu.Lock()
	defer u.mu.Unlock()

	_, found, err := u.store.Get(ctx, UsersKey)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if found {
		return false, nil
	}
	for _, user := range users {
		if err := user.Validate(); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := u.save(ctx, users); err != nil {
		return false, err
	}
	return true, nil
}

func (u *Users) load(ctx context.Context) ([]models.User, error) {
	const op = "state.Users.load"
	raw, found, err := u.store.Get(ctx, UsersKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return []models.User{}, nil
	}

	var users []models.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, apperr.Wrap(apperr.CorruptState, "stored users are unreadable", err)
	}
	emails := make(map[string]struct{}, len(users))
	for _, user := range users {
		if err := user.Validate(); err != nil {
			return nil, apperr.Wrap(apperr.CorruptState, "stored users are invalid", err)
		}
		if _, dup := emails[user.Email]; dup {
			return nil, apperr.Wrap(apperr.CorruptState, "stored users are invalid",
				fmt.Errorf("duplicate email %s", user.Email))
		}
		emails[user.Email] = struct{}{}
	}
	return users, nil
}

func (u *Users) save(ctx context.Context, users []models.User) error {
	const op = "state.Users.save"
	raw, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := u.store.Set(ctx, UsersKey, raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
