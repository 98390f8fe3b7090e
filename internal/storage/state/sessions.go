package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/storage/kv"
)

// SessionKey — ключ записи сессии единственного клиента.
const SessionKey = "session"

// SessionKeyFor возвращает ключ записи сессии с идентификатором id.
func SessionKeyFor(id string) string {
	if id == "" {
		return SessionKey
	}
	return SessionKey + ":" + id
}

// Sessions читает и пишет записи сессий.
type Sessions struct {
	store kv.Store
}

// NewSessions создает хранилище записей сессий поверх store.
func NewSessions(store kv.Store) *Sessions {
	return &Sessions{store: store}
}

// Load читает запись по ключу. found=false, если записи нет.
func (s *Sessions) Load(ctx context.Context, key string) (models.SessionRecord, bool, error) {
	const op = "state.Sessions.Load"
	raw, found, err := s.store.Get(ctx, key)
	if err != nil {
		return models.SessionRecord{}, false, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return models.SessionRecord{}, false, nil
	}

	var rec models.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.SessionRecord{}, false, apperr.Wrap(apperr.CorruptState, "stored session is unreadable", err)
	}
	if err := rec.Validate(); err != nil {
		return models.SessionRecord{}, false, apperr.Wrap(apperr.CorruptState, "stored session is invalid", err)
	}
	return rec, true, nil
}

// Save сохраняет запись по ключу.
func (s *Sessions) Save(ctx context.Context, key string, rec models.SessionRecord) error {
	const op = "state.Sessions.Save"
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete удаляет запись по ключу.
func (s *Sessions) Delete(ctx context.Context, key string) error {
	const op = "state.Sessions.Delete"
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
