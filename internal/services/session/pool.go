package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
)

const defaultPoolSize = 1024

// Pool сопоставляет идентификатор сессии с ее менеджером.
// Вытесненный из LRU менеджер восстанавливается из хранилища при следующем обращении.
type Pool struct {
	deps     Deps
	mu       sync.Mutex
	managers *lru.Cache[string, *Manager]
}

// NewPool создает пул на size сессий.
func NewPool(deps Deps, size int) (*Pool, error) {
	const op = "session.NewPool"
	if size <= 0 {
		size = defaultPoolSize
	}
	cache, err := lru.New[string, *Manager](size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Pool{deps: deps.withDefaults(), managers: cache}, nil
}

// New создает анонимную сессию с новым идентификатором.
func (p *Pool) New() (string, *Manager) {
	id := uuid.NewString()
	m := NewManager(p.deps, id)
	p.managers.Add(id, m)
	return id, m
}

// Get возвращает менеджер сессии id. Сессия без сохраненной записи
// возвращается анонимной и в пул не попадает.
func (p *Pool) Get(ctx context.Context, id string) (*Manager, error) {
	if id == "" {
		return nil, apperr.New(apperr.InvalidToken, "empty session id")
	}
	if m, ok := p.managers.Get(id); ok {
		return m, nil
	}

	m := NewManager(p.deps, id)
	if err := m.Restore(ctx); err != nil {
		return nil, err
	}
	if !m.State().IsAuthenticated {
		return m, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.managers.Get(id); ok {
		return existing, nil
	}
	p.managers.Add(id, m)
	return m, nil
}

// Drop убирает сессию из пула.
func (p *Pool) Drop(id string) {
	p.managers.Remove(id)
}

// Len возвращает число сессий в пуле.
func (p *Pool) Len() int {
	return p.managers.Len()
}
