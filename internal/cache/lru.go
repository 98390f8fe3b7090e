package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultLRUSize = 256

// LRU — ограниченный по размеру кэш в памяти процесса.
// Срок жизни записей задается один раз в NewLRU, аргумент expiration у Set
// не используется.
type LRU struct {
	cache *expirable.LRU[string, []byte]
}

// NewLRU создает кэш на size записей со сроком жизни ttl. ttl <= 0 означает без срока.
func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = defaultLRUSize
	}
	return &LRU{cache: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *LRU) Get(key string, result any) (bool, error) {
	const op = "cache.LRU.Get"
	data, ok := c.cache.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (c *LRU) Set(key string, value any, _ time.Duration) error {
	const op = "cache.LRU.Set"
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.cache.Add(key, data)
	return nil
}

func (c *LRU) Invalidate(key string) error {
	c.cache.Remove(key)
	return nil
}
