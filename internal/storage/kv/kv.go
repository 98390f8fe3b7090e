// Package kv — хранилище «ключ → байты», в котором лежит состояние сессий:
// каталог пользователей, запись текущей сессии и счетчики попыток входа.
// Есть реализация в памяти процесса и реализация поверх Redis.
package kv

import "context"

// Store — минимальный интерфейс хранилища ключ‑значение.
// Get возвращает found=false без ошибки, если ключа нет.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
