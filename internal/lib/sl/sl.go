// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель — единообразно выводить ошибки и их доменный вид.
package sl

import (
	"log/slog"

	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
)

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Kind возвращает slog.Attr с доменным видом ошибки (apperr.Kind),
// для инфраструктурных ошибок значение "internal".
func Kind(err error) slog.Attr {
	kind := string(apperr.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	return slog.String("error_kind", kind)
}
