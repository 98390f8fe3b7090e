// Package apperr описывает доменные ошибки витрины: вид ошибки (Kind),
// человеко‑читаемое сообщение и, для блокировки аккаунта, число оставшихся минут.
//
// Проверка вида ошибки выполняется через errors.Is(err, apperr.AccountLocked)
// или apperr.KindOf(err).
package apperr

import (
	"errors"
	"fmt"
)

// Kind — вид доменной ошибки.
type Kind string

const (
	InvalidCredentials  Kind = "invalid_credentials"
	AccountLocked       Kind = "account_locked"
	DuplicateEmail      Kind = "duplicate_email"
	InvalidToken        Kind = "invalid_token"
	NotFound            Kind = "not_found"
	ValidationError     Kind = "validation_error"
	CorruptState        Kind = "corrupt_state"
	OperationInProgress Kind = "operation_in_progress"
)

// Error реализует error, позволяя сравнивать errors.Is(err, Kind).
func (k Kind) Error() string { return string(k) }

// Error — доменная ошибка с видом и сообщением для пользователя.
type Error struct {
	Kind             Kind
	Msg              string
	MinutesRemaining int   // заполняется только для AccountLocked
	Err              error // причина, не показывается пользователю
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is позволяет писать errors.Is(err, apperr.NotFound).
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New создает ошибку заданного вида.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap создает ошибку заданного вида с причиной.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Locked создает ошибку блокировки аккаунта.
func Locked(minutes int) *Error {
	if minutes < 1 {
		minutes = 1
	}
	return &Error{
		Kind:             AccountLocked,
		Msg:              fmt.Sprintf("account is locked, try again in %d minute(s)", minutes),
		MinutesRemaining: minutes,
	}
}

// KindOf возвращает вид доменной ошибки или пустую строку.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// Message возвращает безопасное для пользователя сообщение.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}
