package models

import (
	"fmt"
	"time"
)

// SessionPhase — фаза конечного автомата сессии.
type SessionPhase string

const (
	PhaseAnonymous      SessionPhase = "ANONYMOUS"
	PhaseAuthenticating SessionPhase = "AUTHENTICATING"
	PhaseAuthenticated  SessionPhase = "AUTHENTICATED"
)

// SessionState — текущее состояние сессии клиента.
// Loading не сохраняется: он описывает только незавершённый вызов.
type SessionState struct {
	Phase           SessionPhase `json:"phase"`
	IsAuthenticated bool         `json:"is_authenticated"`
	User            *User        `json:"user"`
	Loading         bool         `json:"loading"`
}

// SessionRecord — сохраняемая часть сессии.
type SessionRecord struct {
	IsAuthenticated bool      `json:"is_authenticated"`
	User            *User     `json:"user"`
	IssuedAt        time.Time `json:"issued_at"`
}

// Validate проверяет запись сессии, прочитанную из хранилища.
func (r SessionRecord) Validate() error {
	if !r.IsAuthenticated {
		if r.User != nil {
			return fmt.Errorf("session: anonymous session carries a user")
		}
		return nil
	}
	if r.User == nil {
		return fmt.Errorf("session: authenticated session without user")
	}
	if r.User.PasswordHash != "" {
		return fmt.Errorf("session: user record carries a password hash")
	}
	return r.User.Validate()
}

// LoginAttempt — учёт неудачных попыток входа по email.
type LoginAttempt struct {
	Email       string     `json:"email"`
	Attempts    int        `json:"attempts"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

// LockedAt сообщает, заблокирован ли вход в момент now.
func (a LoginAttempt) LockedAt(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
