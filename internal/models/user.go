// Package models содержит доменные структуры витрины подписок: пользователей,
// продукты, корпоративные контракты, подписки, счета и состояние сессии.
//
// Записи, прочитанные из хранилища, проходят Validate: битые данные не
// подменяются значениями по умолчанию, а приводят к ошибке CorruptState.
package models

import (
	"fmt"
	"strings"
)

// Role — роль пользователя.
type Role string

const (
	RoleIndividual Role = "individual"
	RoleCorporate  Role = "corporate"
	RoleAdmin      Role = "admin"
)

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	switch r {
	case RoleIndividual, RoleCorporate, RoleAdmin:
		return true
	}
	return false
}

// User представляет зарегистрированного пользователя витрины.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`                     // Уникален, сравнивается с учётом регистра
	PasswordHash   string `json:"password_hash,omitempty"`   // bcrypt, пустой в публичной копии
	Role           Role   `json:"role"`
	Verified       bool   `json:"verified"`
	OrganizationID string `json:"organization_id,omitempty"` // Организация корпоративного клиента
}

// PublicUser возвращает копию пользователя без хэша пароля.
func (u User) PublicUser() User {
	u.PasswordHash = ""
	return u
}

// Validate проверяет запись пользователя, прочитанную из каталога.
func (u User) Validate() error {
	switch {
	case strings.TrimSpace(u.ID) == "":
		return fmt.Errorf("user: empty id")
	case strings.TrimSpace(u.Email) == "":
		return fmt.Errorf("user %s: empty email", u.ID)
	case !u.Role.Valid():
		return fmt.Errorf("user %s: unknown role %q", u.ID, u.Role)
	}
	return nil
}
