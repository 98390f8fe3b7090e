// Package password реализует функции для хеширования и проверки паролей.
//
// Пароли пользователей хранятся только в виде bcrypt-хеша: открытый текст
// не попадает ни в каталог пользователей, ни в запись сессии.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GetHash принимает пароль пользователя и возвращает его bcrypt‑хэш.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым паролем.
//
// Возвращает nil, если пароль соответствует хэшу, иначе — ошибку.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Matches — короткая форма CompareHash для условий.
// Пустой хэш никогда не совпадает.
func Matches(originalHash, externalPassword string) bool {
	if originalHash == "" {
		return false
	}
	return CompareHash(originalHash, externalPassword) == nil
}
