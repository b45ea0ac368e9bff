// Package models содержит доменные структуры сервиса: пользователей,
// платёжные события и торговые сигналы. Структуры используются
// в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID          string    // Уникальный идентификатор пользователя
	Email        string    // Электронная почта (уникальная)
	PasswordHash string    // Хэш пароля пользователя
	IsPaid       bool      // Признак оплаченного доступа, меняется только биллингом
	CreatedAt    time.Time // Дата создания учетной записи
}
