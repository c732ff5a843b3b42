// Package admin реализует DM-панель администратора с парольной аутентификацией.
// models.go описывает структуры сессий и попыток входа.
package admin

import "time"

// AdminSession — активная сессия администратора.
type AdminSession struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

// LoginAttempt — попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// AdminState — состояние диалога с админом (конечный автомат).
// Панель работает по шагам: логин → выбор действия → ввод данных.
type AdminState struct {
	State     string    // Текущее состояние ("", "awaiting_password", ...)
	ExpiresAt time.Time // Когда состояние истекает (5 минут)
}

// Возможные состояния диалога
const (
	StateNone             = ""                    // Нет активного состояния
	StateAwaitingPassword = "awaiting_password"   // Ждём пароль
	StateAwaitingResetID  = "awaiting_reset_id"   // Ждём user_id для сброса предупреждений
	StateAwaitingUnbanID  = "awaiting_unban_id"   // Ждём user_id для разбана
)
