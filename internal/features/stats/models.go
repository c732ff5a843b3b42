// Package stats ведёт учёт активности участников чата.
// models.go описывает структуру счётчика сообщений.
package stats

import "time"

// UserStats — счётчик сообщений пользователя в чате.
type UserStats struct {
	ID           int64     `db:"id"`
	ChatID       int64     `db:"chat_id"`
	UserID       int64     `db:"user_id"`
	Username     string    `db:"username"`
	FirstName    string    `db:"first_name"`
	MessageCount int64     `db:"message_count"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// DisplayName возвращает имя для вывода в топе: @username либо имя.
func (s *UserStats) DisplayName() string {
	if s.Username != "" {
		return "@" + s.Username
	}
	if s.FirstName != "" {
		return s.FirstName
	}
	return "Аноним"
}
