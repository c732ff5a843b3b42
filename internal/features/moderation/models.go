// Package moderation реализует модерацию чата: фильтр запрещённых слов,
// антиспам по скользящему окну, журнал предупреждений и эскалацию наказаний.
// models.go описывает структуры данных модерации.
package moderation

import "time"

// Warning — запись журнала предупреждений в БД.
// Ключ — пара (chat_id, user_id), уникальная на таблицу.
type Warning struct {
	ID            int64     `db:"id"`              // Автоинкрементный ID записи
	ChatID        int64     `db:"chat_id"`         // Чат, в котором выдано предупреждение
	UserID        int64     `db:"user_id"`         // Telegram user ID нарушителя
	WarningCount  int       `db:"warning_count"`   // Текущее число предупреждений (0..WARN_LIMIT)
	LastWarningAt time.Time `db:"last_warning_at"` // Когда выдано последнее предупреждение
}

// Action — вид модерационного действия.
type Action int

const (
	// ActionAllow — сообщение пропускается без санкций.
	ActionAllow Action = iota
	// ActionDeleteOnly — сообщение удаляется без предупреждения.
	ActionDeleteOnly
	// ActionWarn — удаление + предупреждение, записанное в журнал.
	ActionWarn
	// ActionWarnTransient — удаление + временное предупреждение за флуд
	// (в журнал НЕ записывается).
	ActionWarnTransient
	// ActionMute — удаление + временный запрет писать.
	ActionMute
	// ActionBan — перманентное удаление из чата со сбросом журнала.
	ActionBan
)

// String — для логов.
func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionDeleteOnly:
		return "delete_only"
	case ActionWarn:
		return "warn"
	case ActionWarnTransient:
		return "warn_transient"
	case ActionMute:
		return "mute"
	case ActionBan:
		return "ban"
	default:
		return "unknown"
	}
}

// Decision — решение модерации для одного сигнала.
// Живёт только в рамках обработки одного сообщения, никуда не сохраняется.
type Decision struct {
	Action    Action
	WarnCount int           // Для ActionWarn: текущее число предупреждений
	MuteFor   time.Duration // Для ActionMute: длительность мута
}

// IncomingMessage — входящее сообщение, как его видит пайплайн модерации.
// Транспортные детали (tgbotapi.Message) остаются в слое бота.
type IncomingMessage struct {
	ChatID     int64
	UserID     int64
	MessageID  int
	Text       string
	Privileged bool // Отправитель освобождён от модерации (админ, канал, владелец)
	At         time.Time
}
