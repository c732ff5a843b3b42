// Package moderation — policy.go содержит чистые функции принятия решений.
// Никакого I/O: сигналы фильтров и состояние журнала приходят аргументами,
// наружу уходит Decision. Вся транзакционность — в service.go.
package moderation

import "time"

// DecideContent принимает решение по нарушению контента.
// newCount — счётчик ПОСЛЕ инкремента журнала.
//
// Достигнут лимит — бан (журнал сбрасывает сервис, причём только после
// успешного бана). Иначе — предупреждение с текущим счётчиком.
func DecideContent(newCount, warnLimit int) Decision {
	if newCount >= warnLimit {
		return Decision{Action: ActionBan, WarnCount: newCount}
	}
	return Decision{Action: ActionWarn, WarnCount: newCount}
}

// DecideRate принимает решение по флуду.
// repeatOffense — пользователя уже предупреждали за флуд в пределах окна
// повтора (60 секунд по умолчанию).
//
// Флуд — отдельный вид нарушения: он НЕ увеличивает журнал предупреждений
// и не приближает перманентный бан. Повторный флуд — временный мут.
func DecideRate(repeatOffense bool, muteFor time.Duration) Decision {
	if repeatOffense {
		return Decision{Action: ActionMute, MuteFor: muteFor}
	}
	return Decision{Action: ActionWarnTransient}
}
