// Package moderation — service.go связывает фильтр, лимитер, журнал и
// диспетчер в пайплайн обработки одного сообщения, и содержит операции
// для админ-команд (warn/mute/ban и т.д.).
package moderation

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"voltchat.ru/moderation-bot/internal/common"
	"voltchat.ru/moderation-bot/internal/config"
)

// Ledger — журнал предупреждений (таблица warnings).
// Интерфейс выделен, чтобы в тестах подставлять in-memory реализацию.
type Ledger interface {
	Increment(ctx context.Context, chatID, userID int64) (int, error)
	Decrement(ctx context.Context, chatID, userID int64) (int, error)
	Reset(ctx context.Context, chatID, userID int64) error
	Get(ctx context.Context, chatID, userID int64) (int, error)
	ListByChat(ctx context.Context, chatID int64) ([]*Warning, error)
}

// Dispatcher — исполнитель модерационных действий (Telegram API).
type Dispatcher interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendNotice(ctx context.Context, chatID int64, text string, ttl time.Duration) (int, error)
	Mute(ctx context.Context, chatID, userID int64, until time.Time) error
	Unmute(ctx context.Context, chatID, userID int64) error
	Ban(ctx context.Context, chatID, userID int64) error
	Unban(ctx context.Context, chatID, userID int64) error
	Kick(ctx context.Context, chatID, userID int64) error
}

// Service — ядро модерации.
type Service struct {
	cfg        *config.Config
	filter     *WordFilter
	limiter    *SlidingWindow
	ledger     Ledger
	dispatcher Dispatcher

	// Последовательность Increment → Ban → Reset для одного пользователя
	// не должна перемешиваться с такой же последовательностью его второго
	// сообщения. Шардированные мьютексы дают порядок по ключу без
	// глобальной блокировки всего пайплайна.
	keys keyedMutex
}

// NewService создаёт сервис модерации.
func NewService(cfg *config.Config, filter *WordFilter, limiter *SlidingWindow, ledger Ledger, dispatcher Dispatcher) *Service {
	return &Service{
		cfg:        cfg,
		filter:     filter,
		limiter:    limiter,
		ledger:     ledger,
		dispatcher: dispatcher,
	}
}

// ProcessMessage прогоняет входящее сообщение через пайплайн модерации.
//
// Порядок: привилегии → фильтр контента и лимитер (независимые сигналы) →
// решение → журнал → действия. Оба сигнала могут сработать на одном
// сообщении: контентная ветка владеет журналом, флуд-ветка — мутом.
//
// Ошибка означает, что обработка ЭТОГО сообщения прервана; пайплайн
// остальных сообщений она не затрагивает.
func (s *Service) ProcessMessage(ctx context.Context, msg IncomingMessage) error {
	if msg.Privileged {
		return nil
	}

	contentHit := s.filter.Matches(msg.Text)
	_, exceeded := s.limiter.RecordAndCheck(msg.ChatID, msg.UserID, msg.At)

	if !contentHit && !exceeded {
		return nil
	}

	// Сериализация по ключу (чат, пользователь)
	unlock := s.keys.lock(msg.ChatID, msg.UserID)
	defer unlock()

	// Удаляем сообщение один раз, какая бы ветка ни сработала.
	// Неудача удаления — допустимая деградация (fail-open), идём дальше.
	if err := s.dispatcher.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id":    msg.ChatID,
			"message_id": msg.MessageID,
		}).Warn("Не удалось удалить сообщение нарушителя")
	}

	if contentHit {
		if err := s.applyContentViolation(ctx, msg.ChatID, msg.UserID); err != nil {
			return err
		}
	}

	if exceeded {
		s.applyRateViolation(ctx, msg.ChatID, msg.UserID, msg.At)
	}

	return nil
}

// applyContentViolation — контентная ветка эскалации.
// Инкремент выполняется ровно один раз на сообщение: при ошибке хранилища
// обработка прерывается и нарушение НЕ дозаписывается при ретрае выше.
func (s *Service) applyContentViolation(ctx context.Context, chatID, userID int64) error {
	count, err := s.ledger.Increment(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("журнал предупреждений недоступен: %w", err)
	}

	decision := DecideContent(count, s.cfg.WarnLimit)

	logger := log.WithFields(log.Fields{
		"chat_id":  chatID,
		"user_id":  userID,
		"count":    count,
		"decision": decision.Action.String(),
	})

	switch decision.Action {
	case ActionBan:
		// Сначала бан, потом сброс. Если бан не прошёл — счётчик остаётся
		// на лимите, ручной бан или ретрай всё ещё возможны.
		if err := s.dispatcher.Ban(ctx, chatID, userID); err != nil {
			logger.WithError(err).Error("Бан не выполнен, журнал не сброшен")
			s.notifyStaff(ctx, fmt.Sprintf(
				"⚠️ Не удалось забанить пользователя %d в чате %d: %v", userID, chatID, err))
			return nil
		}
		if err := s.ledger.Reset(ctx, chatID, userID); err != nil {
			// Бан уже применён; несброшенный счётчик исправит админ или декей
			logger.WithError(err).Error("Бан выполнен, но сброс журнала не удался")
		}
		s.sendTransient(ctx, chatID, "🚫 Пользователь заблокирован за систематические нарушения.")
		logger.Info("Пользователь забанен по лимиту предупреждений")

	case ActionWarn:
		text := fmt.Sprintf("⚠️ Сообщение удалено: запрещённые слова. Предупреждение %d/%d.",
			decision.WarnCount, s.cfg.WarnLimit)
		if _, err := s.dispatcher.SendNotice(ctx, chatID, text, s.cfg.MessageDeletionDelay); err != nil {
			logger.WithError(err).Warn("Не удалось отправить предупреждение")
		}
		logger.Info("Выдано предупреждение за контент")
	}

	return nil
}

// applyRateViolation — флуд-ветка. Журнал предупреждений не трогает:
// флуд — отдельный вид нарушения со своей эфемерной памятью.
func (s *Service) applyRateViolation(ctx context.Context, chatID, userID int64, now time.Time) {
	repeat := s.limiter.RecentlyWarned(chatID, userID, now)
	decision := DecideRate(repeat, s.cfg.SpamMuteDuration)

	logger := log.WithFields(log.Fields{
		"chat_id":  chatID,
		"user_id":  userID,
		"decision": decision.Action.String(),
	})

	switch decision.Action {
	case ActionMute:
		until := now.Add(decision.MuteFor)
		if err := s.dispatcher.Mute(ctx, chatID, userID, until); err != nil {
			logger.WithError(err).Error("Мут за повторный флуд не выполнен")
			s.notifyStaff(ctx, fmt.Sprintf(
				"⚠️ Не удалось замутить пользователя %d в чате %d: %v", userID, chatID, err))
			return
		}
		minutes := int(decision.MuteFor.Minutes())
		s.sendTransient(ctx, chatID, fmt.Sprintf(
			"🚫 Пользователь получает мут на %d %s за повторный флуд.",
			minutes, common.PluralizeMinutes(minutes)))
		// Окно сбрасываем, чтобы та же пачка сообщений не каралась дважды
		s.limiter.ResetWindow(chatID, userID)
		logger.Info("Пользователь замучен за повторный флуд")

	case ActionWarnTransient:
		// Окно НЕ сбрасываем: следующее сообщение той же пачки снова
		// превысит лимит и, раз метка предупреждения свежая, приведёт к муту.
		s.limiter.MarkWarned(chatID, userID, now)
		if _, err := s.dispatcher.SendNotice(ctx, chatID,
			"⚠️ Пожалуйста, не отправляйте сообщения слишком часто!",
			s.cfg.SpamWarnDeletionDelay); err != nil {
			logger.WithError(err).Warn("Не удалось отправить флуд-предупреждение")
		}
		logger.Info("Выдано временное предупреждение за флуд")
	}
}

// --- Операции для админ-команд и DM-панели ---

// WarnUser выдаёт предупреждение вручную (команда /warn).
// Эскалация общая с автоматикой: достижение лимита — исключение из чата
// (кик, не перманентный бан — у админа есть /ban для перманентного).
func (s *Service) WarnUser(ctx context.Context, chatID, userID int64) (Decision, error) {
	unlock := s.keys.lock(chatID, userID)
	defer unlock()

	count, err := s.ledger.Increment(ctx, chatID, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("журнал предупреждений недоступен: %w", err)
	}

	decision := DecideContent(count, s.cfg.WarnLimit)
	if decision.Action != ActionBan {
		return decision, nil
	}

	if err := s.dispatcher.Kick(ctx, chatID, userID); err != nil {
		return decision, fmt.Errorf("исключение не выполнено, журнал не сброшен: %w", err)
	}
	if err := s.ledger.Reset(ctx, chatID, userID); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID, "user_id": userID,
		}).Error("Кик выполнен, но сброс журнала не удался")
	}
	return decision, nil
}

// RemoveWarn снимает одно предупреждение (команда /remwarn).
func (s *Service) RemoveWarn(ctx context.Context, chatID, userID int64) (int, error) {
	unlock := s.keys.lock(chatID, userID)
	defer unlock()
	return s.ledger.Decrement(ctx, chatID, userID)
}

// GetWarnings возвращает счётчик пользователя (0, если записи нет).
func (s *Service) GetWarnings(ctx context.Context, chatID, userID int64) (int, error) {
	count, err := s.ledger.Get(ctx, chatID, userID)
	if err == common.ErrWarningNotFound {
		return 0, nil
	}
	return count, err
}

// ListWarnings возвращает активные предупреждения чата по убыванию счётчика.
func (s *Service) ListWarnings(ctx context.Context, chatID int64) ([]*Warning, error) {
	return s.ledger.ListByChat(ctx, chatID)
}

// ResetWarnings обнуляет журнал пользователя (DM-панель).
func (s *Service) ResetWarnings(ctx context.Context, chatID, userID int64) error {
	unlock := s.keys.lock(chatID, userID)
	defer unlock()
	return s.ledger.Reset(ctx, chatID, userID)
}

// MuteUser мутит пользователя на заданный срок (команда /mute).
func (s *Service) MuteUser(ctx context.Context, chatID, userID int64, d time.Duration) error {
	return s.dispatcher.Mute(ctx, chatID, userID, time.Now().Add(d))
}

// UnmuteUser снимает мут (команда /unmute).
func (s *Service) UnmuteUser(ctx context.Context, chatID, userID int64) error {
	return s.dispatcher.Unmute(ctx, chatID, userID)
}

// BanUser банит перманентно (команда /ban).
func (s *Service) BanUser(ctx context.Context, chatID, userID int64) error {
	return s.dispatcher.Ban(ctx, chatID, userID)
}

// UnbanUser снимает бан (команда /unban).
func (s *Service) UnbanUser(ctx context.Context, chatID, userID int64) error {
	return s.dispatcher.Unban(ctx, chatID, userID)
}

// KickUser исключает без бана (команда /kick).
func (s *Service) KickUser(ctx context.Context, chatID, userID int64) error {
	return s.dispatcher.Kick(ctx, chatID, userID)
}

// sendTransient отправляет самоудаляющееся уведомление в чат.
func (s *Service) sendTransient(ctx context.Context, chatID int64, text string) {
	if _, err := s.dispatcher.SendNotice(ctx, chatID, text, s.cfg.MessageDeletionDelay); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("Не удалось отправить уведомление")
	}
}

// notifyStaff сообщает администрации о проблеме (например, нехватке прав).
// Конечным пользователям такие ошибки не показываются.
func (s *Service) notifyStaff(ctx context.Context, text string) {
	if s.cfg.StaffChatID == 0 {
		return
	}
	if _, err := s.dispatcher.SendNotice(ctx, s.cfg.StaffChatID, text, 0); err != nil {
		log.WithError(err).Warn("Не удалось уведомить администрацию")
	}
}
