// Package moderation — dispatcher.go исполняет решения модерации через
// Telegram Bot API. Каждый вызов может упасть (сеть, права), поэтому ошибки
// перехватываются по отдельности: неудачная отправка уведомления не должна
// откатывать уже применённое удаление.
package moderation

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"voltchat.ru/moderation-bot/internal/common"
)

// telegramClient — минимальный срез tgbotapi.BotAPI, нужный диспетчеру.
// Выделен в интерфейс, чтобы в тестах подставлять заглушку.
type telegramClient interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramDispatcher применяет модерационные действия к чату.
// Все операции идемпотентны с точки зрения вызывающего: повторный мут
// перезаписывает срок, повторный бан не считается ошибкой.
type TelegramDispatcher struct {
	api telegramClient
}

// NewTelegramDispatcher создаёт диспетчер поверх Telegram API.
func NewTelegramDispatcher(api telegramClient) *TelegramDispatcher {
	return &TelegramDispatcher{api: api}
}

// DeleteMessage удаляет сообщение. Уже удалённое сообщение — не ошибка.
func (d *TelegramDispatcher) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := d.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	if err != nil {
		if isAlreadyApplied(err) {
			return nil
		}
		return classifyAPIError(err)
	}
	return nil
}

// SendNotice отправляет служебное уведомление в чат и возвращает его message_id.
// Если ttl > 0 — уведомление удаляется по истечении ttl; при остановке
// процесса отложенное удаление просто пропускается (best-effort).
func (d *TelegramDispatcher) SendNotice(ctx context.Context, chatID int64, text string, ttl time.Duration) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableNotification = true

	sent, err := d.api.Send(msg)
	if err != nil {
		return 0, classifyAPIError(err)
	}

	if ttl > 0 && sent.MessageID != 0 {
		d.scheduleDelete(ctx, chatID, sent.MessageID, ttl)
	}
	return sent.MessageID, nil
}

// Mute запрещает пользователю писать до until.
// Повторный мут с новым сроком перезаписывает предыдущий — Telegram
// просто применяет новые ограничения.
func (d *TelegramDispatcher) Mute(ctx context.Context, chatID, userID int64, until time.Time) error {
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		UntilDate:        until.Unix(),
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages: false,
		},
	}
	if _, err := d.api.Request(cfg); err != nil {
		return classifyAPIError(err)
	}
	return nil
}

// Unmute снимает ограничения с пользователя.
func (d *TelegramDispatcher) Unmute(ctx context.Context, chatID, userID int64) error {
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       true,
			CanSendMediaMessages:  true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
		},
	}
	if _, err := d.api.Request(cfg); err != nil {
		return classifyAPIError(err)
	}
	return nil
}

// Ban перманентно удаляет пользователя из чата.
// Бан уже забаненного пользователя — не ошибка.
func (d *TelegramDispatcher) Ban(ctx context.Context, chatID, userID int64) error {
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
	}
	if _, err := d.api.Request(cfg); err != nil {
		if isAlreadyApplied(err) {
			return nil
		}
		return classifyAPIError(err)
	}
	return nil
}

// Unban снимает бан. OnlyIfBanned защищает от побочного эффекта:
// unban участника чата выкидывает его из чата.
func (d *TelegramDispatcher) Unban(ctx context.Context, chatID, userID int64) error {
	cfg := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		OnlyIfBanned:     true,
	}
	if _, err := d.api.Request(cfg); err != nil {
		if isAlreadyApplied(err) {
			return nil
		}
		return classifyAPIError(err)
	}
	return nil
}

// Kick исключает пользователя без перманентного бана: бан + немедленный разбан.
func (d *TelegramDispatcher) Kick(ctx context.Context, chatID, userID int64) error {
	if err := d.Ban(ctx, chatID, userID); err != nil {
		return err
	}
	if err := d.Unban(ctx, chatID, userID); err != nil {
		return err
	}
	return nil
}

// scheduleDelete удаляет сообщение по истечении ttl.
// При отмене контекста (shutdown) удаление пропускается — это уборка,
// а не требование корректности.
func (d *TelegramDispatcher) scheduleDelete(ctx context.Context, chatID int64, messageID int, ttl time.Duration) {
	go func() {
		timer := time.NewTimer(ttl)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := d.DeleteMessage(ctx, chatID, messageID); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"chat_id":    chatID,
				"message_id": messageID,
			}).Debug("Не удалось удалить служебное уведомление")
		}
	}()
}

// isAlreadyApplied распознаёт ответы Telegram, означающие, что действие
// уже применено раньше. Для идемпотентности такие ответы — успех.
// Telegram отдаёт одни и те же причины то с пробелами ("user not found"),
// то с подчёркиваниями ("USER_NOT_FOUND"), поэтому разделители приводим
// к пробелам до сравнения.
func isAlreadyApplied(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ReplaceAll(strings.ToLower(err.Error()), "_", " ")
	switch {
	case strings.Contains(text, "message to delete not found"):
		return true
	case strings.Contains(text, "message can't be deleted"):
		return true
	case strings.Contains(text, "user not found"):
		return true
	case strings.Contains(text, "participant id invalid"):
		return true
	default:
		return false
	}
}

// classifyAPIError переводит ошибки Telegram в ошибки домена.
// Нехватка прав — отдельная ошибка: о ней надо сообщать администратору,
// а не молча логировать.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	text := strings.ReplaceAll(strings.ToLower(err.Error()), "_", " ")
	if strings.Contains(text, "not enough rights") ||
		strings.Contains(text, "chat admin required") ||
		strings.Contains(text, "need administrator rights") {
		return common.ErrNoPrivileges
	}
	return err
}
