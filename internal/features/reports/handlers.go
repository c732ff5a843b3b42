// Package reports — handlers.go обрабатывает команды /report и /admin.
package reports

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"voltchat.ru/moderation-bot/internal/config"
)

// Handler обрабатывает жалобы.
type Handler struct {
	cfg *config.Config
	bot *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик жалоб.
func NewHandler(cfg *config.Config, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{cfg: cfg, bot: bot}
}

// HandleReport — команда /report в ответе на сообщение.
// Пересылает карточку жалобы в чат администрации.
func (h *Handler) HandleReport(message *tgbotapi.Message) {
	if h.cfg.StaffChatID == 0 {
		h.reply(message, "❌ Жалобы не настроены в этом чате")
		return
	}

	reported := message.ReplyToMessage
	if reported == nil || reported.From == nil {
		h.reply(message, "ℹ️ Используйте /report в ответе на сообщение нарушителя")
		return
	}
	if message.From != nil && reported.From.ID == message.From.ID {
		h.reply(message, "🤔 Пожаловаться на самого себя нельзя")
		return
	}
	if reported.From.ID == h.cfg.OwnerID || h.cfg.IsAdmin(reported.From.ID) {
		h.reply(message, "ℹ️ На администраторов жаловаться бесполезно")
		return
	}

	card := FormatReportCard(message.From, reported.From, reported)
	staffMsg := tgbotapi.NewMessage(h.cfg.StaffChatID, card)
	if _, err := h.bot.Send(staffMsg); err != nil {
		log.WithError(err).Error("Не удалось отправить жалобу администрации")
		h.reply(message, "❌ Не удалось отправить жалобу, попробуйте позже")
		return
	}

	// Саму цитату тоже пересылаем: карточка обрезает длинный текст
	fwd := tgbotapi.NewForward(h.cfg.StaffChatID, message.Chat.ID, reported.MessageID)
	if _, err := h.bot.Send(fwd); err != nil {
		log.WithError(err).Debug("Пересылка цитаты не удалась (сообщение удалено?)")
	}

	h.reply(message, "✅ Жалоба отправлена администрации")
}

// HandleAdminCall — команда /admin. Зовёт администрацию в чат.
func (h *Handler) HandleAdminCall(message *tgbotapi.Message) {
	if h.cfg.StaffChatID == 0 {
		return
	}

	who := "участник"
	if message.From != nil {
		if message.From.UserName != "" {
			who = "@" + message.From.UserName
		} else {
			who = message.From.FirstName
		}
	}

	text := fmt.Sprintf("📣 %s зовёт администрацию в чат", who)
	if message.ReplyToMessage != nil && message.ReplyToMessage.Text != "" {
		text += fmt.Sprintf("\n\nПовод:\n%s", message.ReplyToMessage.Text)
	}

	if _, err := h.bot.Send(tgbotapi.NewMessage(h.cfg.StaffChatID, text)); err != nil {
		log.WithError(err).Error("Не удалось позвать администрацию")
		return
	}
	h.reply(message, "✅ Администрация уведомлена")
}

func (h *Handler) reply(to *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(to.Chat.ID, text)
	msg.ReplyToMessageID = to.MessageID
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки ответа")
	}
}
