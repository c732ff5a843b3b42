// Package stats — handlers.go обрабатывает команды /top и /profile.
package stats

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// WarnCounter отдаёт текущий счётчик предупреждений для профиля.
type WarnCounter interface {
	GetWarnings(ctx context.Context, chatID, userID int64) (int, error)
}

// Handler обрабатывает команды статистики.
type Handler struct {
	service   *Service
	warns     WarnCounter
	warnLimit int
	bot       *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик статистики.
func NewHandler(service *Service, warns WarnCounter, warnLimit int, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, warns: warns, warnLimit: warnLimit, bot: bot}
}

// HandleTop — команда /top. Показывает самых активных участников.
func (h *Handler) HandleTop(ctx context.Context, message *tgbotapi.Message) {
	text, err := h.service.FormatTop(ctx, message.Chat.ID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения топа активности")
		h.sendMessage(message.Chat.ID, "❌ Не удалось получить статистику")
		return
	}
	h.sendMessage(message.Chat.ID, text)
}

// HandleProfile — команда /profile. Показывает профиль отправителя,
// а в ответе на чужое сообщение — профиль его автора.
func (h *Handler) HandleProfile(ctx context.Context, message *tgbotapi.Message) {
	target := message.From
	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		target = message.ReplyToMessage.From
	}

	warnings, err := h.warns.GetWarnings(ctx, message.Chat.ID, target.ID)
	if err != nil {
		log.WithError(err).Warn("Счётчик предупреждений недоступен для профиля")
	}

	text, err := h.service.FormatProfile(ctx, message.Chat.ID, target.ID, warnings, h.warnLimit)
	if err != nil {
		log.WithError(err).Error("Ошибка получения профиля")
		h.sendMessage(message.Chat.ID, "❌ Не удалось получить профиль")
		return
	}
	h.sendMessage(message.Chat.ID, text)
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
