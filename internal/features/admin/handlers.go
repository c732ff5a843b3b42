// Package admin — handlers.go обрабатывает взаимодействие с DM-панелью.
// Панель работает через Reply Keyboard в личных сообщениях.
// Поток: аутентификация → клавиатура → выбор действия → пошаговый диалог.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"voltchat.ru/moderation-bot/internal/common"
	"voltchat.ru/moderation-bot/internal/config"
	"voltchat.ru/moderation-bot/internal/features/moderation"
)

// Кнопки клавиатуры панели
const (
	btnListWarnings  = "Предупреждения"
	btnResetWarnings = "Сбросить предупреждения"
	btnUnban         = "Разбанить"
	btnLogout        = "Выйти"
)

// Handler обрабатывает сообщения панели.
type Handler struct {
	service    *Service
	moderation *moderation.Service
	cfg        *config.Config
	bot        *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик панели.
func NewHandler(service *Service, moderationSvc *moderation.Service, cfg *config.Config, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{
		service:    service,
		moderation: moderationSvc,
		cfg:        cfg,
		bot:        bot,
	}
}

// HandleAdminMessage обрабатывает любое сообщение от администратора в DM.
// Определяет текущее состояние диалога и маршрутизирует сообщение.
// Возвращает true, если сообщение обработано панелью.
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID int64, userID int64, text string) bool {
	if !h.cfg.IsAdmin(userID) && userID != h.cfg.OwnerID {
		return false
	}

	state := h.service.GetState(userID)

	if state != nil && state.State == StateAwaitingPassword {
		h.handlePasswordInput(ctx, chatID, userID, text)
		return true
	}

	if err := h.service.RequireSession(ctx, userID); errors.Is(err, common.ErrSessionExpired) {
		h.sendMessage(chatID, "🔐 Введите пароль для доступа к панели:")
		h.service.SetState(userID, StateAwaitingPassword)
		return true
	}

	if state != nil {
		switch state.State {
		case StateAwaitingResetID:
			h.handleResetInput(ctx, chatID, userID, text)
			return true
		case StateAwaitingUnbanID:
			h.handleUnbanInput(ctx, chatID, userID, text)
			return true
		}
	}

	switch text {
	case btnListWarnings:
		h.showWarnings(ctx, chatID)
		return true
	case btnResetWarnings:
		h.sendMessage(chatID, "Отправьте ID пользователя для сброса предупреждений:")
		h.service.SetState(userID, StateAwaitingResetID)
		return true
	case btnUnban:
		h.sendMessage(chatID, "Отправьте ID пользователя для разбана:")
		h.service.SetState(userID, StateAwaitingUnbanID)
		return true
	case btnLogout:
		if err := h.service.Logout(ctx, userID); err != nil {
			log.WithError(err).Error("Ошибка закрытия сессии")
		}
		h.sendMessage(chatID, "👋 Сессия закрыта")
		return true
	case "Админ", "Панель", "админ", "панель", "/admin", "/start":
		h.showKeyboard(chatID)
		return true
	}

	return false
}

// handlePasswordInput обрабатывает ввод пароля.
func (h *Handler) handlePasswordInput(ctx context.Context, chatID int64, userID int64, password string) {
	h.service.ClearState(userID)

	err := h.service.Login(ctx, userID, password)
	switch {
	case errors.Is(err, common.ErrTooManyAttempts):
		h.sendMessage(chatID, "⛔ Слишком много попыток входа, подождите час")
		return
	case errors.Is(err, common.ErrWrongPassword):
		h.sendMessage(chatID, "❌ Неверный пароль")
		return
	case err != nil:
		log.WithError(err).Error("Ошибка входа в панель")
		h.sendMessage(chatID, "❌ Не удалось выполнить вход, попробуйте позже")
		return
	}

	h.sendMessage(chatID, "✅ Аутентификация успешна!")
	h.showKeyboard(chatID)
}

// showWarnings показывает активные предупреждения основного чата.
func (h *Handler) showWarnings(ctx context.Context, chatID int64) {
	warnings, err := h.moderation.ListWarnings(ctx, h.cfg.FloodChatID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения списка предупреждений")
		h.sendMessage(chatID, "❌ Не удалось получить список")
		return
	}
	if len(warnings) == 0 {
		h.sendMessage(chatID, "✨ Активных предупреждений нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("⚠️ Активные предупреждения:\n\n")
	for i, w := range warnings {
		sb.WriteString(fmt.Sprintf("%d. ID %d — %d/%d (последнее: %s)\n",
			i+1, w.UserID, w.WarningCount, h.cfg.WarnLimit,
			common.FormatDateTime(w.LastWarningAt)))
	}
	h.sendMessage(chatID, sb.String())
}

// handleResetInput — ввод ID пользователя для сброса предупреждений.
func (h *Handler) handleResetInput(ctx context.Context, chatID int64, userID int64, text string) {
	target, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || target <= 0 {
		h.sendMessage(chatID, "❌ Неверный ID. Отправьте числовой ID пользователя.")
		return
	}
	h.service.ClearState(userID)

	if err := h.moderation.ResetWarnings(ctx, h.cfg.FloodChatID, target); err != nil {
		log.WithError(err).Error("Ошибка сброса предупреждений")
		h.sendMessage(chatID, "❌ Не удалось сбросить предупреждения")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Предупреждения пользователя %d сброшены", target))
}

// handleUnbanInput — ввод ID пользователя для разбана.
func (h *Handler) handleUnbanInput(ctx context.Context, chatID int64, userID int64, text string) {
	target, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || target <= 0 {
		h.sendMessage(chatID, "❌ Неверный ID. Отправьте числовой ID пользователя.")
		return
	}
	h.service.ClearState(userID)

	if err := h.moderation.UnbanUser(ctx, h.cfg.FloodChatID, target); err != nil {
		log.WithError(err).Error("Ошибка разбана")
		h.sendMessage(chatID, "❌ Не удалось разбанить пользователя")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Пользователь %d разбанен", target))
}

// showKeyboard отображает клавиатуру панели.
func (h *Handler) showKeyboard(chatID int64) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnListWarnings),
			tgbotapi.NewKeyboardButton(btnResetWarnings),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnUnban),
			tgbotapi.NewKeyboardButton(btnLogout),
		),
	)

	msg := tgbotapi.NewMessage(chatID, "✅ Панель управления открыта")
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки клавиатуры")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
