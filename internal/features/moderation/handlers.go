// Package moderation — handlers.go обрабатывает админ-команды модерации:
// /warn, /remwarn, /listwarns, /mute, /unmute, /ban, /unban, /kick.
// Все команды работают ответом на сообщение нарушителя.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"voltchat.ru/moderation-bot/internal/common"
	"voltchat.ru/moderation-bot/internal/config"
)

// commandAPI — срез tgbotapi.BotAPI, нужный обработчикам команд.
type commandAPI interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Handler обрабатывает команды модерации.
type Handler struct {
	service *Service
	api     commandAPI
	cfg     *config.Config
}

// NewHandler создаёт обработчик команд модерации.
func NewHandler(service *Service, api commandAPI, cfg *config.Config) *Handler {
	return &Handler{service: service, api: api, cfg: cfg}
}

// HandleWarn — команда /warn: выдать предупреждение вручную.
// На лимите пользователь исключается из чата, журнал сбрасывается.
func (h *Handler) HandleWarn(ctx context.Context, message *tgbotapi.Message) {
	target, err := h.resolveTarget(message)
	if err != nil {
		h.replyResolveError(message, err)
		return
	}

	decision, err := h.service.WarnUser(ctx, message.Chat.ID, target.ID)
	if err != nil {
		log.WithError(err).WithField("user_id", target.ID).Error("Ошибка выдачи предупреждения")
		h.reply(message, "❌ Не удалось выдать предупреждение.")
		return
	}

	name := displayName(target)
	if decision.Action == ActionBan {
		h.reply(message, fmt.Sprintf(
			"Пользователь %s достиг максимального количества предупреждений и исключён из чата.", name))
		return
	}
	h.reply(message, fmt.Sprintf(
		"Пользователю %s вынесено предупреждение. Это %d-е предупреждение (%d/%d).",
		name, decision.WarnCount, decision.WarnCount, h.cfg.WarnLimit))
}

// HandleRemWarn — команда /remwarn: снять одно предупреждение.
func (h *Handler) HandleRemWarn(ctx context.Context, message *tgbotapi.Message) {
	target, err := h.resolveTarget(message)
	if err != nil {
		h.replyResolveError(message, err)
		return
	}

	count, err := h.service.RemoveWarn(ctx, message.Chat.ID, target.ID)
	if err != nil {
		if errors.Is(err, common.ErrWarningNotFound) {
			h.reply(message, fmt.Sprintf(
				"У пользователя %s нет активных предупреждений.", displayName(target)))
			return
		}
		log.WithError(err).WithField("user_id", target.ID).Error("Ошибка снятия предупреждения")
		h.reply(message, "❌ Не удалось снять предупреждение.")
		return
	}

	h.reply(message, fmt.Sprintf(
		"Одно предупреждение пользователя %s снято. Теперь у него %d %s.",
		displayName(target), count, common.PluralizeWarnings(count)))
}

// HandleListWarns — команда /listwarns: список предупреждений чата.
func (h *Handler) HandleListWarns(ctx context.Context, message *tgbotapi.Message) {
	if !h.invokerCanModerate(message) {
		h.reply(message, "У вас недостаточно прав!")
		return
	}

	warns, err := h.service.ListWarnings(ctx, message.Chat.ID)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения списка предупреждений")
		h.reply(message, "❌ Не удалось получить список предупреждений.")
		return
	}
	if len(warns) == 0 {
		h.reply(message, "В этом чате нет пользователей с предупреждениями.")
		return
	}

	lines := make([]string, 0, len(warns)+1)
	lines = append(lines, "Список предупреждений:")
	for _, w := range warns {
		name := h.memberName(message.Chat.ID, w.UserID)
		lines = append(lines, fmt.Sprintf("%s (ID: %d): %d %s",
			name, w.UserID, w.WarningCount, common.PluralizeWarnings(w.WarningCount)))
	}
	h.reply(message, strings.Join(lines, "\n"))
}

// HandleMute — команда /mute [минуты]: временный запрет писать (60 минут по умолчанию).
func (h *Handler) HandleMute(ctx context.Context, message *tgbotapi.Message, args []string) {
	target, err := h.resolveTarget(message)
	if err != nil {
		h.replyResolveError(message, err)
		return
	}

	minutes := 60
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			minutes = v
		}
	}

	if err := h.service.MuteUser(ctx, message.Chat.ID, target.ID, time.Duration(minutes)*time.Minute); err != nil {
		h.replyActionError(message, "замутить", err)
		return
	}
	h.reply(message, fmt.Sprintf("Пользователь %s замучен на %d %s.",
		displayName(target), minutes, common.PluralizeMinutes(minutes)))
}

// HandleUnmute — команда /unmute: снять ограничения.
func (h *Handler) HandleUnmute(ctx context.Context, message *tgbotapi.Message) {
	target, err := h.resolveTarget(message)
	if err != nil {
		h.replyResolveError(message, err)
		return
	}

	if err := h.service.UnmuteUser(ctx, message.Chat.ID, target.ID); err != nil {
		h.replyActionError(message, "размутить", err)
		return
	}
	h.reply(message, fmt.Sprintf("С пользователя %s снят мут.", displayName(target)))
}

// HandleBan — команда /ban: перманентная блокировка.
func (h *Handler) HandleBan(ctx context.Context, message *tgbotapi.Message) {
	target, err := h.resolveTarget(message)
	if err != nil {
		h.replyResolveError(message, err)
		return
	}

	if err := h.service.BanUser(ctx, message.Chat.ID, target.ID); err != nil {
		h.replyActionError(message, "заблокировать", err)
		return
	}
	h.reply(message, fmt.Sprintf("Пользователь %s был заблокирован.", displayName(target)))
}

// HandleUnban — команда /unban: снять блокировку.
func (h *Handler) HandleUnban(ctx context.Context, message *tgbotapi.Message) {
	target, err := h.resolveTarget(message)
	if err != nil {
		h.replyResolveError(message, err)
		return
	}

	if err := h.service.UnbanUser(ctx, message.Chat.ID, target.ID); err != nil {
		h.replyActionError(message, "разбанить", err)
		return
	}
	h.reply(message, fmt.Sprintf("Пользователь %s успешно разбанен!", displayName(target)))
}

// HandleKick — команда /kick: исключение без бана (бан + немедленный разбан).
func (h *Handler) HandleKick(ctx context.Context, message *tgbotapi.Message) {
	target, err := h.resolveTarget(message)
	if err != nil {
		h.replyResolveError(message, err)
		return
	}

	if err := h.service.KickUser(ctx, message.Chat.ID, target.ID); err != nil {
		h.replyActionError(message, "исключить", err)
		return
	}
	h.reply(message, fmt.Sprintf("Пользователь %s успешно исключён из чата!", displayName(target)))
}

// resolveTarget проверяет права вызывающего и извлекает цель команды.
// Общие правила всех команд: ответ на сообщение, не на себя, не на админа.
func (h *Handler) resolveTarget(message *tgbotapi.Message) (*tgbotapi.User, error) {
	if !h.invokerCanModerate(message) {
		return nil, common.ErrNotAdmin
	}
	if message.ReplyToMessage == nil || message.ReplyToMessage.From == nil {
		return nil, common.ErrNoReplyTarget
	}

	target := message.ReplyToMessage.From
	if target.ID == message.From.ID {
		return nil, common.ErrSelfTarget
	}
	if h.isProtected(message.Chat.ID, message.ReplyToMessage) {
		return nil, common.ErrAdminTarget
	}
	return target, nil
}

// replyResolveError переводит ошибку resolveTarget в ответ пользователю.
func (h *Handler) replyResolveError(message *tgbotapi.Message, err error) {
	switch {
	case errors.Is(err, common.ErrNotAdmin):
		h.reply(message, "У вас недостаточно прав!")
	case errors.Is(err, common.ErrNoReplyTarget):
		h.reply(message, "Эта команда должна быть использована как ответ на сообщение.")
	case errors.Is(err, common.ErrSelfTarget):
		h.reply(message, "Нельзя применять команду к самому себе 🤪")
	case errors.Is(err, common.ErrAdminTarget):
		h.reply(message, "Админов трогаешь? Ай-ай-ай 😈")
	default:
		h.reply(message, "❌ Не удалось выполнить команду.")
	}
}

// invokerCanModerate проверяет, может ли отправитель команды модерировать:
// админ из конфига, владелец, либо администратор чата с правом ограничений.
func (h *Handler) invokerCanModerate(message *tgbotapi.Message) bool {
	if message.From == nil {
		return false
	}
	if h.cfg.IsAdmin(message.From.ID) {
		return true
	}

	cm, err := h.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: message.Chat.ID,
			UserID: message.From.ID,
		},
	})
	if err != nil {
		log.WithError(err).WithField("user_id", message.From.ID).Error("Не удалось проверить права отправителя")
		return false
	}
	if cm.Status == "creator" {
		return true
	}
	return cm.Status == "administrator" && cm.CanRestrictMembers
}

// isProtected — нельзя модерировать админов, владельца и привязанный канал.
func (h *Handler) isProtected(chatID int64, target *tgbotapi.Message) bool {
	if target.SenderChat != nil {
		// Сообщение от имени канала/чата
		return true
	}
	if target.From == nil {
		return true
	}
	if h.cfg.IsAdmin(target.From.ID) {
		return true
	}

	cm, err := h.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: target.From.ID,
		},
	})
	if err != nil {
		// Не смогли проверить — продолжаем, как и исходная логика репортов
		log.WithError(err).WithField("user_id", target.From.ID).Warn("Не удалось проверить статус цели")
		return false
	}
	return cm.Status == "creator" || cm.Status == "administrator"
}

// memberName возвращает отображаемое имя участника чата (best-effort).
func (h *Handler) memberName(chatID, userID int64) string {
	cm, err := h.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil || cm.User == nil {
		return "Неизвестный пользователь"
	}
	return displayName(cm.User)
}

// replyActionError отвечает на неудачное действие.
// Нехватка прав бота — отдельное сообщение администратору.
func (h *Handler) replyActionError(message *tgbotapi.Message, verb string, err error) {
	log.WithError(err).WithField("chat_id", message.Chat.ID).Error("Действие модерации не выполнено")
	if errors.Is(err, common.ErrNoPrivileges) {
		h.reply(message, fmt.Sprintf(
			"У меня недостаточно прав, чтобы %s участника. Проверьте мои права администратора.", verb))
		return
	}
	h.reply(message, fmt.Sprintf("Не удалось %s пользователя.", verb))
}

// reply отправляет ответ на сообщение команды.
func (h *Handler) reply(message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	if _, err := h.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", message.Chat.ID).Warn("Не удалось отправить ответ")
	}
}

// displayName возвращает @username или имя+фамилию.
func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}
