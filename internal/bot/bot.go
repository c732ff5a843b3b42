// Package bot содержит главный модуль бота — запуск polling, маршрутизацию
// апдейтов и приветствие новых участников.
package bot

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"voltchat.ru/moderation-bot/internal/bot/filters"
	"voltchat.ru/moderation-bot/internal/bot/middleware"
	"voltchat.ru/moderation-bot/internal/common"
	"voltchat.ru/moderation-bot/internal/config"
	"voltchat.ru/moderation-bot/internal/features/admin"
	"voltchat.ru/moderation-bot/internal/features/moderation"
	"voltchat.ru/moderation-bot/internal/features/reports"
	"voltchat.ru/moderation-bot/internal/features/stats"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter *filters.ChatFilter

	moderationService *moderation.Service
	moderationHandler *moderation.Handler
	statsService      *stats.Service
	statsHandler      *stats.Handler
	reportsHandler    *reports.Handler
	adminHandler      *admin.Handler

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}

	// момент запуска — для аптайма в /ping
	startedAt time.Time
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	moderationService *moderation.Service,
	moderationHandler *moderation.Handler,
	statsService *stats.Service,
	statsHandler *stats.Handler,
	reportsHandler *reports.Handler,
	adminHandler *admin.Handler,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:               api,
		cfg:               cfg,
		chatFilter:        chatFilter,
		moderationService: moderationService,
		moderationHandler: moderationHandler,
		statsService:      statsService,
		statsHandler:      statsHandler,
		reportsHandler:    reportsHandler,
		adminHandler:      adminHandler,
		parser:            NewCommandParser(),
		inflight:          make(chan struct{}, maxInFlight),
		startedAt:         time.Now(),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	// Вступление новых участников
	if update.Message != nil && update.Message.NewChatMembers != nil {
		if update.Message.Chat != nil && update.Message.Chat.ID == b.cfg.FloodChatID {
			b.handleNewMembers(update.Message.NewChatMembers)
		}
		return
	}

	if update.Message == nil {
		return
	}
	message := update.Message

	middleware.LogMessage(message)

	// Доступ: основной чат или DM администратора
	if !b.chatFilter.CheckAccess(message) {
		return
	}

	// DM: вся личка — панель управления
	if message.Chat.IsPrivate() {
		if message.From == nil {
			return
		}
		if !b.adminHandler.HandleAdminMessage(ctx, message.Chat.ID, message.From.ID, message.Text) {
			b.sendMessage(message.Chat.ID, "ℹ️ Откройте панель командой /admin")
		}
		return
	}

	privileged := b.chatFilter.IsPrivileged(message)

	// Статистика считается один раз на сообщение, до модерации:
	// удалённое сообщение всё равно было написано
	if message.From != nil {
		if err := b.statsService.RecordMessage(ctx, message.Chat.ID, message.From.ID,
			message.From.UserName, message.From.FirstName); err != nil {
			log.WithError(err).WithField("user_id", message.From.ID).Warn("Статистика не записана")
		}
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if isCommand {
		b.routeCommand(ctx, message, cmd, args)
		return
	}

	// Модерация обычных сообщений
	if message.From == nil {
		// Посты каналов без From неприкасаемы, дальше нечего делать
		return
	}

	incoming := moderation.IncomingMessage{
		ChatID:     message.Chat.ID,
		UserID:     message.From.ID,
		MessageID:  message.MessageID,
		Text:       messageText(message),
		Privileged: privileged,
		At:         time.Now(),
	}
	if err := b.moderationService.ProcessMessage(ctx, incoming); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
		}).Error("Ошибка пайплайна модерации")
	}
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, message *tgbotapi.Message, cmd string, args []string) {
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")

	switch cmd {
	case "start", "help", "помощь":
		b.sendMessage(message.Chat.ID, helpText)

	case "rules", "правила":
		b.sendMessage(message.Chat.ID, b.rulesText())

	case "warn", "варн":
		b.moderationHandler.HandleWarn(ctx, message)

	case "remwarn", "унварн":
		b.moderationHandler.HandleRemWarn(ctx, message)

	case "listwarns", "варны":
		b.moderationHandler.HandleListWarns(ctx, message)

	case "mute", "мут":
		b.moderationHandler.HandleMute(ctx, message, args)

	case "unmute", "размут":
		b.moderationHandler.HandleUnmute(ctx, message)

	case "ban", "бан":
		b.moderationHandler.HandleBan(ctx, message)

	case "unban", "разбан":
		b.moderationHandler.HandleUnban(ctx, message)

	case "kick", "кик":
		b.moderationHandler.HandleKick(ctx, message)

	case "report", "репорт":
		b.reportsHandler.HandleReport(message)

	case "admin", "админ":
		b.reportsHandler.HandleAdminCall(message)

	case "top", "топ":
		b.statsHandler.HandleTop(ctx, message)

	case "profile", "профиль":
		b.statsHandler.HandleProfile(ctx, message)

	case "about":
		b.sendMessage(message.Chat.ID, aboutText)

	case "ping", "пинг":
		b.handlePing(message)

	case "avatar", "аватар":
		b.handleAvatar(message)
	}
}

// handlePing проверяет работоспособность бота: замеряет задержку до Telegram
// и редактирует отправленное сообщение, дописывая аптайм и окружение.
func (b *Bot) handlePing(message *tgbotapi.Message) {
	start := time.Now()
	checking := tgbotapi.NewMessage(message.Chat.ID, "🔄 Проверка соединения...")
	checking.ReplyToMessageID = message.MessageID
	sent, err := b.api.Send(checking)
	if err != nil {
		log.WithError(err).Error("Ping не прошёл")
		return
	}
	latency := time.Since(start)

	uptime := time.Since(b.startedAt).Round(time.Second)
	status := fmt.Sprintf(
		"🏓 Понг!\n\n⏱ Задержка: %.1f мс\n⌛️ Аптайм: %s\n🖥 OS: %s\n🔧 Go: %s",
		float64(latency.Microseconds())/1000, uptime, runtime.GOOS, runtime.Version())

	edit := tgbotapi.NewEditMessageText(message.Chat.ID, sent.MessageID, status)
	if _, err := b.api.Send(edit); err != nil {
		log.WithError(err).Warn("Не удалось обновить ответ на ping")
	}
}

// handleAvatar отправляет аватар автора команды, либо — при ответе на
// сообщение — аватар его автора.
func (b *Bot) handleAvatar(message *tgbotapi.Message) {
	target := message.From
	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		target = message.ReplyToMessage.From
	}
	if target == nil {
		return
	}

	photos, err := b.api.GetUserProfilePhotos(tgbotapi.NewUserProfilePhotos(target.ID))
	if err != nil {
		log.WithError(err).WithField("user_id", target.ID).Error("Не удалось получить фото профиля")
		b.sendMessage(message.Chat.ID, "Не удалось получить аватар 😢")
		return
	}
	if photos.TotalCount == 0 || len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("У пользователя %s нет аватара! 🤷‍♂️", targetName(target)))
		return
	}

	// Последний элемент первой группы — максимальный размер
	sizes := photos.Photos[0]
	photo := tgbotapi.NewPhoto(message.Chat.ID, tgbotapi.FileID(sizes[len(sizes)-1].FileID))
	photo.Caption = fmt.Sprintf("🖼 Аватар профиля\n👤 Пользователь: %s\n📊 Всего аватаров: %d",
		targetName(target), photos.TotalCount)
	photo.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(photo); err != nil {
		log.WithError(err).Warn("Не удалось отправить аватар")
	}
}

// targetName — @username или имя.
func targetName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return u.FirstName
}

// handleNewMembers приветствует вступивших участников.
func (b *Bot) handleNewMembers(newMembers []tgbotapi.User) {
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		name := user.FirstName
		if user.UserName != "" {
			name = "@" + user.UserName
		}
		b.sendMessage(b.cfg.FloodChatID,
			"👋 Добро пожаловать, "+name+"! Ознакомьтесь с правилами: /rules")
		log.WithField("user", user.UserName).Info("Новый участник обработан")
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendMessageToChat отправляет сообщение в чат (для планировщика).
func (b *Bot) SendMessageToChat(chatID int64, text string) {
	b.sendMessage(chatID, text)
}

// messageText возвращает модерируемый текст сообщения: обычный текст
// или подпись к медиа.
func messageText(m *tgbotapi.Message) string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

const helpText = `🤖 Команды бота:

/rules — правила чата
/top — самые активные участники
/profile — ваш профиль (в ответе — профиль автора)
/report — пожаловаться на сообщение (в ответе)
/admin — позвать администрацию
/avatar — аватар (свой или автора сообщения в ответе)
/about — о боте
/ping — проверка связи

Для администраторов:
/warn /remwarn /listwarns — предупреждения
/mute [минуты] /unmute — мут
/ban /unban /kick — исключение`

const aboutText = `🤖 VoltChat Moderation Bot

📝 О боте:
Помогаю модерировать чат: фильтрую запрещённые слова, слежу за флудом
и веду журнал предупреждений.

🛠 Возможности:
• Модерация сообщений
• Система репортов
• Статистика активности
• Автоматические приветствия

💡 Используйте /help для списка команд`

// rulesText собирает правила из конфигурации: лимиты в тексте всегда
// совпадают с теми, по которым бот реально наказывает.
func (b *Bot) rulesText() string {
	windowSec := int(b.cfg.SpamTimeWindow.Seconds())
	return fmt.Sprintf(`📜 Правила чата:

1. Запрещены оскорбления и запрещённая лексика.
2. Запрещён флуд: не более %d %s за %d %s.
3. %d %s — бан.
4. Решения администрации обсуждаются в личке, не в чате.`,
		b.cfg.SpamMessageLimit, common.PluralizeMessages(b.cfg.SpamMessageLimit),
		windowSec, common.PluralizeSeconds(windowSec),
		b.cfg.WarnLimit, common.PluralizeWarnings(b.cfg.WarnLimit))
}

// CommandParser парсит команды с префиксами /, ! и .
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	text = strings.TrimSpace(text)
	parts := strings.Fields(text)

	if len(parts) == 0 {
		return "", nil, false
	}

	// Команды приходят и в виде /warn@botname
	command := strings.ToLower(parts[0])
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
