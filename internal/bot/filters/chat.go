// Package filters решает, какие апдейты бот вообще обрабатывает и кто из
// отправителей неприкасаем для модерации.
package filters

import (
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"voltchat.ru/moderation-bot/internal/config"
)

// memberAPI — срез tgbotapi.BotAPI для проверки статуса участника.
type memberAPI interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ChatFilter отсекает чужие чаты и определяет привилегированных отправителей.
// Статус администратора чата кэшируется с небольшим TTL: модерация дергается
// на каждое сообщение, а состав админов меняется редко.
type ChatFilter struct {
	cfg *config.Config
	bot memberAPI

	mu    sync.Mutex
	cache map[int64]adminCacheEntry
}

type adminCacheEntry struct {
	isAdmin   bool
	expiresAt time.Time
}

const adminCacheTTL = 5 * time.Minute

// NewChatFilter создаёт фильтр доступа.
func NewChatFilter(cfg *config.Config, bot memberAPI) *ChatFilter {
	return &ChatFilter{
		cfg:   cfg,
		bot:   bot,
		cache: make(map[int64]adminCacheEntry),
	}
}

// CheckAccess решает, обрабатывать ли сообщение вообще.
// Разрешены: основной чат и личка админов/владельца (DM-панель).
func (f *ChatFilter) CheckAccess(message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if f.cfg.FloodChatID == 0 {
		log.WithField("component", "ChatFilter").Error("FloodChatID не задан (ошибка конфигурации)")
		return false
	}

	chatID := message.Chat.ID

	logger := log.WithFields(log.Fields{
		"component":     "ChatFilter",
		"chat_id":       chatID,
		"chat_type":     message.Chat.Type,
		"flood_chat_id": f.cfg.FloodChatID,
	})

	// 1) Основной чат
	if chatID == f.cfg.FloodChatID {
		return true
	}

	// 2) Личка: только админы и владелец (панель управления)
	if message.Chat.IsPrivate() {
		if message.From == nil {
			return false
		}
		if f.cfg.IsAdmin(message.From.ID) || message.From.ID == f.cfg.OwnerID {
			logger.WithField("user_id", message.From.ID).Debug("allow: личка администратора")
			return true
		}
		logger.WithField("user_id", message.From.ID).Info("deny: личка постороннего")
		msg := tgbotapi.NewMessage(chatID, "❌ Бот работает только в основном чате")
		if _, sendErr := f.bot.Send(msg); sendErr != nil {
			logger.WithError(sendErr).Warn("Не удалось отправить отказ")
		}
		return false
	}

	// 3) Остальные чаты игнорируем
	logger.Info("deny: чужой чат")
	return false
}

// IsPrivileged определяет, освобождён ли отправитель от модерации:
// посты привязанного канала и анонимные админы (sender_chat), владелец,
// админы из конфига и действующие админы чата.
func (f *ChatFilter) IsPrivileged(message *tgbotapi.Message) bool {
	if message == nil {
		return false
	}

	// Пост от имени привязанного канала или анонимного админа (sender_chat
	// совпадает с самим чатом). Чужие каналы привилегий не дают: любой
	// пользователь может писать «от имени» своего личного канала.
	if message.SenderChat != nil {
		id := message.SenderChat.ID
		return id == f.cfg.ChannelID || id == f.cfg.FloodChatID
	}

	if message.From == nil {
		return false
	}
	userID := message.From.ID

	if userID == f.cfg.OwnerID || f.cfg.IsAdmin(userID) {
		return true
	}

	return f.isChatAdmin(message.Chat.ID, userID)
}

// isChatAdmin проверяет статус участника через Telegram API с кэшем.
// При ошибке API считаем пользователя обычным участником: лучше лишний
// раз промодерировать, чем пропустить нарушение.
func (f *ChatFilter) isChatAdmin(chatID, userID int64) bool {
	f.mu.Lock()
	entry, ok := f.cache[userID]
	f.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.isAdmin
	}

	cm, err := f.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   chatID,
			"user_id":   userID,
		}).Warn("GetChatMember не ответил, считаем обычным участником")
		return false
	}

	isAdmin := cm.Status == "creator" || cm.Status == "administrator"

	f.mu.Lock()
	f.cache[userID] = adminCacheEntry{isAdmin: isAdmin, expiresAt: time.Now().Add(adminCacheTTL)}
	f.mu.Unlock()

	return isAdmin
}
