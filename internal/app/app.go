// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"voltchat.ru/moderation-bot/internal/bot"
	"voltchat.ru/moderation-bot/internal/bot/filters"
	"voltchat.ru/moderation-bot/internal/config"
	"voltchat.ru/moderation-bot/internal/db/postgres"
	"voltchat.ru/moderation-bot/internal/features/admin"
	"voltchat.ru/moderation-bot/internal/features/moderation"
	"voltchat.ru/moderation-bot/internal/features/reports"
	"voltchat.ru/moderation-bot/internal/features/stats"
	"voltchat.ru/moderation-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Limiter   *moderation.SlidingWindow
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := postgres.Migrate(ctx, pool, migrations); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	// Таймаут клиента ограничивает каждый вызов API: зависший запрос
	// не должен держать слот inflight вечно. Клиент общий с long polling,
	// поэтому таймаут должен вмещать и его ожидание.
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.BotUpdateTimeoutSeconds)*time.Second + cfg.TelegramCallTimeout,
	}
	botAPI, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramBotToken, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	warningRepo := moderation.NewRepository(pool)
	statsRepo := stats.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	wordFilter := moderation.NewWordFilter(cfg.ForbiddenWords)
	limiter := moderation.NewSlidingWindow(cfg.SpamMessageLimit, cfg.SpamTimeWindow, cfg.SpamRepeatWindow)
	dispatcher := moderation.NewTelegramDispatcher(botAPI)
	moderationService := moderation.NewService(cfg, wordFilter, limiter, warningRepo, dispatcher)
	statsService := stats.NewService(statsRepo)
	adminService := admin.NewService(adminRepo, cfg)

	// === 5. Обработчики ===
	moderationHandler := moderation.NewHandler(moderationService, botAPI, cfg)
	statsHandler := stats.NewHandler(statsService, moderationService, cfg.WarnLimit, botAPI)
	reportsHandler := reports.NewHandler(cfg, botAPI)
	adminHandler := admin.NewHandler(adminService, moderationService, cfg, botAPI)

	// === 6. Фильтры ===
	chatFilter := filters.NewChatFilter(cfg, botAPI)

	// === 7. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		moderationService, moderationHandler,
		statsService, statsHandler,
		reportsHandler,
		adminHandler,
		chatFilter,
	)

	// === 8. Планировщик задач ===
	scheduler := jobs.NewScheduler(cfg, warningRepo, statsService, b.SendMessageToChat)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		Limiter:   limiter,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migrations = []postgres.Migration{
	{Version: 1, SQL: migration001Warnings},
	{Version: 2, SQL: migration002UserStats},
	{Version: 3, SQL: migration003Admin},
}

var migration001Warnings = `
CREATE TABLE IF NOT EXISTS warnings (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    warning_count INTEGER NOT NULL DEFAULT 0,
    last_warning_at TIMESTAMP NOT NULL DEFAULT NOW(),
    UNIQUE (chat_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_warnings_chat_count ON warnings(chat_id, warning_count DESC);
`

var migration002UserStats = `
CREATE TABLE IF NOT EXISTS user_stats (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    username VARCHAR(255) NOT NULL DEFAULT '',
    first_name VARCHAR(255) NOT NULL DEFAULT '',
    message_count BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    UNIQUE (chat_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_user_stats_chat_count ON user_stats(chat_id, message_count DESC);
`

var migration003Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token VARCHAR(255) UNIQUE,
    authenticated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP,
    last_activity TIMESTAMP NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    attempt_time TIMESTAMP NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_attempts_user_time ON admin_login_attempts(user_id, attempt_time DESC);
`
