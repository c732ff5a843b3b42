// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
// Конфигурация читается один раз при старте и дальше не меняется.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// ID группового чата, который бот модерирует (единственный разрешённый)
	FloodChatID int64 `envconfig:"FLOOD_CHAT_ID" required:"true"`
	// ID привязанного канала (сообщения от его имени не модерируются)
	ChannelID int64 `envconfig:"CHANNEL_ID"`
	// Чат для репортов и уведомлений администрации
	StaffChatID int64 `envconfig:"STAFF_CHAT_ID"`
	// Владелец бота (доступ к DM-панели)
	OwnerID int64 `envconfig:"OWNER_ID"`

	AdminIDsRaw string  `envconfig:"ADMIN_IDS"`
	AdminIDs    []int64 `envconfig:"-"` // заполним вручную из AdminIDsRaw

	// --- Модерация ---
	// Сколько предупреждений до бана
	WarnLimit int `envconfig:"WARN_LIMIT" default:"3"`
	// Запрещённые слова через запятую. Пусто — используется встроенный список.
	ForbiddenWordsRaw string   `envconfig:"FORBIDDEN_WORDS"`
	ForbiddenWords    []string `envconfig:"-"`
	// Через сколько удалять служебные уведомления бота
	MessageDeletionDelay time.Duration `envconfig:"MESSAGE_DELETION_DELAY" default:"5s"`

	// --- Антиспам ---
	SpamTimeWindow        time.Duration `envconfig:"SPAM_TIME_WINDOW" default:"10s"`
	SpamMessageLimit      int           `envconfig:"SPAM_MESSAGE_LIMIT" default:"5"`
	SpamWarnDeletionDelay time.Duration `envconfig:"SPAM_WARN_DELETION_DELAY" default:"5s"`
	// Повторный флуд внутри этого окна после предупреждения — мут
	SpamRepeatWindow time.Duration `envconfig:"SPAM_REPEAT_WINDOW" default:"60s"`
	SpamMuteDuration time.Duration `envconfig:"SPAM_MUTE_DURATION" default:"10m"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"moderation_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`
	// Таймаут одного вызова Telegram API
	TelegramCallTimeout time.Duration `envconfig:"TELEGRAM_CALL_TIMEOUT" default:"10s"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`
}

// defaultForbiddenWords — встроенный список запрещённых подстрок.
// Совпадение по подстроке: "казино" матчится и внутри "джойказино".
// Ложные срабатывания на легитимных словах — осознанный компромисс политики.
var defaultForbiddenWords = []string{
	"казино", "casino", "cazino",
	"ставки", "букмекер", "1xbet", "1хбет",
	"1win", "1вин", "onewin", "ванвин",
	"melbet", "мелбет", "фонбет", "париматч", "parimatch",
	"азино", "azino", "вулкан", "vulkan", "vulcan",
	"джойказино", "joycasino",
	"покер", "рулетка", "игровые автоматы",
	"промокод", "зеркало казино", "обыграть казино",
	"гитлер", "нацист", "фашист", "путлер", "террорист", "экстремист",
	"мразь", "мудак", "гандон", "чмо", "шлюха", "лошара",
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdmin проверяет, входит ли пользователь в список админов из конфига.
func (c *Config) IsAdmin(userID int64) bool {
	if userID == c.OwnerID && c.OwnerID != 0 {
		return true
	}
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if c.FloodChatID == 0 {
		return fmt.Errorf("FLOOD_CHAT_ID не задан или равен 0")
	}
	if c.WarnLimit <= 0 {
		return fmt.Errorf("WARN_LIMIT должен быть > 0")
	}
	if c.SpamMessageLimit <= 0 || c.SpamTimeWindow <= 0 {
		return fmt.Errorf("некорректные SPAM_MESSAGE_LIMIT/SPAM_TIME_WINDOW")
	}
	if c.SpamMuteDuration <= 0 || c.SpamRepeatWindow <= 0 {
		return fmt.Errorf("некорректные SPAM_MUTE_DURATION/SPAM_REPEAT_WINDOW")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	cfg.ForbiddenWords = parseWordsCSV(cfg.ForbiddenWordsRaw)
	if len(cfg.ForbiddenWords) == 0 {
		cfg.ForbiddenWords = defaultForbiddenWords
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseWordsCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
