// Package stats — service.go содержит бизнес-логику статистики активности.
package stats

import (
	"context"
	"fmt"
	"strings"

	"voltchat.ru/moderation-bot/internal/common"
)

// Store — хранилище статистики. Интерфейс выделен для тестов.
type Store interface {
	RecordMessage(ctx context.Context, chatID, userID int64, username, firstName string) error
	GetTop(ctx context.Context, chatID int64, limit int) ([]*UserStats, error)
	GetByUser(ctx context.Context, chatID, userID int64) (*UserStats, error)
	CountActiveSince(ctx context.Context, chatID int64, sinceDays int) (int, error)
}

// Service управляет статистикой активности.
type Service struct {
	repo Store
}

// NewService создаёт сервис статистики.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// topSize — сколько участников показывать в /top.
const topSize = 10

var topMedals = []string{"🥇", "🥈", "🥉"}

// RecordMessage учитывает одно сообщение пользователя.
// Вызывается ровно один раз на сообщение, до модерации: удалённое
// сообщение всё равно было написано.
func (s *Service) RecordMessage(ctx context.Context, chatID, userID int64, username, firstName string) error {
	return s.repo.RecordMessage(ctx, chatID, userID, username, firstName)
}

// FormatTop возвращает готовый текст топа активных участников.
func (s *Service) FormatTop(ctx context.Context, chatID int64) (string, error) {
	top, err := s.repo.GetTop(ctx, chatID, topSize)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "📊 Пока никто ничего не написал.", nil
	}

	var b strings.Builder
	b.WriteString("📊 Самые активные участники:\n\n")
	for i, u := range top {
		marker := fmt.Sprintf("%d.", i+1)
		if i < len(topMedals) {
			marker = topMedals[i]
		}
		b.WriteString(fmt.Sprintf("%s %s — %s %s\n",
			marker, u.DisplayName(),
			common.FormatCount(int(u.MessageCount)),
			common.PluralizeMessages(int(u.MessageCount))))
	}
	return b.String(), nil
}

// FormatProfile возвращает текст профиля пользователя.
func (s *Service) FormatProfile(ctx context.Context, chatID, userID int64, warnings, warnLimit int) (string, error) {
	u, err := s.repo.GetByUser(ctx, chatID, userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("👤 Профиль %s\n\n", u.DisplayName()))
	b.WriteString(fmt.Sprintf("✉️ Сообщений: %s\n", common.FormatCount(int(u.MessageCount))))
	b.WriteString(fmt.Sprintf("⚠️ Предупреждений: %d/%d\n", warnings, warnLimit))
	return b.String(), nil
}
