// Package stats — repository.go выполняет операции с таблицей user_stats.
package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей user_stats.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий статистики.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RecordMessage увеличивает счётчик сообщений пользователя на 1.
// Upsert атомарен: параллельные сообщения одного пользователя не теряются.
// Имя и username обновляются попутно — пользователи их меняют.
func (r *Repository) RecordMessage(ctx context.Context, chatID, userID int64, username, firstName string) error {
	query := `
		INSERT INTO user_stats (chat_id, user_id, username, first_name, message_count, updated_at)
		VALUES ($1, $2, $3, $4, 1, NOW())
		ON CONFLICT (chat_id, user_id) DO UPDATE
		SET message_count = user_stats.message_count + 1,
		    username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, chatID, userID, username, firstName); err != nil {
		return fmt.Errorf("ошибка записи статистики: %w", err)
	}
	return nil
}

// GetTop возвращает самых активных участников чата.
func (r *Repository) GetTop(ctx context.Context, chatID int64, limit int) ([]*UserStats, error) {
	query := `
		SELECT id, chat_id, user_id, username, first_name, message_count, updated_at
		FROM user_stats
		WHERE chat_id = $1
		ORDER BY message_count DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения топа: %w", err)
	}
	defer rows.Close()

	var result []*UserStats
	for rows.Next() {
		var s UserStats
		if err := rows.Scan(&s.ID, &s.ChatID, &s.UserID, &s.Username, &s.FirstName,
			&s.MessageCount, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки топа: %w", err)
		}
		result = append(result, &s)
	}
	return result, rows.Err()
}

// GetByUser возвращает статистику пользователя. Если записи нет — нули.
func (r *Repository) GetByUser(ctx context.Context, chatID, userID int64) (*UserStats, error) {
	query := `
		SELECT id, chat_id, user_id, username, first_name, message_count, updated_at
		FROM user_stats
		WHERE chat_id = $1 AND user_id = $2
	`
	var s UserStats
	err := r.db.QueryRow(ctx, query, chatID, userID).Scan(
		&s.ID, &s.ChatID, &s.UserID, &s.Username, &s.FirstName,
		&s.MessageCount, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &UserStats{ChatID: chatID, UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	return &s, nil
}

// CountActiveSince возвращает число участников, писавших после momenta t.
func (r *Repository) CountActiveSince(ctx context.Context, chatID int64, sinceDays int) (int, error) {
	query := `
		SELECT COUNT(*) FROM user_stats
		WHERE chat_id = $1 AND updated_at >= NOW() - ($2 || ' days')::interval
	`
	var count int
	err := r.db.QueryRow(ctx, query, chatID, sinceDays).Scan(&count)
	return count, err
}
