// Package moderation — repository.go выполняет операции с таблицей warnings.
// Все мутации — атомарные SQL-запросы: два одновременных нарушения никогда
// не прочитают один и тот же счётчик (upsert с инкрементом сериализуется
// блокировкой строки на стороне PostgreSQL).
package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"voltchat.ru/moderation-bot/internal/common"
)

// Repository работает с таблицей warnings.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий журнала предупреждений.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Increment атомарно увеличивает счётчик предупреждений на 1 и возвращает
// новое значение. Если записи нет — создаёт её со значением 1.
// Инкремент и чтение — один запрос, потерянные обновления невозможны.
func (r *Repository) Increment(ctx context.Context, chatID, userID int64) (int, error) {
	query := `
		INSERT INTO warnings (chat_id, user_id, warning_count, last_warning_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (chat_id, user_id) DO UPDATE
		SET warning_count = warnings.warning_count + 1,
		    last_warning_at = NOW()
		RETURNING warning_count
	`
	var count int
	if err := r.db.QueryRow(ctx, query, chatID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка инкремента предупреждения (chat=%d user=%d): %w", chatID, userID, err)
	}
	return count, nil
}

// Decrement атомарно уменьшает счётчик на 1 (не ниже нуля) и возвращает
// новое значение. Если записи нет — common.ErrWarningNotFound.
func (r *Repository) Decrement(ctx context.Context, chatID, userID int64) (int, error) {
	query := `
		UPDATE warnings
		SET warning_count = GREATEST(warning_count - 1, 0)
		WHERE chat_id = $1 AND user_id = $2
		RETURNING warning_count
	`
	var count int
	err := r.db.QueryRow(ctx, query, chatID, userID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.ErrWarningNotFound
		}
		return 0, fmt.Errorf("ошибка снятия предупреждения (chat=%d user=%d): %w", chatID, userID, err)
	}
	return count, nil
}

// Reset обнуляет счётчик предупреждений. Вызывается после бана.
// Запись не удаляется: last_warning_at остаётся для аудита.
func (r *Repository) Reset(ctx context.Context, chatID, userID int64) error {
	query := `UPDATE warnings SET warning_count = 0 WHERE chat_id = $1 AND user_id = $2`
	if _, err := r.db.Exec(ctx, query, chatID, userID); err != nil {
		return fmt.Errorf("ошибка сброса предупреждений (chat=%d user=%d): %w", chatID, userID, err)
	}
	return nil
}

// Get возвращает текущий счётчик предупреждений.
// Чтение без блокировок: для отображения допустимо отставание от писателей.
func (r *Repository) Get(ctx context.Context, chatID, userID int64) (int, error) {
	query := `SELECT warning_count FROM warnings WHERE chat_id = $1 AND user_id = $2`
	var count int
	err := r.db.QueryRow(ctx, query, chatID, userID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.ErrWarningNotFound
		}
		return 0, fmt.Errorf("ошибка чтения предупреждений (chat=%d user=%d): %w", chatID, userID, err)
	}
	return count, nil
}

// ListByChat возвращает всех пользователей чата с активными предупреждениями,
// отсортированных по убыванию счётчика.
func (r *Repository) ListByChat(ctx context.Context, chatID int64) ([]*Warning, error) {
	query := `
		SELECT id, chat_id, user_id, warning_count, last_warning_at
		FROM warnings
		WHERE chat_id = $1 AND warning_count > 0
		ORDER BY warning_count DESC, last_warning_at DESC
	`
	rows, err := r.db.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса списка предупреждений: %w", err)
	}
	defer rows.Close()

	var out []*Warning
	for rows.Next() {
		var w Warning
		if err := rows.Scan(&w.ID, &w.ChatID, &w.UserID, &w.WarningCount, &w.LastWarningAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// DecayStale уменьшает на 1 счётчики, не обновлявшиеся дольше olderThanDays
// дней. Возвращает число затронутых записей. Вызывается планировщиком.
func (r *Repository) DecayStale(ctx context.Context, olderThanDays int) (int64, error) {
	query := `
		UPDATE warnings
		SET warning_count = GREATEST(warning_count - 1, 0)
		WHERE warning_count > 0
		  AND last_warning_at < NOW() - make_interval(days => $1)
	`
	tag, err := r.db.Exec(ctx, query, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("ошибка амнистии предупреждений: %w", err)
	}
	return tag.RowsAffected(), nil
}
