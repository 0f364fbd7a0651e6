// repository.go ищет серии под угрозой и отмечает отправленные напоминания.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"volleylevel.by/academy-bot/internal/common"
)

// Repository предоставляет методы для работы с таблицами accounts и streak_reminders.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий стриков.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListAtRisk возвращает игроков с серией от minStreak, последней тренировкой yesterday
// и без напоминания за today.
func (r *Repository) ListAtRisk(ctx context.Context, minStreak int, yesterday, today time.Time) ([]AtRisk, error) {
	query := `
		SELECT a.user_id, a.streak, a.last_training_date
		FROM accounts a
		WHERE a.streak >= $1
		  AND a.last_training_date = $2
		  AND NOT EXISTS (
		      SELECT 1 FROM streak_reminders r
		      WHERE r.user_id = a.user_id AND r.day = $3
		  )
		ORDER BY a.streak DESC
	`
	rows, err := r.db.Query(ctx, query, minStreak, yesterday, today)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса серий под угрозой: %w", err)
	}
	defer rows.Close()

	var out []AtRisk
	for rows.Next() {
		var a AtRisk
		if err := rows.Scan(&a.UserID, &a.Streak, &a.LastTrainingDate); err != nil {
			return nil, fmt.Errorf("ошибка сканирования серии: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения серий: %w", err)
	}
	return out, nil
}

// MarkReminded запоминает, что напоминание за day отправлено.
func (r *Repository) MarkReminded(ctx context.Context, userID int64, day time.Time) error {
	query := `
		INSERT INTO streak_reminders (user_id, day)
		VALUES ($1, $2)
		ON CONFLICT (user_id, day) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID, day); err != nil {
		return fmt.Errorf("ошибка записи напоминания: %w", err)
	}
	return nil
}

// GetState возвращает текущую серию игрока.
func (r *Repository) GetState(ctx context.Context, userID int64) (*State, error) {
	var s State
	err := r.db.QueryRow(ctx,
		`SELECT streak, last_training_date FROM accounts WHERE user_id = $1`, userID,
	).Scan(&s.Streak, &s.LastTrainingDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка чтения серии (user_id=%d): %w", userID, err)
	}
	return &s, nil
}
