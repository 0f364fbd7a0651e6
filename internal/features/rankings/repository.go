// repository.go читает таблицы лидеров из accounts и account_skills.
package rankings

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// TopByXP: лучшие по общему XP. Пустой city означает все города.
func (r *Repository) TopByXP(ctx context.Context, city string, limit int) ([]Entry, error) {
	query := `
		SELECT a.user_id, COALESCE(m.username, ''), COALESCE(m.first_name, ''),
		       COALESCE(m.city, ''), COALESCE(m.branch, ''), a.level, a.total_xp
		FROM accounts a
		LEFT JOIN members m ON m.user_id = a.user_id
		WHERE a.total_xp > 0
		  AND ($1 = '' OR LOWER(m.city) = LOWER($1))
		ORDER BY a.total_xp DESC, a.user_id
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, city, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса рейтинга по XP: %w", err)
	}
	return collect(rows)
}

// TopByStreak отдаёт лучших по живой серии, последняя тренировка не раньше since.
func (r *Repository) TopByStreak(ctx context.Context, since time.Time, limit int) ([]Entry, error) {
	query := `
		SELECT a.user_id, COALESCE(m.username, ''), COALESCE(m.first_name, ''),
		       COALESCE(m.city, ''), COALESCE(m.branch, ''), a.level, a.streak
		FROM accounts a
		LEFT JOIN members m ON m.user_id = a.user_id
		WHERE a.streak > 0 AND a.last_training_date >= $1
		ORDER BY a.streak DESC, a.total_xp DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса рейтинга по серии: %w", err)
	}
	return collect(rows)
}

// TopBySkill: лучшие по XP навыка.
func (r *Repository) TopBySkill(ctx context.Context, skillID string, limit int) ([]Entry, error) {
	query := `
		SELECT a.user_id, COALESCE(m.username, ''), COALESCE(m.first_name, ''),
		       COALESCE(m.city, ''), COALESCE(m.branch, ''), a.level, s.xp
		FROM account_skills s
		JOIN accounts a ON a.user_id = s.user_id
		LEFT JOIN members m ON m.user_id = a.user_id
		WHERE s.skill_id = $1 AND s.xp > 1
		ORDER BY s.xp DESC, a.user_id
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, skillID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса рейтинга по навыку: %w", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Username, &e.FirstName, &e.City, &e.Branch, &e.Level, &e.Value); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки рейтинга: %w", err)
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения рейтинга: %w", err)
	}
	return out, nil
}
