// repository.go работает с таблицей achievements.
// Условия лежат в JSONB, pgx сам кодирует и декодирует структуру Conditions.
package achievements

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"volleylevel.by/academy-bot/internal/common"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectDefinitions = `
	SELECT id, title, description, COALESCE(image_url, ''), conditions, created_at
	FROM achievements
`

// List возвращает все определения в порядке создания.
// Этот порядок задаёт порядок выдачи новых ачивок.
func (r *Repository) List(ctx context.Context) ([]Definition, error) {
	rows, err := r.db.Query(ctx, selectDefinitions+` ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса ачивок: %w", err)
	}
	defer rows.Close()

	var out []Definition
	for rows.Next() {
		var d Definition
		if err := rows.Scan(&d.ID, &d.Title, &d.Description, &d.ImageURL, &d.Conditions, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ачивки: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения ачивок: %w", err)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Definition, error) {
	var d Definition
	err := r.db.QueryRow(ctx, selectDefinitions+` WHERE id = $1`, id).Scan(
		&d.ID, &d.Title, &d.Description, &d.ImageURL, &d.Conditions, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrAchievementNotFound
		}
		return nil, fmt.Errorf("ошибка поиска ачивки %s: %w", id, err)
	}
	return &d, nil
}

// Insert добавляет ачивку. Если id уже занят, возвращает false.
func (r *Repository) Insert(ctx context.Context, d *Definition) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO achievements (id, title, description, image_url, conditions)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (id) DO NOTHING
	`, d.ID, d.Title, d.Description, d.ImageURL, d.Conditions)
	if err != nil {
		return false, fmt.Errorf("ошибка создания ачивки: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) Update(ctx context.Context, d *Definition) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE achievements
		SET title = $2, description = $3, image_url = NULLIF($4, ''), conditions = $5
		WHERE id = $1
	`, d.ID, d.Title, d.Description, d.ImageURL, d.Conditions)
	if err != nil {
		return fmt.Errorf("ошибка обновления ачивки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAchievementNotFound
	}
	return nil
}

// Delete удаляет определение вместе с выданными экземплярами (ON DELETE CASCADE).
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM achievements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления ачивки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAchievementNotFound
	}
	return nil
}
