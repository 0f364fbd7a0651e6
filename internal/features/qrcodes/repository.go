// repository.go работает с таблицей qr_codes.
package qrcodes

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

// SelectColumns: колонки qr_codes в порядке ScanQRCode.
const SelectColumns = `
	id, title, city, branch, xp_amount, COALESCE(skill_id, ''), skills,
	COALESCE(achievement_id, ''), is_training_preset, max_uses, uses_count,
	created_at, expires_at
`

// ScanQRCode читает одну строку qr_codes (общий для пакетов, работающих с кодами).
func ScanQRCode(row pgx.Row) (*QRCode, error) {
	var q QRCode
	err := row.Scan(
		&q.ID, &q.Title, &q.City, &q.Branch, &q.XPAmount, &q.SkillID, &q.Skills,
		&q.AchievementID, &q.IsTrainingPreset, &q.MaxUses, &q.UsesCount,
		&q.CreatedAt, &q.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Insert добавляет код. Если id занят, возвращает false.
func (r *Repository) Insert(ctx context.Context, q *QRCode) (bool, error) {
	var skills any
	if len(q.Skills) > 0 {
		skills = q.Skills
	}
	tag, err := r.db.Exec(ctx, `
		INSERT INTO qr_codes (id, title, city, branch, xp_amount, skill_id, skills,
		                      achievement_id, is_training_preset, max_uses, expires_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`, q.ID, q.Title, q.City, q.Branch, q.XPAmount, q.SkillID, skills,
		q.AchievementID, q.IsTrainingPreset, q.MaxUses, q.ExpiresAt)
	if err != nil {
		return false, fmt.Errorf("ошибка создания QR-кода: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*QRCode, error) {
	q, err := ScanQRCode(r.db.QueryRow(ctx, `SELECT `+SelectColumns+` FROM qr_codes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrQRNotFound
		}
		return nil, fmt.Errorf("ошибка поиска QR-кода %s: %w", id, err)
	}
	return q, nil
}

// List возвращает коды, новые сверху.
func (r *Repository) List(ctx context.Context) ([]*QRCode, error) {
	rows, err := r.db.Query(ctx, `SELECT `+SelectColumns+` FROM qr_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса QR-кодов: %w", err)
	}
	defer rows.Close()

	var out []*QRCode
	for rows.Next() {
		q, err := ScanQRCode(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования QR-кода: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения QR-кодов: %w", err)
	}
	return out, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM qr_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления QR-кода: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrQRNotFound
	}
	return nil
}

// Stats считает сканирования по журналу тренировок.
func (r *Repository) Stats(ctx context.Context, id string) (*ScanStats, error) {
	var s ScanStats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT user_id), COALESCE(SUM(xp_earned), 0)
		FROM training_history
		WHERE qr_id = $1
	`, id).Scan(&s.TotalScans, &s.UniqueUsers, &s.TotalXP)
	if err != nil {
		return nil, fmt.Errorf("ошибка статистики QR-кода: %w", err)
	}
	return &s, nil
}
