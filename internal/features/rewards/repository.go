// repository.go хранит аккаунты, навыки, открытые ачивки
// и журнал тренировок в PostgreSQL.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/db/postgres"
	"volleylevel.by/academy-bot/internal/features/qrcodes"
)

// Имя частичного уникального индекса (user_id, qr_id, day).
const qrDailyIndex = "training_history_qr_daily"

// Repository реализует Store поверх pgxpool.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий леджера.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateAccount создаёт аккаунт и стартовые навыки. Повторный вызов ничего не меняет.
func (r *Repository) CreateAccount(ctx context.Context, userID int64, skills []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO accounts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ошибка создания аккаунта %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	for _, s := range skills {
		if _, err := tx.Exec(ctx, `
			INSERT INTO account_skills (user_id, skill_id, xp) VALUES ($1, $2, $3)
			ON CONFLICT (user_id, skill_id) DO NOTHING
		`, userID, s, SkillFloor); err != nil {
			return fmt.Errorf("ошибка создания навыка %s: %w", s, err)
		}
	}

	return tx.Commit(ctx)
}

// GetAccount читает аккаунт целиком.
func (r *Repository) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	return loadAccount(ctx, tx, userID, false)
}

// loadAccount читает строку accounts (при forUpdate с блокировкой),
// затем навыки и ачивки.
func loadAccount(ctx context.Context, tx pgx.Tx, userID int64, forUpdate bool) (*Account, error) {
	query := `
		SELECT user_id, level, level_xp, total_xp, trainings_completed, streak, last_training_date
		FROM accounts WHERE user_id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	acc := &Account{Skills: map[string]int64{}, Achievements: map[string]bool{}}
	err := tx.QueryRow(ctx, query, userID).Scan(
		&acc.UserID, &acc.Level, &acc.LevelXP, &acc.TotalXP,
		&acc.TrainingsCompleted, &acc.Streak, &acc.LastTrainingDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка чтения аккаунта %d: %w", userID, err)
	}

	rows, err := tx.Query(ctx, `SELECT skill_id, xp FROM account_skills WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения навыков: %w", err)
	}
	for rows.Next() {
		var id string
		var xp int64
		if err := rows.Scan(&id, &xp); err != nil {
			rows.Close()
			return nil, fmt.Errorf("ошибка сканирования навыка: %w", err)
		}
		acc.Skills[id] = xp
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения навыков: %w", err)
	}

	rows, err = tx.Query(ctx, `SELECT achievement_id FROM account_achievements WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ачивок игрока: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("ошибка сканирования ачивки: %w", err)
		}
		acc.Achievements[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения ачивок игрока: %w", err)
	}

	return acc, nil
}

// Apply выполняет read-modify-write аккаунта в одной транзакции.
// Строка аккаунта блокируется SELECT ... FOR UPDATE до коммита.
func (r *Repository) Apply(ctx context.Context, userID int64, fn func(*Account) (*Commit, error)) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	acc, err := loadAccount(ctx, tx, userID, true)
	if err != nil {
		return err
	}

	commit, err := fn(acc)
	if err != nil || commit == nil {
		return err
	}

	if commit.QRCodeID != "" {
		// Условный инкремент: при гонке с другим процессом лимит не превысится.
		tag, err := tx.Exec(ctx, `
			UPDATE qr_codes SET uses_count = uses_count + 1
			WHERE id = $1 AND (max_uses IS NULL OR uses_count < max_uses)
		`, commit.QRCodeID)
		if err != nil {
			return fmt.Errorf("ошибка обновления счётчика QR-кода: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return common.ErrQRMaxUses
		}
	}

	if err := writeAccount(ctx, tx, commit); err != nil {
		return err
	}

	if e := commit.Entry; e != nil {
		var qrID any
		if e.QRCodeID != "" {
			qrID = e.QRCodeID
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO training_history (user_id, created_at, day, label, xp_earned, source, qr_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, userID, e.Date, e.Day, e.Label, e.XPEarned, e.Source, qrID).Scan(&e.ID)
		if err != nil {
			if postgres.IsUniqueViolation(err, qrDailyIndex) {
				return common.ErrQRAlreadyRedeemed
			}
			return fmt.Errorf("ошибка записи в журнал тренировок: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if postgres.IsUniqueViolation(err, qrDailyIndex) {
			return common.ErrQRAlreadyRedeemed
		}
		return fmt.Errorf("ошибка коммита начисления: %w", err)
	}
	return nil
}

func writeAccount(ctx context.Context, tx pgx.Tx, c *Commit) error {
	a := c.Account
	_, err := tx.Exec(ctx, `
		UPDATE accounts
		SET level = $2, level_xp = $3, total_xp = $4, trainings_completed = $5,
		    streak = $6, last_training_date = $7, updated_at = NOW()
		WHERE user_id = $1
	`, a.UserID, a.Level, a.LevelXP, a.TotalXP, a.TrainingsCompleted, a.Streak, a.LastTrainingDate)
	if err != nil {
		return fmt.Errorf("ошибка обновления аккаунта %d: %w", a.UserID, err)
	}

	batch := &pgx.Batch{}
	for id, xp := range a.Skills {
		batch.Queue(`
			INSERT INTO account_skills (user_id, skill_id, xp) VALUES ($1, $2, $3)
			ON CONFLICT (user_id, skill_id) DO UPDATE SET xp = EXCLUDED.xp
		`, a.UserID, id, xp)
	}
	for _, id := range c.Unlocked {
		batch.Queue(`
			INSERT INTO account_achievements (user_id, achievement_id) VALUES ($1, $2)
			ON CONFLICT (user_id, achievement_id) DO NOTHING
		`, a.UserID, id)
	}
	for _, id := range c.Revoked {
		batch.Queue(`DELETE FROM account_achievements WHERE user_id = $1 AND achievement_id = $2`, a.UserID, id)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("ошибка сохранения навыков и ачивок: %w", err)
	}
	return nil
}

// GetQRCode читает код для проверки перед сканом.
func (r *Repository) GetQRCode(ctx context.Context, id string) (*qrcodes.QRCode, error) {
	q, err := qrcodes.ScanQRCode(r.db.QueryRow(ctx,
		`SELECT `+qrcodes.SelectColumns+` FROM qr_codes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrQRNotFound
		}
		return nil, fmt.Errorf("ошибка поиска QR-кода %s: %w", id, err)
	}
	return q, nil
}

// HasRedemption: игрок уже сканировал этот код в день day.
func (r *Repository) HasRedemption(ctx context.Context, userID int64, qrID string, day time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM training_history
			WHERE user_id = $1 AND qr_id = $2 AND day = $3
		)
	`, userID, qrID, day).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки скана: %w", err)
	}
	return exists, nil
}

// History возвращает последние limit записей журнала, новые сверху.
func (r *Repository) History(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, created_at, day, label, xp_earned, source, COALESCE(qr_id, '')
		FROM training_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса журнала: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.Day, &e.Label, &e.XPEarned, &e.Source, &e.QRCodeID); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала: %w", err)
	}
	return out, nil
}
