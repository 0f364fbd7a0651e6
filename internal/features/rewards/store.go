package rewards

import (
	"context"
	"time"

	"volleylevel.by/academy-bot/internal/features/qrcodes"
)

// Store: хранилище леджера.
//
// Apply читает аккаунт под блокировкой, вызывает fn и атомарно записывает
// возвращённый Commit. Если fn вернул ошибку или nil, ничего не пишется.
// Для Commit с QRCodeID хранилище само повторно проверяет лимит использований
// (ErrQRMaxUses) и уникальность скана за день (ErrQRAlreadyRedeemed).
type Store interface {
	CreateAccount(ctx context.Context, userID int64, skills []string) error
	GetAccount(ctx context.Context, userID int64) (*Account, error)
	Apply(ctx context.Context, userID int64, fn func(acc *Account) (*Commit, error)) error

	GetQRCode(ctx context.Context, id string) (*qrcodes.QRCode, error)
	HasRedemption(ctx context.Context, userID int64, qrID string, day time.Time) (bool, error)

	History(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error)
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
