package rewards

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/qrcodes"
)

// Redeem гасит QR-код: проверяет срок, лимит и повторный скан за день,
// затем начисляет XP как тренировку.
//
// Порядок блокировок всегда «код, потом аккаунт». Хранилище повторяет
// проверки лимита и уникальности внутри транзакции, так что гонка между
// процессами тоже заканчивается ErrQRMaxUses или ErrQRAlreadyRedeemed.
func (l *Ledger) Redeem(ctx context.Context, userID int64, qrID string) (*Result, error) {
	unlockCode := l.codes.Lock(qrID)
	defer unlockCode()

	q, err := l.store.GetQRCode(ctx, qrID)
	if err != nil {
		return nil, err
	}
	if err := l.checkCode(q); err != nil {
		logRejected(userID, qrID, err)
		return nil, err
	}

	// Блокировку аккаунта берёт apply, HasRedemption проверяем до неё:
	// код уже заблокирован, второй скан этого же кода сюда не попадёт.
	done, err := l.store.HasRedemption(ctx, userID, qrID, l.clock.Today())
	if err != nil {
		return nil, err
	}
	if done {
		logRejected(userID, qrID, common.ErrQRAlreadyRedeemed)
		return nil, common.ErrQRAlreadyRedeemed
	}

	res, err := l.apply(ctx, redemptionEvent(userID, q))
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			logRejected(userID, qrID, err)
		}
		return nil, err
	}
	return res, nil
}

func (l *Ledger) checkCode(q *qrcodes.QRCode) error {
	if q.IsExpired(l.clock.Now()) {
		return common.ErrQRExpired
	}
	if q.IsExhausted() {
		return common.ErrQRMaxUses
	}
	return nil
}

// redemptionEvent строит начисление из кода. Скан всегда засчитывается как тренировка.
func redemptionEvent(userID int64, q *qrcodes.QRCode) event {
	payout := q.Payout()
	lines := make([]SkillLine, len(payout))
	for i, p := range payout {
		lines[i] = SkillLine{SkillID: p.SkillID, XP: p.XPAmount}
	}

	label := q.Title
	if label == "" {
		label = lines[0].SkillID
	}
	return event{
		userID:           userID,
		lines:            lines,
		countsAsTraining: true,
		label:            label,
		source:           SourceQR,
		qrCodeID:         q.ID,
		forceAchievement: q.AchievementID,
	}
}

// Отказ в скане штатный, пишем в Info.
func logRejected(userID int64, qrID string, err error) {
	log.WithFields(log.Fields{
		"user_id": userID,
		"qr_id":   qrID,
		"reason":  err.Error(),
	}).Info("Скан QR-кода отклонён")
}
