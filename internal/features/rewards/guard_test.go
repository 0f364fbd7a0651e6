package rewards

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/achievements"
	"volleylevel.by/academy-bot/internal/features/qrcodes"
)

func intPtr(v int) *int { return &v }

func TestRedeemAwardsTraining(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_hall", Title: "Тренировка в зале", XPAmount: 150})
	l := newLedger(store, wednesday)
	registered(t, l, 1)

	res, err := l.Redeem(ctx, 1, "qr_hall")
	require.NoError(t, err)

	assert.Equal(t, int64(150), res.XPAwarded)
	assert.Equal(t, 1, res.Account.TrainingsCompleted)
	assert.Equal(t, 1, res.Account.Streak)
	assert.Equal(t, SourceQR, res.Entry.Source)
	assert.Equal(t, "Тренировка в зале", res.Entry.Label)
	assert.Equal(t, "qr_hall", res.Entry.QRCodeID)

	q, _ := store.GetQRCode(ctx, "qr_hall")
	assert.Equal(t, 1, q.UsesCount)
}

func TestRedeemMultiSkillOnWeekend(t *testing.T) {
	store := NewMemoryStore()
	store.AddQRCode(&qrcodes.QRCode{
		ID:       "qr_preset",
		Title:    "Атака + Блок",
		XPAmount: 999, // игнорируется: строки важнее
		SkillID:  "serve",
		Skills:   []qrcodes.SkillXP{{SkillID: "attack", XPAmount: 15}, {SkillID: "block", XPAmount: 15}},
	})
	l := newLedger(store, saturday)
	registered(t, l, 1)

	res, err := l.Redeem(context.Background(), 1, "qr_preset")
	require.NoError(t, err)
	assert.Equal(t, int64(60), res.XPAwarded)
	assert.Equal(t, int64(31), res.Account.Skills["attack"])
	assert.Equal(t, int64(31), res.Account.Skills["block"])
	assert.Equal(t, int64(1), res.Account.Skills["serve"])
}

func TestRedeemRejections(t *testing.T) {
	ctx := context.Background()
	past := wednesday.Add(-time.Hour)
	future := wednesday.Add(time.Hour)

	store := NewMemoryStore()
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_expired", Title: "Старый", XPAmount: 10, ExpiresAt: &past})
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_live", Title: "Живой", XPAmount: 10, ExpiresAt: &future})
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_full", Title: "Полный", XPAmount: 10, MaxUses: intPtr(2), UsesCount: 2})
	l := newLedger(store, wednesday)
	registered(t, l, 1)

	_, err := l.Redeem(ctx, 1, "qr_missing")
	assert.ErrorIs(t, err, common.ErrQRNotFound)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = l.Redeem(ctx, 1, "qr_expired")
	assert.ErrorIs(t, err, common.ErrQRExpired)
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = l.Redeem(ctx, 1, "qr_full")
	assert.ErrorIs(t, err, common.ErrQRMaxUses)

	_, err = l.Redeem(ctx, 1, "qr_live")
	require.NoError(t, err)

	_, err = l.Redeem(ctx, 404, "qr_live")
	assert.ErrorIs(t, err, common.ErrAccountNotFound)

	// отказы ничего не записали
	acc, _ := l.Account(ctx, 1)
	assert.Equal(t, int64(10), acc.TotalXP)
	q, _ := store.GetQRCode(ctx, "qr_expired")
	assert.Zero(t, q.UsesCount)
	q, _ = store.GetQRCode(ctx, "qr_live")
	assert.Equal(t, 1, q.UsesCount)
}

func TestRedeemRejectsHugePayout(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_huge", Title: "Сломанный", XPAmount: math.MaxInt64})
	store.AddQRCode(&qrcodes.QRCode{
		ID:    "qr_huge_preset",
		Title: "Сломанный пресет",
		Skills: []qrcodes.SkillXP{
			{SkillID: "attack", XPAmount: math.MaxInt64},
			{SkillID: "block", XPAmount: math.MaxInt64},
		},
	})
	l := newLedger(store, saturday)
	registered(t, l, 1)

	for _, id := range []string{"qr_huge", "qr_huge_preset"} {
		_, err := l.Redeem(ctx, 1, id)
		assert.ErrorIs(t, err, common.ErrAmountTooLarge, id)

		q, _ := store.GetQRCode(ctx, id)
		assert.Zero(t, q.UsesCount, id)
	}

	acc, _ := l.Account(ctx, 1)
	assert.Zero(t, acc.TotalXP)
	assert.Zero(t, acc.TrainingsCompleted)
	history, _ := l.History(ctx, 1, 10)
	assert.Empty(t, history)
}

func TestRedeemOncePerDay(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_a", Title: "A", XPAmount: 10})
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_b", Title: "B", XPAmount: 10})
	l := newLedger(store, wednesday)
	registered(t, l, 1)

	_, err := l.Redeem(ctx, 1, "qr_a")
	require.NoError(t, err)

	_, err = l.Redeem(ctx, 1, "qr_a")
	assert.ErrorIs(t, err, common.ErrQRAlreadyRedeemed)
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = l.Redeem(ctx, 1, "qr_b")
	require.NoError(t, err, "другой код в тот же день")

	// ручная тренировка не мешает скану
	_, err = l.LogTraining(ctx, TrainingLog{UserID: 1, Skills: []SkillLine{{"serve", 5}}, CountsAsTraining: true})
	require.NoError(t, err)

	_, err = newLedger(store, wednesday.AddDate(0, 0, 1)).Redeem(ctx, 1, "qr_a")
	require.NoError(t, err, "на следующий день код снова работает")

	acc, _ := l.Account(ctx, 1)
	assert.Equal(t, int64(35), acc.TotalXP)
	assert.Equal(t, 2, acc.Streak)
	q, _ := store.GetQRCode(ctx, "qr_a")
	assert.Equal(t, 2, q.UsesCount)
}

func TestRedeemMaxUsesUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_one", Title: "Один", XPAmount: 10, MaxUses: intPtr(1)})
	l := newLedger(store, wednesday)

	const players = 20
	for i := int64(1); i <= players; i++ {
		registered(t, l, i)
	}

	var wg sync.WaitGroup
	results := make(chan error, players)
	for i := int64(1); i <= players; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := l.Redeem(ctx, userID, "qr_one")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, common.ErrQRMaxUses)
	}
	assert.Equal(t, 1, ok)

	q, _ := store.GetQRCode(ctx, "qr_one")
	assert.Equal(t, 1, q.UsesCount)
}

func TestRedeemSameUserConcurrently(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_hall", Title: "Зал", XPAmount: 10})
	l := newLedger(store, wednesday)
	registered(t, l, 1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Redeem(ctx, 1, "qr_hall"); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	acc, _ := l.Account(ctx, 1)
	assert.Equal(t, int64(10), acc.TotalXP)
}

func TestRedeemForcesAchievement(t *testing.T) {
	ctx := context.Background()
	defs := []achievements.Definition{
		{ID: "welcome", Title: "Добро пожаловать"},
		{ID: "camp", Title: "Летний лагерь", Conditions: achievements.Conditions{MinLevel: achievements.Int(99)}},
	}
	store := NewMemoryStore()
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_camp", Title: "Лагерь", XPAmount: 10, AchievementID: "camp"})
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_ghost", Title: "Призрак", XPAmount: 10, AchievementID: "deleted"})
	l := newLedger(store, wednesday, defs...)
	registered(t, l, 1)

	res, err := l.Redeem(ctx, 1, "qr_camp")
	require.NoError(t, err)
	require.Len(t, res.NewlyUnlocked, 2)
	assert.Equal(t, "camp", res.NewlyUnlocked[0].ID)
	assert.Equal(t, "welcome", res.NewlyUnlocked[1].ID)

	res, err = l.Redeem(ctx, 1, "qr_ghost")
	require.NoError(t, err, "ачивки нет в списке, но скан проходит")
	assert.Empty(t, res.NewlyUnlocked)
	assert.False(t, res.Account.Achievements["deleted"])
}

func TestMemoryStoreRechecksLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_full", XPAmount: 10, MaxUses: intPtr(1), UsesCount: 1})
	require.NoError(t, store.CreateAccount(ctx, 1, nil))

	err := store.Apply(ctx, 1, func(acc *Account) (*Commit, error) {
		acc.TotalXP = 1000
		return &Commit{Account: acc, QRCodeID: "qr_full", Entry: &HistoryEntry{Day: wednesday}}, nil
	})
	assert.ErrorIs(t, err, common.ErrQRMaxUses)

	acc, _ := store.GetAccount(ctx, 1)
	assert.Zero(t, acc.TotalXP)
}
