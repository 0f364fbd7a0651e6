// service.go рассылает напоминания тем, у кого серия может сгореть.
package streak

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
)

// Store: хранилище серий. В проде это Repository.
type Store interface {
	ListAtRisk(ctx context.Context, minStreak int, yesterday, today time.Time) ([]AtRisk, error)
	MarkReminded(ctx context.Context, userID int64, day time.Time) error
	GetState(ctx context.Context, userID int64) (*State, error)
}

// Service управляет напоминаниями о сериях.
type Service struct {
	store     Store
	clock     *common.Clock
	threshold int
}

// NewService создаёт сервис. threshold: минимальная серия, ради которой стоит напоминать.
func NewService(store Store, clock *common.Clock, threshold int) *Service {
	if threshold < 1 {
		threshold = 1
	}
	return &Service{store: store, clock: clock, threshold: threshold}
}

// GetState возвращает серию игрока.
func (s *Service) GetState(ctx context.Context, userID int64) (*State, error) {
	return s.store.GetState(ctx, userID)
}

// Today: текущая дата академии.
func (s *Service) Today() time.Time {
	return s.clock.Today()
}

// SendReminders отправляет одно напоминание в день каждому игроку с серией под угрозой.
// Возвращает количество отправленных напоминаний.
func (s *Service) SendReminders(ctx context.Context, sendFunc func(userID int64, text string)) (int, error) {
	today := s.clock.Today()
	yesterday := today.AddDate(0, 0, -1)

	list, err := s.store.ListAtRisk(ctx, s.threshold, yesterday, today)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, a := range list {
		// отмечаем до отправки: лучше потерять одно напоминание, чем прислать два
		if err := s.store.MarkReminded(ctx, a.UserID, today); err != nil {
			log.WithError(err).WithField("user_id", a.UserID).Error("Ошибка отметки напоминания")
			continue
		}
		sendFunc(a.UserID, ReminderText(a.Streak))
		sent++
	}

	log.WithFields(log.Fields{
		"at_risk": len(list),
		"sent":    sent,
	}).Info("Напоминания о сериях разосланы")

	return sent, nil
}

// ReminderText: текст напоминания.
func ReminderText(streak int) string {
	return fmt.Sprintf(
		"🔥 Твоя серия: %d %s подряд!\n\nСегодня тренировки ещё не было. "+
			"Отметься на тренировке, чтобы огонек не погас.",
		streak, common.PluralizeDays(streak),
	)
}
