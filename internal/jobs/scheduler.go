// Package jobs запускает фоновые задачи по расписанию (cron).
// Время расписания считается в поясе академии.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// ReminderSender рассылает напоминания о сериях. В проде это streak.Service.
type ReminderSender interface {
	SendReminders(ctx context.Context, sendFunc func(userID int64, text string)) (int, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	loc      *time.Location
	streak   ReminderSender
	sendFunc func(userID int64, text string)
}

// NewScheduler создаёт планировщик в поясе loc.
func NewScheduler(loc *time.Location, streak ReminderSender, sendFunc func(userID int64, text string)) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		loc:      loc,
		streak:   streak,
		sendFunc: sendFunc,
	}
}

// Start регистрирует задачи и запускает cron. reminderSpec: стандартное
// cron-выражение из STREAK_REMINDER_CRON.
func (s *Scheduler) Start(ctx context.Context, reminderSpec string) error {
	if _, err := s.cron.AddFunc(reminderSpec, func() { s.runReminders(ctx) }); err != nil {
		return fmt.Errorf("некорректное расписание напоминаний %q: %w", reminderSpec, err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"timezone":  s.loc.String(),
		"reminders": reminderSpec,
	}).Info("Планировщик задач запущен")
	return nil
}

func (s *Scheduler) runReminders(ctx context.Context) {
	log.Debug("[CRON] Проверка серий под угрозой")
	sent, err := s.streak.SendReminders(ctx, s.sendFunc)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка рассылки напоминаний")
		return
	}
	log.WithField("sent", sent).Debug("[CRON] Напоминания готовы")
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
