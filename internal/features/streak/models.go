// Package streak управляет сериями тренировок (огоньками).
// models.go описывает данные для напоминаний.
package streak

import "time"

// AtRisk: игрок, который тренировался вчера и сегодня ещё нет.
// Если он пропустит сегодняшний день, серия сгорит.
type AtRisk struct {
	UserID           int64     `db:"user_id"`
	Streak           int       `db:"streak"`
	LastTrainingDate time.Time `db:"last_training_date"`
}

// State: серия игрока для показа в !огонек.
type State struct {
	Streak           int
	LastTrainingDate *time.Time
}
