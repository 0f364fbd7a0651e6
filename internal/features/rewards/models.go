// Package rewards ведёт леджер наград. Начисления (бонус тренера,
// записанная тренировка, скан QR-кода) превращаются в новое состояние аккаунта игрока.
// Каждое начисление сохраняется целиком или не сохраняется вовсе.
package rewards

import (
	"math"
	"time"

	"volleylevel.by/academy-bot/internal/features/achievements"
	"volleylevel.by/academy-bot/internal/features/progression"
)

// SkillFloor: стартовое значение каждого навыка при регистрации.
const SkillFloor = 1

// MaxEventXP ограничивает сумму строк одного начисления. Удвоенная
// в выходные сумма и счётчики аккаунта остаются в пределах int64.
const MaxEventXP = math.MaxInt64 / 4

// GeneralSkill помечает строку без навыка, она идёт только в общий XP.
const GeneralSkill = "general"

// Источники записей в журнале тренировок.
const (
	SourceBonus    = "xp_bonus"
	SourceTraining = "training"
	SourcePreset   = "preset"
	SourceQR       = "qr"
)

// Account: прогресс игрока.
type Account struct {
	UserID             int64
	Level              int
	LevelXP            int64 // XP внутри текущего уровня
	TotalXP            int64 // весь XP за всё время, не сбрасывается
	Skills             map[string]int64
	TrainingsCompleted int
	Streak             int
	LastTrainingDate   *time.Time
	Achievements       map[string]bool
}

// NewAccount создаёт аккаунт нового игрока на уровне 1 с навыками на стартовом значении.
func NewAccount(userID int64, skills []string) *Account {
	a := &Account{
		UserID:       userID,
		Level:        1,
		Skills:       make(map[string]int64, len(skills)),
		Achievements: make(map[string]bool),
	}
	for _, s := range skills {
		a.Skills[s] = SkillFloor
	}
	return a
}

// Clone делает глубокую копию, чтобы отказ в начислении не задел исходник.
func (a *Account) Clone() *Account {
	c := *a
	c.Skills = make(map[string]int64, len(a.Skills))
	for k, v := range a.Skills {
		c.Skills[k] = v
	}
	c.Achievements = make(map[string]bool, len(a.Achievements))
	for k, v := range a.Achievements {
		c.Achievements[k] = v
	}
	if a.LastTrainingDate != nil {
		d := *a.LastTrainingDate
		c.LastTrainingDate = &d
	}
	return &c
}

// LevelState возвращает часть аккаунта, которой управляет progression.
func (a *Account) LevelState() progression.LevelState {
	return progression.LevelState{Level: a.Level, LevelXP: a.LevelXP, TotalXP: a.TotalXP}
}

func (a *Account) setLevelState(s progression.LevelState) {
	a.Level, a.LevelXP, a.TotalXP = s.Level, s.LevelXP, s.TotalXP
}

// Stats: срез для проверки условий ачивок.
func (a *Account) Stats() achievements.Stats {
	return achievements.Stats{
		Level:              a.Level,
		TrainingsCompleted: a.TrainingsCompleted,
		Streak:             a.Streak,
		TotalXP:            a.TotalXP,
		Skills:             a.Skills,
		Unlocked:           a.Achievements,
	}
}

// SkillLine: одна строка начисления.
type SkillLine struct {
	SkillID string `json:"skillId"`
	XP      int64  `json:"xpAmount"`
}

// ManualAward: бонус от тренера. Не считается тренировкой и не двигает серию.
type ManualAward struct {
	UserID  int64
	XP      int64
	SkillID string // пусто = общий XP
}

// TrainingLog: записанная тренировка из одной или нескольких строк.
// Label: название готовой тренировки; если пусто, собирается из id навыков.
type TrainingLog struct {
	UserID           int64
	Skills           []SkillLine
	CountsAsTraining bool
	Label            string
}

// HistoryEntry: запись журнала, одна на каждое начисление.
type HistoryEntry struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"userId"`
	Date     time.Time `json:"date"`
	Day      time.Time `json:"-"` // календарная дата академии
	Label    string    `json:"label"`
	XPEarned int64     `json:"xpEarned"`
	Source   string    `json:"source"`
	QRCodeID string    `json:"qrId,omitempty"`
}

// Result: итог начисления.
type Result struct {
	Account       *Account
	Entry         HistoryEntry
	XPAwarded     int64
	IsBonusDay    bool
	LeveledUp     bool
	SkillUpdates  map[string]int64 // сколько XP добавлено каждому навыку
	NewlyUnlocked []achievements.Definition
}

// Commit: всё, что нужно записать за одно начисление, одной транзакцией.
type Commit struct {
	Account  *Account
	Entry    *HistoryEntry
	Unlocked []string
	Revoked  []string
	// QRCodeID не пустой: увеличить uses_count с проверкой лимита
	// и проверить уникальность (игрок, код, день).
	QRCodeID string
}

// StatsOverride: ручная правка показателей админом. nil = не менять.
type StatsOverride struct {
	Level              *int   `json:"level,omitempty"`
	LevelXP            *int64 `json:"xp,omitempty"`
	TotalXP            *int64 `json:"totalXp,omitempty"`
	TrainingsCompleted *int   `json:"trainingsCompleted,omitempty"`
	Streak             *int   `json:"streak,omitempty"`
}
