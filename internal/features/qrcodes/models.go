// Package qrcodes управляет QR-кодами тренировок: создание тренером,
// список, статистика сканирований. Само погашение кода делает rewards.
package qrcodes

import "time"

// GeneralSkill: метка XP без конкретного навыка.
const GeneralSkill = "general"

// SkillXP описывает строку выплаты.
type SkillXP struct {
	SkillID  string `json:"skillId"`
	XPAmount int64  `json:"xpAmount"`
}

// QRCode: код, который игрок сканирует на тренировке.
type QRCode struct {
	ID               string     `db:"id" json:"id"`
	Title            string     `db:"title" json:"title"`
	City             string     `db:"city" json:"city"`
	Branch           string     `db:"branch" json:"branch"`
	XPAmount         int64      `db:"xp_amount" json:"xpAmount"`
	SkillID          string     `db:"skill_id" json:"skillId,omitempty"`       // старый формат: один навык
	Skills           []SkillXP  `db:"skills" json:"skills,omitempty"`          // новый формат, важнее SkillID
	AchievementID    string     `db:"achievement_id" json:"achievementId,omitempty"`
	IsTrainingPreset bool       `db:"is_training_preset" json:"isTrainingPreset"`
	MaxUses          *int       `db:"max_uses" json:"maxUses,omitempty"`
	UsesCount        int        `db:"uses_count" json:"usesCount"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	ExpiresAt        *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
}

// Payout возвращает строки выплаты. Непустой Skills важнее пары SkillID/XPAmount.
func (q *QRCode) Payout() []SkillXP {
	if len(q.Skills) > 0 {
		out := make([]SkillXP, len(q.Skills))
		copy(out, q.Skills)
		return out
	}
	skill := q.SkillID
	if skill == "" {
		skill = GeneralSkill
	}
	return []SkillXP{{SkillID: skill, XPAmount: q.XPAmount}}
}

// IsExpired: код просрочен к моменту now.
func (q *QRCode) IsExpired(now time.Time) bool {
	return q.ExpiresAt != nil && now.After(*q.ExpiresAt)
}

// IsExhausted: лимит использований исчерпан.
func (q *QRCode) IsExhausted() bool {
	return q.MaxUses != nil && q.UsesCount >= *q.MaxUses
}

// ScanStats: статистика сканирований кода.
type ScanStats struct {
	TotalScans  int   `json:"totalScans"`
	UniqueUsers int   `json:"uniqueUsers"`
	TotalXP     int64 `json:"totalXp"`
}
