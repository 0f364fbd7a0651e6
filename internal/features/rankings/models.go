// Package rankings строит таблицы лидеров: по общему XP, по серии и по навыку.
package rankings

import "time"

// Board: вид таблицы.
type Board string

const (
	BoardXP     Board = "xp"
	BoardStreak Board = "streak"
	BoardSkill  Board = "skill"
)

// DefaultLimit: сколько строк показывать, если не задано.
const DefaultLimit = 10

// CacheTTL: как долго таблица живёт в кэше.
const CacheTTL = 30 * time.Second

// Query описывает, какую таблицу построить.
type Query struct {
	Board Board  `json:"board"`
	Skill string `json:"skill,omitempty"`
	City  string `json:"city,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

func (q Query) key() string {
	return string(q.Board) + "|" + q.Skill + "|" + q.City
}

// Entry: строка таблицы.
type Entry struct {
	Rank      int    `json:"rank"`
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	City      string `json:"city"`
	Branch    string `json:"branch"`
	Level     int    `json:"level"`
	Value     int64  `json:"value"`
}

// Name: как показывать игрока в таблице.
func (e Entry) Name() string {
	switch {
	case e.Username != "":
		return "@" + e.Username
	case e.FirstName != "":
		return e.FirstName
	default:
		return "игрок"
	}
}
