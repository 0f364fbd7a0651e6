// Package members управляет участниками академии: регистрацией, ролями, филиалом.
// models.go описывает структуры данных для работы с таблицей members.
package members

import (
	"strings"
	"time"

	"volleylevel.by/academy-bot/internal/common"
)

// Role: роль участника в академии.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTrainer Role = "TRAINER"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole разбирает роль без учёта регистра.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleStudent, RoleTrainer, RoleAdmin:
		return r, nil
	}
	return "", common.ErrUnknownRole
}

// IsStaff истинно для тренера и администратора, им можно начислять XP и создавать коды.
func (r Role) IsStaff() bool {
	return r == RoleTrainer || r == RoleAdmin
}

// Member: участник академии.
type Member struct {
	ID        int64     `db:"id" json:"-"`
	UserID    int64     `db:"user_id" json:"userId"`       // Telegram user ID
	Username  string    `db:"username" json:"username"`    // может быть пустым
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
	Role      Role      `db:"role" json:"role"`
	City      string    `db:"city" json:"city"`
	Branch    string    `db:"branch" json:"branch"`
	IsBanned  bool      `db:"is_banned" json:"-"`
	JoinedAt  time.Time `db:"joined_at" json:"joinedAt"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// UpdateInfo: данные из Telegram, которые могли поменяться.
type UpdateInfo struct {
	Username  string
	FirstName string
	LastName  string
}

// DisplayName возвращает @username, а без него имя и фамилию.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	return name
}

// Location: «Город, филиал» или пустая строка.
func (m *Member) Location() string {
	switch {
	case m.City != "" && m.Branch != "":
		return m.City + ", " + m.Branch
	case m.City != "":
		return m.City
	default:
		return m.Branch
	}
}
