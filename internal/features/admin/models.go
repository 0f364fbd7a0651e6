// Package admin реализует панель тренера с парольной аутентификацией.
// models.go описывает сессии, попытки входа и состояние пошаговых диалогов.
package admin

import "time"

// AdminSession: активная сессия тренера или администратора.
type AdminSession struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

// AdminState: состояние диалога с тренером (конечный автомат).
type AdminState struct {
	State     string
	Data      any // список участников или выбранный участник
	ExpiresAt time.Time
}

// Состояния диалога
const (
	StateNone             = ""
	StateAwaitingPassword = "awaiting_password"
	StateAssignRoleSelect = "assign_role_select" // ждём номер участника
	StateAssignRoleText   = "assign_role_text"   // ждём роль
)

// Параметры входа
const (
	MaxFailedAttempts = 3
	AttemptWindow     = time.Hour
	SessionTTL        = 24 * time.Hour
	StateTTL          = 5 * time.Minute
)
