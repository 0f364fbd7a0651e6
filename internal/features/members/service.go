// service.go содержит бизнес-логику управления участниками.
// Регистрация участника сразу открывает ему аккаунт прогресса.
package members

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
)

// Store: хранилище участников. В проде это Repository.
type Store interface {
	Create(ctx context.Context, m *Member) error
	GetByUserID(ctx context.Context, userID int64) (*Member, error)
	GetByUsername(ctx context.Context, username string) (*Member, error)
	Exists(ctx context.Context, userID int64) (bool, error)
	UpdateInfo(ctx context.Context, userID int64, info UpdateInfo) error
	UpdateRole(ctx context.Context, userID int64, role Role) error
	UpdateLocation(ctx context.Context, userID int64, city, branch string) error
	ListByRole(ctx context.Context, role Role) ([]*Member, error)
}

// AccountCreator создаёт аккаунт прогресса (реализуется леджером наград).
type AccountCreator interface {
	Register(ctx context.Context, userID int64) error
}

// Service управляет участниками академии.
type Service struct {
	repo     Store
	accounts AccountCreator
	adminIDs map[int64]bool
}

// NewService создаёт сервис. Участники из adminIDs получают роль ADMIN.
func NewService(repo Store, accounts AccountCreator, adminIDs []int64) *Service {
	ids := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = true
	}
	return &Service{repo: repo, accounts: accounts, adminIDs: ids}
}

// HandleNewMember регистрирует участника или обновляет имя вернувшегося.
// Аккаунт прогресса создаётся в обоих случаях (операция идемпотентна).
func (s *Service) HandleNewMember(ctx context.Context, userID int64, username, firstName, lastName string) error {
	existing, err := s.repo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		log.WithField("user_id", userID).Debug("Участник уже зарегистрирован, обновляем данные")
		if err := s.repo.UpdateInfo(ctx, existing.UserID, UpdateInfo{
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
		}); err != nil {
			return err
		}
	case errors.Is(err, common.ErrMemberNotFound):
		member := &Member{
			UserID:    userID,
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
			Role:      s.initialRole(userID),
		}
		if err := s.repo.Create(ctx, member); err != nil {
			return fmt.Errorf("ошибка регистрации нового участника: %w", err)
		}
		log.WithFields(log.Fields{
			"user_id":  userID,
			"username": username,
			"role":     member.Role,
		}).Info("Новый участник зарегистрирован")
	default:
		return err
	}

	if err := s.accounts.Register(ctx, userID); err != nil {
		return fmt.Errorf("ошибка создания аккаунта прогресса: %w", err)
	}
	return nil
}

func (s *Service) initialRole(userID int64) Role {
	if s.adminIDs[userID] {
		return RoleAdmin
	}
	return RoleStudent
}

// EnsureMember гарантирует, что пользователь есть в базе.
// Используется при первом сообщении боту.
func (s *Service) EnsureMember(ctx context.Context, userID int64, username, firstName, lastName string) error {
	exists, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.HandleNewMember(ctx, userID, username, firstName, lastName)
}

// IsMember проверяет, зарегистрирован ли пользователь.
func (s *Service) IsMember(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Exists(ctx, userID)
}

// IsStaff: тренер или админ. ADMIN_IDS считаются админами всегда.
func (s *Service) IsStaff(ctx context.Context, userID int64) (bool, error) {
	if s.adminIDs[userID] {
		return true, nil
	}
	m, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrMemberNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.Role.IsStaff(), nil
}

// IsAdmin: роль ADMIN или id из ADMIN_IDS.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if s.adminIDs[userID] {
		return true, nil
	}
	m, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrMemberNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.Role == RoleAdmin, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// GetByUsername возвращает участника по username (с @ или без).
func (s *Service) GetByUsername(ctx context.Context, username string) (*Member, error) {
	return s.repo.GetByUsername(ctx, strings.TrimPrefix(username, "@"))
}

// Resolve находит участника по "@username" или числовому id.
func (s *Service) Resolve(ctx context.Context, ref string) (*Member, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.ErrMemberNotFound
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.repo.GetByUserID(ctx, id)
	}
	return s.GetByUsername(ctx, ref)
}

// SetRole меняет роль участника.
func (s *Service) SetRole(ctx context.Context, userID int64, role Role) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": userID, "role": role}).Info("Роль участника изменена")
	return nil
}

// SetLocation задаёт город и филиал, в котором занимается игрок.
func (s *Service) SetLocation(ctx context.Context, userID int64, city, branch string) error {
	city, branch = strings.TrimSpace(city), strings.TrimSpace(branch)
	if city == "" || branch == "" {
		return common.ErrEmptyTitle
	}
	return s.repo.UpdateLocation(ctx, userID, city, branch)
}

// ListByRole: участники с ролью role.
func (s *Service) ListByRole(ctx context.Context, role Role) ([]*Member, error) {
	return s.repo.ListByRole(ctx, role)
}
