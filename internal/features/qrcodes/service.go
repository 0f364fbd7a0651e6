package qrcodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
)

// Store: хранилище кодов. В проде это Repository.
type Store interface {
	Insert(ctx context.Context, q *QRCode) (bool, error)
	Get(ctx context.Context, id string) (*QRCode, error)
	List(ctx context.Context) ([]*QRCode, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, id string) (*ScanStats, error)
}

// CreateParams: данные нового кода от тренера.
type CreateParams struct {
	Title            string
	City             string
	Branch           string
	XPAmount         int64
	SkillID          string
	Skills           []SkillXP
	AchievementID    string
	IsTrainingPreset bool
	MaxUses          *int
	ExpiresIn        time.Duration
}

// Service управляет QR-кодами.
type Service struct {
	store      Store
	clock      *common.Clock
	skillKnown func(string) bool
}

// NewService создаёт сервис. skillKnown проверяет id навыка по каталогу.
func NewService(store Store, clock *common.Clock, skillKnown func(string) bool) *Service {
	return &Service{store: store, clock: clock, skillKnown: skillKnown}
}

// NewID генерирует id кода: qr_<uuid>.
func NewID() string {
	return "qr_" + uuid.NewString()
}

// DeepLink: ссылка, которая открывает бота и сразу гасит код.
func DeepLink(botUserName, id string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUserName, id)
}

// Create проверяет параметры и сохраняет код.
// Для кода из нескольких навыков XPAmount равен сумме строк.
func (s *Service) Create(ctx context.Context, p CreateParams) (*QRCode, error) {
	q := &QRCode{
		ID:               NewID(),
		Title:            strings.TrimSpace(p.Title),
		City:             strings.TrimSpace(p.City),
		Branch:           strings.TrimSpace(p.Branch),
		AchievementID:    p.AchievementID,
		IsTrainingPreset: p.IsTrainingPreset,
		MaxUses:          p.MaxUses,
		CreatedAt:        s.clock.Now(),
	}
	if q.Title == "" {
		return nil, common.ErrEmptyTitle
	}
	if p.MaxUses != nil && *p.MaxUses < 1 {
		return nil, common.ErrInvalidAmount
	}
	if p.ExpiresIn < 0 {
		return nil, common.ErrInvalidAmount
	}
	if p.ExpiresIn > 0 {
		exp := q.CreatedAt.Add(p.ExpiresIn)
		q.ExpiresAt = &exp
	}

	if len(p.Skills) > 0 {
		for _, l := range p.Skills {
			if l.XPAmount <= 0 {
				return nil, common.ErrInvalidAmount
			}
			if !s.validSkill(l.SkillID) {
				return nil, fmt.Errorf("навык %q: %w", l.SkillID, common.ErrInvalidArgument)
			}
			q.XPAmount += l.XPAmount
		}
		q.Skills = append([]SkillXP(nil), p.Skills...)
	} else {
		if p.XPAmount <= 0 {
			return nil, common.ErrInvalidAmount
		}
		if p.SkillID != "" && p.SkillID != GeneralSkill && !s.validSkill(p.SkillID) {
			return nil, fmt.Errorf("навык %q: %w", p.SkillID, common.ErrInvalidArgument)
		}
		if p.SkillID != GeneralSkill {
			q.SkillID = p.SkillID
		}
		q.XPAmount = p.XPAmount
	}

	if _, err := s.store.Insert(ctx, q); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"qr_id":  q.ID,
		"title":  q.Title,
		"xp":     q.XPAmount,
		"branch": q.Branch,
	}).Info("Создан QR-код")
	return q, nil
}

func (s *Service) validSkill(id string) bool {
	return s.skillKnown == nil || s.skillKnown(id)
}

// Seed создаёт код с заданным id, если его ещё нет.
func (s *Service) Seed(ctx context.Context, q *QRCode) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.clock.Now()
	}
	added, err := s.store.Insert(ctx, q)
	if err != nil {
		return err
	}
	if added {
		log.WithField("qr_id", q.ID).Info("Добавлен QR-код по умолчанию")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*QRCode, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*QRCode, error) {
	return s.store.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Stats возвращает код вместе со статистикой сканирований.
func (s *Service) Stats(ctx context.Context, id string) (*QRCode, *ScanStats, error) {
	q, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	st, err := s.store.Stats(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return q, st, nil
}
