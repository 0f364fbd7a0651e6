package achievements

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
)

// Store: хранилище определений. В проде это Repository.
type Store interface {
	List(ctx context.Context) ([]Definition, error)
	Get(ctx context.Context, id string) (*Definition, error)
	Insert(ctx context.Context, d *Definition) (bool, error)
	Update(ctx context.Context, d *Definition) error
	Delete(ctx context.Context, id string) error
}

// Service управляет каталогом ачивок.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// NewID строит id из названия: "Первый эйс" → "ach_pervyi_eis".
func NewID(title string) string {
	s := strings.ReplaceAll(slug.Make(title), "-", "_")
	if s == "" {
		return ""
	}
	return "ach_" + s
}

// Definitions возвращает все определения в порядке создания.
func (s *Service) Definitions(ctx context.Context) ([]Definition, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Definition, error) {
	return s.store.Get(ctx, id)
}

// Create проверяет условия и добавляет ачивку. Пустой id генерируется из названия.
func (s *Service) Create(ctx context.Context, d Definition) (*Definition, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return nil, common.ErrEmptyTitle
	}
	if err := d.Conditions.Validate(); err != nil {
		return nil, err
	}
	if d.ID == "" {
		d.ID = NewID(d.Title)
	}
	if d.ID == "" {
		return nil, common.ErrEmptyTitle
	}

	inserted, err := s.store.Insert(ctx, &d)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, common.ErrAchievementExists
	}

	log.WithFields(log.Fields{"achievement_id": d.ID, "title": d.Title}).Info("Создана ачивка")
	return &d, nil
}

func (s *Service) Update(ctx context.Context, d Definition) error {
	if strings.TrimSpace(d.Title) == "" {
		return common.ErrEmptyTitle
	}
	if err := d.Conditions.Validate(); err != nil {
		return err
	}
	return s.store.Update(ctx, &d)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	log.WithField("achievement_id", id).Info("Ачивка удалена")
	return nil
}

// SeedDefaults добавляет стандартные ачивки, не трогая уже существующие.
func (s *Service) SeedDefaults(ctx context.Context, defs []Definition) error {
	added := 0
	for i := range defs {
		ok, err := s.store.Insert(ctx, &defs[i])
		if err != nil {
			return fmt.Errorf("ачивка %s: %w", defs[i].ID, err)
		}
		if ok {
			added++
		}
	}
	if added > 0 {
		log.WithField("count", added).Info("Добавлены стандартные ачивки")
	}
	return nil
}
