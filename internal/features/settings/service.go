package settings

import (
	"context"
	"strconv"

	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/features/progression"
)

// Ключи в таблице settings.
const (
	KeyXPPerLevel   = "xp_per_level"
	KeyXPMultiplier = "xp_multiplier"
)

// Store: хранилище настроек. В проде это Repository.
type Store interface {
	GetAll(ctx context.Context) (map[string]string, error)
	SetMany(ctx context.Context, values map[string]string) error
}

// Service отдаёт формулу XP. Значения читаются на каждый вызов,
// поэтому правка админа действует со следующего начисления.
type Service struct {
	store    Store
	defaults progression.XPConfig
}

func NewService(store Store, defaults progression.XPConfig) *Service {
	return &Service{store: store, defaults: defaults}
}

// XPConfig возвращает действующую формулу. Битые или отсутствующие значения
// заменяются значениями по умолчанию.
func (s *Service) XPConfig(ctx context.Context) (progression.XPConfig, error) {
	values, err := s.store.GetAll(ctx)
	if err != nil {
		return progression.XPConfig{}, err
	}

	cfg := s.defaults
	if v, ok := values[KeyXPPerLevel]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.XPPerLevel = n
		}
	}
	if v, ok := values[KeyXPMultiplier]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Multiplier = f
		}
	}

	if err := cfg.Validate(); err != nil {
		log.WithFields(log.Fields{
			"xp_per_level": cfg.XPPerLevel,
			"multiplier":   cfg.Multiplier,
		}).Warn("В settings некорректная формула XP, используем значения по умолчанию")
		return s.defaults, nil
	}
	return cfg, nil
}

// SetXPConfig сохраняет новую формулу. Уже набранный XP не пересчитывается.
func (s *Service) SetXPConfig(ctx context.Context, cfg progression.XPConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	err := s.store.SetMany(ctx, map[string]string{
		KeyXPPerLevel:   strconv.FormatInt(cfg.XPPerLevel, 10),
		KeyXPMultiplier: strconv.FormatFloat(cfg.Multiplier, 'f', -1, 64),
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"xp_per_level": cfg.XPPerLevel,
		"multiplier":   cfg.Multiplier,
	}).Info("Формула XP обновлена")
	return nil
}
