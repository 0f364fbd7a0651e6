// service.go собирает таблицы и держит их в коротком кэше.
package rankings

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
)

// Store: источник таблиц. В проде это Repository.
type Store interface {
	TopByXP(ctx context.Context, city string, limit int) ([]Entry, error)
	TopByStreak(ctx context.Context, since time.Time, limit int) ([]Entry, error)
	TopBySkill(ctx context.Context, skillID string, limit int) ([]Entry, error)
}

type cached struct {
	entries   []Entry
	limit     int
	expiresAt time.Time
}

// Service отдаёт таблицы лидеров.
type Service struct {
	store      Store
	clock      *common.Clock
	skillKnown func(string) bool

	mu    sync.RWMutex
	cache map[string]cached
}

func NewService(store Store, clock *common.Clock, skillKnown func(string) bool) *Service {
	return &Service{
		store:      store,
		clock:      clock,
		skillKnown: skillKnown,
		cache:      make(map[string]cached),
	}
}

// Top возвращает таблицу по запросу. Серия считается живой, если последняя
// тренировка была вчера или сегодня.
func (s *Service) Top(ctx context.Context, q Query) ([]Entry, error) {
	if q.Limit <= 0 || q.Limit > 50 {
		q.Limit = DefaultLimit
	}
	if q.Board == "" {
		q.Board = BoardXP
	}
	now := s.clock.Now()

	s.mu.RLock()
	c, ok := s.cache[q.key()]
	s.mu.RUnlock()
	if ok && now.Before(c.expiresAt) && c.limit >= q.Limit {
		return c.entries[:min(len(c.entries), q.Limit)], nil
	}

	var (
		entries []Entry
		err     error
	)
	switch q.Board {
	case BoardXP:
		entries, err = s.store.TopByXP(ctx, q.City, q.Limit)
	case BoardStreak:
		entries, err = s.store.TopByStreak(ctx, s.clock.Today().AddDate(0, 0, -1), q.Limit)
	case BoardSkill:
		if q.Skill == "" || (s.skillKnown != nil && !s.skillKnown(q.Skill)) {
			return nil, common.Invalidf("неизвестный навык %q", q.Skill)
		}
		entries, err = s.store.TopBySkill(ctx, q.Skill, q.Limit)
	default:
		return nil, common.Invalidf("неизвестный рейтинг %q", q.Board)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[q.key()] = cached{entries: entries, limit: q.Limit, expiresAt: now.Add(CacheTTL)}
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"board": q.Board,
		"skill": q.Skill,
		"city":  q.City,
		"rows":  len(entries),
	}).Debug("Рейтинг пересчитан")
	return entries, nil
}

// Invalidate сбрасывает кэш, например после ручной правки показателей.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}
