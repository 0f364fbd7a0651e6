package rewards

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/achievements"
	"volleylevel.by/academy-bot/internal/features/progression"
	"volleylevel.by/academy-bot/internal/features/streak"
)

// ConfigSource отдаёт формулу XP, действующую прямо сейчас.
type ConfigSource interface {
	XPConfig(ctx context.Context) (progression.XPConfig, error)
}

// DefinitionSource отдаёт полный список ачивок.
type DefinitionSource interface {
	Definitions(ctx context.Context) ([]achievements.Definition, error)
}

// Ledger применяет начисления к аккаунтам.
// Начисления одному игроку выполняются строго по очереди, разным игрокам параллельно.
type Ledger struct {
	store      Store
	config     ConfigSource
	defs       DefinitionSource
	clock      *common.Clock
	seedSkills []string

	accounts *keyedMutex[int64]
	codes    *keyedMutex[string]
}

// NewLedger создаёт леджер. seedSkills: навыки, которые получает новый игрок.
func NewLedger(store Store, config ConfigSource, defs DefinitionSource, clock *common.Clock, seedSkills []string) *Ledger {
	return &Ledger{
		store:      store,
		config:     config,
		defs:       defs,
		clock:      clock,
		seedSkills: seedSkills,
		accounts:   newKeyedMutex[int64](),
		codes:      newKeyedMutex[string](),
	}
}

// event: начисление во внутреннем виде.
type event struct {
	userID           int64
	lines            []SkillLine
	countsAsTraining bool
	label            string
	source           string
	qrCodeID         string
	forceAchievement string
}

// Register создаёт аккаунт, если его ещё нет.
func (l *Ledger) Register(ctx context.Context, userID int64) error {
	return l.store.CreateAccount(ctx, userID, l.seedSkills)
}

// Account возвращает текущее состояние аккаунта.
func (l *Ledger) Account(ctx context.Context, userID int64) (*Account, error) {
	return l.store.GetAccount(ctx, userID)
}

// Stats: показатели игрока для проверки ачивок.
func (l *Ledger) Stats(ctx context.Context, userID int64) (achievements.Stats, error) {
	acc, err := l.store.GetAccount(ctx, userID)
	if err != nil {
		return achievements.Stats{}, err
	}
	return acc.Stats(), nil
}

// History: последние записи журнала, сначала новые.
func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return l.store.History(ctx, userID, limit)
}

// Award начисляет бонус от тренера.
func (l *Ledger) Award(ctx context.Context, a ManualAward) (*Result, error) {
	if a.XP <= 0 {
		return nil, common.ErrInvalidAmount
	}
	skill := a.SkillID
	if skill == "" {
		skill = GeneralSkill
	}
	return l.apply(ctx, event{
		userID: a.UserID,
		lines:  []SkillLine{{SkillID: skill, XP: a.XP}},
		label:  skill,
		source: SourceBonus,
	})
}

// LogTraining записывает тренировку из одной или нескольких строк.
func (l *Ledger) LogTraining(ctx context.Context, t TrainingLog) (*Result, error) {
	if len(t.Skills) == 0 {
		return nil, common.ErrEmptyTraining
	}
	total, err := sumLines(t.Skills)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, common.ErrInvalidAmount
	}

	ev := event{
		userID:           t.UserID,
		lines:            t.Skills,
		countsAsTraining: t.CountsAsTraining,
		label:            strings.TrimSpace(t.Label),
		source:           SourcePreset,
	}
	if ev.label == "" {
		ids := make([]string, len(t.Skills))
		for i, line := range t.Skills {
			ids[i] = line.SkillID
		}
		ev.label = strings.Join(ids, "+")
		ev.source = SourceTraining
	}
	return l.apply(ctx, ev)
}

// sumLines складывает строки начисления. Отрицательная строка или сумма
// больше MaxEventXP дают ошибку ввода.
func sumLines(lines []SkillLine) (int64, error) {
	var total int64
	for _, line := range lines {
		if line.XP < 0 {
			return 0, common.ErrNegativeAmount
		}
		if line.XP > MaxEventXP-total {
			return 0, common.ErrAmountTooLarge
		}
		total += line.XP
	}
	return total, nil
}

// apply проводит любое начисление. Формула XP и список ачивок читаются
// заново при каждом вызове.
func (l *Ledger) apply(ctx context.Context, ev event) (*Result, error) {
	// строки QR-кода приходят из базы, проверяем их здесь же
	if _, err := sumLines(ev.lines); err != nil {
		return nil, err
	}
	cfg, err := l.config.XPConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения формулы XP: %w", err)
	}
	defs, err := l.defs.Definitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ачивок: %w", err)
	}
	now := l.clock.Now()

	unlock := l.accounts.Lock(ev.userID)
	defer unlock()

	var res *Result
	err = l.store.Apply(ctx, ev.userID, func(acc *Account) (*Commit, error) {
		var commit *Commit
		res, commit = applyEvent(acc, ev, cfg, defs, now)
		return commit, nil
	})
	if err != nil {
		return nil, err
	}

	fields := log.Fields{
		"user_id":       ev.userID,
		"source":        ev.source,
		"xp":            res.XPAwarded,
		"account_level": res.Account.Level,
		"bonus":         res.IsBonusDay,
		"unlocked":      len(res.NewlyUnlocked),
	}
	if ev.qrCodeID != "" {
		fields["qr_id"] = ev.qrCodeID
	}
	log.WithFields(fields).Info("Начислен XP")
	return res, nil
}

// applyEvent считает новое состояние аккаунта, не трогая acc.
func applyEvent(acc *Account, ev event, cfg progression.XPConfig, defs []achievements.Definition, now time.Time) (*Result, *Commit) {
	next := acc.Clone()
	today := common.DateOf(now)
	bonus := common.IsBonusDay(now)

	updates := make(map[string]int64)
	var total int64
	for _, line := range ev.lines {
		amount := line.XP
		if bonus {
			amount *= 2
		}
		total += amount
		if !isSkill(line.SkillID) {
			continue
		}
		if _, ok := next.Skills[line.SkillID]; !ok {
			next.Skills[line.SkillID] = SkillFloor
		}
		next.Skills[line.SkillID] += amount
		updates[line.SkillID] += amount
	}

	levelBefore := next.Level
	next.setLevelState(progression.ApplyXP(next.LevelState(), total, cfg))

	if ev.countsAsTraining {
		next.TrainingsCompleted++
		next.Streak = streak.NextStreak(next.LastTrainingDate, today, next.Streak)
		next.LastTrainingDate = &today
	}

	entry := HistoryEntry{
		UserID:   next.UserID,
		Date:     now,
		Day:      today,
		Label:    ev.label,
		XPEarned: total,
		Source:   ev.source,
		QRCodeID: ev.qrCodeID,
	}

	var unlocked []achievements.Definition
	if id := ev.forceAchievement; id != "" && !next.Achievements[id] {
		if d, ok := findDefinition(defs, id); ok {
			next.Achievements[id] = true
			unlocked = append(unlocked, d)
		} else {
			log.WithFields(log.Fields{
				"achievement_id": id,
				"qr_id":          ev.qrCodeID,
			}).Warn("Ачивка QR-кода не найдена, пропускаем")
		}
	}
	for _, d := range achievements.NewlyUnlocked(next.Stats(), defs) {
		next.Achievements[d.ID] = true
		unlocked = append(unlocked, d)
	}

	ids := make([]string, len(unlocked))
	for i, d := range unlocked {
		ids[i] = d.ID
	}

	res := &Result{
		Account:       next,
		Entry:         entry,
		XPAwarded:     total,
		IsBonusDay:    bonus,
		LeveledUp:     next.Level > levelBefore,
		SkillUpdates:  updates,
		NewlyUnlocked: unlocked,
	}
	commit := &Commit{
		Account:  next,
		Entry:    &res.Entry,
		Unlocked: ids,
		QRCodeID: ev.qrCodeID,
	}
	return res, commit
}

func isSkill(id string) bool {
	return id != "" && id != GeneralSkill
}

func findDefinition(defs []achievements.Definition, id string) (achievements.Definition, bool) {
	for _, d := range defs {
		if d.ID == id {
			return d, true
		}
	}
	return achievements.Definition{}, false
}

// GrantAchievement вручную открывает ачивку. Повторная выдача ничего не меняет.
func (l *Ledger) GrantAchievement(ctx context.Context, userID int64, achievementID string) error {
	defs, err := l.defs.Definitions(ctx)
	if err != nil {
		return fmt.Errorf("ошибка чтения ачивок: %w", err)
	}
	if _, ok := findDefinition(defs, achievementID); !ok {
		return common.ErrAchievementNotFound
	}

	unlock := l.accounts.Lock(userID)
	defer unlock()

	return l.store.Apply(ctx, userID, func(acc *Account) (*Commit, error) {
		if acc.Achievements[achievementID] {
			return nil, nil
		}
		next := acc.Clone()
		next.Achievements[achievementID] = true
		return &Commit{Account: next, Unlocked: []string{achievementID}}, nil
	})
}

// RevokeAchievement снимает ачивку. Единственный путь, которым ачивка пропадает.
func (l *Ledger) RevokeAchievement(ctx context.Context, userID int64, achievementID string) error {
	unlock := l.accounts.Lock(userID)
	defer unlock()

	return l.store.Apply(ctx, userID, func(acc *Account) (*Commit, error) {
		if !acc.Achievements[achievementID] {
			return nil, common.ErrAchievementNotFound
		}
		next := acc.Clone()
		delete(next.Achievements, achievementID)
		return &Commit{Account: next, Revoked: []string{achievementID}}, nil
	})
}

// OverrideStats: ручная правка показателей админом. Ачивки не пересчитываются.
func (l *Ledger) OverrideStats(ctx context.Context, userID int64, o StatsOverride) (*Account, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	unlock := l.accounts.Lock(userID)
	defer unlock()

	var out *Account
	err := l.store.Apply(ctx, userID, func(acc *Account) (*Commit, error) {
		next := acc.Clone()
		if o.Level != nil {
			next.Level = *o.Level
		}
		if o.LevelXP != nil {
			next.LevelXP = *o.LevelXP
		}
		if o.TotalXP != nil {
			next.TotalXP = *o.TotalXP
		}
		if o.TrainingsCompleted != nil {
			next.TrainingsCompleted = *o.TrainingsCompleted
		}
		if o.Streak != nil {
			next.Streak = *o.Streak
		}
		out = next
		return &Commit{Account: next}, nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": userID, "account_level": out.Level, "total_xp": out.TotalXP}).
		Warn("Показатели игрока изменены вручную")
	return out, nil
}

// Validate проверяет правку: уровень от 1, остальное не меньше нуля.
func (o StatsOverride) Validate() error {
	if o.Level != nil && *o.Level < 1 {
		return common.ErrInvalidStats
	}
	if (o.LevelXP != nil && *o.LevelXP < 0) ||
		(o.TotalXP != nil && *o.TotalXP < 0) ||
		(o.TrainingsCompleted != nil && *o.TrainingsCompleted < 0) ||
		(o.Streak != nil && *o.Streak < 0) {
		return common.ErrInvalidStats
	}
	return nil
}
