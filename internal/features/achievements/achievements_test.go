package achievements

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volleylevel.by/academy-bot/internal/common"
)

func newStats() Stats {
	return Stats{
		Level:              3,
		TrainingsCompleted: 9,
		Streak:             6,
		TotalXP:            2500,
		Skills:             map[string]int64{"serve": 14, "attack": 40},
		Unlocked:           map[string]bool{},
	}
}

func defaultDefs() []Definition {
	return []Definition{
		{ID: "ach_serve_1", Title: "Первый эйс", Conditions: Conditions{MinSkillValue: &SkillValue{Skill: "serve", Value: 15}}},
		{ID: "ach_lvl_5", Title: "Минский Тигр", Conditions: Conditions{MinLevel: Int(5)}},
		{ID: "ach_train_10", Title: "Начинающий", Conditions: Conditions{MinTrainings: Int(10)}},
		{ID: "ach_streak_7", Title: "Недельный марафон", Conditions: Conditions{MinStreak: Int(7)}},
	}
}

func TestIsSatisfied(t *testing.T) {
	st := newStats()
	tests := []struct {
		name string
		cond Conditions
		want bool
	}{
		{"empty is vacuous", Conditions{}, true},
		{"level met", Conditions{MinLevel: Int(3)}, true},
		{"level not met", Conditions{MinLevel: Int(4)}, false},
		{"trainings not met", Conditions{MinTrainings: Int(10)}, false},
		{"streak met", Conditions{MinStreak: Int(6)}, true},
		{"total xp met", Conditions{MinTotalXP: Int64(2500)}, true},
		{"total xp not met", Conditions{MinTotalXP: Int64(2501)}, false},
		{"skill not met", Conditions{MinSkillValue: &SkillValue{Skill: "serve", Value: 15}}, false},
		{"skill met", Conditions{MinSkillValue: &SkillValue{Skill: "attack", Value: 40}}, true},
		{"missing skill counts as zero", Conditions{MinSkillValue: &SkillValue{Skill: "block", Value: 1}}, false},
		{"missing skill zero threshold", Conditions{MinSkillValue: &SkillValue{Skill: "block", Value: 0}}, true},
		{"all must hold", Conditions{MinLevel: Int(1), MinStreak: Int(7)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSatisfied(st, tt.cond))
		})
	}
}

func TestNewlyUnlockedOrderAndIdempotence(t *testing.T) {
	st := newStats()
	st.Skills["serve"] = 15
	st.Level = 5
	st.Streak = 7

	got := NewlyUnlocked(st, defaultDefs())
	require.Len(t, got, 3)
	assert.Equal(t, "ach_serve_1", got[0].ID)
	assert.Equal(t, "ach_lvl_5", got[1].ID)
	assert.Equal(t, "ach_streak_7", got[2].ID)

	for _, d := range got {
		st.Unlocked[d.ID] = true
	}
	assert.Empty(t, NewlyUnlocked(st, defaultDefs()))
}

func TestNewlyUnlockedSkipsAlreadyUnlocked(t *testing.T) {
	st := newStats()
	st.Level = 10
	st.Unlocked["ach_lvl_5"] = true
	assert.Empty(t, NewlyUnlocked(st, defaultDefs()))
}

func TestNewlyUnlockedDuplicateIDs(t *testing.T) {
	st := newStats()
	defs := []Definition{
		{ID: "dup", Conditions: Conditions{}},
		{ID: "dup", Conditions: Conditions{}},
	}
	assert.Len(t, NewlyUnlocked(st, defs), 1)
}

func TestConditionsValidate(t *testing.T) {
	assert.NoError(t, Conditions{}.Validate())
	assert.NoError(t, Conditions{MinLevel: Int(0)}.Validate())
	assert.ErrorIs(t, Conditions{MinLevel: Int(-1)}.Validate(), common.ErrInvalidArgument)
	assert.ErrorIs(t, Conditions{MinTotalXP: Int64(-1)}.Validate(), common.ErrInvalidArgument)
	assert.ErrorIs(t, Conditions{MinSkillValue: &SkillValue{Value: 3}}.Validate(), common.ErrInvalidArgument)
}

func TestDescribeConditions(t *testing.T) {
	label := func(id string) string {
		if id == "serve" {
			return "Подача"
		}
		return id
	}
	c := Conditions{MinLevel: Int(5), MinTrainings: Int(10), MinSkillValue: &SkillValue{Skill: "serve", Value: 15}}
	assert.Equal(t, "уровень 5, 10 тренировок, Подача 15", DescribeConditions(c, label))
	assert.Equal(t, "без условий", DescribeConditions(Conditions{}, label))
}

// memStore: хранилище определений в памяти для тестов сервиса.
type memStore struct {
	defs []Definition
}

func (m *memStore) List(context.Context) ([]Definition, error) { return m.defs, nil }

func (m *memStore) Get(_ context.Context, id string) (*Definition, error) {
	for i := range m.defs {
		if m.defs[i].ID == id {
			d := m.defs[i]
			return &d, nil
		}
	}
	return nil, common.ErrAchievementNotFound
}

func (m *memStore) Insert(_ context.Context, d *Definition) (bool, error) {
	for _, e := range m.defs {
		if e.ID == d.ID {
			return false, nil
		}
	}
	m.defs = append(m.defs, *d)
	return true, nil
}

func (m *memStore) Update(_ context.Context, d *Definition) error {
	for i := range m.defs {
		if m.defs[i].ID == d.ID {
			m.defs[i] = *d
			return nil
		}
	}
	return common.ErrAchievementNotFound
}

func (m *memStore) Delete(_ context.Context, id string) error {
	for i := range m.defs {
		if m.defs[i].ID == id {
			m.defs = append(m.defs[:i], m.defs[i+1:]...)
			return nil
		}
	}
	return common.ErrAchievementNotFound
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&memStore{})

	d, err := svc.Create(ctx, Definition{Title: "Ace Master", Conditions: Conditions{MinLevel: Int(2)}})
	require.NoError(t, err)
	assert.Equal(t, "ach_ace_master", d.ID)

	_, err = svc.Create(ctx, Definition{Title: "Ace Master"})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = svc.Create(ctx, Definition{Title: "  "})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = svc.Create(ctx, Definition{Title: "Bad", Conditions: Conditions{MinStreak: Int(-3)}})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	defs, err := svc.Definitions(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestServiceSeedDefaultsKeepsExisting(t *testing.T) {
	ctx := context.Background()
	store := &memStore{defs: []Definition{{ID: "ach_lvl_5", Title: "Переименована"}}}
	svc := NewService(store)

	require.NoError(t, svc.SeedDefaults(ctx, defaultDefs()))
	assert.Len(t, store.defs, 4)
	got, err := svc.Get(ctx, "ach_lvl_5")
	require.NoError(t, err)
	assert.Equal(t, "Переименована", got.Title)
}

func TestServiceDeleteUnknown(t *testing.T) {
	svc := NewService(&memStore{})
	assert.ErrorIs(t, svc.Delete(context.Background(), "nope"), common.ErrNotFound)
}
