package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volleylevel.by/academy-bot/internal/catalog"
	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/rewards"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load("")
	require.NoError(t, err)
	return c
}

func TestParseAward(t *testing.T) {
	cat := testCatalog(t)

	ref, xp, skill, err := ParseAward([]string{"@ivan", "100", "serve"}, cat)
	require.NoError(t, err)
	assert.Equal(t, "@ivan", ref)
	assert.Equal(t, int64(100), xp)
	assert.Equal(t, "serve", skill)

	_, _, skill, err = ParseAward([]string{"@ivan", "50"}, cat)
	require.NoError(t, err)
	assert.Empty(t, skill)

	for _, args := range [][]string{{"@ivan"}, {"@ivan", "0"}, {"@ivan", "abc"}, {"@ivan", "10", "jump"}} {
		_, _, _, err := ParseAward(args, cat)
		assert.ErrorIs(t, err, common.ErrInvalidArgument, "%v", args)
	}
}

func TestParseTrainingPreset(t *testing.T) {
	lines, label, err := ParseTraining([]string{"атака", "+", "блок"}, testCatalog(t))
	require.NoError(t, err)
	assert.Equal(t, "Атака + Блок", label)
	assert.Equal(t, []rewards.SkillLine{{SkillID: "attack", XP: 15}, {SkillID: "block", XP: 15}}, lines)
}

func TestParseTrainingLines(t *testing.T) {
	cat := testCatalog(t)

	lines, label, err := ParseTraining([]string{"serve:20", "general:5"}, cat)
	require.NoError(t, err)
	assert.Empty(t, label)
	assert.Equal(t, []rewards.SkillLine{{SkillID: "serve", XP: 20}, {SkillID: "general", XP: 5}}, lines)

	_, _, err = ParseTraining([]string{"serve:-1"}, cat)
	assert.ErrorIs(t, err, common.ErrNegativeAmount)
	_, _, err = ParseTraining([]string{"jump:10"}, cat)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, _, err = ParseTraining([]string{"Пляжка"}, cat)
	assert.ErrorIs(t, err, common.ErrUnknownPreset)
	_, _, err = ParseTraining(nil, cat)
	assert.ErrorIs(t, err, common.ErrEmptyTraining)
}

func TestParseQRNewPreset(t *testing.T) {
	p, err := ParseQRNew("Минск | Центр | Атака + Блок | 30 | 2 | ach_lvl_5", testCatalog(t))
	require.NoError(t, err)

	assert.Equal(t, "Минск", p.City)
	assert.Equal(t, "Центр", p.Branch)
	assert.Equal(t, "Атака + Блок", p.Title)
	assert.True(t, p.IsTrainingPreset)
	assert.Len(t, p.Skills, 2)
	require.NotNil(t, p.MaxUses)
	assert.Equal(t, 30, *p.MaxUses)
	assert.Equal(t, 2*time.Hour, p.ExpiresIn)
	assert.Equal(t, "ach_lvl_5", p.AchievementID)
}

func TestParseQRNewXP(t *testing.T) {
	cat := testCatalog(t)

	p, err := ParseQRNew("Брест | Восток | 150", cat)
	require.NoError(t, err)
	assert.Equal(t, int64(150), p.XPAmount)
	assert.Empty(t, p.SkillID)
	assert.Equal(t, "Тренировка: Общее", p.Title)
	assert.Nil(t, p.MaxUses)
	assert.Zero(t, p.ExpiresIn)

	p, err = ParseQRNew("Брест | Восток | 40:serve | - | 3", cat)
	require.NoError(t, err)
	assert.Equal(t, "serve", p.SkillID)
	assert.Equal(t, "Тренировка: Подача", p.Title)
	assert.Nil(t, p.MaxUses)
	assert.Equal(t, 3*time.Hour, p.ExpiresIn)

	for _, text := range []string{"Минск | Центр", "Минск | Центр | 10:jump", "Минск | Центр | 10 | 0", "Минск | Центр | 10 | - | час"} {
		_, err := ParseQRNew(text, cat)
		assert.ErrorIs(t, err, common.ErrInvalidArgument, text)
	}
	_, err = ParseQRNew("Минск | Центр | Пляжка", cat)
	assert.ErrorIs(t, err, common.ErrUnknownPreset)
}

func TestParseAchievement(t *testing.T) {
	d, err := ParseAchievement("Железный | 30 дней подряд | streak=30 level=5 skill=serve:500")
	require.NoError(t, err)
	assert.Equal(t, "Железный", d.Title)
	assert.Equal(t, "30 дней подряд", d.Description)
	require.NotNil(t, d.Conditions.MinStreak)
	assert.Equal(t, 30, *d.Conditions.MinStreak)
	assert.Equal(t, 5, *d.Conditions.MinLevel)
	assert.Equal(t, int64(500), d.Conditions.MinSkillValue.Value)

	d, err = ParseAchievement("Добро пожаловать | Первый вход")
	require.NoError(t, err)
	assert.True(t, d.Conditions.IsEmpty())

	_, err = ParseAchievement("Без описания")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = ParseAchievement("X | Y | height=2")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = ParseAchievement("X | Y | level=-1")
	assert.ErrorIs(t, err, common.ErrInvalidConditions)
}

func TestParseAchievementEdit(t *testing.T) {
	d, err := ParseAchievementEdit("ach_iron | Железный | 10 дней подряд | streak=10")
	require.NoError(t, err)
	assert.Equal(t, "ach_iron", d.ID)
	assert.Equal(t, "Железный", d.Title)
	assert.Equal(t, 10, *d.Conditions.MinStreak)

	_, err = ParseAchievementEdit("ach_iron")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = ParseAchievementEdit(" | Железный | описание")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestParseStatsOverride(t *testing.T) {
	o, err := ParseStatsOverride([]string{"level=3", "total=2300", "streak=4"})
	require.NoError(t, err)
	assert.Equal(t, 3, *o.Level)
	assert.Equal(t, int64(2300), *o.TotalXP)
	assert.Equal(t, 4, *o.Streak)
	assert.Nil(t, o.LevelXP)

	_, err = ParseStatsOverride([]string{"level=0"})
	assert.ErrorIs(t, err, common.ErrInvalidStats)
	_, err = ParseStatsOverride([]string{"mood=5"})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestParseXPConfig(t *testing.T) {
	cfg, err := ParseXPConfig([]string{"800", "1,5"})
	require.NoError(t, err)
	assert.Equal(t, int64(800), cfg.XPPerLevel)
	assert.InDelta(t, 1.5, cfg.Multiplier, 1e-9)

	_, err = ParseXPConfig([]string{"800", "1"})
	assert.ErrorIs(t, err, common.ErrInvalidXPConfig)
	_, err = ParseXPConfig([]string{"800"})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestSplitCommand(t *testing.T) {
	cmd, rest := splitCommand("/XP@volley_bot @ivan 100")
	assert.Equal(t, "/xp", cmd)
	assert.Equal(t, "@ivan 100", rest)

	cmd, rest = splitCommand("  привет ")
	assert.Empty(t, cmd)
	assert.Equal(t, "привет", rest)
}

type memSessions struct {
	sessions []*AdminSession
	attempts []struct {
		userID  int64
		success bool
		at      time.Time
	}
	now func() time.Time
}

func (m *memSessions) CreateSession(_ context.Context, s *AdminSession) error {
	s.IsActive = true
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memSessions) GetActiveSession(_ context.Context, userID int64, now time.Time) (*AdminSession, error) {
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsActive && s.ExpiresAt.After(now) {
			return s, nil
		}
	}
	return nil, common.ErrSessionExpired
}

func (m *memSessions) DeactivateSession(_ context.Context, userID int64) error {
	for _, s := range m.sessions {
		if s.UserID == userID {
			s.IsActive = false
		}
	}
	return nil
}

func (m *memSessions) UpdateActivity(context.Context, int64) error { return nil }

func (m *memSessions) LogAttempt(_ context.Context, userID int64, success bool) error {
	m.attempts = append(m.attempts, struct {
		userID  int64
		success bool
		at      time.Time
	}{userID, success, m.now()})
	return nil
}

func (m *memSessions) CountFailedSince(_ context.Context, userID int64, since time.Time) (int, error) {
	n := 0
	for _, a := range m.attempts {
		if a.userID == userID && !a.success && !a.at.Before(since) {
			n++
		}
	}
	return n, nil
}

func TestPasswordLoginAndLockout(t *testing.T) {
	ctx := context.Background()
	hash, err := HashPassword("секрет")
	require.NoError(t, err)

	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	store := &memSessions{now: func() time.Time { return now }}
	svc := NewService(store, hash, common.NewFixedClock(now, time.UTC))

	assert.False(t, svc.HasActiveSession(ctx, 1))
	require.NoError(t, svc.VerifyPassword(ctx, 1, "секрет"))
	assert.True(t, svc.HasActiveSession(ctx, 1))

	require.NoError(t, svc.Logout(ctx, 1))
	assert.False(t, svc.HasActiveSession(ctx, 1))

	for i := 0; i < MaxFailedAttempts; i++ {
		assert.ErrorIs(t, svc.VerifyPassword(ctx, 2, "не то"), common.ErrWrongPassword)
	}
	assert.ErrorIs(t, svc.VerifyPassword(ctx, 2, "секрет"), common.ErrTooManyAttempts)
	assert.False(t, svc.HasActiveSession(ctx, 2))
}

func TestVerifyArgon2idRejectsGarbage(t *testing.T) {
	assert.False(t, verifyArgon2id("x", ""))
	assert.False(t, verifyArgon2id("x", "$bcrypt$v=19$m=1,t=1,p=1$AAAA$AAAA"))
	assert.False(t, verifyArgon2id("x", "$argon2id$v=19$m=oops$AAAA$AAAA"))
}

func TestStateExpires(t *testing.T) {
	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	svc := NewService(&memSessions{now: func() time.Time { return now }}, "", common.NewFixedClock(now, time.UTC))

	svc.SetState(1, StateAwaitingPassword, nil)
	require.NotNil(t, svc.GetState(1))
	assert.Equal(t, StateAwaitingPassword, svc.GetState(1).State)

	later := NewService(nil, "", common.NewFixedClock(now.Add(StateTTL+time.Second), time.UTC))
	later.states = svc.states
	assert.Nil(t, later.GetState(1))

	svc.ClearState(1)
	assert.Nil(t, svc.GetState(1))
}
