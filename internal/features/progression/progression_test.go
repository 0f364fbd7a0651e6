package progression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volleylevel.by/academy-bot/internal/common"
)

func TestXPForLevelDefaults(t *testing.T) {
	cfg := DefaultXPConfig()
	assert.Equal(t, int64(1000), XPForLevel(1, cfg))
	assert.Equal(t, int64(1200), XPForLevel(2, cfg))
	// уровень ниже 1 считается первым
	assert.Equal(t, int64(1000), XPForLevel(0, cfg))
}

func TestXPForLevelStrictlyGrows(t *testing.T) {
	configs := []XPConfig{
		DefaultXPConfig(),
		{XPPerLevel: 100, Multiplier: 1.5},
		{XPPerLevel: 10, Multiplier: 2},
	}
	for _, cfg := range configs {
		prev := XPForLevel(1, cfg)
		for l := 2; l <= 40; l++ {
			cur := XPForLevel(l, cfg)
			assert.Greater(t, cur, prev, "cfg=%+v level=%d", cfg, l)
			prev = cur
		}
	}
}

func TestXPForLevelClampsOverflow(t *testing.T) {
	cfg := XPConfig{XPPerLevel: 1000, Multiplier: 10}
	assert.Equal(t, int64(math.MaxInt64), XPForLevel(100, cfg))
}

func TestXPConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultXPConfig().Validate())
	for _, bad := range []XPConfig{
		{XPPerLevel: 0, Multiplier: 1.2},
		{XPPerLevel: -5, Multiplier: 1.2},
		{XPPerLevel: 1000, Multiplier: 1},
		{XPPerLevel: 1000, Multiplier: 0.5},
		{XPPerLevel: 1000, Multiplier: math.NaN()},
	} {
		err := bad.Validate()
		assert.ErrorIs(t, err, common.ErrInvalidArgument, "%+v", bad)
	}
}

func TestApplyXPLevelUp(t *testing.T) {
	cfg := DefaultXPConfig()
	s := ApplyXP(LevelState{Level: 1, LevelXP: 900, TotalXP: 900}, 150, cfg)
	assert.Equal(t, LevelState{Level: 2, LevelXP: 50, TotalXP: 1050}, s)
}

func TestApplyXPMultipleLevels(t *testing.T) {
	cfg := DefaultXPConfig()
	s := ApplyXP(LevelState{Level: 1}, 1000+1200+5, cfg)
	assert.Equal(t, 3, s.Level)
	assert.Equal(t, int64(5), s.LevelXP)
	assert.Equal(t, int64(2205), s.TotalXP)
}

func TestApplyXPPostcondition(t *testing.T) {
	cfg := XPConfig{XPPerLevel: 100, Multiplier: 1.3}
	s := LevelState{Level: 1}
	for _, amount := range []int64{1, 99, 250, 0, 7, 4000, 13, 100000} {
		before := s
		s = ApplyXP(s, amount, cfg)
		require.GreaterOrEqual(t, s.Level, before.Level)
		require.Equal(t, before.TotalXP+amount, s.TotalXP)
		require.GreaterOrEqual(t, s.LevelXP, int64(0))
		require.Less(t, s.LevelXP, XPForLevel(s.Level, cfg))
	}
}

func TestApplyXPIgnoresNonPositive(t *testing.T) {
	s := LevelState{Level: 3, LevelXP: 10, TotalXP: 2210}
	assert.Equal(t, s, ApplyXP(s, 0, DefaultXPConfig()))
	assert.Equal(t, s, ApplyXP(s, -100, DefaultXPConfig()))
}

func TestApplyXPInvalidConfigTerminates(t *testing.T) {
	s := ApplyXP(LevelState{Level: 1}, 500, XPConfig{XPPerLevel: 0, Multiplier: 1.2})
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, int64(500), s.LevelXP)
}

func TestProgressPercent(t *testing.T) {
	cfg := DefaultXPConfig()
	assert.Equal(t, 0, ProgressPercent(LevelState{Level: 1}, cfg))
	assert.Equal(t, 50, ProgressPercent(LevelState{Level: 1, LevelXP: 500}, cfg))
	assert.Equal(t, 25, ProgressPercent(LevelState{Level: 2, LevelXP: 300}, cfg))
	// после уменьшения формулы админом шкала может переполниться
	assert.Equal(t, 100, ProgressPercent(LevelState{Level: 1, LevelXP: 5000}, cfg))
}

func TestRankTitle(t *testing.T) {
	assert.Equal(t, "Новичок", RankTitle(1))
	assert.Equal(t, "Новичок", RankTitle(2))
	assert.Equal(t, "Игрок основы", RankTitle(5))
	assert.Equal(t, "Мастер площадки", RankTitle(6))
	assert.Equal(t, "Мастер площадки", RankTitle(8))
	assert.Equal(t, "Легенда волейбола", RankTitle(9))
}

func TestSkillLevel(t *testing.T) {
	tests := []struct {
		xp       int64
		level    int
		progress int
	}{
		{0, 1, 0},
		{1, 1, 2},
		{49, 1, 98},
		{50, 2, 0},
		{100, 2, 50},
		{150, 3, 0},
		{2249, 9, 99},
		{2250, 10, 100},
		{99999, 10, 100},
	}
	for _, tt := range tests {
		info := SkillLevel(tt.xp)
		assert.Equal(t, tt.level, info.Level, "xp=%d", tt.xp)
		assert.Equal(t, tt.progress, info.Progress, "xp=%d", tt.xp)
		assert.Equal(t, tt.level == MaxSkillLevel, info.IsMaxLevel, "xp=%d", tt.xp)
	}
}

func TestSkillLevelMonotonic(t *testing.T) {
	prev := SkillLevel(0).Level
	for xp := int64(1); xp <= 3000; xp++ {
		cur := SkillLevel(xp).Level
		require.GreaterOrEqual(t, cur, prev, "xp=%d", xp)
		prev = cur
	}
}
