package progression

// SkillThresholds: накопленный XP навыка, с которого начинается уровень 1..10.
var SkillThresholds = [...]int64{0, 50, 150, 300, 500, 750, 1050, 1400, 1800, 2250}

// MaxSkillLevel: последний уровень навыка. XP навыка дальше копится, но уровень не растёт.
const MaxSkillLevel = len(SkillThresholds)

// SkillLevelInfo описывает положение навыка на шкале.
type SkillLevelInfo struct {
	Level            int   `json:"level"`
	Progress         int   `json:"progress"` // 0..100 до следующего уровня
	CurrentThreshold int64 `json:"currentThreshold"`
	NextThreshold    int64 `json:"nextThreshold"`
	IsMaxLevel       bool  `json:"isMaxLevel"`
}

// SkillLevel считает уровень навыка по накопленному XP.
// На максимальном уровне прогресс всегда 100.
func SkillLevel(totalSkillXP int64) SkillLevelInfo {
	level := 1
	for i := len(SkillThresholds) - 1; i >= 0; i-- {
		if totalSkillXP >= SkillThresholds[i] {
			level = i + 1
			break
		}
	}

	info := SkillLevelInfo{
		Level:            level,
		CurrentThreshold: SkillThresholds[level-1],
	}
	if level == MaxSkillLevel {
		info.NextThreshold = info.CurrentThreshold
		info.Progress = 100
		info.IsMaxLevel = true
		return info
	}

	info.NextThreshold = SkillThresholds[level]
	gained := totalSkillXP - info.CurrentThreshold
	if gained < 0 {
		gained = 0
	}
	info.Progress = int(gained * 100 / (info.NextThreshold - info.CurrentThreshold))
	return info
}
