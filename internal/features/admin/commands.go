// commands.go разбирает аргументы команд тренера.
// Функции чистые: на вход строки, на выход параметры для сервисов.
package admin

import (
	"strconv"
	"strings"
	"time"

	"volleylevel.by/academy-bot/internal/catalog"
	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/achievements"
	"volleylevel.by/academy-bot/internal/features/progression"
	"volleylevel.by/academy-bot/internal/features/qrcodes"
	"volleylevel.by/academy-bot/internal/features/rewards"
)

// ParseAward разбирает "/xp <игрок> <XP> [навык]".
func ParseAward(args []string, cat *catalog.Catalog) (ref string, xp int64, skill string, err error) {
	if len(args) < 2 {
		return "", 0, "", common.Invalidf("использование: /xp @игрок 100 [навык]")
	}
	xp, err = strconv.ParseInt(args[1], 10, 64)
	if err != nil || xp <= 0 {
		return "", 0, "", common.ErrInvalidAmount
	}
	if len(args) > 2 {
		skill = args[2]
		if err := checkSkill(skill, cat); err != nil {
			return "", 0, "", err
		}
	}
	return args[0], xp, skill, nil
}

// ParseTraining разбирает аргументы после игрока:
// название готовой тренировки или строки "навык:XP".
func ParseTraining(args []string, cat *catalog.Catalog) (lines []rewards.SkillLine, label string, err error) {
	if len(args) == 0 {
		return nil, "", common.ErrEmptyTraining
	}

	if !strings.Contains(args[0], ":") {
		name := strings.Join(args, " ")
		p, ok := cat.Preset(name)
		if !ok {
			return nil, "", common.ErrUnknownPreset
		}
		for _, l := range p.Skills {
			lines = append(lines, rewards.SkillLine{SkillID: l.SkillID, XP: l.XP})
		}
		return lines, p.Name, nil
	}

	for _, a := range args {
		skill, xp, err := parseSkillXP(a)
		if err != nil {
			return nil, "", err
		}
		if err := checkSkill(skill, cat); err != nil {
			return nil, "", err
		}
		lines = append(lines, rewards.SkillLine{SkillID: skill, XP: xp})
	}
	return lines, "", nil
}

func parseSkillXP(s string) (string, int64, error) {
	skill, amount, ok := strings.Cut(s, ":")
	if !ok || skill == "" {
		return "", 0, common.Invalidf("ожидается навык:XP, получено %q", s)
	}
	xp, err := strconv.ParseInt(amount, 10, 64)
	if err != nil {
		return "", 0, common.Invalidf("некорректный XP в %q", s)
	}
	if xp < 0 {
		return "", 0, common.ErrNegativeAmount
	}
	return skill, xp, nil
}

func checkSkill(id string, cat *catalog.Catalog) error {
	if id == rewards.GeneralSkill || cat.HasSkill(id) {
		return nil
	}
	return common.Invalidf("неизвестный навык %q, доступны: %s", id, strings.Join(cat.SkillIDs(), ", "))
}

// ParseQRNew разбирает "/qrnew Город | Филиал | Пресет или XP[:навык] [| лимит] [| часов] [| ачивка]".
// Пустое поле или "-" означает «без ограничения».
func ParseQRNew(text string, cat *catalog.Catalog) (qrcodes.CreateParams, error) {
	parts := strings.Split(text, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 {
		return qrcodes.CreateParams{}, common.Invalidf("использование: /qrnew Город | Филиал | Пресет или XP[:навык] [| лимит] [| часов] [| ачивка]")
	}

	p := qrcodes.CreateParams{City: parts[0], Branch: parts[1]}

	if preset, ok := cat.Preset(parts[2]); ok {
		p.Title = preset.Name
		p.IsTrainingPreset = true
		for _, l := range preset.Skills {
			p.Skills = append(p.Skills, qrcodes.SkillXP{SkillID: l.SkillID, XPAmount: l.XP})
		}
	} else {
		amount, skill, _ := strings.Cut(parts[2], ":")
		xp, err := strconv.ParseInt(amount, 10, 64)
		if err != nil {
			return qrcodes.CreateParams{}, common.ErrUnknownPreset
		}
		if skill != "" {
			if err := checkSkill(skill, cat); err != nil {
				return qrcodes.CreateParams{}, err
			}
		}
		p.XPAmount = xp
		p.SkillID = skill
		p.Title = "Тренировка: " + cat.SkillLabel(skill)
	}

	if v := optional(parts, 3); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return qrcodes.CreateParams{}, common.Invalidf("лимит сканирований должен быть целым числом от 1")
		}
		p.MaxUses = &n
	}
	if v := optional(parts, 4); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h < 1 {
			return qrcodes.CreateParams{}, common.Invalidf("срок действия задаётся в часах, от 1")
		}
		p.ExpiresIn = time.Duration(h) * time.Hour
	}
	p.AchievementID = optional(parts, 5)
	return p, nil
}

func optional(parts []string, i int) string {
	if i >= len(parts) || parts[i] == "-" {
		return ""
	}
	return parts[i]
}

// ParseAchievement разбирает "/achnew Название | Описание | level=5 trainings=10 streak=3 xp=1000 skill=serve:500".
func ParseAchievement(text string) (achievements.Definition, error) {
	parts := strings.Split(text, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 || parts[0] == "" {
		return achievements.Definition{}, common.Invalidf("использование: /achnew Название | Описание | level=5 trainings=10 ...")
	}

	d := achievements.Definition{Title: parts[0], Description: parts[1]}
	if len(parts) < 3 {
		return d, nil
	}
	for _, tok := range strings.Fields(parts[2]) {
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			return achievements.Definition{}, common.Invalidf("условие %q: ожидается ключ=значение", tok)
		}
		if key == "skill" {
			skill, xp, err := parseSkillXP(value)
			if err != nil {
				return achievements.Definition{}, err
			}
			d.Conditions.MinSkillValue = &achievements.SkillValue{Skill: skill, Value: xp}
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return achievements.Definition{}, common.ErrInvalidConditions
		}
		switch key {
		case "level":
			d.Conditions.MinLevel = achievements.Int(int(n))
		case "trainings":
			d.Conditions.MinTrainings = achievements.Int(int(n))
		case "streak":
			d.Conditions.MinStreak = achievements.Int(int(n))
		case "xp":
			d.Conditions.MinTotalXP = achievements.Int64(n)
		default:
			return achievements.Definition{}, common.Invalidf("неизвестное условие %q", key)
		}
	}
	return d, nil
}

// ParseAchievementEdit разбирает "/achedit <id> | Название | Описание | условия".
// Условия заменяются целиком.
func ParseAchievementEdit(text string) (achievements.Definition, error) {
	id, rest, ok := strings.Cut(text, "|")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return achievements.Definition{}, common.Invalidf("использование: /achedit <id> | Название | Описание | level=5 ...")
	}
	d, err := ParseAchievement(rest)
	if err != nil {
		return achievements.Definition{}, err
	}
	d.ID = id
	return d, nil
}

// ParseStatsOverride разбирает "level=3 xp=100 total=2300 trainings=12 streak=4".
func ParseStatsOverride(args []string) (rewards.StatsOverride, error) {
	var o rewards.StatsOverride
	if len(args) == 0 {
		return o, common.Invalidf("использование: /stats @игрок level=3 xp=100 total=2300 trainings=12 streak=4")
	}
	for _, tok := range args {
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			return o, common.Invalidf("ожидается ключ=значение, получено %q", tok)
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return o, common.Invalidf("некорректное число в %q", tok)
		}
		switch key {
		case "level":
			v := int(n)
			o.Level = &v
		case "xp":
			o.LevelXP = &n
		case "total":
			o.TotalXP = &n
		case "trainings":
			v := int(n)
			o.TrainingsCompleted = &v
		case "streak":
			v := int(n)
			o.Streak = &v
		default:
			return o, common.Invalidf("неизвестный показатель %q", key)
		}
	}
	return o, o.Validate()
}

// ParseXPConfig разбирает "/xpconfig 1000 1.2".
func ParseXPConfig(args []string) (progression.XPConfig, error) {
	if len(args) != 2 {
		return progression.XPConfig{}, common.Invalidf("использование: /xpconfig <XP на уровень> <множитель>")
	}
	perLevel, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return progression.XPConfig{}, common.ErrInvalidXPConfig
	}
	mult, err := strconv.ParseFloat(strings.Replace(args[1], ",", ".", 1), 64)
	if err != nil {
		return progression.XPConfig{}, common.ErrInvalidXPConfig
	}
	cfg := progression.XPConfig{XPPerLevel: perLevel, Multiplier: mult}
	return cfg, cfg.Validate()
}
