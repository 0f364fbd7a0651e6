package achievements

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
)

// StatsSource отдаёт показатели игрока (реализуется леджером наград).
type StatsSource interface {
	Stats(ctx context.Context, userID int64) (Stats, error)
}

// Handler обрабатывает команду !ачивки.
type Handler struct {
	service    *Service
	stats      StatsSource
	skillLabel func(string) string
	bot        *tgbotapi.BotAPI
}

func NewHandler(service *Service, stats StatsSource, skillLabel func(string) string, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, stats: stats, skillLabel: skillLabel, bot: bot}
}

// HandleAchievements показывает открытые и закрытые ачивки игрока.
func (h *Handler) HandleAchievements(ctx context.Context, chatID, userID int64) {
	defs, err := h.service.Definitions(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения ачивок")
		h.sendMessage(chatID, "❌ Не удалось загрузить ачивки")
		return
	}
	st, err := h.stats.Stats(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "❌ "+common.UserMessage(err))
		return
	}
	h.sendMessage(chatID, FormatList(defs, st, h.skillLabel))
}

// FormatList собирает текст списка ачивок.
func FormatList(defs []Definition, st Stats, skillLabel func(string) string) string {
	if len(defs) == 0 {
		return "🏆 Ачивок пока нет"
	}

	var sb strings.Builder
	opened := 0
	for _, d := range defs {
		if st.Unlocked[d.ID] {
			opened++
		}
	}
	sb.WriteString(fmt.Sprintf("🏆 Ачивки: %d из %d\n\n", opened, len(defs)))
	for _, d := range defs {
		if st.Unlocked[d.ID] {
			sb.WriteString(fmt.Sprintf("✅ %s\n", d.Title))
			continue
		}
		sb.WriteString(fmt.Sprintf("🔒 %s: %s\n", d.Title, DescribeConditions(d.Conditions, skillLabel)))
	}
	return sb.String()
}

// DescribeConditions переводит условия в читаемый текст.
func DescribeConditions(c Conditions, skillLabel func(string) string) string {
	if c.IsEmpty() {
		return "без условий"
	}
	var parts []string
	if c.MinLevel != nil {
		parts = append(parts, fmt.Sprintf("уровень %d", *c.MinLevel))
	}
	if c.MinTrainings != nil {
		parts = append(parts, fmt.Sprintf("%d %s", *c.MinTrainings, common.PluralizeTrainings(*c.MinTrainings)))
	}
	if c.MinStreak != nil {
		parts = append(parts, fmt.Sprintf("серия %d %s", *c.MinStreak, common.PluralizeDays(*c.MinStreak)))
	}
	if c.MinTotalXP != nil {
		parts = append(parts, fmt.Sprintf("%s XP всего", common.FormatNumber(*c.MinTotalXP)))
	}
	if c.MinSkillValue != nil {
		label := c.MinSkillValue.Skill
		if skillLabel != nil {
			label = skillLabel(label)
		}
		parts = append(parts, fmt.Sprintf("%s %d", label, c.MinSkillValue.Value))
	}
	return strings.Join(parts, ", ")
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
