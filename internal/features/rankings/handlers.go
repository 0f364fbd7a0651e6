// handlers.go обрабатывает команду !рейтинг.
package rankings

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
)

type Handler struct {
	service    *Service
	skillIDs   []string
	skillLabel func(string) string
	bot        *tgbotapi.BotAPI
}

func NewHandler(service *Service, skillIDs []string, skillLabel func(string) string, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, skillIDs: skillIDs, skillLabel: skillLabel, bot: bot}
}

// HandleRanking обрабатывает "!рейтинг", "!рейтинг серия", "!рейтинг подача", "!рейтинг Минск".
func (h *Handler) HandleRanking(ctx context.Context, chatID int64, args []string) {
	q := ParseQuery(args, h.skillIDs, h.skillLabel)
	entries, err := h.service.Top(ctx, q)
	if err != nil {
		log.WithError(err).WithField("board", q.Board).Warn("Ошибка построения рейтинга")
		h.sendMessage(chatID, "❌ "+common.UserMessage(err))
		return
	}
	h.sendMessage(chatID, FormatBoard(q, entries, h.skillLabel))
}

// ParseQuery понимает аргумент как серию, навык (id или подпись) или город.
func ParseQuery(args []string, skillIDs []string, skillLabel func(string) string) Query {
	arg := strings.TrimSpace(strings.Join(args, " "))
	if arg == "" {
		return Query{Board: BoardXP}
	}
	lower := strings.ToLower(arg)
	switch lower {
	case "серия", "серии", "огонек", "огонёк", "streak":
		return Query{Board: BoardStreak}
	}
	for _, id := range skillIDs {
		if lower == id || (skillLabel != nil && lower == strings.ToLower(skillLabel(id))) {
			return Query{Board: BoardSkill, Skill: id}
		}
	}
	return Query{Board: BoardXP, City: arg}
}

// FormatBoard собирает текст таблицы.
func FormatBoard(q Query, entries []Entry, skillLabel func(string) string) string {
	var title, unit string
	switch q.Board {
	case BoardStreak:
		title = "🔥 Самые длинные серии"
	case BoardSkill:
		name := q.Skill
		if skillLabel != nil {
			name = skillLabel(q.Skill)
		}
		title = "🎯 Лучшие в навыке: " + name
		unit = " XP"
	default:
		title = "🏆 Рейтинг игроков"
		if q.City != "" {
			title += " · " + q.City
		}
		unit = " XP"
	}

	if len(entries) == 0 {
		return title + "\n\nПока пусто, всё впереди"
	}

	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	for _, e := range entries {
		value := common.FormatNumber(e.Value) + unit
		if q.Board == BoardStreak {
			value = fmt.Sprintf("%d %s", e.Value, common.PluralizeDays(int(e.Value)))
		}
		sb.WriteString(fmt.Sprintf("%s %s · ур. %d · %s\n", medal(e.Rank), e.Name(), e.Level, value))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
