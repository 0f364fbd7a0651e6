// handlers.go обрабатывает команду !огонек.
// Показывает текущую серию и была ли сегодня тренировка.
package streak

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
)

// Handler обрабатывает команды стрик-системы.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт новый обработчик стрик-команд.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleOgonek обрабатывает команду !огонек.
//
// Формат ответа:
//
//	🔥 Твой огонек
//	Серия: 8 дней
//	✅ Сегодня тренировка уже засчитана
func (h *Handler) HandleOgonek(ctx context.Context, chatID int64, userID int64) {
	st, err := h.service.GetState(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Ошибка получения серии")
		h.sendMessage(chatID, "❌ "+common.UserMessage(err))
		return
	}
	h.sendMessage(chatID, FormatState(st, h.service.Today()))
}

// FormatState собирает текст для !огонек.
func FormatState(st *State, today time.Time) string {
	streak := st.Streak
	if !IsAlive(st.LastTrainingDate, today) {
		streak = 0
	}

	text := fmt.Sprintf("🔥 Твой огонек\n\nСерия: %d %s\n", streak, common.PluralizeDays(streak))
	switch {
	case st.LastTrainingDate != nil && common.SameDay(*st.LastTrainingDate, today):
		text += "✅ Сегодня тренировка уже засчитана"
	case streak > 0:
		text += "⏳ Сегодня тренировки ещё не было, не дай огоньку погаснуть"
	default:
		text += "Начни новую серию на ближайшей тренировке"
	}
	return text
}

// sendMessage: вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
