// handlers.go обрабатывает Telegram-события участников:
// вступление в чат академии и выбор филиала.
package members

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
)

// Handler обрабатывает события участников.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт новый обработчик событий участников.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleNewChatMembers регистрирует всех, кто вступил в чат академии.
func (h *Handler) HandleNewChatMembers(ctx context.Context, newMembers []tgbotapi.User) {
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		err := h.service.HandleNewMember(ctx, user.ID, user.UserName, user.FirstName, user.LastName)
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("Ошибка регистрации нового участника")
		}
	}
}

// HandleBranch обрабатывает "!филиал <город> <филиал>".
// Без аргументов показывает текущий филиал.
func (h *Handler) HandleBranch(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 2 {
		m, err := h.service.GetByUserID(ctx, userID)
		if err != nil {
			h.sendMessage(chatID, "❌ "+common.UserMessage(err))
			return
		}
		current := m.Location()
		if current == "" {
			current = "не выбран"
		}
		h.sendMessage(chatID, "📍 Филиал: "+current+"\n\nИзменить: !филиал <город> <филиал>")
		return
	}

	city, branch := args[0], strings.Join(args[1:], " ")
	if err := h.service.SetLocation(ctx, userID, city, branch); err != nil {
		h.sendMessage(chatID, "❌ "+common.UserMessage(err))
		return
	}
	h.sendMessage(chatID, "📍 Филиал сохранён: "+city+", "+branch)
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
