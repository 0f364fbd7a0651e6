// Package filters решает, в каких чатах бот отвечает.
package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// MemberDirectory: то, что фильтру нужно знать об участниках.
type MemberDirectory interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
	EnsureMember(ctx context.Context, userID int64, username, firstName, lastName string) error
}

// ChatMemberLookup спрашивает Telegram о членстве в чате академии.
type ChatMemberLookup interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type ChatFilter struct {
	academyChatID int64
	members       MemberDirectory
	telegram      ChatMemberLookup
}

// NewChatFilter создаёт фильтр. academyChatID = 0 открывает личку всем
// и закрывает групповые чаты.
func NewChatFilter(academyChatID int64, members MemberDirectory, telegram ChatMemberLookup) *ChatFilter {
	return &ChatFilter{
		academyChatID: academyChatID,
		members:       members,
		telegram:      telegram,
	}
}

// CheckAccess пропускает сообщения из чата академии и из лички участников.
func (f *ChatFilter) CheckAccess(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		return false
	}
	if message.From == nil || message.From.IsBot {
		return false
	}

	chatID := message.Chat.ID
	userID := message.From.ID
	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   chatID,
		"chat_type": message.Chat.Type,
		"user_id":   userID,
	})

	if f.academyChatID != 0 && chatID == f.academyChatID {
		return true
	}

	if !message.Chat.IsPrivate() {
		logger.Debug("deny: посторонний чат")
		return false
	}

	if f.academyChatID == 0 {
		return true
	}

	isMember, err := f.members.IsMember(ctx, userID)
	if err != nil {
		logger.WithError(err).Error("Ошибка проверки участника в БД")
		return false
	}
	if isMember {
		return true
	}

	// В БД игрока нет: спрашиваем Telegram, состоит ли он в чате академии.
	cm, err := f.telegram.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: f.academyChatID,
			UserID: userID,
		},
	})
	if err != nil {
		logger.WithError(err).Error("Ошибка проверки участника через Telegram")
		return false
	}

	switch cm.Status {
	case "creator", "administrator", "member", "restricted":
		if err := f.members.EnsureMember(ctx, userID,
			message.From.UserName, message.From.FirstName, message.From.LastName,
		); err != nil {
			logger.WithError(err).Warn("Не удалось добавить участника в БД, пропускаем всё равно")
		}
		logger.WithField("tg_status", cm.Status).Info("allow: участник чата академии")
		return true
	default:
		logger.WithField("tg_status", cm.Status).Info("deny: не участник академии")
		msg := tgbotapi.NewMessage(chatID, "❌ Бот работает только для игроков академии. Вступи в чат академии и напиши снова.")
		if _, err := f.telegram.Send(msg); err != nil {
			logger.WithError(err).Warn("Не удалось отправить отказ")
		}
		return false
	}
}
