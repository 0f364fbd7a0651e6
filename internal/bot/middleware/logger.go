// Package middleware содержит обёртки вокруг обработки апдейтов:
// логирование, восстановление после паники и лимит запросов.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const maxLoggedRunes = 50

// LogMessage пишет входящее сообщение в debug-лог.
// Пароли из /login не логируются.
func LogMessage(message *tgbotapi.Message) {
	if message == nil || message.From == nil || message.Chat == nil {
		return
	}

	log.WithFields(log.Fields{
		"user_id":  message.From.ID,
		"chat_id":  message.Chat.ID,
		"username": message.From.UserName,
		"text":     Preview(message.Text),
	}).Debug("Входящее сообщение")
}

// Preview обрезает текст для лога по символам, а не байтам.
func Preview(text string) string {
	if isSecret(text) {
		return "[скрыто]"
	}
	runes := []rune(text)
	if len(runes) > maxLoggedRunes {
		return string(runes[:maxLoggedRunes]) + "..."
	}
	return text
}

func isSecret(text string) bool {
	for _, prefix := range []string{"/login", "/admin"} {
		if len(text) > len(prefix) && text[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
