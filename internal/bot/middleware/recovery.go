package middleware

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic гасит панику обработчика, чтобы одно сообщение не роняло бота.
// Вызывается через defer в начале обработки апдейта.
func RecoverFromPanic() {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"component": "recovery",
			"panic":     fmt.Sprint(r),
			"stack":     string(debug.Stack()),
		}).Error("Паника при обработке апдейта")
	}
}
