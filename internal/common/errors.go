// errors.go определяет ошибки, которые используются во всех модулях бота.
// Три базовых вида (не найдено, неверный аргумент, конфликт) позволяют обработчикам
// и HTTP-слою выбирать ответ через errors.Is, а конкретные ошибки несут
// понятный пользователю текст.
package common

import (
	"errors"
	"fmt"
)

// Базовые виды ошибок
var (
	// ErrNotFound: сущность не найдена
	ErrNotFound = errors.New("не найдено")
	// ErrInvalidArgument: некорректные входные данные
	ErrInvalidArgument = errors.New("некорректные данные")
	// ErrConflict: операция отклонена текущим состоянием (это не сбой)
	ErrConflict = errors.New("конфликт")
)

// Error: ошибка предметной области с видом и текстом для пользователя.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap позволяет проверять вид через errors.Is(err, ErrConflict).
func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Ошибки аккаунтов и начислений
var (
	ErrAccountNotFound     = newError(ErrNotFound, "аккаунт игрока не найден")
	ErrAchievementNotFound = newError(ErrNotFound, "ачивка не найдена")
	ErrInvalidAmount       = newError(ErrInvalidArgument, "количество XP должно быть положительным")
	ErrNegativeAmount      = newError(ErrInvalidArgument, "XP в строке тренировки не может быть отрицательным")
	ErrAmountTooLarge      = newError(ErrInvalidArgument, "слишком большое количество XP за одно начисление")
	ErrEmptyTraining       = newError(ErrInvalidArgument, "в тренировке нет ни одного навыка")
	ErrInvalidXPConfig     = newError(ErrInvalidArgument, "некорректная формула XP (XP на уровень > 0, множитель > 1)")
	ErrInvalidConditions   = newError(ErrInvalidArgument, "некорректные условия ачивки")
	ErrInvalidStats        = newError(ErrInvalidArgument, "показатели не могут быть отрицательными, уровень от 1")
	ErrUnknownPreset       = newError(ErrNotFound, "такой тренировки нет в каталоге")
	ErrEmptyTitle          = newError(ErrInvalidArgument, "название не может быть пустым")
	ErrAchievementExists   = newError(ErrConflict, "ачивка с таким id уже есть")
)

// Ошибки QR-кодов
var (
	ErrQRNotFound        = newError(ErrNotFound, "QR-код не найден")
	ErrQRExpired         = newError(ErrConflict, "срок действия QR-кода истёк")
	ErrQRMaxUses         = newError(ErrConflict, "лимит использований QR-кода исчерпан")
	ErrQRAlreadyRedeemed = newError(ErrConflict, "вы уже сканировали этот QR-код сегодня")
)

// Ошибки участников и админки
var (
	ErrMemberNotFound  = newError(ErrNotFound, "участник не найден")
	ErrUnknownRole     = newError(ErrInvalidArgument, "неизвестная роль (STUDENT, TRAINER, ADMIN)")
	ErrNotAdmin        = newError(ErrConflict, "у вас нет прав тренера или администратора")
	ErrWrongPassword   = newError(ErrInvalidArgument, "неверный пароль")
	ErrTooManyAttempts = newError(ErrConflict, "слишком много попыток, подождите 1 час")
	ErrSessionExpired  = newError(ErrConflict, "сессия истекла, авторизуйтесь заново")
)

// Invalidf: ошибка ввода с текстом для пользователя (разбор команд).
func Invalidf(format string, args ...any) error {
	return newError(ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// UserMessage возвращает текст ошибки для пользователя.
// Системные ошибки наружу не раскрываются.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return "внутренняя ошибка, попробуйте позже"
}
