// handlers.go: команды игрока в Telegram.
// Скан QR-кода (/start qr_... или !qr), профиль и журнал тренировок.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/progression"
)

// Handler обрабатывает команды леджера.
type Handler struct {
	ledger       *Ledger
	config       ConfigSource
	skillOrder   []string
	skillLabel   func(string) string
	historyLimit int
	bot          *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик. skillOrder задаёт порядок навыков в профиле.
func NewHandler(ledger *Ledger, config ConfigSource, skillOrder []string, skillLabel func(string) string, historyLimit int, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{
		ledger:       ledger,
		config:       config,
		skillOrder:   skillOrder,
		skillLabel:   skillLabel,
		historyLimit: historyLimit,
		bot:          bot,
	}
}

// HandleScan гасит QR-код и отвечает итогом начисления.
func (h *Handler) HandleScan(ctx context.Context, chatID, userID int64, qrID string) {
	qrID = strings.TrimSpace(qrID)
	if qrID == "" {
		h.sendMessage(chatID, "Использование: !qr <код>")
		return
	}

	res, err := h.ledger.Redeem(ctx, userID, qrID)
	if err != nil {
		if !isCallerError(err) {
			log.WithError(err).WithFields(log.Fields{"user_id": userID, "qr_id": qrID}).Error("Ошибка скана QR-кода")
		}
		h.sendMessage(chatID, "❌ "+common.UserMessage(err))
		return
	}
	h.sendMessage(chatID, FormatResult(res, h.skillLabel))
}

// HandleProfile показывает уровень, прогресс и навыки.
func (h *Handler) HandleProfile(ctx context.Context, chatID, userID int64) {
	acc, err := h.ledger.Account(ctx, userID)
	if err != nil {
		h.replyError(chatID, userID, err)
		return
	}
	cfg, err := h.config.XPConfig(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения формулы XP")
		cfg = progression.DefaultXPConfig()
	}
	h.sendMessage(chatID, FormatProfile(acc, cfg, h.skillOrder, h.skillLabel))
}

// HandleHistory показывает последние записи журнала.
func (h *Handler) HandleHistory(ctx context.Context, chatID, userID int64) {
	entries, err := h.ledger.History(ctx, userID, h.historyLimit)
	if err != nil {
		h.replyError(chatID, userID, err)
		return
	}
	h.sendMessage(chatID, FormatHistory(entries))
}

func (h *Handler) replyError(chatID, userID int64, err error) {
	if !isCallerError(err) {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка леджера")
	}
	h.sendMessage(chatID, "❌ "+common.UserMessage(err))
}

// isCallerError: ошибка пользователя или штатный отказ, не сбой.
func isCallerError(err error) bool {
	return errors.Is(err, common.ErrNotFound) ||
		errors.Is(err, common.ErrInvalidArgument) ||
		errors.Is(err, common.ErrConflict)
}

// FormatResult: ответ на начисление. Из новых ачивок крупно показывается
// только первая, остальные одной строкой.
func FormatResult(res *Result, skillLabel func(string) string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ %s\n", common.FormatXP(res.XPAwarded)))
	if res.IsBonusDay {
		sb.WriteString("🎉 Выходные: XP x2\n")
	}

	ids := make([]string, 0, len(res.SkillUpdates))
	for id := range res.SkillUpdates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sb.WriteString(fmt.Sprintf("  %s +%d\n", label(skillLabel, id), res.SkillUpdates[id]))
	}

	if res.LeveledUp {
		sb.WriteString(fmt.Sprintf("\n⬆️ Новый уровень: %d (%s)\n", res.Account.Level, progression.RankTitle(res.Account.Level)))
	}
	if n := len(res.NewlyUnlocked); n > 0 {
		sb.WriteString(fmt.Sprintf("\n🏆 Ачивка открыта: %s\n", res.NewlyUnlocked[0].Title))
		if n > 1 {
			sb.WriteString(fmt.Sprintf("и ещё %d, смотри !ачивки\n", n-1))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatProfile собирает карточку игрока.
func FormatProfile(acc *Account, cfg progression.XPConfig, order []string, skillLabel func(string) string) string {
	var sb strings.Builder
	st := acc.LevelState()
	sb.WriteString(fmt.Sprintf("🏐 Уровень %d · %s\n", acc.Level, progression.RankTitle(acc.Level)))
	sb.WriteString(fmt.Sprintf("%s / %s XP (%d%%)\n",
		common.FormatNumber(acc.LevelXP),
		common.FormatNumber(progression.XPForLevel(acc.Level, cfg)),
		progression.ProgressPercent(st, cfg)))
	sb.WriteString(fmt.Sprintf("Всего: %s XP\n", common.FormatNumber(acc.TotalXP)))
	sb.WriteString(fmt.Sprintf("Тренировок: %d · Серия: %d %s\n",
		acc.TrainingsCompleted, acc.Streak, common.PluralizeDays(acc.Streak)))

	ids := orderedSkills(acc.Skills, order)
	if len(ids) > 0 {
		sb.WriteString("\nНавыки:\n")
	}
	for _, id := range ids {
		info := progression.SkillLevel(acc.Skills[id])
		if info.IsMaxLevel {
			sb.WriteString(fmt.Sprintf("  %s: ур. %d (макс.)\n", label(skillLabel, id), info.Level))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s: ур. %d, %d%%\n", label(skillLabel, id), info.Level, info.Progress))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// orderedSkills: сначала навыки в порядке каталога, затем прочие по алфавиту.
func orderedSkills(skills map[string]int64, order []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if _, ok := skills[id]; ok {
			out = append(out, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range skills {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// FormatHistory: журнал тренировок, новые сверху.
func FormatHistory(entries []HistoryEntry) string {
	if len(entries) == 0 {
		return "📒 Тренировок пока нет"
	}
	var sb strings.Builder
	sb.WriteString("📒 Последние тренировки\n\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s %s %s %s\n",
			common.FormatDate(e.Date), sourceIcon(e.Source), e.Label, common.FormatXP(e.XPEarned)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sourceIcon(source string) string {
	switch source {
	case SourceQR:
		return "📷"
	case SourceBonus:
		return "🎁"
	default:
		return "🏐"
	}
}

func label(skillLabel func(string) string, id string) string {
	if skillLabel == nil {
		return id
	}
	return skillLabel(id)
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
