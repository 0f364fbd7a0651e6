// handlers.go обрабатывает панель тренера в личных сообщениях.
// Поток: пароль → сессия на сутки → команды и кнопки клавиатуры.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/catalog"
	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/achievements"
	"volleylevel.by/academy-bot/internal/features/members"
	"volleylevel.by/academy-bot/internal/features/progression"
	"volleylevel.by/academy-bot/internal/features/qrcodes"
	"volleylevel.by/academy-bot/internal/features/rewards"
	"volleylevel.by/academy-bot/internal/features/settings"
)

// Handler обрабатывает команды тренера.
type Handler struct {
	service      *Service
	members      *members.Service
	ledger       *rewards.Ledger
	qr           *qrcodes.Service
	achievements *achievements.Service
	settings     *settings.Service
	catalog      *catalog.Catalog
	bot          *tgbotapi.BotAPI
}

// Deps: зависимости панели тренера.
type Deps struct {
	Service      *Service
	Members      *members.Service
	Ledger       *rewards.Ledger
	QR           *qrcodes.Service
	Achievements *achievements.Service
	Settings     *settings.Service
	Catalog      *catalog.Catalog
	Bot          *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик панели тренера.
func NewHandler(d Deps) *Handler {
	return &Handler{
		service:      d.Service,
		members:      d.Members,
		ledger:       d.Ledger,
		qr:           d.QR,
		achievements: d.Achievements,
		settings:     d.Settings,
		catalog:      d.Catalog,
		bot:          d.Bot,
	}
}

// Кнопки клавиатуры панели
const (
	btnQRList   = "QR-коды"
	btnAchList  = "Ачивки"
	btnXPConfig = "Формула XP"
	btnAssign   = "Назначить роль"
	btnHelp     = "Помощь"
)

var adminCommands = map[string]bool{
	"/admin": true, "/login": true, "/logout": true, "/help_admin": true,
	"/xp": true, "/train": true, "/stats": true,
	"/qrnew": true, "/qrlist": true, "/qrstat": true, "/qrdel": true,
	"/grant": true, "/revoke": true, "/achnew": true, "/achedit": true, "/achdel": true, "/achlist": true,
	"/xpconfig": true, "/role": true, "/assign": true,
}

var buttons = map[string]string{
	btnQRList:   "/qrlist",
	btnAchList:  "/achlist",
	btnXPConfig: "/xpconfig",
	btnAssign:   "/assign",
	btnHelp:     "/help_admin",
	"Админ":     "/admin",
	"Панель":    "/admin",
}

// HandleAdminMessage обрабатывает сообщение в личке. Возвращает false,
// если сообщение не для панели (не тренер или обычная команда игрока).
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID, userID int64, text string) bool {
	staff, err := h.members.IsStaff(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка проверки роли")
		return false
	}
	if !staff {
		return false
	}

	state := h.service.GetState(userID)
	if state != nil && state.State == StateAwaitingPassword {
		h.handlePasswordInput(ctx, chatID, userID, text)
		return true
	}

	cmd, rest := splitCommand(text)
	if c, ok := buttons[strings.TrimSpace(text)]; ok {
		cmd, rest = c, ""
	}
	inDialog := state != nil && (state.State == StateAssignRoleSelect || state.State == StateAssignRoleText)
	if !adminCommands[cmd] && !inDialog {
		return false
	}

	if !h.service.HasActiveSession(ctx, userID) {
		h.sendMessage(chatID, "🔐 Введите пароль панели тренера:")
		h.service.SetState(userID, StateAwaitingPassword, nil)
		return true
	}
	h.service.Touch(ctx, userID)

	if inDialog && cmd == "" {
		if state.State == StateAssignRoleSelect {
			h.handleAssignRoleSelect(ctx, chatID, userID, state, text)
		} else {
			h.handleAssignRoleText(ctx, chatID, userID, state, text)
		}
		return true
	}
	h.service.ClearState(userID)

	args := strings.Fields(rest)
	switch cmd {
	case "/admin", "/login":
		h.showKeyboard(chatID)
	case "/logout":
		h.handleLogout(ctx, chatID, userID)
	case "/help_admin":
		h.sendMessage(chatID, helpText)
	case "/xp":
		h.handleAward(ctx, chatID, args)
	case "/train":
		h.handleTraining(ctx, chatID, args)
	case "/stats":
		h.handleStats(ctx, chatID, args)
	case "/qrnew":
		h.handleQRNew(ctx, chatID, rest)
	case "/qrlist":
		h.handleQRList(ctx, chatID)
	case "/qrstat":
		h.handleQRStat(ctx, chatID, rest)
	case "/qrdel":
		h.reply(chatID, h.qr.Delete(ctx, strings.TrimSpace(rest)), "🗑 QR-код удалён")
	case "/grant":
		h.handleGrant(ctx, chatID, args, true)
	case "/revoke":
		h.handleGrant(ctx, chatID, args, false)
	case "/achnew":
		h.handleAchievementNew(ctx, chatID, rest)
	case "/achedit":
		h.handleAchievementEdit(ctx, chatID, rest)
	case "/achdel":
		h.reply(chatID, h.achievements.Delete(ctx, strings.TrimSpace(rest)), "🗑 Ачивка удалена")
	case "/achlist":
		h.handleAchievementList(ctx, chatID)
	case "/xpconfig":
		h.handleXPConfig(ctx, chatID, args)
	case "/role":
		h.handleRole(ctx, chatID, userID, args)
	case "/assign":
		h.startAssignRole(ctx, chatID, userID)
	}
	return true
}

// splitCommand отделяет команду от аргументов: "/xp@bot @ivan 100" → "/xp", "@ivan 100".
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, rest, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}

const helpText = `🏐 Команды тренера

/xp @игрок 100 [навык]: бонус XP
/train @игрок Атака + Блок: готовая тренировка
/train @игрок serve:20 block:10: тренировка по навыкам
/stats @игрок level=3 xp=100 total=2300 trainings=12 streak=4
/qrnew Город | Филиал | Пресет или XP[:навык] [| лимит] [| часов] [| ачивка]
/qrlist, /qrstat <id>, /qrdel <id>
/grant @игрок <ачивка>, /revoke @игрок <ачивка>
/achnew Название | Описание | level=5 trainings=10 streak=3 xp=1000 skill=serve:500
/achedit <id> | Название | Описание | условия
/achdel <id>
/xpconfig [XP на уровень] [множитель]
/role @игрок STUDENT|TRAINER|ADMIN (только админ)
/logout`

func (h *Handler) handlePasswordInput(ctx context.Context, chatID, userID int64, password string) {
	h.service.ClearState(userID)
	if err := h.service.VerifyPassword(ctx, userID, strings.TrimSpace(password)); err != nil {
		h.sendMessage(chatID, "❌ "+common.UserMessage(err))
		return
	}
	h.sendMessage(chatID, "✅ Вход выполнен на 24 часа")
	h.showKeyboard(chatID)
}

func (h *Handler) handleLogout(ctx context.Context, chatID, userID int64) {
	if err := h.service.Logout(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка выхода из панели")
	}
	msg := tgbotapi.NewMessage(chatID, "👋 Сессия закрыта")
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

func (h *Handler) showKeyboard(chatID int64) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnQRList),
			tgbotapi.NewKeyboardButton(btnAchList),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnXPConfig),
			tgbotapi.NewKeyboardButton(btnAssign),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnHelp),
		),
	)
	msg := tgbotapi.NewMessage(chatID, "✅ Панель тренера открыта")
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки клавиатуры")
	}
}

func (h *Handler) handleAward(ctx context.Context, chatID int64, args []string) {
	ref, xp, skill, err := ParseAward(args, h.catalog)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	m, err := h.members.Resolve(ctx, ref)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	res, err := h.ledger.Award(ctx, rewards.ManualAward{UserID: m.UserID, XP: xp, SkillID: skill})
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, m.DisplayName()+"\n"+rewards.FormatResult(res, h.catalog.SkillLabel))
	h.notifyPlayer(m.UserID, res)
}

func (h *Handler) handleTraining(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "Использование: /train @игрок <пресет> или навык:XP ...")
		return
	}
	lines, label, err := ParseTraining(args[1:], h.catalog)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	m, err := h.members.Resolve(ctx, args[0])
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	res, err := h.ledger.LogTraining(ctx, rewards.TrainingLog{
		UserID:           m.UserID,
		Skills:           lines,
		CountsAsTraining: true,
		Label:            label,
	})
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, m.DisplayName()+"\n"+rewards.FormatResult(res, h.catalog.SkillLabel))
	h.notifyPlayer(m.UserID, res)
}

func (h *Handler) handleStats(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "Использование: /stats @игрок level=3 xp=100 ...")
		return
	}
	o, err := ParseStatsOverride(args[1:])
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	m, err := h.members.Resolve(ctx, args[0])
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	acc, err := h.ledger.OverrideStats(ctx, m.UserID, o)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✏️ %s: уровень %d, %d XP в уровне, %s XP всего, тренировок %d, серия %d",
		m.DisplayName(), acc.Level, acc.LevelXP, common.FormatNumber(acc.TotalXP), acc.TrainingsCompleted, acc.Streak))
}

func (h *Handler) handleQRNew(ctx context.Context, chatID int64, rest string) {
	p, err := ParseQRNew(rest, h.catalog)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	q, err := h.qr.Create(ctx, p)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ QR-код создан\n\n%s\n%s\n\nСсылка для QR: %s",
		formatQR(q), q.ID, qrcodes.DeepLink(h.bot.Self.UserName, q.ID)))
}

func (h *Handler) handleQRList(ctx context.Context, chatID int64) {
	list, err := h.qr.List(ctx)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	if len(list) == 0 {
		h.sendMessage(chatID, "QR-кодов пока нет")
		return
	}
	var sb strings.Builder
	sb.WriteString("📷 QR-коды\n")
	for _, q := range list {
		sb.WriteString("\n" + formatQR(q) + "\n" + q.ID + "\n")
	}
	h.sendMessage(chatID, sb.String())
}

func (h *Handler) handleQRStat(ctx context.Context, chatID int64, id string) {
	q, st, err := h.qr.Stats(ctx, strings.TrimSpace(id))
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("📊 %s\n\nСканирований: %d\nИгроков: %d\nВыдано: %s XP",
		formatQR(q), st.TotalScans, st.UniqueUsers, common.FormatNumber(st.TotalXP)))
}

// formatQR печатает карточку кода.
func formatQR(q *qrcodes.QRCode) string {
	text := fmt.Sprintf("%s · %s, %s · %s", q.Title, q.City, q.Branch, common.FormatXP(q.XPAmount))
	if q.MaxUses != nil {
		text += fmt.Sprintf(" · %d/%d", q.UsesCount, *q.MaxUses)
	} else {
		text += fmt.Sprintf(" · %d скан.", q.UsesCount)
	}
	if q.ExpiresAt != nil {
		text += " · до " + q.ExpiresAt.Format("02.01 15:04")
	}
	return text
}

func (h *Handler) handleGrant(ctx context.Context, chatID int64, args []string, grant bool) {
	if len(args) != 2 {
		h.sendMessage(chatID, "Использование: /grant @игрок <ачивка>")
		return
	}
	m, err := h.members.Resolve(ctx, args[0])
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	if grant {
		h.reply(chatID, h.ledger.GrantAchievement(ctx, m.UserID, args[1]), "🏆 Ачивка выдана "+m.DisplayName())
		return
	}
	h.reply(chatID, h.ledger.RevokeAchievement(ctx, m.UserID, args[1]), "Ачивка снята у "+m.DisplayName())
}

func (h *Handler) handleAchievementNew(ctx context.Context, chatID int64, rest string) {
	d, err := ParseAchievement(rest)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	created, err := h.achievements.Create(ctx, d)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("🏆 Ачивка создана: %s (%s)\nУсловия: %s",
		created.Title, created.ID, achievements.DescribeConditions(created.Conditions, h.catalog.SkillLabel)))
}

func (h *Handler) handleAchievementEdit(ctx context.Context, chatID int64, rest string) {
	d, err := ParseAchievementEdit(rest)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	old, err := h.achievements.Get(ctx, d.ID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	d.ImageURL = old.ImageURL
	if err := h.achievements.Update(ctx, d); err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✏️ Ачивка обновлена: %s (%s)\nУсловия: %s",
		d.Title, d.ID, achievements.DescribeConditions(d.Conditions, h.catalog.SkillLabel)))
}

func (h *Handler) handleAchievementList(ctx context.Context, chatID int64) {
	defs, err := h.achievements.Definitions(ctx)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	if len(defs) == 0 {
		h.sendMessage(chatID, "Ачивок пока нет")
		return
	}
	var sb strings.Builder
	sb.WriteString("🏆 Ачивки\n\n")
	for _, d := range defs {
		sb.WriteString(fmt.Sprintf("%s (%s): %s\n", d.Title, d.ID, achievements.DescribeConditions(d.Conditions, h.catalog.SkillLabel)))
	}
	h.sendMessage(chatID, sb.String())
}

func (h *Handler) handleXPConfig(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		cfg, err := h.settings.XPConfig(ctx)
		if err != nil {
			h.replyError(chatID, err)
			return
		}
		h.sendMessage(chatID, formatXPConfig(cfg))
		return
	}
	cfg, err := ParseXPConfig(args)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	if err := h.settings.SetXPConfig(ctx, cfg); err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, "✅ Формула обновлена\n\n"+formatXPConfig(cfg))
}

func formatXPConfig(cfg progression.XPConfig) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📈 XP на уровень: %d, множитель: %.2f\n\n", cfg.XPPerLevel, cfg.Multiplier))
	for level := 1; level <= 5; level++ {
		sb.WriteString(fmt.Sprintf("Уровень %d → %d: %s XP\n", level, level+1, common.FormatNumber(progression.XPForLevel(level, cfg))))
	}
	return sb.String()
}

func (h *Handler) handleRole(ctx context.Context, chatID, userID int64, args []string) {
	if !h.requireAdmin(ctx, chatID, userID) {
		return
	}
	if len(args) != 2 {
		h.sendMessage(chatID, "Использование: /role @игрок STUDENT|TRAINER|ADMIN")
		return
	}
	role, err := members.ParseRole(args[1])
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	m, err := h.members.Resolve(ctx, args[0])
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.reply(chatID, h.members.SetRole(ctx, m.UserID, role), fmt.Sprintf("✅ %s → %s", m.DisplayName(), role))
}

func (h *Handler) requireAdmin(ctx context.Context, chatID, userID int64) bool {
	ok, err := h.members.IsAdmin(ctx, userID)
	if err != nil || !ok {
		h.sendMessage(chatID, "❌ "+common.UserMessage(common.ErrNotAdmin))
		return false
	}
	return true
}

// --- Назначить роль (2 шага) ---

func (h *Handler) startAssignRole(ctx context.Context, chatID, userID int64) {
	if !h.requireAdmin(ctx, chatID, userID) {
		return
	}
	users, err := h.members.ListByRole(ctx, members.RoleStudent)
	if err != nil || len(users) == 0 {
		h.sendMessage(chatID, "Учеников пока нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("Выберите участника (отправьте номер):\n\n")
	for i, u := range users {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, u.DisplayName()))
	}
	h.sendMessage(chatID, sb.String())
	h.service.SetState(userID, StateAssignRoleSelect, users)
}

func (h *Handler) handleAssignRoleSelect(_ context.Context, chatID, userID int64, state *AdminState, text string) {
	users, _ := state.Data.([]*members.Member)
	num, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || num < 1 || num > len(users) {
		h.sendMessage(chatID, "❌ Неверный номер. Попробуйте ещё раз.")
		return
	}
	selected := users[num-1]
	h.sendMessage(chatID, fmt.Sprintf("Роль для %s (STUDENT, TRAINER, ADMIN):", selected.DisplayName()))
	h.service.SetState(userID, StateAssignRoleText, selected)
}

func (h *Handler) handleAssignRoleText(ctx context.Context, chatID, userID int64, state *AdminState, text string) {
	selected, _ := state.Data.(*members.Member)
	role, err := members.ParseRole(text)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.service.ClearState(userID)
	h.reply(chatID, h.members.SetRole(ctx, selected.UserID, role), fmt.Sprintf("✅ %s → %s", selected.DisplayName(), role))
}

// notifyPlayer сообщает игроку о начислении. Ошибка (бот заблокирован) не важна.
func (h *Handler) notifyPlayer(userID int64, res *rewards.Result) {
	msg := tgbotapi.NewMessage(userID, "Тренер начислил тебе XP\n\n"+rewards.FormatResult(res, h.catalog.SkillLabel))
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось уведомить игрока")
	}
}

func (h *Handler) reply(chatID int64, err error, okText string) {
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.sendMessage(chatID, okText)
}

func (h *Handler) replyError(chatID int64, err error) {
	if !errors.Is(err, common.ErrNotFound) && !errors.Is(err, common.ErrInvalidArgument) && !errors.Is(err, common.ErrConflict) {
		log.WithError(err).Error("Ошибка команды тренера")
	}
	h.sendMessage(chatID, "❌ "+common.UserMessage(err))
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
