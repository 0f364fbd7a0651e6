// Package bot связывает Telegram с обработчиками: polling, фильтр чатов,
// лимит запросов и маршрутизация команд игрока и тренера.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/bot/filters"
	"volleylevel.by/academy-bot/internal/bot/middleware"
	"volleylevel.by/academy-bot/internal/config"
	"volleylevel.by/academy-bot/internal/features/achievements"
	"volleylevel.by/academy-bot/internal/features/admin"
	"volleylevel.by/academy-bot/internal/features/members"
	"volleylevel.by/academy-bot/internal/features/rankings"
	"volleylevel.by/academy-bot/internal/features/rewards"
	"volleylevel.by/academy-bot/internal/features/streak"
)

const helpText = `🏐 VolleyLevel — прогресс игрока академии

Сканируй QR-код на тренировке, чтобы получить XP.
По субботам и воскресеньям XP удваивается.

Команды:
!профиль — уровень, навыки и серия
!история — последние тренировки
!ачивки — достижения
!огонек — серия тренировок
!рейтинг [серия|навык|город] — таблица лидеров
!филиал <город> <филиал> — выбрать филиал
!qr <код> — погасить код вручную`

// Deps собирает зависимости бота.
type Deps struct {
	API           *tgbotapi.BotAPI
	Config        *config.Config
	ChatFilter    *filters.ChatFilter
	Members       *members.Service
	MemberHandler *members.Handler
	Rewards       *rewards.Handler
	Achievements  *achievements.Handler
	Streak        *streak.Handler
	Rankings      *rankings.Handler
	Admin         *admin.Handler
}

// Bot принимает апдейты и раздаёт их обработчикам.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter
	parser      *CommandParser

	members       *members.Service
	memberHandler *members.Handler
	rewards       *rewards.Handler
	achievements  *achievements.Handler
	streak        *streak.Handler
	rankings      *rankings.Handler
	admin         *admin.Handler

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт бота со всеми зависимостями.
func New(d Deps) *Bot {
	maxInFlight := d.Config.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:           d.API,
		cfg:           d.Config,
		chatFilter:    d.ChatFilter,
		rateLimiter:   middleware.NewRateLimiter(d.Config.RateLimitRequests, d.Config.RateLimitWindow),
		parser:        NewCommandParser(),
		members:       d.Members,
		memberHandler: d.MemberHandler,
		rewards:       d.Rewards,
		achievements:  d.Achievements,
		streak:        d.Streak,
		rankings:      d.Rankings,
		admin:         d.Admin,
		inflight:      make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling и блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"bot":          b.api.Self.UserName,
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				b.rateLimiter.Close()
				return
			}

			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	message := update.Message
	if message == nil || message.Chat == nil {
		return
	}

	// Вступление в чат академии регистрирует игрока вместе со счётом.
	if len(message.NewChatMembers) > 0 {
		if b.cfg.AcademyChatID != 0 && message.Chat.ID == b.cfg.AcademyChatID {
			b.memberHandler.HandleNewChatMembers(ctx, message.NewChatMembers)
		}
		return
	}

	if message.Text == "" {
		return
	}

	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	if !b.rateLimiter.Allow(userID) {
		log.WithField("user_id", userID).Debug("Превышен лимит запросов")
		return
	}

	if err := b.members.EnsureMember(ctx, userID,
		message.From.UserName, message.From.FirstName, message.From.LastName,
	); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось зарегистрировать участника")
	}

	// В личке сначала панель тренера: пароль, диалоги и /-команды.
	if message.Chat.IsPrivate() && b.admin.HandleAdminMessage(ctx, chatID, userID, message.Text) {
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("Команда разобрана")

	b.routeCommand(ctx, message, cmd, args)
}

// routeCommand передаёт команду нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, message *tgbotapi.Message, cmd string, args []string) {
	chatID := message.Chat.ID
	userID := message.From.ID

	switch cmd {
	case "start":
		// /start qr_... приходит по ссылке из QR-кода.
		if len(args) > 0 && strings.HasPrefix(args[0], "qr_") {
			b.rewards.HandleScan(ctx, chatID, userID, args[0])
			return
		}
		b.sendMessage(chatID, helpText)

	case "help", "помощь":
		b.sendMessage(chatID, helpText)

	case "qr", "скан":
		b.rewards.HandleScan(ctx, chatID, userID, strings.Join(args, " "))

	case "профиль", "profile":
		b.rewards.HandleProfile(ctx, chatID, userID)

	case "история", "history":
		b.rewards.HandleHistory(ctx, chatID, userID)

	case "ачивки", "achievements":
		b.achievements.HandleAchievements(ctx, chatID, userID)

	case "огонек", "огонёк":
		b.streak.HandleOgonek(ctx, chatID, userID)

	case "рейтинг", "top":
		b.rankings.HandleRanking(ctx, chatID, args)

	case "филиал":
		b.memberHandler.HandleBranch(ctx, chatID, userID, args)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendMessageToUser пишет игроку в личку. Используется напоминаниями.
func (b *Bot) SendMessageToUser(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
	}
}

// CommandParser разбирает команды с префиксами ! . и /.
type CommandParser struct {
	validPrefixes []string
}

func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс "@имя_бота" у команды отбрасывается.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command, _, _ := strings.Cut(strings.ToLower(parts[0]), "@")
	if command == "" {
		return "", nil, false
	}
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return command, args, true
}
