// Package app собирает приложение: пул БД, репозитории, сервисы,
// обработчики, бот, планировщик и HTTP API.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/api"
	"volleylevel.by/academy-bot/internal/bot"
	"volleylevel.by/academy-bot/internal/bot/filters"
	"volleylevel.by/academy-bot/internal/catalog"
	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/config"
	"volleylevel.by/academy-bot/internal/db/postgres"
	"volleylevel.by/academy-bot/internal/features/achievements"
	"volleylevel.by/academy-bot/internal/features/admin"
	"volleylevel.by/academy-bot/internal/features/members"
	"volleylevel.by/academy-bot/internal/features/progression"
	"volleylevel.by/academy-bot/internal/features/qrcodes"
	"volleylevel.by/academy-bot/internal/features/rankings"
	"volleylevel.by/academy-bot/internal/features/rewards"
	"volleylevel.by/academy-bot/internal/features/settings"
	"volleylevel.by/academy-bot/internal/features/streak"
	"volleylevel.by/academy-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Config    *config.Config
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	// nil, если API_ENABLED=false
	API    *api.Server
	DB     *pgxpool.Pool
	BotAPI *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок важен: сервисы зависят от репозиториев, бот от обработчиков.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	migrations, err := loadMigrations(migrationFiles)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка чтения миграций: %w", err)
	}
	if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Справочник и часы академии ===
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		pool.Close()
		return nil, err
	}
	clock := common.NewClock(cfg.AppTimezone)

	// === 3. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 4. Репозитории ===
	memberRepo := members.NewRepository(pool)
	rewardsRepo := rewards.NewRepository(pool)
	achievementRepo := achievements.NewRepository(pool)
	qrRepo := qrcodes.NewRepository(pool)
	settingsRepo := settings.NewRepository(pool)
	streakRepo := streak.NewRepository(pool)
	rankingRepo := rankings.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 5. Сервисы ===
	settingsService := settings.NewService(settingsRepo, progression.XPConfig{
		XPPerLevel: cfg.XPDefaultPerLevel,
		Multiplier: cfg.XPDefaultMultiplier,
	})
	achievementService := achievements.NewService(achievementRepo)
	ledger := rewards.NewLedger(rewardsRepo, settingsService, achievementService, clock, cat.SkillIDs())
	memberService := members.NewService(memberRepo, ledger, cfg.AdminIDs)
	qrService := qrcodes.NewService(qrRepo, clock, cat.HasSkill)
	streakService := streak.NewService(streakRepo, clock, cfg.StreakReminderThreshold)
	rankingService := rankings.NewService(rankingRepo, clock, cat.HasSkill)
	adminService := admin.NewService(adminRepo, cfg.AdminPasswordHash, clock)

	if err := seedCatalog(ctx, cat, achievementService, qrService); err != nil {
		pool.Close()
		return nil, err
	}

	// === 6. Обработчики ===
	memberHandler := members.NewHandler(memberService, botAPI)
	rewardsHandler := rewards.NewHandler(ledger, settingsService, cat.SkillIDs(), cat.SkillLabel, cfg.HistoryLimit, botAPI)
	achievementHandler := achievements.NewHandler(achievementService, ledger, cat.SkillLabel, botAPI)
	streakHandler := streak.NewHandler(streakService, botAPI)
	rankingHandler := rankings.NewHandler(rankingService, cat.SkillIDs(), cat.SkillLabel, botAPI)
	adminHandler := admin.NewHandler(admin.Deps{
		Service:      adminService,
		Members:      memberService,
		Ledger:       ledger,
		QR:           qrService,
		Achievements: achievementService,
		Settings:     settingsService,
		Catalog:      cat,
		Bot:          botAPI,
	})

	// === 7. Фильтры ===
	chatFilter := filters.NewChatFilter(cfg.AcademyChatID, memberService, botAPI)

	// === 8. Бот ===
	b := bot.New(bot.Deps{
		API:           botAPI,
		Config:        cfg,
		ChatFilter:    chatFilter,
		Members:       memberService,
		MemberHandler: memberHandler,
		Rewards:       rewardsHandler,
		Achievements:  achievementHandler,
		Streak:        streakHandler,
		Rankings:      rankingHandler,
		Admin:         adminHandler,
	})

	// === 9. Планировщик задач ===
	scheduler := jobs.NewScheduler(clock.Location(), streakService, b.SendMessageToUser)

	// === 10. HTTP API ===
	var server *api.Server
	if cfg.APIEnabled {
		server = api.New(api.Deps{
			Ledger:       ledger,
			Settings:     settingsService,
			Achievements: achievementService,
			Rankings:     rankingService,
			HistoryLimit: cfg.HistoryLimit,
			AllowOrigins: cfg.APIAllowOrigins,
		})
	}

	return &App{
		Config:    cfg,
		Bot:       b,
		Scheduler: scheduler,
		API:       server,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// seedCatalog добавляет стандартные ачивки и QR-код филиала.
// Уже существующие записи не трогаются.
func seedCatalog(ctx context.Context, cat *catalog.Catalog, achievementService *achievements.Service, qrService *qrcodes.Service) error {
	if err := achievementService.SeedDefaults(ctx, cat.Achievements); err != nil {
		return fmt.Errorf("ошибка загрузки стандартных ачивок: %w", err)
	}
	if cat.DefaultQR == nil {
		return nil
	}
	if err := qrService.Seed(ctx, seedQRCode(cat.DefaultQR)); err != nil {
		return fmt.Errorf("ошибка создания QR-кода по умолчанию: %w", err)
	}
	return nil
}

func seedQRCode(s *catalog.QRSeed) *qrcodes.QRCode {
	return &qrcodes.QRCode{
		ID:               s.ID,
		Title:            s.Title,
		City:             s.City,
		Branch:           s.Branch,
		XPAmount:         s.XP,
		SkillID:          s.SkillID,
		IsTrainingPreset: s.IsTrainingPreset,
	}
}
