// Package api отдаёт JSON API для мини-приложения Telegram.
// Те же операции, что и в боте: профиль, начисления, скан QR, ачивки, формула XP, рейтинг.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/achievements"
	"volleylevel.by/academy-bot/internal/features/progression"
	"volleylevel.by/academy-bot/internal/features/rankings"
	"volleylevel.by/academy-bot/internal/features/rewards"
)

// SettingsStore: чтение и смена формулы XP. В проде это settings.Service.
type SettingsStore interface {
	XPConfig(ctx context.Context) (progression.XPConfig, error)
	SetXPConfig(ctx context.Context, cfg progression.XPConfig) error
}

// DefinitionLister отдаёт список ачивок.
type DefinitionLister interface {
	Definitions(ctx context.Context) ([]achievements.Definition, error)
}

// RankingSource строит таблицы лидеров.
type RankingSource interface {
	Top(ctx context.Context, q rankings.Query) ([]rankings.Entry, error)
}

type Deps struct {
	Ledger       *rewards.Ledger
	Settings     SettingsStore
	Achievements DefinitionLister
	Rankings     RankingSource
	HistoryLimit int
	// Список origin для CORS через запятую, "*" по умолчанию.
	AllowOrigins string
}

// Server держит fiber-приложение и зависимости обработчиков.
type Server struct {
	app          *fiber.App
	ledger       *rewards.Ledger
	settings     SettingsStore
	achievements DefinitionLister
	rankings     RankingSource
	historyLimit int
}

// New собирает приложение и регистрирует маршруты.
func New(d Deps) *Server {
	s := &Server{
		ledger:       d.Ledger,
		settings:     d.Settings,
		achievements: d.Achievements,
		rankings:     d.Rankings,
		historyLimit: d.HistoryLimit,
	}

	app := fiber.New(fiber.Config{
		AppName:               "volleylevel-api",
		ErrorHandler:          errorHandler,
		BodyLimit:             64 * 1024,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		DisableStartupMessage: true,
	})

	origins := d.AllowOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(recover.New())
	app.Use(requestLogger)
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	s.routes(app)
	s.app = app
	return s
}

func (s *Server) routes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	users := api.Group("/users")
	users.Get("/:id", s.getUser)
	users.Get("/:id/history", s.getHistory)
	users.Post("/award-xp", s.awardXP)
	users.Post("/log-training", s.logTraining)
	users.Post("/scan-qr", s.scanQR)

	api.Get("/achievements", s.listAchievements)
	api.Get("/settings/xp", s.getXPConfig)
	api.Put("/settings/xp", s.putXPConfig)
	api.Get("/rankings", s.getRankings)
}

// App нужен тестам для app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen блокируется до остановки сервера.
func (s *Server) Listen(addr string) error {
	log.WithField("addr", addr).Info("HTTP API запущен")
	return s.app.Listen(addr)
}

// Shutdown останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler переводит виды ошибок в HTTP-коды:
// не найдено → 404, неверный ввод → 400, конфликт → 409, остальное → 500.
func errorHandler(c *fiber.Ctx, err error) error {
	code, message := statusOf(err)
	if code >= fiber.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Ошибка обработки запроса")
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}

func statusOf(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, common.ErrNotFound):
		return fiber.StatusNotFound, common.UserMessage(err)
	case errors.Is(err, common.ErrInvalidArgument):
		return fiber.StatusBadRequest, common.UserMessage(err)
	case errors.Is(err, common.ErrConflict):
		return fiber.StatusConflict, common.UserMessage(err)
	default:
		return fiber.StatusInternalServerError, common.UserMessage(err)
	}
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	// ошибку обрабатываем здесь, чтобы в лог попал итоговый статус
	if err := c.Next(); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			return herr
		}
	}
	log.WithFields(log.Fields{
		"component": "api",
		"method":    c.Method(),
		"path":      c.Path(),
		"status":    c.Response().StatusCode(),
		"latency":   time.Since(start).String(),
	}).Debug("HTTP запрос")
	return nil
}
