package api

import (
	"sort"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/achievements"
	"volleylevel.by/academy-bot/internal/features/progression"
	"volleylevel.by/academy-bot/internal/features/rankings"
	"volleylevel.by/academy-bot/internal/features/rewards"
)

// skillView: навык в профиле.
type skillView struct {
	ID       string `json:"id"`
	XP       int64  `json:"xp"`
	Level    int    `json:"level"`
	Progress int    `json:"progress"`
	Maxed    bool   `json:"maxed"`
}

// userView: профиль игрока в ответах API.
type userView struct {
	ID                 int64       `json:"id"`
	Level              int         `json:"level"`
	Rank               string      `json:"rank"`
	XP                 int64       `json:"xp"`
	XPForLevel         int64       `json:"xpForLevel"`
	Progress           int         `json:"progress"`
	TotalXP            int64       `json:"totalXp"`
	TrainingsCompleted int         `json:"trainingsCompleted"`
	Streak             int         `json:"streak"`
	LastTrainingDate   string      `json:"lastTrainingDate,omitempty"`
	Skills             []skillView `json:"skills"`
	Achievements       []string    `json:"achievements"`
}

func newUserView(acc *rewards.Account, cfg progression.XPConfig) userView {
	v := userView{
		ID:                 acc.UserID,
		Level:              acc.Level,
		Rank:               progression.RankTitle(acc.Level),
		XP:                 acc.LevelXP,
		XPForLevel:         progression.XPForLevel(acc.Level, cfg),
		Progress:           progression.ProgressPercent(acc.LevelState(), cfg),
		TotalXP:            acc.TotalXP,
		TrainingsCompleted: acc.TrainingsCompleted,
		Streak:             acc.Streak,
		Skills:             make([]skillView, 0, len(acc.Skills)),
		Achievements:       make([]string, 0, len(acc.Achievements)),
	}
	if acc.LastTrainingDate != nil {
		v.LastTrainingDate = acc.LastTrainingDate.Format(time.DateOnly)
	}
	for id, xp := range acc.Skills {
		info := progression.SkillLevel(xp)
		v.Skills = append(v.Skills, skillView{ID: id, XP: xp, Level: info.Level, Progress: info.Progress, Maxed: info.IsMaxLevel})
	}
	sort.Slice(v.Skills, func(i, j int) bool { return v.Skills[i].ID < v.Skills[j].ID })
	for id, ok := range acc.Achievements {
		if ok {
			v.Achievements = append(v.Achievements, id)
		}
	}
	sort.Strings(v.Achievements)
	return v
}

// resultView: ответ на начисление.
type resultView struct {
	User            userView                  `json:"user"`
	XPAwarded       int64                     `json:"xpAwarded"`
	WeekendBonus    bool                      `json:"weekendBonus"`
	LeveledUp       bool                      `json:"leveledUp"`
	SkillUpdates    map[string]int64          `json:"skillUpdates"`
	Entry           rewards.HistoryEntry      `json:"entry"`
	NewAchievements []achievements.Definition `json:"newAchievements"`
}

func (s *Server) resultView(c *fiber.Ctx, res *rewards.Result) (resultView, error) {
	cfg, err := s.settings.XPConfig(c.UserContext())
	if err != nil {
		return resultView{}, err
	}
	unlocked := res.NewlyUnlocked
	if unlocked == nil {
		unlocked = []achievements.Definition{}
	}
	return resultView{
		User:            newUserView(res.Account, cfg),
		XPAwarded:       res.XPAwarded,
		WeekendBonus:    res.IsBonusDay,
		LeveledUp:       res.LeveledUp,
		SkillUpdates:    res.SkillUpdates,
		Entry:           res.Entry,
		NewAchievements: unlocked,
	}, nil
}

func userID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.Invalidf("некорректный id игрока")
	}
	return id, nil
}

func (s *Server) getUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	acc, err := s.ledger.Account(c.UserContext(), id)
	if err != nil {
		return err
	}
	cfg, err := s.settings.XPConfig(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(newUserView(acc, cfg))
}

func (s *Server) getHistory(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	limit := clampLimit(c.QueryInt("limit", s.historyLimit), s.historyLimit, maxHistoryLimit)
	entries, err := s.ledger.History(c.UserContext(), id, limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []rewards.HistoryEntry{}
	}
	return c.JSON(entries)
}

type awardRequest struct {
	UserID   int64  `json:"userId"`
	XPAmount int64  `json:"xpAmount"`
	SkillID  string `json:"skillId"`
}

func (s *Server) awardXP(c *fiber.Ctx) error {
	var req awardRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalidf("некорректное тело запроса")
	}
	if req.UserID <= 0 {
		return common.Invalidf("нужны userId и xpAmount")
	}
	res, err := s.ledger.Award(c.UserContext(), rewards.ManualAward{UserID: req.UserID, XP: req.XPAmount, SkillID: req.SkillID})
	if err != nil {
		return err
	}
	view, err := s.resultView(c, res)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

type trainingRequest struct {
	UserID     int64               `json:"userId"`
	Skills     []rewards.SkillLine `json:"skills"`
	PresetName string              `json:"presetName"`
	// nil = тренировка засчитывается
	CountsAsTraining *bool `json:"countsAsTraining"`
}

func (s *Server) logTraining(c *fiber.Ctx) error {
	var req trainingRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalidf("некорректное тело запроса")
	}
	if req.UserID <= 0 {
		return common.Invalidf("нужны userId и skills")
	}
	counts := req.CountsAsTraining == nil || *req.CountsAsTraining
	res, err := s.ledger.LogTraining(c.UserContext(), rewards.TrainingLog{
		UserID:           req.UserID,
		Skills:           req.Skills,
		CountsAsTraining: counts,
		Label:            req.PresetName,
	})
	if err != nil {
		return err
	}
	view, err := s.resultView(c, res)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

type scanRequest struct {
	UserID int64  `json:"userId"`
	QRID   string `json:"qrId"`
}

func (s *Server) scanQR(c *fiber.Ctx) error {
	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalidf("некорректное тело запроса")
	}
	if req.UserID <= 0 || req.QRID == "" {
		return common.Invalidf("нужны userId и qrId")
	}
	res, err := s.ledger.Redeem(c.UserContext(), req.UserID, req.QRID)
	if err != nil {
		return err
	}
	view, err := s.resultView(c, res)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (s *Server) listAchievements(c *fiber.Ctx) error {
	defs, err := s.achievements.Definitions(c.UserContext())
	if err != nil {
		return err
	}
	if defs == nil {
		defs = []achievements.Definition{}
	}
	return c.JSON(defs)
}

func (s *Server) getXPConfig(c *fiber.Ctx) error {
	cfg, err := s.settings.XPConfig(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(cfg)
}

func (s *Server) putXPConfig(c *fiber.Ctx) error {
	var cfg progression.XPConfig
	if err := c.BodyParser(&cfg); err != nil {
		return common.Invalidf("некорректное тело запроса")
	}
	if err := s.settings.SetXPConfig(c.UserContext(), cfg); err != nil {
		return err
	}
	return c.JSON(cfg)
}

func (s *Server) getRankings(c *fiber.Ctx) error {
	q := rankings.Query{
		Board: rankings.Board(c.Query("board", string(rankings.BoardXP))),
		Skill: c.Query("skill"),
		City:  c.Query("city"),
		Limit: c.QueryInt("limit", rankings.DefaultLimit),
	}
	entries, err := s.rankings.Top(c.UserContext(), q)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []rankings.Entry{}
	}
	return c.JSON(entries)
}

// maxHistoryLimit: верхняя граница ?limit= для истории.
const maxHistoryLimit = 100

// clampLimit возвращает def для непозитивного limit и не больше upper.
func clampLimit(limit, def, upper int) int {
	if limit <= 0 {
		return def
	}
	if limit > upper {
		return upper
	}
	return limit
}
