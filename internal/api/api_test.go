package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/achievements"
	"volleylevel.by/academy-bot/internal/features/progression"
	"volleylevel.by/academy-bot/internal/features/qrcodes"
	"volleylevel.by/academy-bot/internal/features/rankings"
	"volleylevel.by/academy-bot/internal/features/rewards"
)

var wednesday = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

type memSettings struct {
	cfg progression.XPConfig
}

func (m *memSettings) XPConfig(context.Context) (progression.XPConfig, error) { return m.cfg, nil }

func (m *memSettings) SetXPConfig(_ context.Context, cfg progression.XPConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.cfg = cfg
	return nil
}

type staticDefs []achievements.Definition

func (d staticDefs) Definitions(context.Context) ([]achievements.Definition, error) { return d, nil }

type fakeRankings struct{}

func (fakeRankings) Top(_ context.Context, q rankings.Query) ([]rankings.Entry, error) {
	if q.Board == rankings.BoardSkill && q.Skill != "serve" {
		return nil, common.Invalidf("неизвестный навык %q", q.Skill)
	}
	return []rankings.Entry{{Rank: 1, UserID: 1, Value: 150}}, nil
}

type fixture struct {
	server *Server
	ledger *rewards.Ledger
	store  *rewards.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := rewards.NewMemoryStore()
	store.AddQRCode(&qrcodes.QRCode{ID: "qr_hall", Title: "Зал", XPAmount: 100})

	settings := &memSettings{cfg: progression.DefaultXPConfig()}
	defs := staticDefs{{ID: "ach_first", Title: "Первая тренировка", Conditions: achievements.Conditions{MinTrainings: achievements.Int(1)}}}
	ledger := rewards.NewLedger(store, settings, defs, common.NewFixedClock(wednesday, time.UTC), []string{"serve", "block"})
	require.NoError(t, ledger.Register(context.Background(), 1))

	return &fixture{
		server: New(Deps{
			Ledger:       ledger,
			Settings:     settings,
			Achievements: defs,
			Rankings:     fakeRankings{},
			HistoryLimit: 10,
		}),
		ledger: ledger,
		store:  store,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealth(t *testing.T) {
	code, _ := newFixture(t).do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestGetUser(t *testing.T) {
	f := newFixture(t)

	code, data := f.do(t, http.MethodGet, "/api/users/1", nil)
	require.Equal(t, http.StatusOK, code)
	u := decode[userView](t, data)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, "Новичок", u.Rank)
	assert.Equal(t, int64(1000), u.XPForLevel)
	assert.Len(t, u.Skills, 2)

	code, data = f.do(t, http.MethodGet, "/api/users/404", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "аккаунт игрока не найден", decode[map[string]string](t, data)["error"])

	code, _ = f.do(t, http.MethodGet, "/api/users/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAwardXP(t *testing.T) {
	f := newFixture(t)

	code, data := f.do(t, http.MethodPost, "/api/users/award-xp", awardRequest{UserID: 1, XPAmount: 150, SkillID: "serve"})
	require.Equal(t, http.StatusOK, code, string(data))
	res := decode[resultView](t, data)
	assert.Equal(t, int64(150), res.XPAwarded)
	assert.False(t, res.WeekendBonus)
	assert.Equal(t, int64(150), res.User.TotalXP)
	assert.Equal(t, 0, res.User.TrainingsCompleted)
	assert.Equal(t, rewards.SourceBonus, res.Entry.Source)
	assert.Empty(t, res.NewAchievements)

	code, data = f.do(t, http.MethodPost, "/api/users/award-xp", awardRequest{UserID: 1, XPAmount: 0})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, common.ErrInvalidAmount.Error(), decode[map[string]string](t, data)["error"])

	code, data = f.do(t, http.MethodPost, "/api/users/award-xp", awardRequest{UserID: 1, XPAmount: math.MaxInt64})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, common.ErrAmountTooLarge.Error(), decode[map[string]string](t, data)["error"])

	code, _ = f.do(t, http.MethodPost, "/api/users/award-xp", "{oops")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogTrainingUnlocksAchievement(t *testing.T) {
	f := newFixture(t)

	body := trainingRequest{UserID: 1, Skills: []rewards.SkillLine{{SkillID: "serve", XP: 20}, {SkillID: "block", XP: 10}}}
	code, data := f.do(t, http.MethodPost, "/api/users/log-training", body)
	require.Equal(t, http.StatusOK, code, string(data))

	res := decode[resultView](t, data)
	assert.Equal(t, int64(30), res.XPAwarded)
	assert.Equal(t, 1, res.User.TrainingsCompleted)
	assert.Equal(t, "serve+block", res.Entry.Label)
	require.Len(t, res.NewAchievements, 1)
	assert.Equal(t, "ach_first", res.NewAchievements[0].ID)

	code, _ = f.do(t, http.MethodPost, "/api/users/log-training", trainingRequest{UserID: 1})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestScanQR(t *testing.T) {
	f := newFixture(t)

	code, data := f.do(t, http.MethodPost, "/api/users/scan-qr", scanRequest{UserID: 1, QRID: "qr_hall"})
	require.Equal(t, http.StatusOK, code, string(data))
	assert.Equal(t, int64(100), decode[resultView](t, data).XPAwarded)

	code, data = f.do(t, http.MethodPost, "/api/users/scan-qr", scanRequest{UserID: 1, QRID: "qr_hall"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, common.ErrQRAlreadyRedeemed.Error(), decode[map[string]string](t, data)["error"])

	code, _ = f.do(t, http.MethodPost, "/api/users/scan-qr", scanRequest{UserID: 1, QRID: "qr_missing"})
	assert.Equal(t, http.StatusNotFound, code)

	code, data = f.do(t, http.MethodGet, "/api/users/1/history", nil)
	require.Equal(t, http.StatusOK, code)
	entries := decode[[]rewards.HistoryEntry](t, data)
	require.Len(t, entries, 1)
	assert.Equal(t, "qr_hall", entries[0].QRCodeID)
}

func TestHistoryLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		code, data := f.do(t, http.MethodPost, "/api/users/award-xp", awardRequest{UserID: 1, XPAmount: 10})
		require.Equal(t, http.StatusOK, code, string(data))
	}

	for query, want := range map[string]int{"?limit=2": 2, "?limit=0": 3, "?limit=-5": 3, "?limit=1000000": 3, "": 3} {
		code, data := f.do(t, http.MethodGet, "/api/users/1/history"+query, nil)
		require.Equal(t, http.StatusOK, code, query)
		assert.Len(t, decode[[]rewards.HistoryEntry](t, data), want, query)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, clampLimit(0, 10, maxHistoryLimit))
	assert.Equal(t, 10, clampLimit(-1, 10, maxHistoryLimit))
	assert.Equal(t, 25, clampLimit(25, 10, maxHistoryLimit))
	assert.Equal(t, maxHistoryLimit, clampLimit(maxHistoryLimit+1, 10, maxHistoryLimit))
	assert.Equal(t, maxHistoryLimit, clampLimit(math.MaxInt, 10, maxHistoryLimit))
}

func TestXPSettings(t *testing.T) {
	f := newFixture(t)

	code, data := f.do(t, http.MethodGet, "/api/settings/xp", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, progression.DefaultXPConfig(), decode[progression.XPConfig](t, data))

	code, _ = f.do(t, http.MethodPut, "/api/settings/xp", progression.XPConfig{XPPerLevel: 800, Multiplier: 1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPut, "/api/settings/xp", progression.XPConfig{XPPerLevel: 800, Multiplier: 1.5})
	assert.Equal(t, http.StatusOK, code)

	_, data = f.do(t, http.MethodGet, "/api/users/1", nil)
	assert.Equal(t, int64(800), decode[userView](t, data).XPForLevel)
}

func TestAchievementsAndRankings(t *testing.T) {
	f := newFixture(t)

	code, data := f.do(t, http.MethodGet, "/api/achievements", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]achievements.Definition](t, data), 1)

	code, data = f.do(t, http.MethodGet, "/api/rankings?board=skill&skill=serve", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]rankings.Entry](t, data), 1)

	code, _ = f.do(t, http.MethodGet, "/api/rankings?board=skill&skill=jump", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
