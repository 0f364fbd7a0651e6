package rewards

import (
	"context"
	"sort"
	"sync"
	"time"

	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/qrcodes"
)

// MemoryStore: Store в памяти процесса для тестов леджера и API.
// Apply выполняется под одним мьютексом.
type MemoryStore struct {
	mu          sync.Mutex
	accounts    map[int64]*Account
	codes       map[string]*qrcodes.QRCode
	history     map[int64][]HistoryEntry
	redemptions map[redemptionKey]bool
	nextID      int64
}

type redemptionKey struct {
	userID int64
	qrID   string
	day    string
}

func newRedemptionKey(userID int64, qrID string, day time.Time) redemptionKey {
	return redemptionKey{userID: userID, qrID: qrID, day: day.Format("2006-01-02")}
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[int64]*Account),
		codes:       make(map[string]*qrcodes.QRCode),
		history:     make(map[int64][]HistoryEntry),
		redemptions: make(map[redemptionKey]bool),
	}
}

// AddQRCode кладёт код в хранилище (копию).
func (m *MemoryStore) AddQRCode(q *qrcodes.QRCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *q
	m.codes[q.ID] = &c
}

func (m *MemoryStore) CreateAccount(_ context.Context, userID int64, skills []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[userID]; !ok {
		m.accounts[userID] = NewAccount(userID, skills)
	}
	return nil
}

func (m *MemoryStore) GetAccount(_ context.Context, userID int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return nil, common.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

func (m *MemoryStore) GetQRCode(_ context.Context, id string) (*qrcodes.QRCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.codes[id]
	if !ok {
		return nil, common.ErrQRNotFound
	}
	c := *q
	return &c, nil
}

func (m *MemoryStore) HasRedemption(_ context.Context, userID int64, qrID string, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.redemptions[newRedemptionKey(userID, qrID, day)], nil
}

func (m *MemoryStore) Apply(_ context.Context, userID int64, fn func(*Account) (*Commit, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[userID]
	if !ok {
		return common.ErrAccountNotFound
	}
	commit, err := fn(acc.Clone())
	if err != nil || commit == nil {
		return err
	}

	// Сначала все проверки, потом все записи.
	var code *qrcodes.QRCode
	var key redemptionKey
	if commit.QRCodeID != "" {
		code, ok = m.codes[commit.QRCodeID]
		if !ok {
			return common.ErrQRNotFound
		}
		if code.IsExhausted() {
			return common.ErrQRMaxUses
		}
		if commit.Entry != nil {
			key = newRedemptionKey(userID, commit.QRCodeID, commit.Entry.Day)
			if m.redemptions[key] {
				return common.ErrQRAlreadyRedeemed
			}
		}
	}

	if code != nil {
		code.UsesCount++
		if commit.Entry != nil {
			m.redemptions[key] = true
		}
	}
	m.accounts[userID] = commit.Account.Clone()
	if commit.Entry != nil {
		m.nextID++
		commit.Entry.ID = m.nextID
		m.history[userID] = append(m.history[userID], *commit.Entry)
	}
	return nil
}

func (m *MemoryStore) History(_ context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.history[userID]
	out := make([]HistoryEntry, len(all))
	copy(out, all)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
