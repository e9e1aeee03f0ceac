package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
	"github.com/JTSmullen/AthletiTrade/internal/ports"
)

// Mock implementations

type mockLogger struct {
	mu        sync.Mutex
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	m.warnMsgs = append(m.warnMsgs, msg)
	m.mu.Unlock()
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	m.errorMsgs = append(m.errorMsgs, msg)
	m.mu.Unlock()
}

// memLedger is an in-memory ports.Ledger with the same compound-operation
// semantics as the SQLite adapter.
type memLedger struct {
	mu          sync.Mutex
	players     map[int64]*domain.Player
	users       map[int64]*domain.User
	trades      []*domain.Trade
	history     map[int64][]*domain.PriceHistoryEntry
	nextTradeID int64
	nextUserID  int64

	failWith error // when set, every call fails with this error

	// One-shot hooks, run outside the lock, for interleaving work between
	// a service's ledger calls.
	afterLatestPrice func()
	afterCommit      func()
}

func newMemLedger() *memLedger {
	return &memLedger{
		players: make(map[int64]*domain.Player),
		users:   make(map[int64]*domain.User),
		history: make(map[int64][]*domain.PriceHistoryEntry),
	}
}

func (m *memLedger) CreatePlayer(ctx context.Context, player *domain.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.players[player.ID]; ok {
		return ports.ErrDuplicateEntry
	}
	cp := *player
	m.players[player.ID] = &cp
	return nil
}

func (m *memLedger) FindPlayerByID(ctx context.Context, id int64) (*domain.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	player, ok := m.players[id]
	if !ok {
		return nil, nil
	}
	cp := *player
	return &cp, nil
}

func (m *memLedger) FindAllPlayers(ctx context.Context) ([]*domain.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	players := make([]*domain.Player, 0, len(m.players))
	for _, p := range m.players {
		cp := *p
		players = append(players, &cp)
	}
	return players, nil
}

func (m *memLedger) CreateUser(ctx context.Context, user *domain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	m.nextUserID++
	user.ID = m.nextUserID
	cp := *user
	m.users[user.ID] = &cp
	return user.ID, nil
}

func (m *memLedger) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (m *memLedger) FindTradesByUser(ctx context.Context, userID int64) ([]*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	trades := make([]*domain.Trade, 0)
	for i := len(m.trades) - 1; i >= 0; i-- {
		if m.trades[i].UserID == userID {
			cp := *m.trades[i]
			trades = append(trades, &cp)
		}
	}
	return trades, nil
}

func (m *memLedger) Holdings(ctx context.Context, userID, playerID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	return m.holdingsLocked(userID, playerID), nil
}

func (m *memLedger) holdingsLocked(userID, playerID int64) int64 {
	var holdings int64
	for _, t := range m.trades {
		if t.UserID != userID || t.PlayerID != playerID {
			continue
		}
		if t.Side == domain.Buy {
			holdings += t.Quantity
		} else {
			holdings -= t.Quantity
		}
	}
	return holdings
}

func (m *memLedger) TradeVolumesSince(ctx context.Context, playerID int64, since time.Time) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, 0, m.failWith
	}
	var buy, sell int64
	for _, t := range m.trades {
		if t.PlayerID != playerID {
			continue
		}
		if !since.IsZero() && !t.ExecutedAt.After(since) {
			continue
		}
		if t.Side == domain.Buy {
			buy += t.Quantity
		} else {
			sell += t.Quantity
		}
	}
	return buy, sell, nil
}

func (m *memLedger) LatestPriceEntry(ctx context.Context, playerID int64) (*domain.PriceHistoryEntry, error) {
	m.mu.Lock()
	if m.failWith != nil {
		m.mu.Unlock()
		return nil, m.failWith
	}
	var entry *domain.PriceHistoryEntry
	if entries := m.history[playerID]; len(entries) > 0 {
		cp := *entries[len(entries)-1]
		entry = &cp
	}
	hook := m.afterLatestPrice
	m.afterLatestPrice = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return entry, nil
}

func (m *memLedger) PriceHistory(ctx context.Context, playerID int64) ([]*domain.PriceHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	entries := make([]*domain.PriceHistoryEntry, 0, len(m.history[playerID]))
	for _, e := range m.history[playerID] {
		cp := *e
		entries = append(entries, &cp)
	}
	return entries, nil
}

func (m *memLedger) ApplyTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	user, ok := m.users[trade.UserID]
	if !ok {
		return 0, ports.ErrUserNotFound
	}
	cost := trade.TotalValue()
	switch trade.Side {
	case domain.Buy:
		if user.Balance.LessThan(cost) {
			return 0, ports.ErrInsufficientFunds
		}
		user.Balance = user.Balance.Sub(cost)
	case domain.Sell:
		if trade.Quantity > m.holdingsLocked(trade.UserID, trade.PlayerID) {
			return 0, ports.ErrInsufficientHoldings
		}
		user.Balance = user.Balance.Add(cost)
	default:
		return 0, ports.ErrInvalidTrade
	}
	m.nextTradeID++
	trade.ID = m.nextTradeID
	cp := *trade
	m.trades = append(m.trades, &cp)
	return trade.ID, nil
}

func (m *memLedger) CommitPriceUpdate(ctx context.Context, playerID int64, price decimal.Decimal, buyVolume, sellVolume int64, at time.Time) error {
	m.mu.Lock()
	if m.failWith != nil {
		m.mu.Unlock()
		return m.failWith
	}
	player, ok := m.players[playerID]
	if !ok {
		m.mu.Unlock()
		return ports.ErrPlayerNotFound
	}
	player.CurrentPrice = price
	player.UpdatedAt = at
	m.history[playerID] = append(m.history[playerID], &domain.PriceHistoryEntry{
		ID:         int64(len(m.history[playerID]) + 1),
		PlayerID:   playerID,
		Price:      price,
		BuyVolume:  buyVolume,
		SellVolume: sellVolume,
		RecordedAt: at,
	})
	hook := m.afterCommit
	m.afterCommit = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

// removePlayer drops a player from the store, for simulating a deletion
// between two ledger calls.
func (m *memLedger) removePlayer(playerID int64) {
	m.mu.Lock()
	delete(m.players, playerID)
	m.mu.Unlock()
}

// mockFeed implements ports.StatsFeed.
type mockFeed struct {
	mu        sync.Mutex
	logs      map[int64][]domain.GameStatRow
	logErrs   map[int64]error
	roster    []domain.RosterEntry
	rosterErr error
	logCalls  map[int64]int
}

func newMockFeed() *mockFeed {
	return &mockFeed{
		logs:     make(map[int64][]domain.GameStatRow),
		logErrs:  make(map[int64]error),
		logCalls: make(map[int64]int),
	}
}

func (m *mockFeed) FetchGameLog(ctx context.Context, playerID int64) ([]domain.GameStatRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logCalls[playerID]++
	if err := m.logErrs[playerID]; err != nil {
		return nil, err
	}
	rows, ok := m.logs[playerID]
	if !ok {
		return nil, fmt.Errorf("no stats for player %d: %w", playerID, ports.ErrStatsUnavailable)
	}
	return rows, nil
}

func (m *mockFeed) FetchRoster(ctx context.Context) ([]domain.RosterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rosterErr != nil {
		return nil, m.rosterErr
	}
	return m.roster, nil
}

// stubPrices implements PriceSource with a fixed answer.
type stubPrices struct {
	price decimal.Decimal
	err   error
}

func (s *stubPrices) GetCurrentPrice(ctx context.Context, playerID int64) (decimal.Decimal, error) {
	return s.price, s.err
}
