package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
	"github.com/JTSmullen/AthletiTrade/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestLedger creates a temporary database for testing
func setupTestLedger(t *testing.T) (*Ledger, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "athletitrade-test-*")
	require.NoError(t, err)

	ledger, err := NewLedger(Config{
		DBPath: filepath.Join(tmpDir, "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		ledger.Close()
		os.RemoveAll(tmpDir)
	}
	return ledger, cleanup
}

func seedUserAndPlayer(t *testing.T, ledger *Ledger, balance, price string) (*domain.User, *domain.Player) {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{Username: "trader", Balance: mustDecimal(t, balance)}
	_, err := ledger.CreateUser(ctx, user)
	require.NoError(t, err)

	player := &domain.Player{ID: 201939, Name: "Stephen Curry", CurrentPrice: mustDecimal(t, price)}
	require.NoError(t, ledger.CreatePlayer(ctx, player))

	return user, player
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func buyTrade(user *domain.User, player *domain.Player, qty int64, price string, t *testing.T) *domain.Trade {
	return &domain.Trade{
		UserID:     user.ID,
		PlayerID:   player.ID,
		Side:       domain.Buy,
		Quantity:   qty,
		Price:      mustDecimal(t, price),
		ExecutedAt: time.Now().UTC(),
	}
}

func TestLedger_CreateAndFindPlayer(t *testing.T) {
	ledger, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	player := &domain.Player{ID: 2544, Name: "LeBron James", Team: "LAL", Position: "F", CurrentPrice: mustDecimal(t, "87.50")}
	require.NoError(t, ledger.CreatePlayer(ctx, player))

	found, err := ledger.FindPlayerByID(ctx, 2544)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "LeBron James", found.Name)
	assert.Equal(t, "LAL", found.Team)
	assert.True(t, found.CurrentPrice.Equal(mustDecimal(t, "87.50")))

	missing, err := ledger.FindPlayerByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := ledger.FindAllPlayers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLedger_CreateAndFindUser(t *testing.T) {
	ledger, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	user := &domain.User{Username: "alice", Balance: mustDecimal(t, "1000")}
	id, err := ledger.CreateUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)

	found, err := ledger.FindUserByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.Username)
	assert.True(t, found.Balance.Equal(mustDecimal(t, "1000")))

	missing, err := ledger.FindUserByID(ctx, id+1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLedger_CreateUser_DuplicateUsername(t *testing.T) {
	ledger, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	_, err := ledger.CreateUser(ctx, &domain.User{Username: "alice", Balance: mustDecimal(t, "1000")})
	require.NoError(t, err)

	_, err = ledger.CreateUser(ctx, &domain.User{Username: "alice", Balance: mustDecimal(t, "1000")})
	assert.ErrorIs(t, err, ports.ErrDuplicateEntry)
}

func TestLedger_ApplyTrade_BuyDebitsBalance(t *testing.T) {
	ledger, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()
	user, player := seedUserAndPlayer(t, ledger, "1000.00", "100.00")

	trade := buyTrade(user, player, 1, "100.00", t)
	id, err := ledger.ApplyTrade(ctx, trade)
	require.NoError(t, err)
	assert.Equal(t, id, trade.ID)

	after, err := ledger.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, after.Balance.Equal(mustDecimal(t, "900.00")), "balance = %s", after.Balance)

	holdings, err := ledger.Holdings(ctx, user.ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), holdings)
}

func TestLedger_ApplyTrade_BuyInsufficientFundsLeavesStateUntouched(t *testing.T) {
	ledger, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()
	user, player := seedUserAndPlayer(t, ledger, "50.00", "100.00")

	_, err := ledger.ApplyTrade(ctx, buyTrade(user, player, 1, "100.00", t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInsufficientFunds)

	after, err := ledger.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, after.Balance.Equal(mustDecimal(t, "50.00")))

	trades, err := ledger.FindTradesByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestLedger_ApplyTrade_SellCreditsAndChecksHoldings(t *testing.T) {
	ledger, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()
	user, player := seedUserAndPlayer(t, ledger, "1000.00", "100.00")

	_, err := ledger.ApplyTrade(ctx, buyTrade(user, player, 1, "100.00", t))
	require.NoError(t, err)

	// Selling more than held must fail and change nothing.
	oversell := &domain.Trade{
		UserID: user.ID, PlayerID: player.ID, Side: domain.Sell,
		Quantity: 2, Price: mustDecimal(t, "100.00"), ExecutedAt: time.Now().UTC(),
	}
	_, err = ledger.ApplyTrade(ctx, oversell)
	assert.ErrorIs(t, err, ports.ErrInsufficientHoldings)

	holdings, err := ledger.Holdings(ctx, user.ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), holdings)

	// Selling exactly the held quantity succeeds and credits the balance.
	sell := &domain.Trade{
		UserID: user.ID, PlayerID: player.ID, Side: domain.Sell,
		Quantity: 1, Price: mustDecimal(t, "110.00"), ExecutedAt: time.Now().UTC(),
	}
	_, err = ledger.ApplyTrade(ctx, sell)
	require.NoError(t, err)

	after, err := ledger.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, after.Balance.Equal(mustDecimal(t, "1010.00")), "balance = %s", after.Balance)

	holdings, err = ledger.Holdings(ctx, user.ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), holdings)
}

func TestLedger_ApplyTrade_UnknownUser(t *testing.T) {
	ledger, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()
	_, player := seedUserAndPlayer(t, ledger, "1000.00", "100.00")

	trade := &domain.Trade{
		UserID: 9999, PlayerID: player.ID, Side: domain.Buy,
		Quantity: 1, Price: mustDecimal(t, "100.00"), ExecutedAt: time.Now().UTC(),
	}
	_, err := ledger.ApplyTrade(ctx, trade)
	assert.ErrorIs(t, err, ports.ErrUserNotFound)
}

func TestLedger_TradeVolumesSince(t *testing.T) {
	ledger, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()
	user, player := seedUserAndPlayer(t, ledger, "10000.00", "10.00")

	base := time.Now().UTC()
	for i, order := range []struct {
		side domain.TradeSide
		qty  int64
		at   time.Time
	}{
		{domain.Buy, 4, base.Add(-3 * time.Hour)},
		{domain.Buy, 6, base.Add(-1 * time.Hour)},
		{domain.Sell, 5, base.Add(-30 * time.Minute)},
	} {
		trade := &domain.Trade{
			UserID: user.ID, PlayerID: player.ID, Side: order.side,
			Quantity: order.qty, Price: mustDecimal(t, "10.00"), ExecutedAt: order.at,
		}
		_, err := ledger.ApplyTrade(ctx, trade)
		require.NoError(t, err, "trade %d", i)
	}

	// All trades on record.
	buy, sell, err := ledger.TradeVolumesSince(ctx, player.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(10), buy)
	assert.Equal(t, int64(5), sell)

	// Only trades after the cutoff.
	buy, sell, err = ledger.TradeVolumesSince(ctx, player.ID, base.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(6), buy)
	assert.Equal(t, int64(5), sell)
}

func TestLedger_CommitPriceUpdateAndHistory(t *testing.T) {
	ledger, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()
	_, player := seedUserAndPlayer(t, ledger, "1000.00", "50.00")

	first := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, ledger.CommitPriceUpdate(ctx, player.ID, mustDecimal(t, "50.05"), 10, 5, first))
	second := time.Now().UTC()
	require.NoError(t, ledger.CommitPriceUpdate(ctx, player.ID, mustDecimal(t, "51.00"), 3, 0, second))

	updated, err := ledger.FindPlayerByID(ctx, player.ID)
	require.NoError(t, err)
	assert.True(t, updated.CurrentPrice.Equal(mustDecimal(t, "51.00")))

	latest, err := ledger.LatestPriceEntry(ctx, player.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Price.Equal(mustDecimal(t, "51.00")))
	assert.Equal(t, int64(3), latest.BuyVolume)

	history, err := ledger.PriceHistory(ctx, player.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Price.Equal(mustDecimal(t, "50.05")), "history must be oldest first")
	assert.Equal(t, int64(10), history[0].BuyVolume)
	assert.Equal(t, int64(5), history[0].SellVolume)
}

func TestLedger_CommitPriceUpdate_UnknownPlayer(t *testing.T) {
	ledger, cleanup := setupTestLedger(t)
	defer cleanup()

	err := ledger.CommitPriceUpdate(context.Background(), 404, mustDecimal(t, "1.00"), 0, 0, time.Now().UTC())
	assert.ErrorIs(t, err, ports.ErrPlayerNotFound)
}

func TestLedger_LatestPriceEntry_NoneRecorded(t *testing.T) {
	ledger, cleanup := setupTestLedger(t)
	defer cleanup()
	_, player := seedUserAndPlayer(t, ledger, "1000.00", "0")

	entry, err := ledger.LatestPriceEntry(context.Background(), player.ID)
	require.NoError(t, err)
	assert.Nil(t, entry)
}
