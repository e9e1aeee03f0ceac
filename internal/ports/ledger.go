package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
)

// PlayerRepository defines the interface for storing and retrieving players.
type PlayerRepository interface {
	// CreatePlayer saves a new player (ID assigned by the stats provider).
	CreatePlayer(ctx context.Context, player *domain.Player) error
	// FindPlayerByID retrieves a player by its ID.
	// Returns nil, nil if not found.
	FindPlayerByID(ctx context.Context, id int64) (*domain.Player, error)
	// FindAllPlayers retrieves every known player, ordered by ID.
	FindAllPlayers(ctx context.Context) ([]*domain.Player, error)
}

// UserRepository defines the interface for storing and retrieving users.
type UserRepository interface {
	// CreateUser saves a new user and returns its assigned ID.
	CreateUser(ctx context.Context, user *domain.User) (int64, error)
	// FindUserByID retrieves a user by its unique ID.
	// Returns nil, nil if not found.
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// TradeRepository defines the read side of the trade ledger. Trades are
// only ever written through Ledger.ApplyTrade.
type TradeRepository interface {
	// FindTradesByUser retrieves a user's trades, most recent first.
	FindTradesByUser(ctx context.Context, userID int64) ([]*domain.Trade, error)
	// Holdings returns the user's net owned quantity of a player:
	// sum of bought quantity minus sum of sold quantity.
	Holdings(ctx context.Context, userID, playerID int64) (int64, error)
	// TradeVolumesSince sums bought and sold quantities for a player over
	// trades executed strictly after the given time. A zero time means
	// all trades on record.
	TradeVolumesSince(ctx context.Context, playerID int64, since time.Time) (buyVolume, sellVolume int64, err error)
}

// PriceHistoryRepository defines the read side of the price history.
// Entries are only ever written through Ledger.CommitPriceUpdate.
type PriceHistoryRepository interface {
	// LatestPriceEntry retrieves the most recent history entry for a player.
	// Returns nil, nil if the player has never been priced.
	LatestPriceEntry(ctx context.Context, playerID int64) (*domain.PriceHistoryEntry, error)
	// PriceHistory retrieves a player's full history, oldest first.
	PriceHistory(ctx context.Context, playerID int64) ([]*domain.PriceHistoryEntry, error)
}

// Ledger is the durable store for players, users, trades and price history.
// The two compound operations below are the only writers of trades, balances
// and prices, and each must be atomic: either every mutation in the
// operation becomes visible or none does.
type Ledger interface {
	PlayerRepository
	UserRepository
	TradeRepository
	PriceHistoryRepository

	// ApplyTrade settles a validated trade: it re-checks funds (BUY) or
	// holdings (SELL) against committed state, adjusts the user's balance
	// and inserts the trade record in a single transaction. Returns the
	// trade's assigned ID, or ErrInsufficientFunds / ErrInsufficientHoldings
	// if the re-check fails under the committed state.
	ApplyTrade(ctx context.Context, trade *domain.Trade) (int64, error)

	// CommitPriceUpdate writes a player's new price and appends the
	// matching history entry in a single transaction.
	CommitPriceUpdate(ctx context.Context, playerID int64, price decimal.Decimal, buyVolume, sellVolume int64, at time.Time) error
}
