package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
	"github.com/JTSmullen/AthletiTrade/internal/ports"

	"github.com/mattn/go-sqlite3"
)

// Ledger implements ports.Ledger using SQLite. The connection pool is
// capped at a single connection, which serializes every transaction;
// together with the in-transaction funds/holdings re-checks this gives the
// atomicity required of trade settlement and price commits.
type Ledger struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite ledger.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewLedger opens (creating if necessary) the ledger database.
func NewLedger(cfg Config) (*Ledger, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite ledger")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/athletitrade.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}

	// WAL mode lets price reads proceed while a trade commits.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, ports.ErrDBConnection)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}

	// A single connection serializes transactions; SQLite handles the rest.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ledger := &Ledger{db: db, logger: cfg.Logger}
	if err := ledger.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite ledger ready", map[string]interface{}{"path": dbPath})

	return ledger, nil
}

// initializeSchema creates tables if they don't exist.
// NOTE: basic bootstrap; a migration tool is recommended for production.
func (l *Ledger) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		team TEXT DEFAULT NULL,
		position TEXT DEFAULT NULL,
		current_price TEXT NOT NULL DEFAULT '0',
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		balance TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		player_id INTEGER NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price TEXT NOT NULL,
		executed_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id INTEGER NOT NULL,
		price TEXT NOT NULL,
		buy_volume INTEGER NOT NULL,
		sell_volume INTEGER NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_player_executed ON trades (player_id, executed_at);
	CREATE INDEX IF NOT EXISTS idx_trades_user_player ON trades (user_id, player_id);
	CREATE INDEX IF NOT EXISTS idx_price_history_player_recorded ON price_history (player_id, recorded_at);
	`
	_, err := l.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.db != nil {
		l.logger.Info(context.Background(), "Closing SQLite ledger")
		return l.db.Close()
	}
	return nil
}

// --- PlayerRepository Implementation ---

// CreatePlayer saves a new player. The ID comes from the stats provider.
func (l *Ledger) CreatePlayer(ctx context.Context, player *domain.Player) error {
	const query = `
	INSERT INTO players (id, name, team, position, current_price, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	updatedAt := player.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, query,
		player.ID, player.Name, nullableString(player.Team), nullableString(player.Position),
		player.CurrentPrice.String(), updatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert player %d: %w", player.ID, err)
	}
	l.logger.Debug(ctx, "Player created", map[string]interface{}{"playerID": player.ID, "name": player.Name})
	return nil
}

// FindPlayerByID retrieves a player by its ID. Returns nil, nil if absent.
func (l *Ledger) FindPlayerByID(ctx context.Context, id int64) (*domain.Player, error) {
	const query = `
	SELECT id, name, COALESCE(team, ''), COALESCE(position, ''), current_price, updated_at
	FROM players
	WHERE id = ?`

	player, err := scanPlayer(l.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query player %d: %w", id, err)
	}
	return player, nil
}

// FindAllPlayers retrieves every known player, ordered by ID.
func (l *Ledger) FindAllPlayers(ctx context.Context) ([]*domain.Player, error) {
	const query = `
	SELECT id, name, COALESCE(team, ''), COALESCE(position, ''), current_price, updated_at
	FROM players
	ORDER BY id`

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := make([]*domain.Player, 0)
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, player)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}
	return players, nil
}

// --- UserRepository Implementation ---

// CreateUser saves a new user and returns its assigned ID.
func (l *Ledger) CreateUser(ctx context.Context, user *domain.User) (int64, error) {
	const query = `
	INSERT INTO users (username, balance, created_at)
	VALUES (?, ?, ?)`

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	result, err := l.db.ExecContext(ctx, query, user.Username, user.Balance.String(), createdAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("username '%s' already taken: %w", user.Username, ports.ErrDuplicateEntry)
		}
		return 0, fmt.Errorf("failed to insert user '%s': %w", user.Username, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user '%s': %w", user.Username, err)
	}
	user.ID = id
	l.logger.Debug(ctx, "User created", map[string]interface{}{"userID": id, "username": user.Username})
	return id, nil
}

// FindUserByID retrieves a user by its ID. Returns nil, nil if absent.
func (l *Ledger) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
	SELECT id, username, balance, created_at
	FROM users
	WHERE id = ?`

	user, err := scanUser(l.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user %d: %w", id, err)
	}
	return user, nil
}

// --- TradeRepository Implementation ---

// FindTradesByUser retrieves a user's trades, most recent first.
func (l *Ledger) FindTradesByUser(ctx context.Context, userID int64) ([]*domain.Trade, error) {
	const query = `
	SELECT id, user_id, player_id, side, quantity, price, executed_at
	FROM trades
	WHERE user_id = ?
	ORDER BY executed_at DESC, id DESC`

	rows, err := l.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for user %d: %w", userID, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// Holdings returns the user's net owned quantity of a player.
func (l *Ledger) Holdings(ctx context.Context, userID, playerID int64) (int64, error) {
	holdings, err := queryHoldings(ctx, l.db, userID, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to query holdings for user %d player %d: %w", userID, playerID, err)
	}
	return holdings, nil
}

// TradeVolumesSince sums bought and sold quantities for a player over
// trades executed strictly after the given time.
func (l *Ledger) TradeVolumesSince(ctx context.Context, playerID int64, since time.Time) (int64, int64, error) {
	const base = `
	SELECT
		COALESCE(SUM(CASE WHEN side = 'BUY' THEN quantity ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN side = 'SELL' THEN quantity ELSE 0 END), 0)
	FROM trades
	WHERE player_id = ?`

	var row *sql.Row
	if since.IsZero() {
		row = l.db.QueryRowContext(ctx, base, playerID)
	} else {
		row = l.db.QueryRowContext(ctx, base+` AND executed_at > ?`, playerID, since)
	}

	var buyVolume, sellVolume int64
	if err := row.Scan(&buyVolume, &sellVolume); err != nil {
		return 0, 0, fmt.Errorf("failed to query trade volumes for player %d: %w", playerID, err)
	}
	return buyVolume, sellVolume, nil
}

// --- PriceHistoryRepository Implementation ---

// LatestPriceEntry retrieves the most recent history entry for a player.
// Returns nil, nil if the player has never been priced.
func (l *Ledger) LatestPriceEntry(ctx context.Context, playerID int64) (*domain.PriceHistoryEntry, error) {
	const query = `
	SELECT id, player_id, price, buy_volume, sell_volume, recorded_at
	FROM price_history
	WHERE player_id = ?
	ORDER BY recorded_at DESC, id DESC
	LIMIT 1`

	entry, err := scanPriceEntry(l.db.QueryRowContext(ctx, query, playerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest price entry for player %d: %w", playerID, err)
	}
	return entry, nil
}

// PriceHistory retrieves a player's full price history, oldest first.
func (l *Ledger) PriceHistory(ctx context.Context, playerID int64) ([]*domain.PriceHistoryEntry, error) {
	const query = `
	SELECT id, player_id, price, buy_volume, sell_volume, recorded_at
	FROM price_history
	WHERE player_id = ?
	ORDER BY recorded_at ASC, id ASC`

	rows, err := l.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history for player %d: %w", playerID, err)
	}
	defer rows.Close()

	entries := make([]*domain.PriceHistoryEntry, 0)
	for rows.Next() {
		entry, err := scanPriceEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price history row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history rows: %w", err)
	}
	return entries, nil
}

// --- Atomic operations ---

// ApplyTrade settles a validated trade in a single transaction: re-check
// funds or holdings against committed state, move the balance, insert the
// trade. Either every mutation commits or none does.
func (l *Ledger) ApplyTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin trade transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	var balanceStr string
	err = tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, trade.UserID).Scan(&balanceStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("user %d: %w", trade.UserID, ports.ErrUserNotFound)
		}
		return 0, fmt.Errorf("failed to read balance for user %d: %w", trade.UserID, err)
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return 0, fmt.Errorf("corrupt balance for user %d: %w", trade.UserID, err)
	}

	cost := trade.TotalValue()
	var newBalance decimal.Decimal
	switch trade.Side {
	case domain.Buy:
		if balance.LessThan(cost) {
			return 0, fmt.Errorf("balance %s below cost %s: %w", balance, cost, ports.ErrInsufficientFunds)
		}
		newBalance = balance.Sub(cost)
	case domain.Sell:
		holdings, err := queryHoldings(ctx, tx, trade.UserID, trade.PlayerID)
		if err != nil {
			return 0, fmt.Errorf("failed to read holdings for user %d player %d: %w", trade.UserID, trade.PlayerID, err)
		}
		if trade.Quantity > holdings {
			return 0, fmt.Errorf("quantity %d exceeds holdings %d: %w", trade.Quantity, holdings, ports.ErrInsufficientHoldings)
		}
		newBalance = balance.Add(cost)
	default:
		return 0, fmt.Errorf("side %q: %w", trade.Side, ports.ErrInvalidTrade)
	}

	result, err := tx.ExecContext(ctx, `UPDATE users SET balance = ? WHERE id = ?`, newBalance.String(), trade.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to update balance for user %d: %w", trade.UserID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for user %d balance update: %w", trade.UserID, err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("user %d vanished during trade: %w", trade.UserID, ports.ErrUpdateFailed)
	}

	result, err = tx.ExecContext(ctx, `
	INSERT INTO trades (user_id, player_id, side, quantity, price, executed_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		trade.UserID, trade.PlayerID, string(trade.Side), trade.Quantity, trade.Price.String(), trade.ExecutedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade for user %d: %w", trade.UserID, err)
	}
	tradeID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get trade ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit trade for user %d: %w", trade.UserID, err)
	}

	trade.ID = tradeID
	l.logger.Debug(ctx, "Trade applied", map[string]interface{}{
		"tradeID": tradeID, "userID": trade.UserID, "playerID": trade.PlayerID,
		"side": trade.Side, "quantity": trade.Quantity, "price": trade.Price.String(),
	})
	return tradeID, nil
}

// CommitPriceUpdate writes the player's new price and appends the matching
// history entry in a single transaction.
func (l *Ledger) CommitPriceUpdate(ctx context.Context, playerID int64, price decimal.Decimal, buyVolume, sellVolume int64, at time.Time) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin price update transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE players SET current_price = ?, updated_at = ? WHERE id = ?`,
		price.String(), at, playerID)
	if err != nil {
		return fmt.Errorf("failed to update price for player %d: %w", playerID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for player %d price update: %w", playerID, err)
	}
	if affected == 0 {
		return fmt.Errorf("player %d: %w", playerID, ports.ErrPlayerNotFound)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO price_history (player_id, price, buy_volume, sell_volume, recorded_at)
	VALUES (?, ?, ?, ?, ?)`,
		playerID, price.String(), buyVolume, sellVolume, at)
	if err != nil {
		return fmt.Errorf("failed to insert price history for player %d: %w", playerID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price update for player %d: %w", playerID, err)
	}

	l.logger.Debug(ctx, "Price update committed", map[string]interface{}{
		"playerID": playerID, "price": price.String(),
		"buyVolume": buyVolume, "sellVolume": sellVolume,
	})
	return nil
}

// --- helpers ---

// querier is satisfied by both *sql.DB and *sql.Tx, letting the holdings
// computation run standalone or inside a trade transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func queryHoldings(ctx context.Context, q querier, userID, playerID int64) (int64, error) {
	const query = `
	SELECT COALESCE(SUM(CASE WHEN side = 'BUY' THEN quantity ELSE -quantity END), 0)
	FROM trades
	WHERE user_id = ? AND player_id = ?`

	var holdings int64
	if err := q.QueryRowContext(ctx, query, userID, playerID).Scan(&holdings); err != nil {
		return 0, err
	}
	return holdings, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPlayer(s scanner) (*domain.Player, error) {
	var (
		player   domain.Player
		priceStr string
	)
	if err := s.Scan(&player.ID, &player.Name, &player.Team, &player.Position, &priceStr, &player.UpdatedAt); err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt price for player %d: %w", player.ID, err)
	}
	player.CurrentPrice = price
	return &player, nil
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		user       domain.User
		balanceStr string
	)
	if err := s.Scan(&user.ID, &user.Username, &balanceStr, &user.CreatedAt); err != nil {
		return nil, err
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance for user %d: %w", user.ID, err)
	}
	user.Balance = balance
	return &user, nil
}

func scanTrade(s scanner) (*domain.Trade, error) {
	var (
		trade    domain.Trade
		side     string
		priceStr string
	)
	if err := s.Scan(&trade.ID, &trade.UserID, &trade.PlayerID, &side, &trade.Quantity, &priceStr, &trade.ExecutedAt); err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt price for trade %d: %w", trade.ID, err)
	}
	trade.Side = domain.TradeSide(side)
	trade.Price = price
	return &trade, nil
}

func scanPriceEntry(s scanner) (*domain.PriceHistoryEntry, error) {
	var (
		entry    domain.PriceHistoryEntry
		priceStr string
	)
	if err := s.Scan(&entry.ID, &entry.PlayerID, &priceStr, &entry.BuyVolume, &entry.SellVolume, &entry.RecordedAt); err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt price in history entry %d: %w", entry.ID, err)
	}
	entry.Price = price
	return &entry, nil
}
