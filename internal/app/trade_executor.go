package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
	"github.com/JTSmullen/AthletiTrade/internal/ports"
)

// PriceSource supplies the current tradable price for a player, seeding a
// starting price for players that have never been priced. PricingService
// satisfies this.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, playerID int64) (decimal.Decimal, error)
}

// TradeExecutor validates and executes buy and sell orders against the
// current player price. It never mutates player prices; those belong
// exclusively to the pricing service.
type TradeExecutor struct {
	ledger ports.Ledger
	prices PriceSource
	logger ports.Logger
}

// NewTradeExecutor creates a new trade executor instance.
func NewTradeExecutor(ledger ports.Ledger, prices PriceSource, logger ports.Logger) (*TradeExecutor, error) {
	if ledger == nil || prices == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for TradeExecutor")
	}
	return &TradeExecutor{ledger: ledger, prices: prices, logger: logger}, nil
}

// ExecuteTrade executes a buy or sell order for the given user and player.
// Rejections always carry a specific reason: ErrInvalidTrade for a
// non-positive quantity or unknown side, ErrUserNotFound / ErrPlayerNotFound
// for missing entities, ErrInsufficientFunds for a buy beyond the user's
// balance, ErrInsufficientHoldings for a sell beyond the user's net owned
// quantity. On success the returned trade is recorded at the price observed
// here; the balance update and the trade insert commit atomically.
func (e *TradeExecutor) ExecuteTrade(ctx context.Context, userID, playerID int64, side domain.TradeSide, quantity int64) (*domain.Trade, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d: %w", quantity, ports.ErrInvalidTrade)
	}
	if !side.IsValid() {
		return nil, fmt.Errorf("unknown trade side %q: %w", side, ports.ErrInvalidTrade)
	}

	user, err := e.ledger.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ports.ErrUserNotFound)
	}
	player, err := e.ledger.FindPlayerByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, fmt.Errorf("player %d: %w", playerID, ports.ErrPlayerNotFound)
	}

	price, err := e.prices.GetCurrentPrice(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("reading price for player %d: %w", playerID, err)
	}

	cost := price.Mul(decimal.NewFromInt(quantity))
	switch side {
	case domain.Buy:
		if user.Balance.LessThan(cost) {
			return nil, fmt.Errorf("balance %s below cost %s: %w", user.Balance, cost, ports.ErrInsufficientFunds)
		}
	case domain.Sell:
		holdings, err := e.ledger.Holdings(ctx, userID, playerID)
		if err != nil {
			return nil, err
		}
		if quantity > holdings {
			return nil, fmt.Errorf("quantity %d exceeds holdings %d: %w", quantity, holdings, ports.ErrInsufficientHoldings)
		}
	}

	trade := &domain.Trade{
		UserID:     userID,
		PlayerID:   playerID,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		ExecutedAt: time.Now().UTC(),
	}
	// The ledger re-checks funds/holdings against committed state inside
	// the same transaction that moves the balance and inserts the trade,
	// so two concurrent orders cannot both spend the same money or shares.
	if _, err := e.ledger.ApplyTrade(ctx, trade); err != nil {
		return nil, err
	}

	e.logger.Info(ctx, "Trade executed", map[string]interface{}{
		"tradeID": trade.ID, "userID": userID, "playerID": playerID,
		"side": side, "quantity": quantity, "price": price.String(),
	})
	return trade, nil
}

// TradesByUser returns a user's trade history, most recent first.
func (e *TradeExecutor) TradesByUser(ctx context.Context, userID int64) ([]*domain.Trade, error) {
	user, err := e.ledger.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ports.ErrUserNotFound)
	}
	return e.ledger.FindTradesByUser(ctx, userID)
}

// Holdings returns the user's net owned quantity of a player.
func (e *TradeExecutor) Holdings(ctx context.Context, userID, playerID int64) (int64, error) {
	return e.ledger.Holdings(ctx, userID, playerID)
}
