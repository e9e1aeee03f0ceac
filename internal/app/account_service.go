package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
	"github.com/JTSmullen/AthletiTrade/internal/ports"
)

// AccountService creates and looks up user accounts. New accounts are
// credited a fixed starting balance.
type AccountService struct {
	ledger          ports.Ledger
	logger          ports.Logger
	startingBalance decimal.Decimal
}

// NewAccountService creates a new account service instance.
func NewAccountService(ledger ports.Ledger, logger ports.Logger, startingBalance decimal.Decimal) (*AccountService, error) {
	if ledger == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for AccountService")
	}
	if startingBalance.IsNegative() {
		return nil, fmt.Errorf("starting balance cannot be negative, got %s", startingBalance)
	}
	return &AccountService{ledger: ledger, logger: logger, startingBalance: startingBalance}, nil
}

// RegisterUser creates an account for the given username and credits the
// starting balance. Usernames are unique; a duplicate registration fails
// with ErrDuplicateEntry.
func (a *AccountService) RegisterUser(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}

	user := &domain.User{
		Username:  username,
		Balance:   a.startingBalance,
		CreatedAt: time.Now().UTC(),
	}
	id, err := a.ledger.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("registering user %q: %w", username, err)
	}
	user.ID = id

	a.logger.Info(ctx, "User registered", map[string]interface{}{
		"userID": id, "username": username, "balance": user.Balance.String(),
	})
	return user, nil
}

// GetUser returns the user's account, including the current cash balance.
func (a *AccountService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := a.ledger.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ports.ErrUserNotFound)
	}
	return user, nil
}
