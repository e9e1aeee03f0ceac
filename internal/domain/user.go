package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User holds the spendable cash balance for one account. The balance is
// mutated exclusively by trade execution and must never go negative.
type User struct {
	ID        int64
	Username  string
	Balance   decimal.Decimal
	CreatedAt time.Time
}
