package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide represents the side of a trade (BUY or SELL).
type TradeSide string

const (
	Buy  TradeSide = "BUY"
	Sell TradeSide = "SELL"
)

// IsValid reports whether the side is one of the known constants.
func (s TradeSide) IsValid() bool {
	return s == Buy || s == Sell
}

// Trade is an immutable record of one executed order. The price is the
// player's price as observed at execution time; later price changes never
// alter it.
type Trade struct {
	ID         int64
	UserID     int64
	PlayerID   int64
	Side       TradeSide
	Quantity   int64 // Always positive
	Price      decimal.Decimal
	ExecutedAt time.Time
}

// TotalValue returns price multiplied by quantity.
func (t *Trade) TotalValue() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}
