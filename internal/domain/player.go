package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Player represents a tradable athlete. The current price is derived from
// on-court performance and order flow; only the pricing service mutates it.
type Player struct {
	ID           int64           // Identifier assigned by the stats provider
	Name         string          // Display name
	Team         string          // Team abbreviation (may be unset)
	Position     string          // Playing position (may be unset)
	CurrentPrice decimal.Decimal // Latest committed share price, never negative
	UpdatedAt    time.Time       // Timestamp of the last committed price
}

// PriceHistoryEntry is an append-only record of one committed pricing run
// for a player, including the order-flow volumes that fed into it.
type PriceHistoryEntry struct {
	ID         int64
	PlayerID   int64
	Price      decimal.Decimal
	BuyVolume  int64 // Total bought quantity since the previous entry
	SellVolume int64 // Total sold quantity since the previous entry
	RecordedAt time.Time
}
