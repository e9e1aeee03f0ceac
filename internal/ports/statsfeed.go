package ports

import (
	"context"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
)

// StatsFeed defines the interface for the external per-game statistics
// provider. It is consumed only by the asynchronous pricing cycle; trade
// execution never blocks on it. A failure or timeout means "no data this
// cycle" for the affected player, nothing more.
type StatsFeed interface {
	// FetchGameLog returns a player's game log for the current season in
	// chronological order (most recent game last).
	FetchGameLog(ctx context.Context, playerID int64) ([]domain.GameStatRow, error)

	// FetchRoster returns the tradable player population.
	FetchRoster(ctx context.Context) ([]domain.RosterEntry, error)
}
