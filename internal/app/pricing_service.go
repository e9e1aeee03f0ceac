package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
	"github.com/JTSmullen/AthletiTrade/internal/ports"
	"github.com/JTSmullen/AthletiTrade/internal/pricing"
)

const defaultRollingWindow = 20 // games fed into the rolling average

// PricingService orchestrates the pricing pipeline: order-flow volumes and
// aggregated game stats in, a committed price plus history entry out. It is
// the only component that mutates player prices.
type PricingService struct {
	ledger     ports.Ledger
	feed       ports.StatsFeed
	logger     ports.Logger
	aggregator *pricing.Aggregator
	valuation  *pricing.Valuation
	volume     *pricing.VolumeAdjuster

	rollingWindow int
	interval      time.Duration

	// group collapses concurrent pricing runs for the same player so a
	// scheduled cycle and an on-demand reprice can never double-count
	// volume or race on the price write.
	group singleflight.Group

	// Read-through cache over committed prices. The ledger stays the
	// source of truth; entries are refreshed on every committed write.
	// Each entry carries its commit timestamp so a read that raced a
	// commit can never overwrite a fresher price.
	mu     sync.RWMutex
	prices map[int64]cachedPrice
}

type cachedPrice struct {
	price       decimal.Decimal
	committedAt time.Time
}

// PricingConfig holds the dependencies and tuning for a PricingService.
type PricingConfig struct {
	Ledger        ports.Ledger
	Feed          ports.StatsFeed
	Logger        ports.Logger
	Aggregator    *pricing.Aggregator
	Valuation     *pricing.Valuation
	Volume        *pricing.VolumeAdjuster
	RollingWindow int           // games per rolling average; defaults to 20
	Interval      time.Duration // periodic cycle interval; defaults to 1h
}

// NewPricingService creates a new pricing service instance.
func NewPricingService(cfg PricingConfig) (*PricingService, error) {
	if cfg.Ledger == nil || cfg.Feed == nil || cfg.Logger == nil ||
		cfg.Aggregator == nil || cfg.Valuation == nil || cfg.Volume == nil {
		return nil, fmt.Errorf("missing required dependencies for PricingService")
	}
	window := cfg.RollingWindow
	if window <= 0 {
		window = defaultRollingWindow
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return &PricingService{
		ledger:        cfg.Ledger,
		feed:          cfg.Feed,
		logger:        cfg.Logger,
		aggregator:    cfg.Aggregator,
		valuation:     cfg.Valuation,
		volume:        cfg.Volume,
		rollingWindow: window,
		interval:      interval,
		prices:        make(map[int64]cachedPrice),
	}, nil
}

// Run executes one pricing cycle immediately and then one per interval until
// the context is canceled.
func (s *PricingService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.RunPricingCycle(ctx); err != nil {
		s.logger.Error(ctx, err, "Pricing cycle failed")
	}
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Pricing loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunPricingCycle(ctx); err != nil {
				s.logger.Error(ctx, err, "Pricing cycle failed")
			}
		}
	}
}

// RunPricingCycle reprices every known player. A player whose stats cannot
// be fetched keeps its price for this cycle; the failure is logged and the
// cycle moves on. Only a ledger-wide failure (or context cancellation)
// aborts the cycle.
func (s *PricingService) RunPricingCycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	players, err := s.ledger.FindAllPlayers(ctx)
	if err != nil {
		return fmt.Errorf("pricing cycle %s: %w", cycleID, err)
	}
	s.logger.Info(ctx, "Pricing cycle started", map[string]interface{}{"cycleID": cycleID, "players": len(players)})

	updated, skipped := 0, 0
	for _, player := range players {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pricing cycle %s interrupted: %w", cycleID, err)
		}
		if err := s.RepricePlayer(ctx, player.ID); err != nil {
			skipped++
			if errors.Is(err, ports.ErrStatsUnavailable) || errors.Is(err, ports.ErrFeedUnavailable) {
				s.logger.Warn(ctx, "Stats unavailable, price left unchanged", map[string]interface{}{
					"cycleID": cycleID, "playerID": player.ID, "player": player.Name,
				})
			} else {
				s.logger.Error(ctx, err, "Price update failed, continuing cycle", map[string]interface{}{
					"cycleID": cycleID, "playerID": player.ID, "player": player.Name,
				})
			}
			continue
		}
		updated++
	}

	s.logger.Info(ctx, "Pricing cycle completed", map[string]interface{}{
		"cycleID": cycleID, "updated": updated, "skipped": skipped,
	})
	return nil
}

// RepricePlayer recomputes and commits one player's price. Concurrent calls
// for the same player are collapsed into a single run.
func (s *PricingService) RepricePlayer(ctx context.Context, playerID int64) error {
	_, err, _ := s.group.Do(fmt.Sprintf("reprice:%d", playerID), func() (interface{}, error) {
		return nil, s.repricePlayer(ctx, playerID)
	})
	return err
}

func (s *PricingService) repricePlayer(ctx context.Context, playerID int64) error {
	player, err := s.ledger.FindPlayerByID(ctx, playerID)
	if err != nil {
		return err
	}
	if player == nil {
		return fmt.Errorf("player %d: %w", playerID, ports.ErrPlayerNotFound)
	}

	// Order flow since the last committed pricing run.
	last, err := s.ledger.LatestPriceEntry(ctx, playerID)
	if err != nil {
		return err
	}
	var since time.Time
	if last != nil {
		since = last.RecordedAt
	}
	buyVolume, sellVolume, err := s.ledger.TradeVolumesSince(ctx, playerID, since)
	if err != nil {
		return err
	}

	rows, err := s.feed.FetchGameLog(ctx, playerID)
	if err != nil {
		return err
	}
	averages := s.aggregator.Averages(ctx, rows, s.rollingWindow)
	candidate := s.valuation.Price(averages)

	newPrice := s.nextPrice(player.CurrentPrice, candidate, buyVolume, sellVolume)
	at := time.Now().UTC()
	if err := s.ledger.CommitPriceUpdate(ctx, playerID, newPrice, buyVolume, sellVolume, at); err != nil {
		return err
	}
	s.cachePrice(playerID, newPrice, at)

	s.logger.Debug(ctx, "Player repriced", map[string]interface{}{
		"playerID": playerID, "price": newPrice.String(), "candidate": candidate.String(),
		"buyVolume": buyVolume, "sellVolume": sellVolume,
	})
	return nil
}

// nextPrice combines the performance move and the volume delta onto the
// current price. The valuation's candidate price is not adopted wholesale:
// its percent change relative to the current price is scaled back onto the
// current price, keeping price continuity, and the volume delta is added on
// top. The result is floored at zero. A player with no priced state (zero
// current price) adopts the candidate directly.
func (s *PricingService) nextPrice(current, candidate decimal.Decimal, buyVolume, sellVolume int64) decimal.Decimal {
	volumeChange := s.volume.Delta(buyVolume, sellVolume)

	var performanceChange decimal.Decimal
	if current.IsPositive() {
		pctChange := candidate.Sub(current).Div(current)
		performanceChange = pctChange.Mul(current)
	} else {
		performanceChange = candidate
	}

	newPrice := current.Add(performanceChange).Add(volumeChange).Round(2)
	if newPrice.IsNegative() {
		return decimal.Zero
	}
	return newPrice
}

// GetCurrentPrice returns the player's latest committed price, read through
// the in-process cache. A player that exists but has never been priced is
// seeded with a starting price first; concurrent callers share one seeding
// run.
func (s *PricingService) GetCurrentPrice(ctx context.Context, playerID int64) (decimal.Decimal, error) {
	s.mu.RLock()
	cached, ok := s.prices[playerID]
	s.mu.RUnlock()
	if ok {
		return cached.price, nil
	}

	player, err := s.ledger.FindPlayerByID(ctx, playerID)
	if err != nil {
		return decimal.Zero, err
	}
	if player == nil {
		return decimal.Zero, fmt.Errorf("player %d: %w", playerID, ports.ErrPlayerNotFound)
	}

	last, err := s.ledger.LatestPriceEntry(ctx, playerID)
	if err != nil {
		return decimal.Zero, err
	}
	if last == nil {
		// Never priced: run the pipeline once to seed a starting price.
		if err := s.RepricePlayer(ctx, playerID); err != nil {
			return decimal.Zero, fmt.Errorf("seeding price for player %d: %w", playerID, err)
		}
		player, err = s.ledger.FindPlayerByID(ctx, playerID)
		if err != nil {
			return decimal.Zero, err
		}
		if player == nil {
			return decimal.Zero, fmt.Errorf("player %d: %w", playerID, ports.ErrPlayerNotFound)
		}
	}

	// The cache entry is versioned by UpdatedAt, so if a pricing run
	// committed between the ledger read above and this write, the fresher
	// entry wins and this snapshot is discarded.
	s.cachePrice(playerID, player.CurrentPrice, player.UpdatedAt)
	return player.CurrentPrice, nil
}

// GetPriceHistory returns a player's price history, oldest first.
func (s *PricingService) GetPriceHistory(ctx context.Context, playerID int64) ([]*domain.PriceHistoryEntry, error) {
	player, err := s.ledger.FindPlayerByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, fmt.Errorf("player %d: %w", playerID, ports.ErrPlayerNotFound)
	}
	return s.ledger.PriceHistory(ctx, playerID)
}

// SyncRoster creates any players reported by the feed that the ledger does
// not know yet, pricing each from its full game log. A player whose stats
// cannot be fetched still gets created at the valuation floor so it becomes
// tradable; the next successful cycle will correct the price.
func (s *PricingService) SyncRoster(ctx context.Context) error {
	roster, err := s.feed.FetchRoster(ctx)
	if err != nil {
		return fmt.Errorf("roster sync: %w", err)
	}

	created := 0
	for _, entry := range roster {
		if err := ctx.Err(); err != nil {
			return err
		}
		existing, err := s.ledger.FindPlayerByID(ctx, entry.PlayerID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		var averages map[string]float64
		rows, err := s.feed.FetchGameLog(ctx, entry.PlayerID)
		if err != nil {
			s.logger.Warn(ctx, "No stats for new player, starting at floor price", map[string]interface{}{
				"playerID": entry.PlayerID, "player": entry.Name,
			})
		} else {
			averages = s.aggregator.Averages(ctx, rows, 0)
		}
		startingPrice := s.valuation.Price(averages)

		now := time.Now().UTC()
		player := &domain.Player{
			ID:           entry.PlayerID,
			Name:         entry.Name,
			CurrentPrice: startingPrice,
			UpdatedAt:    now,
		}
		if err := s.ledger.CreatePlayer(ctx, player); err != nil {
			return fmt.Errorf("roster sync: creating player %d: %w", entry.PlayerID, err)
		}
		if err := s.ledger.CommitPriceUpdate(ctx, entry.PlayerID, startingPrice, 0, 0, now); err != nil {
			return fmt.Errorf("roster sync: seeding price for player %d: %w", entry.PlayerID, err)
		}
		s.cachePrice(entry.PlayerID, startingPrice, now)
		created++

		s.logger.Info(ctx, "Player created from roster", map[string]interface{}{
			"playerID": entry.PlayerID, "player": entry.Name, "startingPrice": startingPrice.String(),
		})
	}

	s.logger.Info(ctx, "Roster sync completed", map[string]interface{}{
		"roster": len(roster), "created": created,
	})
	return nil
}

// cachePrice stores a price committed at the given time. An existing entry
// with a later commit time is kept, so stale reads never mask a fresher
// committed price.
func (s *PricingService) cachePrice(playerID int64, price decimal.Decimal, committedAt time.Time) {
	s.mu.Lock()
	if existing, ok := s.prices[playerID]; !ok || !existing.committedAt.After(committedAt) {
		s.prices[playerID] = cachedPrice{price: price, committedAt: committedAt}
	}
	s.mu.Unlock()
}
