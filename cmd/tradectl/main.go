package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"github.com/JTSmullen/AthletiTrade/config"
	"github.com/JTSmullen/AthletiTrade/internal/adapters/logger"
	"github.com/JTSmullen/AthletiTrade/internal/adapters/nbastats"
	"github.com/JTSmullen/AthletiTrade/internal/adapters/sqlite"
	"github.com/JTSmullen/AthletiTrade/internal/app"
	"github.com/JTSmullen/AthletiTrade/internal/domain"
	"github.com/JTSmullen/AthletiTrade/internal/pricing"
)

// tradectl operates on the ledger directly: register users, place orders,
// inspect prices and portfolios. It shares the pricing daemon's database.
func main() {
	register := flag.NewFlagSet("register", flag.ExitOnError)
	registerName := register.String("username", "", "username for the new account")

	trade := flag.NewFlagSet("trade", flag.ExitOnError)
	tradeUser := trade.Int64("user", 0, "user ID")
	tradePlayer := trade.Int64("player", 0, "player ID")
	tradeSide := trade.String("side", "", "BUY or SELL")
	tradeQty := trade.Int64("quantity", 0, "number of shares")

	price := flag.NewFlagSet("price", flag.ExitOnError)
	pricePlayer := price.Int64("player", 0, "player ID")

	portfolio := flag.NewFlagSet("portfolio", flag.ExitOnError)
	portfolioUser := portfolio.Int64("user", 0, "user ID")

	if len(os.Args) < 2 {
		log.Fatalf("usage: tradectl <register|trade|price|portfolio> [flags]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	ledger, err := sqlite.NewLedger(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize ledger: %v", err)
	}
	defer ledger.Close()

	feed, err := nbastats.New(nbastats.Config{
		BaseURL:    cfg.StatsBaseURL,
		Timeout:    cfg.StatsTimeout,
		MaxRetries: cfg.StatsMaxRetries,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize stats feed client: %v", err)
	}

	valuation, err := pricing.NewValuation(pricing.ValuationConfig{ScaleFactor: cfg.PriceScaleFactor})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize valuation: %v", err)
	}
	volume, err := pricing.NewVolumeAdjuster(decimal.NewFromFloat(cfg.VolumeImpact))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize volume adjuster: %v", err)
	}
	pricingService, err := app.NewPricingService(app.PricingConfig{
		Ledger:        ledger,
		Feed:          feed,
		Logger:        appLogger,
		Aggregator:    pricing.NewAggregator(appLogger),
		Valuation:     valuation,
		Volume:        volume,
		RollingWindow: cfg.RollingWindowGames,
		Interval:      cfg.PricingInterval,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize pricing service: %v", err)
	}
	executor, err := app.NewTradeExecutor(ledger, pricingService, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize trade executor: %v", err)
	}
	accounts, err := app.NewAccountService(ledger, appLogger, decimal.NewFromFloat(cfg.StartingBalance))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize account service: %v", err)
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "register":
		register.Parse(os.Args[2:])
		user, err := accounts.RegisterUser(ctx, *registerName)
		if err != nil {
			log.Fatalf("register failed: %v", err)
		}
		fmt.Printf("registered user %d (%s) with balance %s\n", user.ID, user.Username, user.Balance)

	case "trade":
		trade.Parse(os.Args[2:])
		executed, err := executor.ExecuteTrade(ctx, *tradeUser, *tradePlayer, domain.TradeSide(*tradeSide), *tradeQty)
		if err != nil {
			log.Fatalf("trade failed: %v", err)
		}
		fmt.Printf("trade %d: %s %d shares of player %d at %s (total %s)\n",
			executed.ID, executed.Side, executed.Quantity, executed.PlayerID, executed.Price, executed.TotalValue())

	case "price":
		price.Parse(os.Args[2:])
		current, err := pricingService.GetCurrentPrice(ctx, *pricePlayer)
		if err != nil {
			log.Fatalf("price lookup failed: %v", err)
		}
		fmt.Printf("player %d: %s\n", *pricePlayer, current)

	case "portfolio":
		portfolio.Parse(os.Args[2:])
		user, err := accounts.GetUser(ctx, *portfolioUser)
		if err != nil {
			log.Fatalf("portfolio lookup failed: %v", err)
		}
		trades, err := executor.TradesByUser(ctx, *portfolioUser)
		if err != nil {
			log.Fatalf("portfolio lookup failed: %v", err)
		}
		fmt.Printf("user %d (%s): balance %s, %d trades\n", user.ID, user.Username, user.Balance, len(trades))
		for _, t := range trades {
			fmt.Printf("  %s  %s %d x player %d @ %s\n",
				t.ExecutedAt.Format("2006-01-02 15:04:05"), t.Side, t.Quantity, t.PlayerID, t.Price)
		}

	default:
		log.Fatalf("unknown command %q (want register, trade, price, or portfolio)", os.Args[1])
	}
}
