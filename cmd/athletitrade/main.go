package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/JTSmullen/AthletiTrade/config"
	"github.com/JTSmullen/AthletiTrade/internal/adapters/logger"
	"github.com/JTSmullen/AthletiTrade/internal/adapters/nbastats"
	"github.com/JTSmullen/AthletiTrade/internal/adapters/sqlite"
	"github.com/JTSmullen/AthletiTrade/internal/app"
	"github.com/JTSmullen/AthletiTrade/internal/pricing"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Ledger (Database Adapter)
	ledger, err := sqlite.NewLedger(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize ledger")
		log.Fatalf("FATAL: Failed to initialize ledger: %v", err)
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing ledger")
		}
	}()
	appLogger.Info(context.Background(), "Ledger initialized")

	// 4. Initialize Stats Feed Client
	feed, err := nbastats.New(nbastats.Config{
		BaseURL:    cfg.StatsBaseURL,
		Timeout:    cfg.StatsTimeout,
		MaxRetries: cfg.StatsMaxRetries,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize stats feed client")
		log.Fatalf("FATAL: Failed to initialize stats feed client: %v", err)
	}
	appLogger.Info(context.Background(), "Stats feed client initialized")

	// 5. Initialize Pricing Components
	valuation, err := pricing.NewValuation(pricing.ValuationConfig{
		ScaleFactor: cfg.PriceScaleFactor,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize valuation")
		log.Fatalf("FATAL: Failed to initialize valuation: %v", err)
	}
	volume, err := pricing.NewVolumeAdjuster(decimal.NewFromFloat(cfg.VolumeImpact))
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize volume adjuster")
		log.Fatalf("FATAL: Failed to initialize volume adjuster: %v", err)
	}

	// 6. Initialize Pricing Service
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
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize pricing service")
		log.Fatalf("FATAL: Failed to initialize pricing service: %v", err)
	}
	appLogger.Info(context.Background(), "Pricing service initialized")

	// 7. Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := pricingService.SyncRoster(ctx); err != nil {
		appLogger.Error(ctx, err, "Roster sync failed, continuing with known players")
	}
	if err := pricingService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error(ctx, err, "Pricing service exited with error")
		log.Fatalf("FATAL: Pricing service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
