package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"macroNewsBot/config"
	"macroNewsBot/internal/adapters/binanceclient"
	"macroNewsBot/internal/adapters/indicatorfeed"
	"macroNewsBot/internal/adapters/logger"
	"macroNewsBot/internal/adapters/proxyrotation"
	"macroNewsBot/internal/adapters/sqlite"
	"macroNewsBot/internal/app"
	"macroNewsBot/internal/ports"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Load the per-indicator decision table
	registry, err := config.LoadIndicators(cfg.IndicatorsPath)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to load indicator table")
		log.Fatalf("FATAL: Failed to load indicator table: %v", err)
	}
	params, err := registry.Lookup(cfg.Indicator)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Configured indicator is not in the decision table")
		log.Fatalf("FATAL: Configured indicator %q is not in the decision table: %v", cfg.Indicator, err)
	}
	appLogger.Info(context.Background(), "Indicator table loaded", map[string]interface{}{
		"indicator": cfg.Indicator,
		"threshold": params.Threshold,
		"offset":    params.Offset,
	})

	// 4. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 5. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized")

	// 6. Initialize Indicator Feed
	feed, err := indicatorfeed.NewClient(indicatorfeed.Config{
		URL:    cfg.IndicatorURL,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize indicator feed")
		log.Fatalf("FATAL: Failed to initialize indicator feed: %v", err)
	}
	appLogger.Info(context.Background(), "Indicator feed initialized")

	// 7. Build the proxy rotation (skipped entirely in proxyless mode)
	var rotation ports.ProxyRotation
	if !cfg.Proxyless {
		source, err := proxyrotation.NewSource(proxyrotation.Config{
			URL:    cfg.ProxyListURL,
			Logger: appLogger,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize proxy source")
			log.Fatalf("FATAL: Failed to initialize proxy source: %v", err)
		}
		proxies, err := source.ListProxies(context.Background())
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to fetch proxy list")
			log.Fatalf("FATAL: Failed to fetch proxy list: %v", err)
		}
		rotation = proxyrotation.NewRotation(proxies)
	} else {
		appLogger.Info(context.Background(), "Proxyless mode, indicator fetches go out directly")
	}

	// 8. Initialize Application Service
	strategyService, err := app.NewStrategyService(
		cfg,
		appLogger,
		binanceClient, // Pass the concrete implementation, service expects the interface
		repo,          // Pass the concrete implementation, service expects the interface
		repo,          // Pass the concrete implementation, service expects the interface
		feed,
		rotation,
		params,
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize strategy service")
		log.Fatalf("FATAL: Failed to initialize strategy service: %v", err)
	}
	appLogger.Info(context.Background(), "Strategy service initialized")

	// 9. Run the Service
	// Use context.Background() as the base context for the application run
	if err := strategyService.Run(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Strategy service exited with error")
		log.Fatalf("FATAL: Strategy service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
