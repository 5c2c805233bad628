package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"macroNewsBot/config"
	"macroNewsBot/internal/adapters/logger"
	"macroNewsBot/internal/adapters/sqlite"
	"macroNewsBot/internal/strategy/analytics"
	"macroNewsBot/internal/strategy/backtesting"
	"macroNewsBot/internal/utils"
)

func main() {
	var (
		eventsPath      = flag.String("events", "data/events.json", "historical indicator events (JSON array)")
		pricesPath      = flag.String("prices", "data/BTCUSDT_1s.csv", "price history CSV (timestamp,open,high,low,close,volume)")
		indicatorsPath  = flag.String("indicators", "./config/indicators.yaml", "per-indicator decision table")
		outDir          = flag.String("out", "data", "output directory for trade and stats files")
		baseAmount      = flag.Float64("base", 200000, "notional per leverage unit")
		maxPositionSize = flag.Float64("max-position", 1000000, "maximum total notional, caps leverage")
		stopLoss        = flag.Float64("sl", 0.002, "stop loss fraction")
		returnThreshold = flag.Float64("return-threshold", 0.001, "minimum favorable move to dodge the no-movement exit")
		graceSeconds    = flag.Int("grace", 10, "no-movement grace period in seconds")
		initialBalance  = flag.Float64("balance", 1000000, "starting balance for the performance analysis")
		dbPath          = flag.String("db", "", "optional SQLite path; when set, trades are also persisted there")
	)
	flag.Parse()

	appLogger := logger.NewConsole(logger.LevelInfo)
	ctx := context.Background()

	var repo *sqlite.Repository
	if *dbPath != "" {
		var err error
		repo, err = sqlite.NewRepository(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
		if err != nil {
			log.Fatalf("FATAL: Failed to open trade database: %v", err)
		}
		defer repo.Close()
	}

	// 1. Load the decision table and the historical event set
	registry, err := config.LoadIndicators(*indicatorsPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load indicator table: %v", err)
	}
	events, err := utils.ReadEventsFromJSON(*eventsPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load events: %v", err)
	}
	appLogger.Info(ctx, "Loaded historical events", map[string]interface{}{
		"count":  len(events),
		"events": *eventsPath,
		"prices": *pricesPath,
	})

	// 2. Sweep take-profit levels; everything else stays fixed per run
	tps := []float64{0.01, 0.02, 0.03}

	for _, tp := range tps {
		runner, err := backtesting.NewRunner(backtesting.Config{
			PriceFile:       *pricesPath,
			Indicators:      registry,
			BaseAmount:      *baseAmount,
			MaxPositionSize: *maxPositionSize,
			Simulator: backtesting.SimulatorConfig{
				StopLossPct:        *stopLoss,
				TakeProfitPct:      tp,
				ReturnThresholdPct: *returnThreshold,
				GracePeriod:        time.Duration(*graceSeconds) * time.Second,
			},
		}, appLogger)
		if err != nil {
			log.Fatalf("FATAL: Failed to create backtest runner (tp=%.3f): %v", tp, err)
		}

		result, err := runner.Run(ctx, events)
		if err != nil {
			appLogger.Error(ctx, err, "Backtest run failed", map[string]interface{}{"tp": tp})
			continue
		}

		metrics := analytics.AnalyzePerformance(result.Trades, *initialBalance)
		appLogger.Info(ctx, "Backtest result", map[string]interface{}{
			"TP":       tp * 100,
			"Events":   len(events),
			"Trades":   metrics.TotalTrades,
			"WinRate":  metrics.WinRate * 100,
			"PnL":      metrics.TotalProfit,
			"Sharpe":   metrics.SharpeRatio,
			"Sortino":  metrics.SortinoRatio,
			"MaxDD":    metrics.MaxDrawdown,
			"NoMove":   metrics.NoMovementExits,
			"DeadZone": result.DeadZone,
		})

		tradesFile := filepath.Join(*outDir, fmt.Sprintf("backtest_trades_tp%.1f.json", tp*100))
		if err := utils.WriteTradesToJSON(result.Trades, tradesFile); err != nil {
			appLogger.Error(ctx, err, "Error writing trades JSON", map[string]interface{}{"filename": tradesFile})
			continue
		}
		appLogger.Info(ctx, "Trades saved to", map[string]interface{}{"filename": tradesFile})

		if repo != nil {
			for _, trade := range result.Trades {
				if _, err := repo.CreateTrade(ctx, trade); err != nil {
					appLogger.Error(ctx, err, "Error persisting trade", map[string]interface{}{"event": trade.Event})
				}
			}
		}
	}
}
