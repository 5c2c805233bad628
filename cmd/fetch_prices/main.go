package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"macroNewsBot/internal/adapters/binanceclient"
	"macroNewsBot/internal/adapters/logger"
	"macroNewsBot/internal/utils"
)

// Downloads the second-resolution price history the backtester replays.
// Fetches day by day and appends to the output file so a multi-month
// download can be interrupted and resumed.
func main() {
	var (
		symbol   = flag.String("symbol", "BTCUSDT", "trading symbol")
		interval = flag.String("interval", "1s", "bar interval")
		days     = flag.Int("days", 90, "how many days back from now to fetch")
		out      = flag.String("out", "", "output CSV path (default data/<symbol>_<interval>.csv)")
	)
	flag.Parse()

	_ = godotenv.Load()
	appLogger := logger.NewConsole(logger.LevelInfo)
	ctx := context.Background()

	client, err := binanceclient.New(binanceclient.Config{
		APIKey:    os.Getenv("BINANCE_API_KEY"),
		SecretKey: os.Getenv("BINANCE_API_SECRET"),
		Logger:    appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("data/%s_%s.csv", *symbol, *interval)
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -*days)
	appLogger.Info(ctx, "Fetching price history", map[string]interface{}{
		"symbol":   *symbol,
		"interval": *interval,
		"start":    start.Format("2006-01-02"),
		"end":      end.Format("2006-01-02"),
		"filename": filename,
	})

	total := 0
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		bars, err := client.GetBarsRange(ctx, *symbol, *interval, day, day.AddDate(0, 0, 1))
		if err != nil {
			log.Fatalf("Error fetching bars for %s: %v", day.Format("2006-01-02"), err)
		}
		if err := utils.WriteBarsToCSV(bars, filename); err != nil {
			log.Fatalf("Error writing CSV: %v", err)
		}
		total += len(bars)
		appLogger.Info(ctx, "Fetched day", map[string]interface{}{
			"day":   day.Format("2006-01-02"),
			"bars":  len(bars),
			"total": total,
		})
	}

	appLogger.Info(ctx, "Saved price history", map[string]interface{}{"filename": filename, "bars": total})
}
