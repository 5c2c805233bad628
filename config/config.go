package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"macroNewsBot/internal/adapters/logger"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Parameters
	Symbol          string
	BaseAmount      float64 // Notional traded per leverage unit, in quote currency
	MaxPositionSize float64 // Upper bound on total notional; caps leverage
	StopLoss        float64 // Stop loss percentage (e.g., 0.002 for 0.2%)
	TakeProfit      float64 // Take profit percentage (e.g., 0.02 for 2%)
	ReturnThreshold float64 // Minimum favorable move to dodge the no-movement exit
	GracePeriod     time.Duration
	MaxOrders       int     // Max trades per day in live mode

	// Live polling
	PollInterval time.Duration
	SingleShot   bool   // One fetch attempt, no recurring polling
	Proxyless    bool   // Skip the proxy rotation entirely
	IndicatorURL string // Endpoint the indicator fetcher polls
	ProxyListURL string // Endpoint listing rotation proxies
	Indicator    string // Which indicator this run trades (CPI, GDP, PCE, NFP, FOMC)

	// Per-indicator decision table
	IndicatorsPath string

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Trading Parameters
	cfg.Symbol = getEnv("SYMBOL", "BTCUSDT")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	cfg.BaseAmount, err = getEnvAsFloatRequired("BASE_AMOUNT", 200000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BASE_AMOUNT: %v", err))
	} else if cfg.BaseAmount <= 0 {
		errs = append(errs, "BASE_AMOUNT must be positive")
	}

	cfg.MaxPositionSize, err = getEnvAsFloatRequired("MAX_POSITION_SIZE", 1000000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_POSITION_SIZE: %v", err))
	} else if cfg.MaxPositionSize < cfg.BaseAmount {
		errs = append(errs, "MAX_POSITION_SIZE must be at least BASE_AMOUNT")
	}

	cfg.StopLoss, err = getEnvAsFloatRequired("STOP_LOSS", 0.002)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LOSS: %v", err))
	} else if cfg.StopLoss <= 0 || cfg.StopLoss >= 1.0 {
		errs = append(errs, "STOP_LOSS must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.TakeProfit, err = getEnvAsFloatRequired("TAKE_PROFIT", 0.02)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKE_PROFIT: %v", err))
	} else if cfg.TakeProfit <= 0 || cfg.TakeProfit >= 1.0 {
		errs = append(errs, "TAKE_PROFIT must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.ReturnThreshold, err = getEnvAsFloatRequired("RETURN_THRESHOLD", 0.001)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RETURN_THRESHOLD: %v", err))
	} else if cfg.ReturnThreshold <= 0 || cfg.ReturnThreshold >= cfg.TakeProfit {
		errs = append(errs, "RETURN_THRESHOLD must be positive and below TAKE_PROFIT")
	}

	graceSeconds := getEnvAsInt("GRACE_SECONDS", 10)
	if graceSeconds <= 0 {
		errs = append(errs, "GRACE_SECONDS must be positive")
	}
	cfg.GracePeriod = time.Duration(graceSeconds) * time.Second

	cfg.MaxOrders, err = getEnvAsIntRequired("MAX_ORDERS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_ORDERS: %v", err))
	} else if cfg.MaxOrders <= 0 {
		errs = append(errs, "MAX_ORDERS must be positive")
	}

	// Live polling
	pollSeconds := getEnvAsInt("POLL_INTERVAL_SECONDS", 2)
	if pollSeconds <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second
	cfg.SingleShot = getEnvAsBool("SINGLE_SHOT", false)
	cfg.Proxyless = getEnvAsBool("PROXYLESS", false)
	cfg.IndicatorURL = getEnv("INDICATOR_URL", "")
	if cfg.IndicatorURL == "" {
		errs = append(errs, "INDICATOR_URL must be set")
	}
	cfg.ProxyListURL = getEnv("PROXY_LIST_URL", "")
	if !cfg.Proxyless && cfg.ProxyListURL == "" {
		errs = append(errs, "PROXY_LIST_URL must be set unless PROXYLESS=true")
	}
	cfg.Indicator = strings.ToUpper(getEnv("INDICATOR", ""))
	if cfg.Indicator == "" {
		errs = append(errs, "INDICATOR must be set (CPI, GDP, PCE, NFP or FOMC)")
	}

	// Per-indicator table
	cfg.IndicatorsPath = getEnv("INDICATORS_PATH", "./config/indicators.yaml")

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/macro_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
