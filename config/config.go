package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"positionsMonitor/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Leaderboard API
	LeaderboardAPIKey  string
	LeaderboardAPIHost string
	LeaderboardBaseURL string
	HTTPTimeout        time.Duration
	CacheTTL           time.Duration

	// Trader roster
	UIDs []string

	// Polling
	FetchInterval time.Duration
	ScanInterval  time.Duration
	BatchSize     int           // UIDs fetched concurrently per batch
	BatchPause    time.Duration // pause between batches

	// Scanner thresholds
	Window            time.Duration
	WhaleThreshold    decimal.Decimal
	PriceBandPct      decimal.Decimal
	LeverageTolerance int
	AmountTolerance   decimal.Decimal
	OpenTimeTolerance time.Duration

	// Notification
	TelegramToken  string
	TelegramChatID string

	// Optional Binance client for live mark prices (public endpoint, keys optional)
	BinanceAPIKey    string
	BinanceSecretKey string
	MarkPriceEnabled bool

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

	// Leaderboard API
	cfg.LeaderboardAPIKey = getEnv("LEADERBOARD_API_KEY", "")
	if cfg.LeaderboardAPIKey == "" {
		errs = append(errs, "LEADERBOARD_API_KEY must be set")
	}
	cfg.LeaderboardAPIHost = getEnv("LEADERBOARD_API_HOST", "")
	cfg.LeaderboardBaseURL = getEnv("LEADERBOARD_BASE_URL", "")
	cfg.HTTPTimeout = getEnvAsDuration("HTTP_TIMEOUT", 15*time.Second)
	cfg.CacheTTL = getEnvAsDuration("CACHE_TTL", 10*time.Minute)

	// Trader roster
	cfg.UIDs = getEnvAsStringSlice("TRADER_UIDS")
	if len(cfg.UIDs) == 0 {
		errs = append(errs, "TRADER_UIDS must list at least one UID")
	}

	// Polling
	cfg.FetchInterval = getEnvAsDuration("FETCH_INTERVAL", 2*time.Hour)
	if cfg.FetchInterval <= 0 {
		errs = append(errs, "FETCH_INTERVAL must be positive")
	}
	cfg.ScanInterval = getEnvAsDuration("SCAN_INTERVAL", 2*time.Minute)
	if cfg.ScanInterval <= 0 {
		errs = append(errs, "SCAN_INTERVAL must be positive")
	}
	cfg.BatchSize = getEnvAsInt("BATCH_SIZE", 5)
	if cfg.BatchSize <= 0 {
		errs = append(errs, "BATCH_SIZE must be positive")
	}
	cfg.BatchPause = getEnvAsDuration("BATCH_PAUSE", time.Second)

	// Scanner thresholds
	cfg.Window = getEnvAsDuration("SCAN_WINDOW", 30*time.Minute)
	if cfg.Window <= 0 {
		errs = append(errs, "SCAN_WINDOW must be positive")
	}

	cfg.WhaleThreshold, err = getEnvAsDecimal("WHALE_THRESHOLD", decimal.NewFromInt(1_000_000))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid WHALE_THRESHOLD: %v", err))
	} else if !cfg.WhaleThreshold.IsPositive() {
		errs = append(errs, "WHALE_THRESHOLD must be positive")
	}

	cfg.PriceBandPct, err = getEnvAsDecimal("PRICE_BAND_PCT", decimal.NewFromFloat(1.5))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PRICE_BAND_PCT: %v", err))
	} else if !cfg.PriceBandPct.IsPositive() {
		errs = append(errs, "PRICE_BAND_PCT must be positive")
	}

	cfg.LeverageTolerance = getEnvAsInt("LEVERAGE_TOLERANCE", 5)
	if cfg.LeverageTolerance < 0 {
		errs = append(errs, "LEVERAGE_TOLERANCE cannot be negative")
	}

	cfg.AmountTolerance, err = getEnvAsDecimal("AMOUNT_TOLERANCE", decimal.NewFromFloat(1.5))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid AMOUNT_TOLERANCE: %v", err))
	}

	cfg.OpenTimeTolerance = getEnvAsDuration("OPEN_TIME_TOLERANCE", 30*time.Second)
	if cfg.OpenTimeTolerance <= 0 {
		errs = append(errs, "OPEN_TIME_TOLERANCE must be positive")
	}

	// Notification (optional: without a token, findings are only logged)
	cfg.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")
	if cfg.TelegramToken != "" && cfg.TelegramChatID == "" {
		errs = append(errs, "TELEGRAM_CHAT_ID must be set when TELEGRAM_BOT_TOKEN is set")
	}

	// Optional Binance mark-price client
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.MarkPriceEnabled = getEnvAsBool("MARK_PRICE_ENABLED", true)

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/positions_monitor.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

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

// getEnvAsDuration parses a Go duration string (e.g. "2h", "90s").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDecimal parses a decimal value, returning an error if the env var
// is set but invalid.
func getEnvAsDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

// getEnvAsStringSlice parses a comma-separated list, trimming whitespace and
// dropping empty entries and duplicates.
func getEnvAsStringSlice(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	seen := make(map[string]bool)
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		v := strings.TrimSpace(part)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}
